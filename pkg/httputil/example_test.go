package httputil_test

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/agentpm/pkg/httputil"
)

func ExampleCache() {
	// Create a cache with 24-hour TTL in a temp directory
	dir := filepath.Join(os.TempDir(), "agentpm-example")
	cache, err := httputil.NewCache(dir, 24*time.Hour)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	// Store a resolved ref lookup
	data := map[string]string{"ref": "v1.2.0", "commit": "0a1b2c3d"}
	if err := cache.Set("github:owner/repo:v1.2.0", data); err != nil {
		fmt.Println("Error:", err)
		return
	}

	// Retrieve the value
	var result map[string]string
	if ok, err := cache.Get("github:owner/repo:v1.2.0", &result); ok && err == nil {
		fmt.Println("Ref:", result["ref"])
		fmt.Println("Commit:", result["commit"])
	}

	// Clean up
	os.RemoveAll(dir)
	// Output:
	// Ref: v1.2.0
	// Commit: 0a1b2c3d
}

func ExampleCache_miss() {
	dir := filepath.Join(os.TempDir(), "agentpm-example-miss")
	cache, _ := httputil.NewCache(dir, time.Hour)
	defer os.RemoveAll(dir)

	// Try to get a non-existent key
	var result string
	ok, err := cache.Get("nonexistent", &result)
	fmt.Println("Found:", ok)
	fmt.Println("Error:", err)
	// Output:
	// Found: false
	// Error: <nil>
}

func ExampleNewCache_defaultDir() {
	// Pass empty string to use the shared cache directory
	cache, err := httputil.NewCache("", 24*time.Hour)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Cache TTL:", cache.TTL())
	// Output:
	// Cache TTL: 24h0m0s
}
