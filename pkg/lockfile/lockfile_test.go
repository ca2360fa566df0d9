package lockfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/agentpm/pkg/refs"
)

func TestRoundTrip(t *testing.T) {
	f := New()
	f.Add(Dependency{
		RepoURL:        "myorg/app",
		ResolvedCommit: "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
		ResolvedRef:    "main",
		Depth:          1,
	})
	f.Add(Dependency{
		RepoURL:     "myorg/prompts",
		VirtualPath: "review.prompt.md",
		IsVirtual:   true,
		Depth:       2,
		ResolvedBy:  "myorg/app",
	})

	path := filepath.Join(t.TempDir(), Filename)
	if err := f.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got == nil {
		t.Fatal("Read returned nil for a valid lock")
	}
	if got.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %q, want %q", got.SchemaVersion, SchemaVersion)
	}
	if got.Len() != 2 {
		t.Fatalf("Len = %d, want 2", got.Len())
	}

	app, ok := got.Get("myorg/app")
	if !ok {
		t.Fatal("missing myorg/app entry")
	}
	if app.Depth != 1 {
		t.Errorf("app depth = %d, want 1", app.Depth)
	}
	if app.ResolvedCommit != "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef" {
		t.Errorf("app commit = %q", app.ResolvedCommit)
	}

	virt, ok := got.Get("myorg/prompts/review.prompt.md")
	if !ok {
		t.Fatal("missing virtual entry under repo/path key")
	}
	if !virt.IsVirtual || virt.Depth != 2 || virt.ResolvedBy != "myorg/app" {
		t.Errorf("virtual entry = %+v", virt)
	}
}

func TestWriteOmitsDefaultDepth(t *testing.T) {
	f := New()
	f.Add(Dependency{RepoURL: "myorg/app", Depth: 1})
	f.Add(Dependency{RepoURL: "myorg/lib", Depth: 2, ResolvedBy: "myorg/app"})

	path := filepath.Join(t.TempDir(), Filename)
	if err := f.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if strings.Contains(text, "depth: 1") {
		t.Error("depth 1 should be omitted")
	}
	if !strings.Contains(text, "depth: 2") {
		t.Error("depth 2 should be written")
	}
	if !strings.Contains(text, "lockfile_version: \"1\"") {
		t.Errorf("missing lockfile_version header:\n%s", text)
	}
}

func TestReadMissing(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), Filename))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing file")
	}
}

func TestReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != nil {
		t.Error("expected nil for corrupt file")
	}
}

func TestReadDepthDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	content := "lockfile_version: \"1\"\ngenerated_at: 2026-01-02T03:04:05Z\ndependencies:\n  - repo_url: myorg/app\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Read(path)
	if err != nil || got == nil {
		t.Fatalf("Read: %v (%v)", got, err)
	}
	dep, ok := got.Get("myorg/app")
	if !ok {
		t.Fatal("missing entry")
	}
	if dep.Depth != 1 {
		t.Errorf("depth = %d, want default 1", dep.Depth)
	}
}

func TestAllDependenciesOrder(t *testing.T) {
	f := New()
	f.Add(Dependency{RepoURL: "zorg/deep", Depth: 2})
	f.Add(Dependency{RepoURL: "aorg/deep", Depth: 2})
	f.Add(Dependency{RepoURL: "zorg/root", Depth: 1})

	deps := f.AllDependencies()
	want := []string{"zorg/root", "aorg/deep", "zorg/deep"}
	for i, w := range want {
		if deps[i].RepoURL != w {
			t.Errorf("deps[%d] = %q, want %q", i, deps[i].RepoURL, w)
		}
	}
}

func TestInstalledPaths(t *testing.T) {
	f := New()
	f.Add(Dependency{RepoURL: "myorg/app", Depth: 1})
	f.Add(Dependency{
		RepoURL:     "myorg/prompts",
		VirtualPath: "review.prompt.md",
		IsVirtual:   true,
		Depth:       1,
	})
	f.Add(Dependency{RepoURL: "myorg/lib", Depth: 2})

	paths := f.InstalledPaths("apm_modules", refs.Hosts{})
	want := []string{
		filepath.Join("apm_modules", "myorg", "app"),
		filepath.Join("apm_modules", "myorg", "prompts-review"),
		filepath.Join("apm_modules", "myorg", "lib"),
	}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestDependencyRefRoundTrip(t *testing.T) {
	dep := Dependency{
		RepoURL:     "myorg/prompts",
		VirtualPath: "collections/planning",
		IsVirtual:   true,
	}
	ref, err := dep.Ref(refs.Hosts{})
	if err != nil {
		t.Fatalf("Ref: %v", err)
	}
	if ref.Kind != refs.KindCollection {
		t.Errorf("kind = %v, want collection", ref.Kind)
	}
	if ref.Canonical() != dep.Key() {
		t.Errorf("canonical %q != key %q", ref.Canonical(), dep.Key())
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f := New()
	f.Add(Dependency{RepoURL: "myorg/app", Depth: 1})
	if err := f.Write(filepath.Join(dir, Filename)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != Filename {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("directory contents = %v, want only %s", names, Filename)
	}
}
