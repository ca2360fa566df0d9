package integrations_test

import (
	"fmt"

	"github.com/matzehuels/agentpm/pkg/integrations"
)

func ExampleURLEncode() {
	// URL-encode special characters for API queries
	fmt.Println(integrations.URLEncode("prompts/review.prompt.md"))
	fmt.Println(integrations.URLEncode("my collection"))
	// Output:
	// prompts%2Freview.prompt.md
	// my+collection
}

func Example_errors() {
	// Standard errors for host API operations
	fmt.Println("ErrNotFound:", integrations.ErrNotFound)
	fmt.Println("ErrNetwork:", integrations.ErrNetwork)
	// Output:
	// ErrNotFound: not found
	// ErrNetwork: network error
}
