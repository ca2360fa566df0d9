// Package azdevops provides an HTTP client for Azure DevOps repository
// content.
//
// # Overview
//
// This package fetches raw file content and repository metadata from an
// Azure DevOps host (dev.azure.com or an on-premises server) through the
// Git REST API. It backs lightweight operations that don't need a full
// clone, such as retrieving a single prompt file at a specific ref.
//
// # Usage
//
//	client, err := azdevops.NewClient("dev.azure.com", pat, 24*time.Hour)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	data, err := client.FetchFile(ctx, "myorg", "myproject", "prompts",
//	    "main", azdevops.VersionBranch, "review.prompt.md")
//
// # Authentication
//
// A personal access token (PAT) is sent as basic auth with an empty
// username. Public projects work without one.
//
// # Caching
//
// Repository metadata is cached under the TTL set when creating the client.
// Raw file content is never cached because branch refs are mutable.
package azdevops
