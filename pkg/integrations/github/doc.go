// Package github provides an HTTP client for GitHub repository content.
//
// # Overview
//
// This package fetches raw file content and repository metadata from
// github.com or a GitHub Enterprise host. It backs lightweight operations
// that don't need a full clone, such as retrieving a single prompt file
// or a collection manifest at a specific ref.
//
// # Usage
//
//	client, err := github.NewClient("github.com", token, 24*time.Hour)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	data, err := client.FetchFile(ctx, "myorg", "prompts", "main", "review.prompt.md")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Authentication
//
// A personal access token is optional for public repositories but required
// for private ones. Without a token, API requests are limited to 60/hour.
//
// # Hosts
//
// For github.com, the API lives at api.github.com and raw content at
// raw.githubusercontent.com. For GitHub Enterprise, both are served under
// the instance hostname (/api/v3 and /raw respectively).
//
// # Caching
//
// Repository metadata is cached under the TTL set when creating the client.
// Raw file content is never cached because branch refs are mutable.
package github
