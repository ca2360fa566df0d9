// Package integrations provides HTTP clients for git hosting APIs.
//
// # Overview
//
// This package contains low-level API clients for fetching repository
// metadata and raw file content from supported hosts. Each host has its
// own subpackage:
//
//   - [github]: GitHub and GitHub Enterprise
//   - [azdevops]: Azure DevOps
//
// # Client Pattern
//
// All host clients follow a consistent pattern:
//
//	client, err := github.NewClient("github.com", token, 24*time.Hour)
//	data, err := client.FetchFile(ctx, "owner", "repo", "main", "review.prompt.md")
//
// Clients handle:
//   - HTTP requests with retry and backoff
//   - Response caching for metadata (file-based, configurable TTL)
//   - API-specific parsing and authentication headers
//
// # Shared Infrastructure
//
// The [Client] type provides shared HTTP functionality used by all host
// clients, including HTTP response caching via [httputil.Cache].
//
// [github]: github.com/matzehuels/agentpm/pkg/integrations/github
// [azdevops]: github.com/matzehuels/agentpm/pkg/integrations/azdevops
// [httputil.Cache]: github.com/matzehuels/agentpm/pkg/httputil.Cache
package integrations
