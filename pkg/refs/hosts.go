package refs

import "strings"

// DefaultGitHubHost is the host assumed when a reference carries none
// and no override is configured.
const DefaultGitHubHost = "github.com"

// DefaultAzureDevOpsHost is the standard Azure DevOps Services host.
const DefaultAzureDevOpsHost = "dev.azure.com"

// Hosts describes the hostnames the parser recognizes. The zero value
// behaves like plain github.com plus dev.azure.com.
type Hosts struct {
	// Default is the host assumed for references without one.
	// Empty means github.com.
	Default string

	// GitHub lists additional GitHub hostnames beyond github.com and
	// *.ghe.com, typically GitHub Enterprise Server instances.
	GitHub []string

	// AzureDevOps lists Azure DevOps hostnames. Empty means only
	// dev.azure.com.
	AzureDevOps []string
}

// DefaultHost returns the host used for references without one.
func (h Hosts) DefaultHost() string {
	if h.Default != "" {
		return h.Default
	}
	return DefaultGitHubHost
}

// IsGitHub reports whether hostname is a recognized GitHub host:
// github.com, any *.ghe.com enterprise instance, the configured default,
// or an explicitly configured extra host.
func (h Hosts) IsGitHub(hostname string) bool {
	if hostname == "" {
		return false
	}
	hostname = strings.ToLower(hostname)
	if hostname == DefaultGitHubHost || strings.HasSuffix(hostname, ".ghe.com") {
		return true
	}
	if h.Default != "" && hostname == strings.ToLower(h.Default) {
		return true
	}
	for _, g := range h.GitHub {
		if hostname == strings.ToLower(g) {
			return true
		}
	}
	return false
}

// IsAzureDevOps reports whether hostname is a recognized Azure DevOps host.
func (h Hosts) IsAzureDevOps(hostname string) bool {
	if hostname == "" {
		return false
	}
	hostname = strings.ToLower(hostname)
	if hostname == DefaultAzureDevOpsHost {
		return true
	}
	for _, a := range h.AzureDevOps {
		if hostname == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// known reports whether hostname is recognized as either platform.
func (h Hosts) known(hostname string) bool {
	return h.IsGitHub(hostname) || h.IsAzureDevOps(hostname)
}
