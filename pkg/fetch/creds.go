package fetch

import (
	"fmt"
	"regexp"

	"github.com/matzehuels/agentpm/pkg/config"
	"github.com/matzehuels/agentpm/pkg/refs"
)

// Credentials supplies access tokens for git hosts. Tokens live only in
// memory for the duration of an operation and are never written to disk.
type Credentials struct {
	GitHub      string
	AzureDevOps string
}

// EnvCredentials reads tokens from the environment using the standard
// lookup order for each host.
func EnvCredentials() Credentials {
	return Credentials{
		GitHub:      config.GitHubToken(),
		AzureDevOps: config.AzureDevOpsToken(),
	}
}

// For returns the token for the host a reference lives on, or "" when
// none is configured.
func (c Credentials) For(r *refs.Ref) string {
	if r.AzureDevOps {
		return c.AzureDevOps
	}
	return c.GitHub
}

// CloneCandidates returns clone URLs for a repository in authentication
// fallback order: token HTTPS first when a token is available, then SSH,
// then anonymous HTTPS. Cloning tries each in turn and stops at the
// first success.
func (c Credentials) CloneCandidates(r *refs.Ref) []string {
	token := c.For(r)

	var urls []string
	if r.AzureDevOps {
		if token != "" {
			urls = append(urls, fmt.Sprintf("https://apm:%s@%s/%s", token, r.Host, r.ClonePath()))
		}
		urls = append(urls,
			fmt.Sprintf("git@ssh.%s:v3/%s", r.Host, r.RepoPath),
			fmt.Sprintf("https://%s/%s", r.Host, r.ClonePath()))
		return urls
	}

	if token != "" {
		urls = append(urls, fmt.Sprintf("https://x-access-token:%s@%s/%s.git", token, r.Host, r.RepoPath))
	}
	urls = append(urls,
		fmt.Sprintf("git@%s:%s.git", r.Host, r.RepoPath),
		fmt.Sprintf("https://%s/%s.git", r.Host, r.RepoPath))
	return urls
}

var (
	urlUserinfoPattern = regexp.MustCompile(`https?://[^@/\s]+@`)
	tokenValuePattern  = regexp.MustCompile(`(ghp_|gho_|ghu_|ghs_|ghr_|github_pat_)[A-Za-z0-9_]+`)
	tokenEnvPattern    = regexp.MustCompile(`(GITHUB_APM_PAT|GITHUB_TOKEN|GH_TOKEN|AZURE_DEVOPS_PAT)=[^\s]+`)
)

// Redact strips credentials from a message before it reaches logs or
// error output. It removes URL userinfo, recognizable token values, and
// token environment variable assignments.
func Redact(msg string) string {
	msg = urlUserinfoPattern.ReplaceAllString(msg, "https://***@")
	msg = tokenValuePattern.ReplaceAllString(msg, "***")
	msg = tokenEnvPattern.ReplaceAllString(msg, "$1=***")
	return msg
}
