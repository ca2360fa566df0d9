// Package config loads engine configuration from an optional TOML file
// with environment variable overrides.
//
// The file lives at ~/.config/agentpm/config.toml. Every field is
// optional; a missing file yields the defaults. Authentication tokens
// are never read from or written to the file, only from the
// environment, so they cannot leak into dotfile backups.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/agentpm/pkg/refs"
)

// Environment variables consulted at load time.
const (
	EnvGitHubHost  = "GITHUB_HOST"
	EnvGitHubHosts = "APM_GITHUB_HOSTS"

	// Token variables, checked in order.
	EnvGitHubAPMPAT = "GITHUB_APM_PAT"
	EnvGitHubToken  = "GITHUB_TOKEN"
	EnvGHToken      = "GH_TOKEN"

	EnvAzureDevOpsPAT = "AZURE_DEVOPS_PAT"
)

// Config is the engine configuration.
type Config struct {
	GitHub      GitHubConfig      `toml:"github"`
	AzureDevOps AzureDevOpsConfig `toml:"azure_devops"`
	HTTP        HTTPConfig        `toml:"http"`
	Cache       CacheConfig       `toml:"cache"`
}

// GitHubConfig controls GitHub host recognition.
type GitHubConfig struct {
	// Host overrides the default host assumed for bare owner/repo
	// references, e.g. a GitHub Enterprise Server instance.
	Host string `toml:"host"`

	// ExtraHosts lists additional hostnames treated as GitHub.
	ExtraHosts []string `toml:"extra_hosts"`
}

// AzureDevOpsConfig controls Azure DevOps host recognition.
type AzureDevOpsConfig struct {
	// Hosts lists Azure DevOps hostnames beyond dev.azure.com.
	Hosts []string `toml:"hosts"`
}

// HTTPConfig tunes network behavior.
type HTTPConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
	RetryAttempts  int `toml:"retry_attempts"`
}

// CacheConfig tunes the response cache.
type CacheConfig struct {
	Dir      string `toml:"dir"`
	TTLHours int    `toml:"ttl_hours"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		HTTP:  HTTPConfig{TimeoutSeconds: 30, RetryAttempts: 3},
		Cache: CacheConfig{TTLHours: 24},
	}
}

// Path returns the config file location.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "agentpm", "config.toml"), nil
}

// Load reads the config file when present and applies environment
// overrides. A missing file is not an error.
func Load() (*Config, error) {
	cfg := Default()
	path, err := Path()
	if err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile reads a specific config file and applies environment
// overrides, for tests and --config flags.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if host := os.Getenv(EnvGitHubHost); host != "" {
		c.GitHub.Host = host
	}
	if extra := os.Getenv(EnvGitHubHosts); extra != "" {
		for _, h := range strings.Split(extra, ",") {
			if h = strings.TrimSpace(h); h != "" {
				c.GitHub.ExtraHosts = append(c.GitHub.ExtraHosts, h)
			}
		}
	}
}

// Hosts returns the host recognition rules for the reference parser.
func (c *Config) Hosts() refs.Hosts {
	return refs.Hosts{
		Default:     c.GitHub.Host,
		GitHub:      c.GitHub.ExtraHosts,
		AzureDevOps: c.AzureDevOps.Hosts,
	}
}

// Timeout returns the HTTP timeout.
func (c *Config) Timeout() time.Duration {
	if c.HTTP.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// CacheTTL returns the response cache time-to-live.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// GitHubToken returns the GitHub token from the environment, or "".
// Tokens have bounded lifetime in memory and are never persisted.
func GitHubToken() string {
	for _, env := range []string{EnvGitHubAPMPAT, EnvGitHubToken, EnvGHToken} {
		if t := os.Getenv(env); t != "" {
			return t
		}
	}
	return ""
}

// AzureDevOpsToken returns the Azure DevOps personal access token from
// the environment, or "".
func AzureDevOpsToken() string {
	return os.Getenv(EnvAzureDevOpsPAT)
}
