package github

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/agentpm/pkg/integrations"
)

// Client provides access to GitHub repository content and metadata.
// It handles HTTP requests with caching, automatic retries, and optional
// authentication, and works against both github.com and GitHub Enterprise
// hosts.
type Client struct {
	*integrations.Client
	host    string
	baseURL string
	rawURL  string
}

// NewClient creates a GitHub client for the given host with optional
// authentication. Pass an empty string for token to use unauthenticated
// requests (lower rate limits). The host is a plain hostname such as
// "github.com" or "github.mycompany.ghe.com".
func NewClient(host, token string, cacheTTL time.Duration) (*Client, error) {
	cache, err := integrations.NewCache(cacheTTL)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	c := &Client{
		Client: integrations.NewClient(cache, headers),
		host:   host,
	}
	if host == "" || host == "github.com" {
		c.baseURL = "https://api.github.com"
		c.rawURL = "https://raw.githubusercontent.com"
	} else {
		// GitHub Enterprise serves the API and raw content under the
		// instance hostname rather than separate domains.
		c.baseURL = "https://" + host + "/api/v3"
		c.rawURL = "https://" + host + "/raw"
	}
	return c, nil
}

// Repo retrieves repository metadata, most importantly the default branch.
// Results are cached under the client's cache TTL.
func (c *Client) Repo(ctx context.Context, owner, repo string) (*RepoInfo, error) {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return nil, err
	}
	key := "github:" + c.host + ":repo:" + owner + "/" + repo

	var info RepoInfo
	err := c.Cached(ctx, key, false, &info, func() error {
		return c.fetchRepo(ctx, owner, repo, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetchRepo(ctx context.Context, owner, repo string, info *RepoInfo) error {
	var data apiRepoResponse
	url := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, repo)
	if err := c.Get(ctx, url, &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: github repo %s/%s", err, owner, repo)
		}
		return err
	}
	*info = RepoInfo{
		Name:          data.Name,
		FullName:      data.FullName,
		Description:   data.Description,
		Private:       data.Private,
		DefaultBranch: data.DefaultBranch,
		Archived:      data.Archived,
	}
	return nil
}

// FetchFile retrieves the raw content of a file at the given ref.
// The ref may be a branch name, tag, or commit SHA. Content is not cached
// because branch refs are mutable.
func (c *Client) FetchFile(ctx context.Context, owner, repo, ref, path string) ([]byte, error) {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return nil, err
	}
	if ref == "" {
		ref = "HEAD"
	}
	path = strings.TrimPrefix(path, "/")
	url := fmt.Sprintf("%s/%s/%s/%s/%s", c.rawURL, owner, repo, ref, path)

	data, err := c.GetBytes(ctx, url)
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s@%s:%s", err, owner, repo, ref, path)
		}
		return nil, err
	}
	return data, nil
}

// FetchFirstFile tries each path in order and returns the content of the
// first one that exists. It returns [integrations.ErrNotFound] if none do.
func (c *Client) FetchFirstFile(ctx context.Context, owner, repo, ref string, paths []string) ([]byte, string, error) {
	for _, p := range paths {
		data, err := c.FetchFile(ctx, owner, repo, ref, p)
		if err == nil {
			return data, p, nil
		}
		if !errors.Is(err, integrations.ErrNotFound) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("%w: %s/%s@%s: none of %s", integrations.ErrNotFound, owner, repo, ref, strings.Join(paths, ", "))
}
