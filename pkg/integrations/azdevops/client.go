package azdevops

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/agentpm/pkg/integrations"
)

const apiVersion = "7.1"

// VersionType tells the items API how to interpret a ref.
type VersionType string

const (
	VersionBranch VersionType = "branch"
	VersionTag    VersionType = "tag"
	VersionCommit VersionType = "commit"
)

// Client provides access to Azure DevOps repository content and metadata
// through the Git REST API.
type Client struct {
	*integrations.Client
	host    string
	baseURL string
}

// NewClient creates an Azure DevOps client for the given host with optional
// authentication. Pass an empty string for pat to use unauthenticated
// requests (public projects only). The host is a plain hostname such as
// "dev.azure.com".
func NewClient(host, pat string, cacheTTL time.Duration) (*Client, error) {
	cache, err := integrations.NewCache(cacheTTL)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"Accept": "application/json"}
	if pat != "" {
		// PATs use basic auth with an empty username.
		headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+pat))
	}

	if host == "" {
		host = "dev.azure.com"
	}
	return &Client{
		Client:  integrations.NewClient(cache, headers),
		host:    host,
		baseURL: "https://" + host,
	}, nil
}

// Repo retrieves repository metadata, most importantly the default branch.
// Results are cached under the client's cache TTL.
func (c *Client) Repo(ctx context.Context, org, project, repo string) (*RepoInfo, error) {
	key := "azdevops:" + c.host + ":repo:" + org + "/" + project + "/" + repo

	var info RepoInfo
	err := c.Cached(ctx, key, false, &info, func() error {
		return c.fetchRepo(ctx, org, project, repo, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetchRepo(ctx context.Context, org, project, repo string, info *RepoInfo) error {
	var data apiRepoResponse
	u := fmt.Sprintf("%s/%s/%s/_apis/git/repositories/%s?api-version=%s",
		c.baseURL, url.PathEscape(org), url.PathEscape(project), url.PathEscape(repo), apiVersion)
	if err := c.Get(ctx, u, &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: azure devops repo %s/%s/%s", err, org, project, repo)
		}
		return err
	}
	*info = RepoInfo{
		Name: data.Name,
		// The API reports refs/heads/<name>; callers want the bare name.
		DefaultBranch: strings.TrimPrefix(data.DefaultBranch, "refs/heads/"),
		WebURL:        data.WebURL,
		Disabled:      data.IsDisabled,
	}
	return nil
}

// FetchFile retrieves the raw content of a file at the given ref using the
// items API. Content is not cached because branch refs are mutable.
func (c *Client) FetchFile(ctx context.Context, org, project, repo, ref string, versionType VersionType, path string) ([]byte, error) {
	path = "/" + strings.TrimPrefix(path, "/")

	q := url.Values{}
	q.Set("path", path)
	q.Set("download", "true")
	q.Set("api-version", apiVersion)
	if ref != "" {
		q.Set("versionDescriptor.version", ref)
		q.Set("versionDescriptor.versionType", string(versionType))
	}
	u := fmt.Sprintf("%s/%s/%s/_apis/git/repositories/%s/items?%s",
		c.baseURL, url.PathEscape(org), url.PathEscape(project), url.PathEscape(repo), q.Encode())

	data, err := c.GetBytesWithHeaders(ctx, u, map[string]string{"Accept": "application/octet-stream"})
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s/%s@%s:%s", err, org, project, repo, ref, path)
		}
		return nil, err
	}
	return data, nil
}

// FetchFirstFile tries each path in order and returns the content of the
// first one that exists. It returns [integrations.ErrNotFound] if none do.
func (c *Client) FetchFirstFile(ctx context.Context, org, project, repo, ref string, versionType VersionType, paths []string) ([]byte, string, error) {
	for _, p := range paths {
		data, err := c.FetchFile(ctx, org, project, repo, ref, versionType, p)
		if err == nil {
			return data, p, nil
		}
		if !errors.Is(err, integrations.ErrNotFound) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("%w: %s/%s/%s@%s: none of %s",
		integrations.ErrNotFound, org, project, repo, ref, strings.Join(paths, ", "))
}

// RepoInfo contains repository metadata.
type RepoInfo struct {
	Name          string `json:"name"`
	DefaultBranch string `json:"default_branch"`
	WebURL        string `json:"web_url"`
	Disabled      bool   `json:"disabled"`
}

type apiRepoResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DefaultBranch string `json:"defaultBranch"`
	WebURL        string `json:"webUrl"`
	IsDisabled    bool   `json:"isDisabled"`
}
