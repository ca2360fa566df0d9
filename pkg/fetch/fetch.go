// Package fetch downloads agent packages from git hosts into local
// install directories.
//
// Whole repositories are cloned with go-git; virtual packages (single
// primitive files, collections, subdirectories) are materialized from
// raw content downloads or scoped temporary clones. Every fetch
// validates or synthesizes the package manifest before reporting
// success.
package fetch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/agentpm/pkg/cache"
	"github.com/matzehuels/agentpm/pkg/config"
	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
	"github.com/matzehuels/agentpm/pkg/httputil"
	"github.com/matzehuels/agentpm/pkg/integrations/azdevops"
	"github.com/matzehuels/agentpm/pkg/manifest"
	"github.com/matzehuels/agentpm/pkg/refs"
)

// PackageInfo describes a successfully fetched package.
type PackageInfo struct {
	// Ref is the reference the fetch was asked for.
	Ref *refs.Ref

	// Manifest is the package's apm.yml, loaded or synthesized.
	Manifest *manifest.Package

	// InstallPath is the directory the package content landed in.
	InstallPath string

	// Resolved pins the git ref for clone-based fetches; nil for raw
	// virtual fetches, which don't resolve a commit.
	Resolved *refs.Resolved

	// InstalledAt records when the fetch completed.
	InstalledAt time.Time

	// Warnings carries non-fatal problems, like collection items that
	// could not be downloaded.
	Warnings []string

	// Partial is set when a collection installed with some of its
	// items missing; its code is PARTIAL_COLLECTION. The printable
	// form is mirrored in Warnings.
	Partial error
}

// githubContent is the subset of the GitHub client the fetcher uses.
type githubContent interface {
	FetchFile(ctx context.Context, owner, repo, ref, path string) ([]byte, error)
	FetchFirstFile(ctx context.Context, owner, repo, ref string, paths []string) ([]byte, string, error)
}

// adoContent is the subset of the Azure DevOps client the fetcher uses.
type adoContent interface {
	FetchFile(ctx context.Context, org, project, repo, ref string, vt azdevops.VersionType, path string) ([]byte, error)
	FetchFirstFile(ctx context.Context, org, project, repo, ref string, vt azdevops.VersionType, paths []string) ([]byte, string, error)
}

// Fetcher downloads packages of every kind. Construct one per command
// invocation with New.
type Fetcher struct {
	cloner *Cloner

	// Per-host raw content clients, keyed by hostname.
	github   map[string]githubContent
	azdevops map[string]adoContent

	// content caches raw file downloads pinned to immutable refs
	// (tags and commit SHAs). Branch content is never cached.
	content cache.Cache
	keys    cache.Keyer

	creds Credentials
	ttl   time.Duration
}

// New creates a Fetcher from configuration, reading credentials from
// the environment.
func New(cfg *config.Config) *Fetcher {
	creds := EnvCredentials()
	content := cache.Cache(cache.NewNullCache())
	if dir, err := httputil.DefaultDir(); err == nil {
		if fc, err := cache.NewFileCache(filepath.Join(dir, "content")); err == nil {
			content = fc
		}
	}
	return &Fetcher{
		cloner:   NewCloner(creds, cfg.Timeout()),
		github:   make(map[string]githubContent),
		azdevops: make(map[string]adoContent),
		content:  content,
		keys:     cache.NewDefaultKeyer(),
		creds:    creds,
		ttl:      cfg.CacheTTL(),
	}
}

// Fetch downloads the package a reference names into target, which is
// created as needed and replaced when it already has content.
func (f *Fetcher) Fetch(ctx context.Context, ref *refs.Ref, target string) (*PackageInfo, error) {
	switch ref.Kind {
	case refs.KindFile:
		return f.fetchVirtualFile(ctx, ref, target)
	case refs.KindCollection:
		return f.fetchCollection(ctx, ref, target)
	case refs.KindDirectory:
		return f.fetchDirectory(ctx, ref, target)
	default:
		return f.fetchRepository(ctx, ref, target)
	}
}

// fetchRepository clones the whole repository into target and validates
// it as a package.
func (f *Fetcher) fetchRepository(ctx context.Context, ref *refs.Ref, target string) (*PackageInfo, error) {
	if err := recreateDir(target); err != nil {
		return nil, err
	}

	resolved, err := f.cloner.CloneAt(ctx, ref, target)
	if err != nil {
		os.RemoveAll(target)
		return nil, err
	}
	os.RemoveAll(filepath.Join(target, ".git"))

	result := manifest.ValidateDir(target)
	if !result.IsValid() {
		os.RemoveAll(target)
		return nil, apmerrors.New(apmerrors.ErrCodeValidationFailed,
			"invalid package %s:\n  - %s", ref.RepoPath, strings.Join(result.Errors, "\n  - "))
	}

	return &PackageInfo{
		Ref:         ref,
		Manifest:    result.Package,
		InstallPath: target,
		Resolved:    &resolved,
		InstalledAt: time.Now().UTC(),
		Warnings:    result.Warnings,
	}, nil
}

// recreateDir ensures dir exists and is empty.
func recreateDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "clearing %s", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "creating %s", dir)
	}
	return nil
}

// owner returns the first segment of the repository path, used as the
// synthesized manifest author.
func owner(ref *refs.Ref) string {
	seg, _, _ := strings.Cut(ref.RepoPath, "/")
	return seg
}
