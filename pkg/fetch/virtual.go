package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
	"github.com/matzehuels/agentpm/pkg/integrations"
	"github.com/matzehuels/agentpm/pkg/integrations/azdevops"
	"github.com/matzehuels/agentpm/pkg/integrations/github"
	"github.com/matzehuels/agentpm/pkg/manifest"
	"github.com/matzehuels/agentpm/pkg/refs"
)

// fetchVirtualFile downloads a single primitive file and wraps it in a
// minimal package structure.
func (f *Fetcher) fetchVirtualFile(ctx context.Context, ref *refs.Ref, target string) (*PackageInfo, error) {
	content, err := f.rawWithFallback(ctx, ref, ref.VirtualPath)
	if err != nil {
		return nil, err
	}

	if err := recreateDir(target); err != nil {
		return nil, err
	}
	filename := path.Base(ref.VirtualPath)
	primDir := filepath.Join(target, manifest.MetadataDir, refs.PrimitiveDir(filename))
	if err := os.MkdirAll(primDir, 0o755); err != nil {
		os.RemoveAll(target)
		return nil, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "creating %s", primDir)
	}
	if err := os.WriteFile(filepath.Join(primDir, filename), content, 0o644); err != nil {
		os.RemoveAll(target)
		return nil, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "writing %s", filename)
	}

	desc := manifest.DescriptionFromFrontmatter(content)
	if desc == "" {
		desc = "Virtual package containing " + filename
	}
	pkg := manifest.Synthesize(ref.VirtualName(), desc, owner(ref))
	if err := pkg.Save(target); err != nil {
		os.RemoveAll(target)
		return nil, err
	}

	return &PackageInfo{
		Ref:         ref,
		Manifest:    pkg,
		InstallPath: target,
		InstalledAt: time.Now().UTC(),
	}, nil
}

// fetchCollection downloads a collection manifest and all the files it
// references. Individual item failures are tolerated as long as at
// least one item lands.
func (f *Fetcher) fetchCollection(ctx context.Context, ref *refs.Ref, target string) (*PackageInfo, error) {
	data, gitRef, err := f.rawFirstWithFallback(ctx, ref, ref.CollectionManifestPaths())
	if err != nil {
		return nil, err
	}
	col, err := manifest.ParseCollection(data)
	if err != nil {
		return nil, err
	}

	if err := recreateDir(target); err != nil {
		return nil, err
	}

	var installed int
	var failures []string
	for _, item := range col.Items {
		content, err := f.raw(ctx, ref, gitRef, item.Path)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", item.Path, apmerrors.UserMessage(err)))
			continue
		}
		subDir := filepath.Join(target, manifest.MetadataDir, item.Subdirectory())
		if err := os.MkdirAll(subDir, 0o755); err != nil {
			os.RemoveAll(target)
			return nil, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "creating %s", subDir)
		}
		name := path.Base(item.Path)
		if err := os.WriteFile(filepath.Join(subDir, name), content, 0o644); err != nil {
			os.RemoveAll(target)
			return nil, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "writing %s", name)
		}
		installed++
	}

	if installed == 0 {
		os.RemoveAll(target)
		return nil, apmerrors.New(apmerrors.ErrCodeInvalidCollection,
			"failed to download any items from collection %q:\n  - %s",
			col.ID, strings.Join(failures, "\n  - "))
	}

	pkg := manifest.Synthesize(ref.VirtualName(), col.Description, owner(ref))
	if err := pkg.Save(target); err != nil {
		os.RemoveAll(target)
		return nil, err
	}

	info := &PackageInfo{
		Ref:         ref,
		Manifest:    pkg,
		InstallPath: target,
		InstalledAt: time.Now().UTC(),
	}
	if len(failures) > 0 {
		partial := apmerrors.New(apmerrors.ErrCodePartialCollection,
			"collection %q installed with %d/%d items; failed: %s",
			col.ID, installed, len(col.Items), strings.Join(failures, "; "))
		info.Partial = partial
		info.Warnings = append(info.Warnings, partial.Message)
	}
	return info, nil
}

// rawWithFallback downloads a file at the reference's requested ref,
// falling back between the two conventional default branch names when
// no specific ref pins the content.
func (f *Fetcher) rawWithFallback(ctx context.Context, ref *refs.Ref, p string) ([]byte, error) {
	var lastErr error
	for _, gitRef := range branchCandidates(ref.GitRef) {
		content, err := f.raw(ctx, ref, gitRef, p)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !apmerrors.Is(err, apmerrors.ErrCodeFileNotFound) {
			break
		}
	}
	return nil, lastErr
}

// rawFirstWithFallback is rawWithFallback over a list of candidate
// paths, returning the git ref that succeeded.
func (f *Fetcher) rawFirstWithFallback(ctx context.Context, ref *refs.Ref, paths []string) ([]byte, string, error) {
	var lastErr error
	for _, gitRef := range branchCandidates(ref.GitRef) {
		content, err := f.rawFirst(ctx, ref, gitRef, paths)
		if err == nil {
			return content, gitRef, nil
		}
		lastErr = err
		if !apmerrors.Is(err, apmerrors.ErrCodeFileNotFound) {
			return nil, "", err
		}
	}
	return nil, "", lastErr
}

// rawFirst downloads the first existing file among paths at one git ref.
func (f *Fetcher) rawFirst(ctx context.Context, ref *refs.Ref, gitRef string, paths []string) ([]byte, error) {
	if ref.AzureDevOps {
		client, err := f.adoClient(ref.Host)
		if err != nil {
			return nil, err
		}
		parts := strings.SplitN(ref.RepoPath, "/", 3)
		t, name := refs.Classify(gitRef)
		content, _, err := client.FetchFirstFile(ctx, parts[0], parts[1], parts[2], name, versionType(t), paths)
		return content, wrapRawErr(err, ref, strings.Join(paths, ", "))
	}

	client, err := f.githubClient(ref.Host)
	if err != nil {
		return nil, err
	}
	ownerSeg, repoSeg, _ := strings.Cut(ref.RepoPath, "/")
	content, _, err := client.FetchFirstFile(ctx, ownerSeg, repoSeg, gitRef, paths)
	return content, wrapRawErr(err, ref, strings.Join(paths, ", "))
}

// branchCandidates lists the git refs to try for a raw download. A
// pinned ref is tried alone; the default branch tries both conventional
// names.
func branchCandidates(gitRef string) []string {
	switch gitRef {
	case "", refs.DefaultBranch:
		return []string{refs.DefaultBranch, "master"}
	case "master":
		return []string{"master", refs.DefaultBranch}
	default:
		return []string{gitRef}
	}
}

// raw downloads one file from the host a reference lives on. Content
// pinned to an immutable ref (tag or commit) is served from and saved
// to the content cache; branch content always goes to the network.
func (f *Fetcher) raw(ctx context.Context, ref *refs.Ref, gitRef, p string) ([]byte, error) {
	t, _ := refs.Classify(gitRef)
	immutable := t == refs.RefTypeTag || t == refs.RefTypeCommit
	var key string
	if immutable {
		key = f.keys.ContentKey(ref.RepoPath, gitRef, p)
		if data, ok, err := f.content.Get(ctx, key); err == nil && ok {
			return data, nil
		}
	}
	content, err := f.rawRemote(ctx, ref, gitRef, p)
	if err == nil && immutable {
		_ = f.content.Set(ctx, key, content, f.ttl)
	}
	return content, err
}

func (f *Fetcher) rawRemote(ctx context.Context, ref *refs.Ref, gitRef, p string) ([]byte, error) {
	if ref.AzureDevOps {
		client, err := f.adoClient(ref.Host)
		if err != nil {
			return nil, err
		}
		parts := strings.SplitN(ref.RepoPath, "/", 3)
		t, name := refs.Classify(gitRef)
		content, err := client.FetchFile(ctx, parts[0], parts[1], parts[2], name, versionType(t), p)
		return content, wrapRawErr(err, ref, p)
	}

	client, err := f.githubClient(ref.Host)
	if err != nil {
		return nil, err
	}
	ownerSeg, repoSeg, _ := strings.Cut(ref.RepoPath, "/")
	content, err := client.FetchFile(ctx, ownerSeg, repoSeg, gitRef, p)
	return content, wrapRawErr(err, ref, p)
}

func versionType(t refs.RefType) azdevops.VersionType {
	switch t {
	case refs.RefTypeTag:
		return azdevops.VersionTag
	case refs.RefTypeCommit:
		return azdevops.VersionCommit
	default:
		return azdevops.VersionBranch
	}
}

// wrapRawErr maps integration errors onto domain error codes and scrubs
// credentials from the message.
func wrapRawErr(err error, ref *refs.Ref, p string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, integrations.ErrNotFound) {
		return apmerrors.New(apmerrors.ErrCodeFileNotFound, "file not found: %s in %s", p, ref.RepoPath)
	}
	return apmerrors.New(apmerrors.ErrCodeNetwork, "downloading %s from %s: %s", p, ref.RepoPath, Redact(err.Error()))
}

func (f *Fetcher) githubClient(host string) (githubContent, error) {
	if c, ok := f.github[host]; ok {
		return c, nil
	}
	c, err := github.NewClient(host, f.creds.GitHub, f.ttl)
	if err != nil {
		return nil, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "creating github client")
	}
	f.github[host] = c
	return c, nil
}

func (f *Fetcher) adoClient(host string) (adoContent, error) {
	if c, ok := f.azdevops[host]; ok {
		return c, nil
	}
	c, err := azdevops.NewClient(host, f.creds.AzureDevOps, f.ttl)
	if err != nil {
		return nil, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "creating azure devops client")
	}
	f.azdevops[host] = c
	return c, nil
}
