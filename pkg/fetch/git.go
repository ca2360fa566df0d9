package fetch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
	"github.com/matzehuels/agentpm/pkg/refs"
)

// Cloner clones repositories and pins requested git refs to commits.
type Cloner struct {
	creds   Credentials
	timeout time.Duration

	// urls overrides clone URL candidates, used by tests to clone from
	// local fixture repositories.
	urls func(*refs.Ref) []string
}

// NewCloner creates a Cloner using the given credentials for private
// repositories. The timeout bounds each individual clone attempt.
func NewCloner(creds Credentials, timeout time.Duration) *Cloner {
	c := &Cloner{creds: creds, timeout: timeout}
	c.urls = c.creds.CloneCandidates
	return c
}

// CloneAt clones the repository into dir checked out at the reference's
// requested git ref, and returns the resolution that was pinned. The
// clone's .git directory is left in place; callers that install package
// content strip it.
func (c *Cloner) CloneAt(ctx context.Context, ref *refs.Ref, dir string) (refs.Resolved, error) {
	if refType, name := refs.Classify(ref.GitRef); refType == refs.RefTypeCommit {
		return c.cloneCommit(ctx, ref, dir, name)
	}
	return c.cloneNamed(ctx, ref, dir, ref.GitRef)
}

// cloneCommit fetches full history and checks out a specific commit.
func (c *Cloner) cloneCommit(ctx context.Context, ref *refs.Ref, dir, sha string) (refs.Resolved, error) {
	repo, err := c.clone(ctx, ref, dir, &git.CloneOptions{})
	if err != nil {
		return refs.Resolved{}, err
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(sha))
	if err != nil {
		return refs.Resolved{}, apmerrors.Wrap(apmerrors.ErrCodeResolutionFailed, err,
			"commit %q not found in %s", sha, ref.RepoPath)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return refs.Resolved{}, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "opening worktree")
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		return refs.Resolved{}, apmerrors.Wrap(apmerrors.ErrCodeResolutionFailed, err,
			"checking out %q in %s", sha, ref.RepoPath)
	}

	return refs.Resolved{
		Original: ref.GitRef,
		Type:     refs.RefTypeCommit,
		Commit:   hash.String(),
		Name:     sha,
	}, nil
}

// cloneNamed resolves a branch or tag name. It tries a shallow
// single-branch clone as a branch first, then as a tag, then falls back
// to a full clone and resolves against remote branches and tags.
func (c *Cloner) cloneNamed(ctx context.Context, ref *refs.Ref, dir, name string) (refs.Resolved, error) {
	if name == "" {
		// No ref requested: a plain shallow clone lands on the remote's
		// default branch, whatever it is named.
		repo, err := c.clone(ctx, ref, dir, &git.CloneOptions{SingleBranch: true, Depth: 1})
		if err != nil {
			// Some transports reject shallow fetches.
			clearDir(dir)
			repo, err = c.clone(ctx, ref, dir, &git.CloneOptions{})
			if err != nil {
				return refs.Resolved{}, err
			}
		}
		head, err := repo.Head()
		if err != nil {
			return refs.Resolved{}, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "reading HEAD")
		}
		return refs.Resolved{
			Type:   refs.RefTypeBranch,
			Commit: head.Hash().String(),
			Name:   head.Name().Short(),
		}, nil
	}

	shallow := func(rn plumbing.ReferenceName) (*git.Repository, error) {
		return c.clone(ctx, ref, dir, &git.CloneOptions{
			ReferenceName: rn,
			SingleBranch:  true,
			Depth:         1,
		})
	}

	if repo, err := shallow(plumbing.NewBranchReferenceName(name)); err == nil {
		return headResolution(repo, ref.GitRef, refs.RefTypeBranch, name)
	}
	clearDir(dir)
	if repo, err := shallow(plumbing.NewTagReferenceName(name)); err == nil {
		return headResolution(repo, ref.GitRef, refs.RefTypeTag, name)
	}
	clearDir(dir)

	repo, err := c.clone(ctx, ref, dir, &git.CloneOptions{})
	if err != nil {
		return refs.Resolved{}, err
	}
	for _, attempt := range []struct {
		rev plumbing.Revision
		t   refs.RefType
	}{
		{plumbing.Revision("refs/remotes/origin/" + name), refs.RefTypeBranch},
		{plumbing.Revision("refs/tags/" + name), refs.RefTypeTag},
	} {
		hash, err := repo.ResolveRevision(attempt.rev)
		if err != nil {
			continue
		}
		wt, err := repo.Worktree()
		if err != nil {
			return refs.Resolved{}, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "opening worktree")
		}
		if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
			return refs.Resolved{}, apmerrors.Wrap(apmerrors.ErrCodeResolutionFailed, err,
				"checking out %q in %s", name, ref.RepoPath)
		}
		return refs.Resolved{Original: ref.GitRef, Type: attempt.t, Commit: hash.String(), Name: name}, nil
	}

	return refs.Resolved{}, apmerrors.New(apmerrors.ErrCodeResolutionFailed,
		"reference %q not found in %s (tried branches and tags)", name, ref.RepoPath)
}

// clone tries each candidate URL in authentication fallback order.
func (c *Cloner) clone(ctx context.Context, ref *refs.Ref, dir string, opts *git.CloneOptions) (*git.Repository, error) {
	var lastErr error
	for _, url := range c.urls(ref) {
		cctx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		o := *opts
		o.URL = url
		repo, err := git.PlainCloneContext(cctx, dir, false, &o)
		if err == nil {
			return repo, nil
		}
		lastErr = err
		clearDir(dir)

		if ctx.Err() != nil {
			return nil, apmerrors.Wrap(apmerrors.ErrCodeTimeout, ctx.Err(), "cloning %s", ref.RepoPath)
		}
	}

	msg := "all authentication methods failed"
	if lastErr != nil {
		msg = Redact(lastErr.Error())
	}
	if c.creds.For(ref) == "" {
		return nil, apmerrors.New(apmerrors.ErrCodeAuthFailed,
			"failed to clone %s: %s (private repositories need %s)",
			ref.RepoPath, msg, tokenHint(ref))
	}
	return nil, apmerrors.New(apmerrors.ErrCodeAuthFailed,
		"failed to clone %s: %s (check token permissions)", ref.RepoPath, msg)
}

func tokenHint(ref *refs.Ref) string {
	if ref.AzureDevOps {
		return "AZURE_DEVOPS_PAT"
	}
	return "GITHUB_APM_PAT or GITHUB_TOKEN"
}

// headResolution reads the checked out HEAD commit.
func headResolution(repo *git.Repository, original string, t refs.RefType, name string) (refs.Resolved, error) {
	head, err := repo.Head()
	if err != nil {
		return refs.Resolved{}, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "reading HEAD")
	}
	return refs.Resolved{Original: original, Type: t, Commit: head.Hash().String(), Name: name}, nil
}

// clearDir empties dir without removing it, so a failed clone attempt
// doesn't poison the next one.
func clearDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		os.RemoveAll(filepath.Join(dir, e.Name()))
	}
}
