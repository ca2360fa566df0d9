package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
	"github.com/matzehuels/agentpm/pkg/refs"
)

// fixtureRepo builds a local repository with a valid package layout,
// a v1.0.0 tag on the first commit, and a dev branch.
func fixtureRepo(t *testing.T) (dir, firstCommit, headCommit string) {
	t.Helper()
	dir = t.TempDir()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error: %v", err)
	}

	writeFixtureFile(t, dir, "apm.yml", "name: fixture\nversion: 1.0.0\n")
	writeFixtureFile(t, dir, ".apm/prompts/hello.prompt.md", "# Hello\n")
	if _, err := wt.Add("."); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	sig := &object.Signature{Name: "fixture", Email: "fixture@example.com", When: time.Now()}
	first, err := wt.Commit("initial", &git.CommitOptions{Author: sig})
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if _, err := repo.CreateTag("v1.0.0", first, nil); err != nil {
		t.Fatalf("CreateTag() error: %v", err)
	}

	writeFixtureFile(t, dir, ".apm/prompts/second.prompt.md", "# Second\n")
	if _, err := wt.Add("."); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	head, err := wt.Commit("second", &git.CommitOptions{Author: sig})
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName("dev"),
		Create: true,
	}); err != nil {
		t.Fatalf("Checkout(dev) error: %v", err)
	}
	// Leave HEAD back on the default branch for clone tests.
	defaultBranch := plumbing.Master
	if err := wt.Checkout(&git.CheckoutOptions{Branch: defaultBranch}); err != nil {
		t.Fatalf("Checkout(default) error: %v", err)
	}

	return dir, first.String(), head.String()
}

func writeFixtureFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
}

// addFixtureTree commits extra files onto the fixture's default branch.
func addFixtureTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("PlainOpen() error: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error: %v", err)
	}
	for rel, content := range files {
		writeFixtureFile(t, dir, rel, content)
	}
	if _, err := wt.Add("."); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	sig := &object.Signature{Name: "fixture", Email: "fixture@example.com", When: time.Now()}
	if _, err := wt.Commit("extra tree", &git.CommitOptions{Author: sig}); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
}

// initBareFixture builds a repository that is not an agent package.
func initBareFixture(t *testing.T, dir string) *git.Repository {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error: %v", err)
	}
	writeFixtureFile(t, dir, "README.md", "# Not a package\n")
	if _, err := wt.Add("."); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	sig := &object.Signature{Name: "fixture", Email: "fixture@example.com", When: time.Now()}
	if _, err := wt.Commit("initial", &git.CommitOptions{Author: sig}); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	return repo
}

func fixtureCloner(fixture string) *Cloner {
	c := NewCloner(Credentials{}, 0)
	c.urls = func(*refs.Ref) []string { return []string{fixture} }
	return c
}

func TestCloneAtDefaultBranch(t *testing.T) {
	fixture, _, head := fixtureRepo(t)
	cloner := fixtureCloner(fixture)

	dir := t.TempDir()
	resolved, err := cloner.CloneAt(context.Background(), mustParse(t, "owner/repo"), dir)
	if err != nil {
		t.Fatalf("CloneAt() error: %v", err)
	}
	if resolved.Commit != head {
		t.Errorf("Commit = %s, want head %s", resolved.Commit, head)
	}
	if _, err := os.Stat(filepath.Join(dir, "apm.yml")); err != nil {
		t.Error("cloned tree is missing apm.yml")
	}
}

func TestCloneAtTag(t *testing.T) {
	fixture, first, _ := fixtureRepo(t)
	cloner := fixtureCloner(fixture)

	resolved, err := cloner.CloneAt(context.Background(), mustParse(t, "owner/repo#v1.0.0"), t.TempDir())
	if err != nil {
		t.Fatalf("CloneAt() error: %v", err)
	}
	if resolved.Commit != first {
		t.Errorf("Commit = %s, want tagged %s", resolved.Commit, first)
	}
}

func TestCloneAtBranch(t *testing.T) {
	fixture, _, head := fixtureRepo(t)
	cloner := fixtureCloner(fixture)

	resolved, err := cloner.CloneAt(context.Background(), mustParse(t, "owner/repo#dev"), t.TempDir())
	if err != nil {
		t.Fatalf("CloneAt() error: %v", err)
	}
	if resolved.Commit != head {
		t.Errorf("Commit = %s, want dev head %s", resolved.Commit, head)
	}
	if resolved.Name != "dev" {
		t.Errorf("Name = %q, want dev", resolved.Name)
	}
}

func TestCloneAtCommit(t *testing.T) {
	fixture, first, _ := fixtureRepo(t)
	cloner := fixtureCloner(fixture)

	dir := t.TempDir()
	resolved, err := cloner.CloneAt(context.Background(), mustParse(t, "owner/repo#"+first), dir)
	if err != nil {
		t.Fatalf("CloneAt() error: %v", err)
	}
	if resolved.Commit != first {
		t.Errorf("Commit = %s, want %s", resolved.Commit, first)
	}
	// The first commit doesn't have the second prompt yet.
	if _, err := os.Stat(filepath.Join(dir, ".apm/prompts/second.prompt.md")); err == nil {
		t.Error("checkout did not land on the requested commit")
	}
}

func TestCloneAtUnknownRef(t *testing.T) {
	fixture, _, _ := fixtureRepo(t)
	cloner := fixtureCloner(fixture)

	_, err := cloner.CloneAt(context.Background(), mustParse(t, "owner/repo#nope"), t.TempDir())
	if !apmerrors.Is(err, apmerrors.ErrCodeResolutionFailed) {
		t.Errorf("CloneAt() error = %v, want RESOLUTION_FAILED", err)
	}
}

func TestCloneAllCandidatesFail(t *testing.T) {
	c := NewCloner(Credentials{}, 0)
	c.urls = func(*refs.Ref) []string { return []string{filepath.Join(t.TempDir(), "missing")} }

	_, err := c.CloneAt(context.Background(), mustParse(t, "owner/private"), t.TempDir())
	if !apmerrors.Is(err, apmerrors.ErrCodeAuthFailed) {
		t.Errorf("CloneAt() error = %v, want AUTH_FAILED", err)
	}
}
