package fetch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
	"github.com/matzehuels/agentpm/pkg/manifest"
	"github.com/matzehuels/agentpm/pkg/refs"
)

// fetchDirectory installs a repository subdirectory as its own package.
// The repository is cloned into a scoped temporary directory, the
// subtree copied out, and a manifest synthesized when the subtree has
// none of its own.
func (f *Fetcher) fetchDirectory(ctx context.Context, ref *refs.Ref, target string) (*PackageInfo, error) {
	tmp := filepath.Join(os.TempDir(), "agentpm-"+uuid.NewString())
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return nil, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "creating temp dir")
	}
	defer os.RemoveAll(tmp)

	resolved, err := f.cloner.CloneAt(ctx, ref, tmp)
	if err != nil {
		return nil, err
	}

	src := filepath.Join(tmp, filepath.FromSlash(ref.VirtualPath))
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return nil, apmerrors.New(apmerrors.ErrCodePackageNotFound,
			"directory %q not found in %s", ref.VirtualPath, ref.RepoPath)
	}

	if err := recreateDir(target); err != nil {
		return nil, err
	}
	if err := copyTree(src, target); err != nil {
		os.RemoveAll(target)
		return nil, err
	}

	pkg, err := manifest.Load(target)
	if apmerrors.Is(err, apmerrors.ErrCodeFileNotFound) {
		pkg = manifest.Synthesize(ref.VirtualName(), "", owner(ref))
		if err := pkg.Save(target); err != nil {
			os.RemoveAll(target)
			return nil, err
		}
	} else if err != nil {
		os.RemoveAll(target)
		return nil, err
	}

	return &PackageInfo{
		Ref:         ref,
		Manifest:    pkg,
		InstallPath: target,
		Resolved:    &resolved,
		InstalledAt: time.Now().UTC(),
	}, nil
}

// copyTree copies a directory recursively, skipping .git.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}
		return copyFile(p, filepath.Join(dst, rel))
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
