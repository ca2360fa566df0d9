package installer

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
	"github.com/matzehuels/agentpm/pkg/lockfile"
	"github.com/matzehuels/agentpm/pkg/manifest"
	"github.com/matzehuels/agentpm/pkg/refs"
)

// PackageStatus pairs a lock entry with its on-disk state.
type PackageStatus struct {
	Dependency lockfile.Dependency

	// Installed is true when the package directory holds a loadable
	// manifest.
	Installed bool

	// Manifest is the installed manifest, nil when Installed is false.
	Manifest *manifest.Package
}

// Status is a snapshot of the install tree against the lock.
type Status struct {
	// Packages lists lock entries ordered by depth then repository
	// path.
	Packages []PackageStatus

	// Orphans lists package directories under the modules root that no
	// lock entry accounts for, as slash-separated relative paths.
	Orphans []string
}

// Lock reads the project's lock file; nil means none exists.
func (i *Installer) Lock() (*lockfile.File, error) {
	return lockfile.Read(i.lockPath())
}

// Status compares the lock file with the installed tree. Packages in
// the lock but missing on disk are reported as not installed; package
// directories on disk without a lock entry are reported as orphans.
func (i *Installer) Status() (*Status, error) {
	st := &Status{}
	known := make(map[string]bool)

	lock, err := i.Lock()
	if err != nil {
		return nil, err
	}
	if lock != nil {
		for _, dep := range lock.AllDependencies() {
			ps := PackageStatus{Dependency: dep}
			if ref, err := dep.Ref(i.hosts); err == nil {
				path := ref.InstallPath(i.modulesRoot())
				known[path] = true
				if pkg, err := manifest.Load(path); err == nil {
					ps.Installed = true
					ps.Manifest = pkg
				}
			}
			st.Packages = append(st.Packages, ps)
		}
	}

	root := i.modulesRoot()
	if _, err := os.Stat(root); err != nil {
		return st, nil
	}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || p == root {
			return nil
		}
		if _, err := os.Stat(filepath.Join(p, manifest.Filename)); err != nil {
			return nil
		}
		if !known[p] {
			rel, err := filepath.Rel(root, p)
			if err == nil {
				st.Orphans = append(st.Orphans, filepath.ToSlash(rel))
			}
		}
		return fs.SkipDir
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// PackageDetail describes one locked package for display.
type PackageDetail struct {
	Dependency lockfile.Dependency

	// Manifest is nil when the package directory is gone.
	Manifest *manifest.Package

	InstallPath string

	// Primitives counts the markdown files per primitive kind under
	// the package's metadata directory.
	Primitives map[string]int
}

// Info looks up one locked package and reports its manifest and
// primitive contents. The name may be a full reference, a virtual
// package name, or a repository path suffix.
func (i *Installer) Info(name string) (*PackageDetail, error) {
	lock, err := i.Lock()
	if err != nil {
		return nil, err
	}
	if lock == nil || lock.Len() == 0 {
		return nil, apmerrors.New(apmerrors.ErrCodeNotFound, "no lock file found; nothing is installed")
	}

	var match *lockfile.Dependency
	if ref, err := refs.Parse(name, i.hosts); err == nil {
		if dep, ok := lock.Get(ref.Canonical()); ok {
			match = &dep
		}
	}
	if match == nil {
		for _, dep := range lock.AllDependencies() {
			ref, err := dep.Ref(i.hosts)
			if err != nil {
				continue
			}
			if ref.VirtualName() == name || strings.HasSuffix(dep.RepoURL, "/"+name) {
				d := dep
				match = &d
				break
			}
		}
	}
	if match == nil {
		return nil, apmerrors.New(apmerrors.ErrCodePackageNotFound, "package %s is not installed", name)
	}

	ref, err := match.Ref(i.hosts)
	if err != nil {
		return nil, err
	}
	detail := &PackageDetail{
		Dependency:  *match,
		InstallPath: ref.InstallPath(i.modulesRoot()),
		Primitives:  make(map[string]int),
	}
	if pkg, err := manifest.Load(detail.InstallPath); err == nil {
		detail.Manifest = pkg
	}
	for _, pt := range manifest.PrimitiveTypes {
		files, err := filepath.Glob(filepath.Join(detail.InstallPath, manifest.MetadataDir, pt, "*.md"))
		if err != nil || len(files) == 0 {
			continue
		}
		detail.Primitives[pt] = len(files)
	}
	return detail, nil
}
