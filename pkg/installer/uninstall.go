package installer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
	"github.com/matzehuels/agentpm/pkg/lockfile"
	"github.com/matzehuels/agentpm/pkg/manifest"
	"github.com/matzehuels/agentpm/pkg/refs"
)

// RemovalFailure records a package whose deletion failed. Its lock
// entry is kept so a later run can retry.
type RemovalFailure struct {
	Key string
	Err error
}

// UninstallResult summarizes an uninstall run.
type UninstallResult struct {
	// Removed lists identity keys of deleted packages, targets first,
	// then orphaned transitive dependencies, each group sorted.
	Removed []string

	// Failures lists packages that could not be deleted.
	Failures []RemovalFailure

	// DryRun is true when nothing was touched on disk.
	DryRun bool
}

// Uninstall removes the named packages plus any locked transitive
// dependencies no remaining root still reaches. Reachability is
// recomputed from the manifests of the surviving declared
// dependencies; no network access is involved. Targets that were
// declared in the project manifest are dropped from it once their
// removal succeeds. With Options.DryRun the planned removal set is
// reported without touching disk, lock, or manifest.
func (i *Installer) Uninstall(ctx context.Context, targets []string, opts Options) (*UninstallResult, error) {
	opts = opts.withDefaults()

	if len(targets) == 0 {
		return nil, apmerrors.New(apmerrors.ErrCodeInvalidInput, "no packages to uninstall")
	}
	lock, err := lockfile.Read(i.lockPath())
	if err != nil {
		return nil, err
	}
	if lock == nil || lock.Len() == 0 {
		return nil, apmerrors.New(apmerrors.ErrCodeNotFound, "no lock file found; nothing is installed")
	}

	targetKeys := make(map[string]bool, len(targets))
	for _, t := range targets {
		ref, err := refs.Parse(t, i.hosts)
		if err != nil {
			return nil, err
		}
		key := ref.Canonical()
		if !lock.Has(key) {
			return nil, apmerrors.New(apmerrors.ErrCodePackageNotFound, "package %s is not installed", key)
		}
		targetKeys[key] = true
	}

	reachable := i.reachable(lock, targetKeys)

	var removal []string
	for _, dep := range lock.AllDependencies() {
		key := dep.Key()
		if targetKeys[key] || !reachable[key] {
			removal = append(removal, key)
		}
	}
	sort.Slice(removal, func(a, b int) bool {
		ta, tb := targetKeys[removal[a]], targetKeys[removal[b]]
		if ta != tb {
			return ta
		}
		return removal[a] < removal[b]
	})

	result := &UninstallResult{DryRun: opts.DryRun}
	if opts.DryRun {
		result.Removed = removal
		return result, nil
	}

	for _, key := range removal {
		if err := ctx.Err(); err != nil {
			return nil, apmerrors.Wrap(apmerrors.ErrCodeTimeout, err, "uninstall interrupted")
		}
		dep, _ := lock.Get(key)
		if err := i.removePackage(dep); err != nil {
			opts.Logger("failed to remove %s: %s", key, apmerrors.UserMessage(err))
			result.Failures = append(result.Failures, RemovalFailure{Key: key, Err: err})
			continue
		}
		lock.Remove(key)
		result.Removed = append(result.Removed, key)
	}

	dropped := make(map[string]bool, len(result.Removed))
	for _, key := range result.Removed {
		if targetKeys[key] {
			dropped[key] = true
		}
	}
	if err := i.dropDeclared(dropped); err != nil {
		return nil, err
	}

	if lock.Len() == 0 {
		if err := os.Remove(i.lockPath()); err != nil && !os.IsNotExist(err) {
			return nil, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "removing %s", i.lockPath())
		}
		if entries, err := os.ReadDir(i.modulesRoot()); err == nil && len(entries) == 0 {
			os.Remove(i.modulesRoot())
		}
		return result, nil
	}
	if err := lock.Write(i.lockPath()); err != nil {
		return nil, err
	}
	return result, nil
}

// CleanResult summarizes a clean run.
type CleanResult struct {
	// Removed counts package directories deleted or, in a dry run,
	// slated for deletion: locked packages on disk plus orphans.
	Removed int

	DryRun bool
}

// Clean deletes the whole modules directory and the lock file, the
// blunt counterpart to Uninstall for starting over. Declared
// dependencies stay in the project manifest so a later install can
// rebuild the tree. With Options.DryRun only the count is reported.
func (i *Installer) Clean(opts Options) (*CleanResult, error) {
	opts = opts.withDefaults()

	st, err := i.Status()
	if err != nil {
		return nil, err
	}
	result := &CleanResult{DryRun: opts.DryRun}
	for _, ps := range st.Packages {
		if ps.Installed {
			result.Removed++
		}
	}
	result.Removed += len(st.Orphans)

	if opts.DryRun {
		return result, nil
	}
	if err := os.RemoveAll(i.modulesRoot()); err != nil {
		return nil, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "deleting %s", i.modulesRoot())
	}
	if err := os.Remove(i.lockPath()); err != nil && !os.IsNotExist(err) {
		return nil, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "removing %s", i.lockPath())
	}
	return result, nil
}

// dropDeclared removes the successfully uninstalled roots from the
// project manifest so a later install does not reinstate them. A
// missing or unreadable manifest is tolerated; entries that fail to
// parse stay untouched.
func (i *Installer) dropDeclared(removed map[string]bool) error {
	if len(removed) == 0 {
		return nil
	}
	proj, err := manifest.Load(i.projectDir)
	if err != nil || proj.Dependencies == nil {
		return nil
	}
	kept := make([]string, 0, len(proj.Dependencies.APM))
	changed := false
	for _, raw := range proj.Dependencies.APM {
		if ref, err := refs.Parse(raw, i.hosts); err == nil && removed[ref.Canonical()] {
			changed = true
			continue
		}
		kept = append(kept, raw)
	}
	if !changed {
		return nil
	}
	proj.Dependencies.APM = kept
	return proj.Save(i.projectDir)
}

// reachable computes the identity keys still reachable from the
// project's declared dependencies once the targets are taken out.
// Children are read from each installed package's manifest on disk;
// when a package directory is gone the lock's resolved_by edges stand
// in for it.
func (i *Installer) reachable(lock *lockfile.File, excluded map[string]bool) map[string]bool {
	children := make(map[string][]string)
	for _, dep := range lock.AllDependencies() {
		if dep.ResolvedBy != "" {
			children[dep.ResolvedBy] = append(children[dep.ResolvedBy], dep.Key())
		}
	}

	var roots []string
	if proj, err := manifest.Load(i.projectDir); err == nil {
		for _, raw := range proj.APMDependencies() {
			ref, err := refs.Parse(raw, i.hosts)
			if err != nil {
				continue
			}
			key := ref.Canonical()
			if !excluded[key] {
				roots = append(roots, key)
			}
		}
	}

	reachable := make(map[string]bool)
	queue := roots
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		if reachable[key] || excluded[key] {
			continue
		}
		reachable[key] = true
		queue = append(queue, i.childKeys(lock, key, children)...)
	}
	return reachable
}

// childKeys lists the dependency keys of one installed package,
// preferring its on-disk manifest over the lock's recorded edges.
func (i *Installer) childKeys(lock *lockfile.File, key string, lockEdges map[string][]string) []string {
	dep, ok := lock.Get(key)
	if !ok {
		return nil
	}
	ref, err := dep.Ref(i.hosts)
	if err != nil {
		return lockEdges[key]
	}
	pkg, err := manifest.Load(ref.InstallPath(i.modulesRoot()))
	if err != nil {
		return lockEdges[key]
	}
	var keys []string
	for _, raw := range pkg.APMDependencies() {
		child, err := refs.Parse(raw, i.hosts)
		if err != nil {
			continue
		}
		keys = append(keys, child.Canonical())
	}
	return keys
}

// removePackage deletes one installed package and prunes empty parent
// directories back up to the modules root.
func (i *Installer) removePackage(dep lockfile.Dependency) error {
	ref, err := dep.Ref(i.hosts)
	if err != nil {
		return err
	}
	path := ref.InstallPath(i.modulesRoot())
	if err := os.RemoveAll(path); err != nil {
		return apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "deleting %s", path)
	}
	pruneEmpty(filepath.Dir(path), i.modulesRoot())
	return nil
}

// pruneEmpty removes dir and its parents while they are empty,
// strictly below stop.
func pruneEmpty(dir, stop string) {
	for dir != stop {
		rel, err := filepath.Rel(stop, dir)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
