package installer

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/matzehuels/agentpm/pkg/config"
	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
	"github.com/matzehuels/agentpm/pkg/fetch"
	"github.com/matzehuels/agentpm/pkg/lockfile"
	"github.com/matzehuels/agentpm/pkg/manifest"
	"github.com/matzehuels/agentpm/pkg/refs"
	"github.com/matzehuels/agentpm/pkg/resolver"
)

// ModulesDir is the directory packages are installed into, relative to
// the project root.
const ModulesDir = "apm_modules"

// Options configures install and uninstall runs.
type Options struct {
	DryRun bool                 // Report planned changes without touching disk (uninstall only)
	Logger func(string, ...any) // Progress/warning callback (optional)
}

func (o Options) withDefaults() Options {
	opts := o
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// Installer drives the install and uninstall pipelines for one
// project directory.
type Installer struct {
	projectDir string
	hosts      refs.Hosts
	fetcher    resolver.Fetcher
}

// New creates an Installer for the project at projectDir.
func New(projectDir string, cfg *config.Config) *Installer {
	return &Installer{
		projectDir: projectDir,
		hosts:      cfg.Hosts(),
		fetcher:    fetch.New(cfg),
	}
}

func (i *Installer) modulesRoot() string {
	return filepath.Join(i.projectDir, ModulesDir)
}

func (i *Installer) lockPath() string {
	return filepath.Join(i.projectDir, lockfile.Filename)
}

// InstallResult summarizes an install run.
type InstallResult struct {
	// Installed lists resolved packages in discovery order.
	Installed []*resolver.Node

	Conflicts []resolver.ConflictInfo
	Cycles    []resolver.CircularRef
	Failures  []resolver.Failure

	// Lock is the lock file the run produced, nil when the project has
	// no dependencies.
	Lock *lockfile.File
}

// AddDependencies appends new dependency references to the project
// manifest, skipping ones already declared. References are validated
// before the manifest is touched.
func (i *Installer) AddDependencies(deps []string) error {
	if len(deps) == 0 {
		return nil
	}
	for _, dep := range deps {
		if _, err := refs.Parse(dep, i.hosts); err != nil {
			return err
		}
	}
	proj, err := manifest.Load(i.projectDir)
	if err != nil {
		return err
	}
	existing := proj.APMDependencies()
	added := false
	for _, dep := range deps {
		if !slices.Contains(existing, dep) {
			existing = append(existing, dep)
			added = true
		}
	}
	if !added {
		return nil
	}
	if proj.Dependencies == nil {
		proj.Dependencies = &manifest.Dependencies{}
	}
	proj.Dependencies.APM = existing
	return proj.Save(i.projectDir)
}

// Install resolves the project's declared dependencies, fetches the
// full graph, and persists the lock file. Packages pinned to a commit
// SHA that already matches the lock and are intact on disk skip the
// network.
func (i *Installer) Install(ctx context.Context, opts Options) (*InstallResult, error) {
	return i.install(ctx, opts, nil, false)
}

// Update re-fetches declared dependencies, bypassing the commit-pin
// shortcut so even lock-matching packages hit the network again. With
// targets it updates only those; they must be declared in the project
// manifest. With no targets every declared dependency is refreshed.
func (i *Installer) Update(ctx context.Context, targets []string, opts Options) (*InstallResult, error) {
	proj, err := manifest.Load(i.projectDir)
	if err != nil {
		return nil, err
	}
	declared := make(map[string]bool)
	for _, raw := range proj.APMDependencies() {
		if ref, err := refs.Parse(raw, i.hosts); err == nil {
			declared[ref.Canonical()] = true
		}
	}

	if len(targets) == 0 {
		return i.install(ctx, opts, nil, true)
	}
	force := make(map[string]bool, len(targets))
	for _, t := range targets {
		ref, err := refs.Parse(t, i.hosts)
		if err != nil {
			return nil, err
		}
		key := ref.Canonical()
		if !declared[key] {
			return nil, apmerrors.New(apmerrors.ErrCodePackageNotFound, "package %s is not a declared dependency", key)
		}
		force[key] = true
	}
	return i.install(ctx, opts, force, false)
}

func (i *Installer) install(ctx context.Context, opts Options, force map[string]bool, forceAll bool) (*InstallResult, error) {
	opts = opts.withDefaults()

	proj, err := manifest.Load(i.projectDir)
	if err != nil {
		return nil, err
	}
	roots := proj.APMDependencies()

	if len(roots) == 0 {
		if err := os.Remove(i.lockPath()); err != nil && !os.IsNotExist(err) {
			return nil, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "removing %s", i.lockPath())
		}
		return &InstallResult{}, nil
	}

	prev, err := lockfile.Read(i.lockPath())
	if err != nil {
		return nil, err
	}

	r := resolver.New(&lockAwareFetcher{inner: i.fetcher, lock: prev, force: force, forceAll: forceAll}, i.hosts, i.modulesRoot())
	res, err := r.Resolve(ctx, roots, resolver.Options{Logger: opts.Logger})
	if err != nil {
		return nil, err
	}

	lock := lockfile.New()
	result := &InstallResult{
		Conflicts: res.Conflicts,
		Cycles:    res.Cycles,
		Failures:  res.Failures,
	}
	for _, canonical := range res.Order {
		node := res.Nodes[canonical]
		result.Installed = append(result.Installed, node)
		lock.Add(lockEntry(node))
	}

	if lock.Len() == 0 {
		if err := os.Remove(i.lockPath()); err != nil && !os.IsNotExist(err) {
			return nil, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "removing %s", i.lockPath())
		}
		return result, nil
	}
	if err := lock.Write(i.lockPath()); err != nil {
		return nil, err
	}
	result.Lock = lock
	return result, nil
}

// lockEntry converts a resolved node into its lock file form. The host
// is omitted for plain github.com so lock files stay portable across
// the common case.
func lockEntry(node *resolver.Node) lockfile.Dependency {
	dep := lockfile.Dependency{
		RepoURL:        node.Ref.RepoPath,
		ResolvedCommit: node.Commit(),
		ResolvedRef:    node.Ref.GitRef,
		VirtualPath:    node.Ref.VirtualPath,
		IsVirtual:      node.Ref.IsVirtual(),
		Depth:          node.Depth,
		ResolvedBy:     node.ResolvedBy,
	}
	if node.Ref.Host != refs.DefaultGitHubHost {
		dep.Host = node.Ref.Host
	}
	if dep.ResolvedRef == "" && node.Info.Resolved != nil {
		dep.ResolvedRef = node.Info.Resolved.Name
	}
	if node.Info.Manifest != nil {
		dep.Version = node.Info.Manifest.Version
	}
	return dep
}

// lockAwareFetcher skips the network for packages pinned to a commit
// SHA the previous lock already resolved, provided the installed
// directory is still intact. Forced packages always go to the network.
type lockAwareFetcher struct {
	inner    resolver.Fetcher
	lock     *lockfile.File
	force    map[string]bool
	forceAll bool
}

func (l *lockAwareFetcher) Fetch(ctx context.Context, ref *refs.Ref, target string) (*fetch.PackageInfo, error) {
	if l.lock != nil && !l.forceAll && !l.force[ref.Canonical()] && refs.IsCommitSHA(ref.GitRef) {
		if dep, ok := l.lock.Get(ref.Canonical()); ok && dep.ResolvedCommit == ref.GitRef {
			if pkg, err := manifest.Load(target); err == nil {
				return &fetch.PackageInfo{
					Ref:         ref,
					Manifest:    pkg,
					InstallPath: target,
					Resolved: &refs.Resolved{
						Original: ref.GitRef,
						Type:     refs.RefTypeCommit,
						Commit:   dep.ResolvedCommit,
						Name:     ref.GitRef,
					},
					InstalledAt: time.Now().UTC(),
				}, nil
			}
		}
	}
	return l.inner.Fetch(ctx, ref, target)
}
