package resolver

import (
	"context"
	"slices"

	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
	"github.com/matzehuels/agentpm/pkg/fetch"
	"github.com/matzehuels/agentpm/pkg/manifest"
	"github.com/matzehuels/agentpm/pkg/refs"
)

// DefaultMaxDepth bounds the traversal when Options does not.
const DefaultMaxDepth = 50

// Fetcher materializes one package on disk. *fetch.Fetcher satisfies
// it; tests use in-memory fakes.
type Fetcher interface {
	Fetch(ctx context.Context, ref *refs.Ref, target string) (*fetch.PackageInfo, error)
}

// Options configures a resolution run.
type Options struct {
	MaxDepth int                  // Maximum dependency depth (default: 50)
	Logger   func(string, ...any) // Progress/warning callback (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by
// defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// Node is one resolved package in the graph.
type Node struct {
	// Ref is the reference the package was first requested under.
	Ref *refs.Ref

	// Info is the fetch result for the package.
	Info *fetch.PackageInfo

	// Depth is the BFS depth at first discovery; roots are depth 1.
	Depth int

	// ResolvedBy is the canonical string of the parent that introduced
	// the package, "" for roots.
	ResolvedBy string
}

// Commit returns the resolved commit SHA, "" for raw virtual fetches.
func (n *Node) Commit() string {
	if n.Info.Resolved == nil {
		return ""
	}
	return n.Info.Resolved.Commit
}

// ConflictInfo records a package requested under two different git
// refs. The first request wins; the second is never fetched.
type ConflictInfo struct {
	Canonical    string
	ExistingRef  string
	RequestedRef string
	RequestedBy  string
}

// CircularRef records a dependency chain that loops back on itself.
// Path lists canonical strings from the root to the repeated package.
type CircularRef struct {
	Path []string
}

// Failure records a dependency that could not be resolved. Failures do
// not abort the rest of the graph.
type Failure struct {
	Reference   string
	RequestedBy string
	Err         error
}

// Result is the outcome of a resolution run.
type Result struct {
	// Nodes maps canonical strings to resolved packages.
	Nodes map[string]*Node

	// Order lists canonical strings in discovery order.
	Order []string

	Conflicts []ConflictInfo
	Cycles    []CircularRef
	Failures  []Failure
}

// Resolver walks a dependency graph breadth-first, fetching each
// package at most once.
type Resolver struct {
	fetcher Fetcher
	hosts   refs.Hosts
	root    string

	// readDeps loads the dependency strings of an installed package.
	// Overridable for tests.
	readDeps func(info *fetch.PackageInfo) ([]string, error)
}

// New creates a Resolver installing under root.
func New(fetcher Fetcher, hosts refs.Hosts, root string) *Resolver {
	return &Resolver{
		fetcher:  fetcher,
		hosts:    hosts,
		root:     root,
		readDeps: diskDeps,
	}
}

// diskDeps reads dependency declarations from the package's installed
// manifest rather than the in-memory fetch result, so a package
// restored from a previous run still contributes its children.
func diskDeps(info *fetch.PackageInfo) ([]string, error) {
	pkg, err := manifest.Load(info.InstallPath)
	if err != nil {
		return nil, err
	}
	return pkg.APMDependencies(), nil
}

type work struct {
	ref      *refs.Ref
	raw      string
	depth    int
	parent   string
	ancestry []string
}

// Resolve fetches every package reachable from the given root
// references. Roots sit at depth 1; a package requested twice keeps its
// first-discovered ref and depth.
func (r *Resolver) Resolve(ctx context.Context, roots []string, opts Options) (*Result, error) {
	opts = opts.WithDefaults()
	res := &Result{Nodes: make(map[string]*Node)}

	var queue []work
	for _, raw := range roots {
		ref, err := refs.Parse(raw, r.hosts)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Reference: raw, Err: err})
			continue
		}
		queue = append(queue, work{ref: ref, raw: raw, depth: 1})
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, apmerrors.Wrap(apmerrors.ErrCodeTimeout, err, "resolution interrupted")
		}
		w := queue[0]
		queue = queue[1:]

		canonical := w.ref.Canonical()
		if slices.Contains(w.ancestry, canonical) {
			res.Cycles = append(res.Cycles, CircularRef{Path: append(slices.Clone(w.ancestry), canonical)})
			opts.Logger("circular dependency: %s", canonical)
			continue
		}

		if existing, ok := res.Nodes[canonical]; ok {
			if effectiveRef(existing.Ref.GitRef) != effectiveRef(w.ref.GitRef) {
				res.Conflicts = append(res.Conflicts, ConflictInfo{
					Canonical:    canonical,
					ExistingRef:  existing.Ref.GitRef,
					RequestedRef: w.ref.GitRef,
					RequestedBy:  w.parent,
				})
				opts.Logger("ref conflict for %s: keeping %q, ignoring %q", canonical, existing.Ref.GitRef, w.ref.GitRef)
			}
			continue
		}

		info, err := r.fetcher.Fetch(ctx, w.ref, w.ref.InstallPath(r.root))
		if err != nil {
			res.Failures = append(res.Failures, Failure{Reference: w.raw, RequestedBy: w.parent, Err: err})
			opts.Logger("failed to resolve %s: %s", w.raw, apmerrors.UserMessage(err))
			continue
		}

		node := &Node{Ref: w.ref, Info: info, Depth: w.depth, ResolvedBy: w.parent}
		res.Nodes[canonical] = node
		res.Order = append(res.Order, canonical)

		if w.depth >= opts.MaxDepth {
			opts.Logger("max depth %d reached at %s", opts.MaxDepth, canonical)
			continue
		}
		children, err := r.readDeps(info)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Reference: w.raw, RequestedBy: w.parent, Err: err})
			continue
		}
		ancestry := append(slices.Clone(w.ancestry), canonical)
		for _, dep := range children {
			child, err := refs.Parse(dep, r.hosts)
			if err != nil {
				res.Failures = append(res.Failures, Failure{Reference: dep, RequestedBy: canonical, Err: err})
				continue
			}
			queue = append(queue, work{ref: child, raw: dep, depth: w.depth + 1, parent: canonical, ancestry: ancestry})
		}
	}

	return res, nil
}

// effectiveRef treats an unpinned request as the default branch, since
// that is what an empty git ref resolves to; requesting "repo" and
// "repo#main" is not a conflict.
func effectiveRef(gitRef string) string {
	if gitRef == "" {
		return refs.DefaultBranch
	}
	return gitRef
}
