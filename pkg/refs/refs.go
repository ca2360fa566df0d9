// Package refs parses dependency references and derives package
// identity from them.
//
// A dependency reference names a GitHub or Azure DevOps repository,
// optionally scoped to a sub-path inside it (a "virtual" package) and a
// git ref:
//
//	owner/repo
//	owner/repo#v1.2.0
//	owner/repo#main@alias
//	github.com/owner/repo
//	git@github.com:owner/repo.git
//	owner/repo/prompts/code-review.prompt.md
//	owner/repo/collections/project-planning
//	owner/repo/docs/guides
//	dev.azure.com/org/project/_git/repo
//
// Parsed references are immutable. Identity derivations (canonical
// string, install path, virtual package name) are pure functions of the
// parsed fields, so the same reference always lands in the same place
// on disk regardless of ref or alias.
package refs

import (
	"regexp"
	"strings"

	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
)

// Kind classifies what part of a repository a reference names.
type Kind int

const (
	// KindRepository is a whole-repository reference.
	KindRepository Kind = iota

	// KindFile is a single primitive file inside a repository.
	KindFile

	// KindCollection is a manifest-described set of files.
	KindCollection

	// KindDirectory is a subdirectory inside a repository.
	KindDirectory
)

// String returns the kind name used in logs and lock files.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindCollection:
		return "collection"
	case KindDirectory:
		return "directory"
	default:
		return "repository"
	}
}

// VirtualFileExtensions lists the recognized primitive file extensions,
// longest-match first.
var VirtualFileExtensions = []string{
	".instructions.md",
	".chatmode.md",
	".prompt.md",
	".agent.md",
}

// primitiveDirs maps a primitive file extension to its target
// subdirectory under .apm/.
var primitiveDirs = map[string]string{
	".prompt.md":       "prompts",
	".instructions.md": "instructions",
	".chatmode.md":     "chatmodes",
	".agent.md":        "agents",
}

// FileExtension returns the recognized primitive extension of name, or
// "" when name carries none.
func FileExtension(name string) string {
	for _, ext := range VirtualFileExtensions {
		if strings.HasSuffix(name, ext) {
			return ext
		}
	}
	return ""
}

// PrimitiveDir returns the .apm/ subdirectory for a primitive filename.
// Unrecognized names default to "prompts".
func PrimitiveDir(name string) string {
	if dir, ok := primitiveDirs[FileExtension(name)]; ok {
		return dir
	}
	return "prompts"
}

// collectionsSegment is the reserved path segment introducing a
// collection reference.
const collectionsSegment = "collections"

// Ref is a parsed dependency reference.
type Ref struct {
	// Host is the hostname the repository lives on, e.g. "github.com".
	Host string

	// RepoPath is "owner/repo" for GitHub or "org/project/repo" for
	// Azure DevOps, without any host, ref, or alias.
	RepoPath string

	// AzureDevOps is true when Host is an Azure DevOps host.
	AzureDevOps bool

	// VirtualPath is the sub-path inside the repository for virtual
	// packages, "" for whole-repository references. Collection paths are
	// stored without their manifest suffix.
	VirtualPath string

	// Kind classifies the reference.
	Kind Kind

	// GitRef is the requested branch, tag, or commit, "" for the
	// repository default.
	GitRef string

	// Alias is an optional display alias.
	Alias string
}

var sshPattern = regexp.MustCompile(`^git@([^:]+):(.+)$`)

// Parse parses a dependency reference string.
func Parse(s string, hosts Hosts) (*Ref, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, apmerrors.New(apmerrors.ErrCodeInvalidReference, "empty dependency reference")
	}
	for _, r := range raw {
		if r < 32 {
			return nil, apmerrors.New(apmerrors.ErrCodeInvalidReference, "dependency reference contains control characters")
		}
	}

	var host, path, gitRef, alias string
	var err error

	if m := sshPattern.FindStringSubmatch(raw); m != nil {
		host = m[1]
		rest := m[2]
		if rest, alias, err = splitAlias(rest); err != nil {
			return nil, err
		}
		if rest, gitRef, err = splitGitRef(rest); err != nil {
			return nil, err
		}
		path = strings.TrimSuffix(rest, ".git")
	} else {
		work := raw
		if work, alias, err = splitAlias(work); err != nil {
			return nil, err
		}
		if work, gitRef, err = splitGitRef(work); err != nil {
			return nil, err
		}
		work = strings.TrimPrefix(strings.TrimPrefix(work, "https://"), "http://")
		path = work
	}

	segs := splitSegments(path)

	// A leading segment with a dot is a hostname. Unrecognized hosts are
	// rejected rather than treated as owner names.
	if host == "" && len(segs) > 1 && strings.Contains(segs[0], ".") {
		if !hosts.known(segs[0]) {
			return nil, apmerrors.New(apmerrors.ErrCodeInvalidReference,
				"unsupported host %q: only GitHub and Azure DevOps repositories are supported", segs[0])
		}
		host = segs[0]
		segs = segs[1:]
	}
	if host == "" {
		host = hosts.DefaultHost()
	}
	if !hosts.known(host) {
		return nil, apmerrors.New(apmerrors.ErrCodeInvalidReference,
			"unsupported host %q: only GitHub and Azure DevOps repositories are supported", host)
	}

	ref := &Ref{
		Host:        strings.ToLower(host),
		AzureDevOps: hosts.IsAzureDevOps(host),
		GitRef:      gitRef,
		Alias:       alias,
	}

	var repoSegs, virtual []string
	if ref.AzureDevOps {
		// Azure DevOps web URLs carry a "_git" segment between project
		// and repo; it is not part of the repository path.
		kept := segs[:0:0]
		for _, seg := range segs {
			if seg != "_git" {
				kept = append(kept, seg)
			}
		}
		if len(kept) < 3 {
			return nil, apmerrors.New(apmerrors.ErrCodeInvalidReference,
				"invalid Azure DevOps reference %q: expected org/project/repo", s)
		}
		if kept[2] == collectionsSegment {
			return nil, apmerrors.New(apmerrors.ErrCodeInvalidReference,
				"invalid Azure DevOps reference %q: missing repository segment before %q", s, collectionsSegment)
		}
		repoSegs, virtual = kept[:3], kept[3:]
	} else {
		if len(segs) < 2 {
			return nil, apmerrors.New(apmerrors.ErrCodeInvalidReference,
				"invalid repository reference %q: expected owner/repo", s)
		}
		segs[1] = strings.TrimSuffix(segs[1], ".git")
		repoSegs, virtual = segs[:2], segs[2:]
	}

	for _, seg := range repoSegs {
		if err := apmerrors.ValidateSegment(seg); err != nil {
			return nil, err
		}
	}
	ref.RepoPath = strings.Join(repoSegs, "/")

	if len(virtual) > 0 {
		if err := classifyVirtual(ref, virtual); err != nil {
			return nil, err
		}
	}

	if ref.GitRef != "" {
		if err := apmerrors.ValidateGitRef(ref.GitRef); err != nil {
			return nil, err
		}
	}
	if ref.Alias != "" {
		if err := apmerrors.ValidateAlias(ref.Alias); err != nil {
			return nil, err
		}
	}

	return ref, nil
}

// classifyVirtual decides the virtual package kind and normalizes the
// virtual path on ref.
func classifyVirtual(ref *Ref, virtual []string) error {
	vp := strings.Join(virtual, "/")
	if err := apmerrors.ValidatePath(vp); err != nil {
		return err
	}

	last := virtual[len(virtual)-1]
	switch {
	case FileExtension(last) != "":
		ref.Kind = KindFile
		ref.VirtualPath = vp

	case virtual[0] == collectionsSegment:
		if len(virtual) < 2 {
			return apmerrors.New(apmerrors.ErrCodeInvalidReference,
				"collection reference is missing a collection name")
		}
		// Accept an optional manifest suffix but never store it; the
		// manifest path is re-derived at fetch time.
		last = strings.TrimSuffix(last, ".collection.yml")
		last = strings.TrimSuffix(last, ".collection.yaml")
		if last == "" {
			return apmerrors.New(apmerrors.ErrCodeInvalidReference,
				"collection reference is missing a collection name")
		}
		virtual[len(virtual)-1] = last
		ref.Kind = KindCollection
		ref.VirtualPath = strings.Join(virtual, "/")

	case strings.HasSuffix(last, ".md"):
		return apmerrors.New(apmerrors.ErrCodeInvalidReference,
			"invalid virtual package path %q: files must end with one of %s",
			vp, strings.Join(VirtualFileExtensions, ", "))

	default:
		ref.Kind = KindDirectory
		ref.VirtualPath = vp
	}
	return nil
}

// IsVirtual reports whether the reference names a sub-path rather than
// a whole repository.
func (r *Ref) IsVirtual() bool {
	return r.Kind != KindRepository
}

// CollectionManifestPaths returns the in-repo manifest paths to try for
// a collection reference, in order.
func (r *Ref) CollectionManifestPaths() []string {
	if r.Kind != KindCollection {
		return nil
	}
	return []string{
		r.VirtualPath + ".collection.yml",
		r.VirtualPath + ".collection.yaml",
	}
}

// ClonePath returns the repository path as it appears in clone URLs.
// Azure DevOps expects a "_git" segment between project and repository.
func (r *Ref) ClonePath() string {
	if !r.AzureDevOps {
		return r.RepoPath
	}
	i := strings.LastIndex(r.RepoPath, "/")
	return r.RepoPath[:i] + "/_git" + r.RepoPath[i:]
}

// CloneURL returns the anonymous HTTPS URL of the repository.
func (r *Ref) CloneURL() string {
	return "https://" + r.Host + "/" + r.ClonePath()
}

// DisplayName returns the alias when set, the virtual package name for
// virtual references, or the repository path.
func (r *Ref) DisplayName() string {
	if r.Alias != "" {
		return r.Alias
	}
	if r.IsVirtual() {
		return r.VirtualName()
	}
	return r.RepoPath
}

// String reconstructs the reference without its host.
func (r *Ref) String() string {
	var b strings.Builder
	b.WriteString(r.RepoPath)
	if r.VirtualPath != "" {
		b.WriteString("/")
		b.WriteString(r.VirtualPath)
	}
	if r.GitRef != "" {
		b.WriteString("#")
		b.WriteString(r.GitRef)
	}
	if r.Alias != "" {
		b.WriteString("@")
		b.WriteString(r.Alias)
	}
	return b.String()
}

// splitAlias strips a trailing "@alias" from s.
func splitAlias(s string) (rest, alias string, err error) {
	i := strings.LastIndex(s, "@")
	if i < 0 {
		return s, "", nil
	}
	rest, alias = s[:i], strings.TrimSpace(s[i+1:])
	if rest == "" || alias == "" {
		return "", "", apmerrors.New(apmerrors.ErrCodeInvalidReference, "invalid alias in reference %q", s)
	}
	return rest, alias, nil
}

// splitGitRef strips a trailing "#ref" from s.
func splitGitRef(s string) (rest, gitRef string, err error) {
	i := strings.LastIndex(s, "#")
	if i < 0 {
		return s, "", nil
	}
	rest, gitRef = s[:i], strings.TrimSpace(s[i+1:])
	if rest == "" || gitRef == "" {
		return "", "", apmerrors.New(apmerrors.ErrCodeInvalidReference, "invalid git ref in reference %q", s)
	}
	return rest, gitRef, nil
}

// splitSegments splits a path on "/" dropping empty segments, so
// accidental double slashes don't change meaning.
func splitSegments(path string) []string {
	parts := strings.Split(path, "/")
	segs := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}
