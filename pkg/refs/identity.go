package refs

import (
	"path/filepath"
	"strings"
)

// maxVirtualNameLength bounds synthesized package directory names.
const maxVirtualNameLength = 100

// Canonical returns the identity string for deduplication: the
// repository path plus, for virtual packages, the virtual sub-path.
// Host, git ref, and alias never participate, so the same content
// requested under different refs or aliases collides on one identity.
func (r *Ref) Canonical() string {
	if r.IsVirtual() {
		return r.RepoPath + "/" + r.VirtualPath
	}
	return r.RepoPath
}

// VirtualName returns the synthesized package name for a virtual
// reference: "<repo>-<slug>" where slug is the last sub-path segment
// with any recognized extension stripped.
//
// The slug does not encode the reference kind, so a file and a
// collection sharing a stem (prompts/a.prompt.md and collections/a)
// map to the same name and therefore the same install path. Installing
// both overwrites one with the other.
func (r *Ref) VirtualName() string {
	repoSegs := strings.Split(r.RepoPath, "/")
	repoName := repoSegs[len(repoSegs)-1]
	if !r.IsVirtual() {
		return repoName
	}

	virtualSegs := strings.Split(r.VirtualPath, "/")
	slug := virtualSegs[len(virtualSegs)-1]
	if ext := FileExtension(slug); ext != "" {
		slug = strings.TrimSuffix(slug, ext)
	}

	name := sanitizeName(repoName + "-" + slug)
	if len(name) > maxVirtualNameLength {
		name = name[:maxVirtualNameLength]
	}
	return name
}

// InstallPath returns the deterministic install location under root.
//
//   - Whole repository: root/<owner>/<repo> or root/<org>/<project>/<repo>.
//   - Virtual file or collection: flattened to root/<owner>/<virtual name>
//     (GitHub) or root/<org>/<project>/<virtual name> (Azure DevOps).
//   - Virtual subdirectory: the natural nested path.
func (r *Ref) InstallPath(root string) string {
	repoSegs := strings.Split(r.RepoPath, "/")

	switch r.Kind {
	case KindFile, KindCollection:
		parts := append([]string{root}, repoSegs[:len(repoSegs)-1]...)
		parts = append(parts, r.VirtualName())
		return filepath.Join(parts...)
	case KindDirectory:
		parts := append([]string{root}, repoSegs...)
		parts = append(parts, strings.Split(r.VirtualPath, "/")...)
		return filepath.Join(parts...)
	default:
		return filepath.Join(append([]string{root}, repoSegs...)...)
	}
}

// sanitizeName replaces characters outside the install-safe charset
// with hyphens.
func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
