// Package lockfile reads and writes apm.lock, the record of exactly
// resolved dependency versions that makes installs reproducible.
package lockfile

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/agentpm/pkg/buildinfo"
	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
	"github.com/matzehuels/agentpm/pkg/refs"
)

// Filename is the lock file name at the project root.
const Filename = "apm.lock"

// SchemaVersion is the lock file format version written by this code.
const SchemaVersion = "1"

// Dependency is one resolved entry in the lock file.
type Dependency struct {
	RepoURL        string `yaml:"repo_url"`
	Host           string `yaml:"host,omitempty"`
	ResolvedCommit string `yaml:"resolved_commit,omitempty"`
	ResolvedRef    string `yaml:"resolved_ref,omitempty"`
	Version        string `yaml:"version,omitempty"`
	VirtualPath    string `yaml:"virtual_path,omitempty"`
	IsVirtual      bool   `yaml:"is_virtual,omitempty"`
	Depth          int    `yaml:"depth,omitempty"`
	ResolvedBy     string `yaml:"resolved_by,omitempty"`
}

// rawDependency avoids marshal recursion on Dependency.
type rawDependency Dependency

// MarshalYAML omits the depth field at its default of 1.
func (d Dependency) MarshalYAML() (any, error) {
	out := rawDependency(d)
	if out.Depth == 1 {
		out.Depth = 0
	}
	return out, nil
}

// UnmarshalYAML restores the depth default of 1 when the field is
// absent.
func (d *Dependency) UnmarshalYAML(value *yaml.Node) error {
	var raw rawDependency
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Depth == 0 {
		raw.Depth = 1
	}
	*d = Dependency(raw)
	return nil
}

// Key returns the identity string the entry is stored under, matching
// the canonical form of its reference.
func (d *Dependency) Key() string {
	if d.IsVirtual && d.VirtualPath != "" {
		return d.RepoURL + "/" + d.VirtualPath
	}
	return d.RepoURL
}

// Ref reconstructs the parsed reference for the entry.
func (d *Dependency) Ref(hosts refs.Hosts) (*refs.Ref, error) {
	s := d.RepoURL
	if d.Host != "" {
		s = d.Host + "/" + s
	}
	if d.VirtualPath != "" {
		s += "/" + d.VirtualPath
	}
	return refs.Parse(s, hosts)
}

// File is an in-memory lock file keyed by dependency identity.
type File struct {
	// SchemaVersion is the format version the file was read with.
	SchemaVersion string

	// GeneratedAt is the time the lock was produced, in UTC.
	GeneratedAt time.Time

	// ToolVersion is the version of the tool that wrote the file.
	ToolVersion string

	deps map[string]Dependency
}

// New returns an empty lock stamped with the current time and tool
// version.
func New() *File {
	return &File{
		SchemaVersion: SchemaVersion,
		GeneratedAt:   time.Now().UTC(),
		ToolVersion:   buildinfo.Version,
		deps:          make(map[string]Dependency),
	}
}

// Add inserts or replaces the entry under its identity key.
func (f *File) Add(dep Dependency) {
	if f.deps == nil {
		f.deps = make(map[string]Dependency)
	}
	f.deps[dep.Key()] = dep
}

// Get returns the entry stored under key.
func (f *File) Get(key string) (Dependency, bool) {
	dep, ok := f.deps[key]
	return dep, ok
}

// Has reports whether an entry exists under key.
func (f *File) Has(key string) bool {
	_, ok := f.deps[key]
	return ok
}

// Remove drops the entry stored under key.
func (f *File) Remove(key string) {
	delete(f.deps, key)
}

// Len returns the number of entries.
func (f *File) Len() int {
	return len(f.deps)
}

// AllDependencies returns every entry sorted by depth, then
// repository path.
func (f *File) AllDependencies() []Dependency {
	deps := make([]Dependency, 0, len(f.deps))
	for _, d := range f.deps {
		deps = append(deps, d)
	}
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Depth != deps[j].Depth {
			return deps[i].Depth < deps[j].Depth
		}
		return deps[i].RepoURL < deps[j].RepoURL
	})
	return deps
}

// InstalledPaths returns the install directory of every entry under
// root, deduplicated and ordered by depth then repository path.
// Entries whose reference no longer parses are skipped.
func (f *File) InstalledPaths(root string, hosts refs.Hosts) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, dep := range f.AllDependencies() {
		ref, err := dep.Ref(hosts)
		if err != nil {
			continue
		}
		p := ref.InstallPath(root)
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}

// document is the on-disk YAML shape.
type document struct {
	LockfileVersion string       `yaml:"lockfile_version"`
	GeneratedAt     string       `yaml:"generated_at"`
	APMVersion      string       `yaml:"apm_version,omitempty"`
	Dependencies    []Dependency `yaml:"dependencies"`
}

// Write atomically persists the lock: a temp file in the target
// directory followed by a rename, so readers never observe a partial
// file. Callers delete the file instead of writing an empty lock.
func (f *File) Write(path string) error {
	doc := document{
		LockfileVersion: f.SchemaVersion,
		GeneratedAt:     f.GeneratedAt.UTC().Format(time.RFC3339),
		APMVersion:      f.ToolVersion,
		Dependencies:    f.AllDependencies(),
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "encoding lock file")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".apm.lock-*")
	if err != nil {
		return apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "creating temp lock file in %s", dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "writing lock file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "closing lock file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "replacing %s", path)
	}
	return nil
}

// Read loads the lock at path. A missing or corrupt file returns
// (nil, nil): installs proceed from scratch rather than failing on
// stale state.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil
	}
	f := &File{
		SchemaVersion: doc.LockfileVersion,
		GeneratedAt:   time.Now().UTC(),
		ToolVersion:   doc.APMVersion,
		deps:          make(map[string]Dependency, len(doc.Dependencies)),
	}
	if f.SchemaVersion == "" {
		f.SchemaVersion = SchemaVersion
	}
	if t, err := time.Parse(time.RFC3339, doc.GeneratedAt); err == nil {
		f.GeneratedAt = t
	}
	for _, dep := range doc.Dependencies {
		f.Add(dep)
	}
	return f, nil
}
