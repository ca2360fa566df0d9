// Package manifest reads and validates apm.yml package manifests and
// .collection.yml collection manifests.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
)

// Filename is the package manifest filename.
const Filename = "apm.yml"

// MetadataDir is the reserved metadata subdirectory inside a package.
const MetadataDir = ".apm"

// PrimitiveTypes are the .apm/ subdirectories a package may ship
// primitives in.
var PrimitiveTypes = []string{"instructions", "chatmodes", "contexts", "prompts", "agents"}

// Package is a parsed apm.yml manifest.
type Package struct {
	Name         string            `yaml:"name"`
	Version      string            `yaml:"version"`
	Description  string            `yaml:"description,omitempty"`
	Author       string            `yaml:"author,omitempty"`
	License      string            `yaml:"license,omitempty"`
	Dependencies *Dependencies     `yaml:"dependencies,omitempty"`
	Scripts      map[string]string `yaml:"scripts,omitempty"`
}

// Dependencies groups the dependency declarations of a package. Agent
// package dependencies live under "apm"; other groups (like MCP server
// references) are carried as opaque strings.
type Dependencies struct {
	APM []string `yaml:"apm,omitempty"`
	MCP []string `yaml:"mcp,omitempty"`
}

// APMDependencies returns the agent package dependency strings, nil-safe.
func (p *Package) APMDependencies() []string {
	if p.Dependencies == nil {
		return nil
	}
	return p.Dependencies.APM
}

// HasAPMDependencies reports whether the package declares any agent
// package dependencies.
func (p *Package) HasAPMDependencies() bool {
	return len(p.APMDependencies()) > 0
}

// Parse parses apm.yml content.
func Parse(data []byte) (*Package, error) {
	var pkg Package
	if err := yaml.Unmarshal(data, &pkg); err != nil {
		return nil, apmerrors.Wrap(apmerrors.ErrCodeInvalidManifest, err, "invalid YAML in %s", Filename)
	}
	if pkg.Name == "" {
		return nil, apmerrors.New(apmerrors.ErrCodeInvalidManifest, "missing required field 'name' in %s", Filename)
	}
	if pkg.Version == "" {
		return nil, apmerrors.New(apmerrors.ErrCodeInvalidManifest, "missing required field 'version' in %s", Filename)
	}
	return &pkg, nil
}

// Load reads and parses the manifest in dir.
func Load(dir string) (*Package, error) {
	path := filepath.Join(dir, Filename)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, apmerrors.New(apmerrors.ErrCodeFileNotFound, "%s not found in %s", Filename, dir)
	}
	if err != nil {
		return nil, apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "reading %s", path)
	}
	return Parse(data)
}

// Save writes the manifest to dir.
func (p *Package) Save(dir string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return apmerrors.Wrap(apmerrors.ErrCodeInternal, err, "marshaling %s", Filename)
	}
	return os.WriteFile(filepath.Join(dir, Filename), data, 0o644)
}

// Synthesize builds a minimal manifest for a virtual package that has
// no apm.yml of its own.
func Synthesize(name, description, author string) *Package {
	if description == "" {
		description = fmt.Sprintf("Virtual package %s", name)
	}
	return &Package{
		Name:        name,
		Version:     "1.0.0",
		Description: description,
		Author:      author,
	}
}

var semverPrefix = regexp.MustCompile(`^\d+\.\d+\.\d+`)

// ValidationResult accumulates validation errors and warnings for an
// installed package directory.
type ValidationResult struct {
	Errors   []string
	Warnings []string
	Package  *Package
}

// IsValid reports whether validation found no errors.
func (r *ValidationResult) IsValid() bool { return len(r.Errors) == 0 }

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateDir checks that dir holds a structurally valid package: a
// parsable apm.yml and a .apm/ metadata directory. Missing primitives
// and loose versioning are warnings, not errors.
func ValidateDir(dir string) *ValidationResult {
	result := &ValidationResult{}

	info, err := os.Stat(dir)
	if err != nil {
		result.addError("package directory does not exist: %s", dir)
		return result
	}
	if !info.IsDir() {
		result.addError("package path is not a directory: %s", dir)
		return result
	}

	pkg, err := Load(dir)
	if err != nil {
		result.addError("invalid %s: %s", Filename, apmerrors.UserMessage(err))
		return result
	}
	result.Package = pkg

	metaDir := filepath.Join(dir, MetadataDir)
	meta, err := os.Stat(metaDir)
	if err != nil {
		result.addError("missing required directory: %s/", MetadataDir)
		return result
	}
	if !meta.IsDir() {
		result.addError("%s must be a directory", MetadataDir)
		return result
	}

	hasPrimitives := false
	for _, pt := range PrimitiveTypes {
		files, err := filepath.Glob(filepath.Join(metaDir, pt, "*.md"))
		if err != nil || len(files) == 0 {
			continue
		}
		hasPrimitives = true
		for _, f := range files {
			content, err := os.ReadFile(f)
			if err != nil {
				result.addWarning("could not read primitive file %s: %v", f, err)
				continue
			}
			if strings.TrimSpace(string(content)) == "" {
				result.addWarning("empty primitive file: %s", f)
			}
		}
	}
	if !hasPrimitives {
		result.addWarning("no primitive files found in %s/ directory", MetadataDir)
	}

	if pkg.Version != "" && !semverPrefix.MatchString(pkg.Version) {
		result.addWarning("version %q doesn't follow semantic versioning (x.y.z)", pkg.Version)
	}

	return result
}
