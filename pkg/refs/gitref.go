package refs

import (
	"fmt"
	"regexp"
	"strings"
)

// RefType classifies a requested git reference.
type RefType string

const (
	RefTypeBranch RefType = "branch"
	RefTypeTag    RefType = "tag"
	RefTypeCommit RefType = "commit"
)

// DefaultBranch is assumed when a reference names no git ref.
const DefaultBranch = "main"

var (
	commitPattern = regexp.MustCompile(`^[a-f0-9]{7,40}$`)
	semverPattern = regexp.MustCompile(`^v?\d+\.\d+\.\d+`)
)

// Classify determines the type of a git reference string. An empty ref
// classifies as the default branch. Hex strings of 7 to 40 characters
// are commits, semver-shaped refs are tags, everything else is a branch.
func Classify(ref string) (RefType, string) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return RefTypeBranch, DefaultBranch
	}
	if commitPattern.MatchString(strings.ToLower(ref)) {
		return RefTypeCommit, ref
	}
	if semverPattern.MatchString(ref) {
		return RefTypeTag, ref
	}
	return RefTypeBranch, ref
}

// IsCommitSHA reports whether ref looks like a commit SHA.
func IsCommitSHA(ref string) bool {
	t, _ := Classify(ref)
	return t == RefTypeCommit
}

// Resolved pins a requested git reference to a concrete commit.
type Resolved struct {
	// Original is the ref as requested, "" for the default branch.
	Original string `yaml:"original,omitempty"`

	// Type classifies the requested ref.
	Type RefType `yaml:"type"`

	// Commit is the full resolved commit SHA.
	Commit string `yaml:"commit"`

	// Name is the branch or tag name the resolution landed on.
	Name string `yaml:"name"`
}

// String formats the resolution for display.
func (r Resolved) String() string {
	short := r.Commit
	if len(short) > 8 {
		short = short[:8]
	}
	if r.Type == RefTypeCommit {
		return short
	}
	return fmt.Sprintf("%s (%s)", r.Name, short)
}
