package refs

import (
	"strings"
	"testing"

	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
)

func mustParse(t *testing.T, s string) *Ref {
	t.Helper()
	ref, err := Parse(s, Hosts{})
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", s, err)
	}
	return ref
}

func TestParseBasicFormats(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		repoPath string
		host     string
		gitRef   string
		alias    string
	}{
		{"owner repo", "owner/repo", "owner/repo", "github.com", "", ""},
		{"with branch", "owner/repo#main", "owner/repo", "github.com", "main", ""},
		{"with tag", "owner/repo#v1.0.0", "owner/repo", "github.com", "v1.0.0", ""},
		{"with commit", "owner/repo#abc123def456", "owner/repo", "github.com", "abc123def456", ""},
		{"with alias", "owner/repo@myalias", "owner/repo", "github.com", "", "myalias"},
		{"ref and alias", "owner/repo#main@myalias", "owner/repo", "github.com", "main", "myalias"},
		{"explicit host", "github.com/owner/repo", "owner/repo", "github.com", "", ""},
		{"https url", "https://github.com/owner/repo", "owner/repo", "github.com", "", ""},
		{"git suffix", "owner/repo.git", "owner/repo", "github.com", "", ""},
		{"double slash", "owner//repo", "owner/repo", "github.com", "", ""},
		{"whitespace", "  owner/repo  ", "owner/repo", "github.com", "", ""},
		{"enterprise host", "myorg.ghe.com/owner/repo", "owner/repo", "myorg.ghe.com", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := mustParse(t, tt.input)
			if ref.RepoPath != tt.repoPath {
				t.Errorf("RepoPath = %q, want %q", ref.RepoPath, tt.repoPath)
			}
			if ref.Host != tt.host {
				t.Errorf("Host = %q, want %q", ref.Host, tt.host)
			}
			if ref.GitRef != tt.gitRef {
				t.Errorf("GitRef = %q, want %q", ref.GitRef, tt.gitRef)
			}
			if ref.Alias != tt.alias {
				t.Errorf("Alias = %q, want %q", ref.Alias, tt.alias)
			}
			if ref.Kind != KindRepository {
				t.Errorf("Kind = %v, want repository", ref.Kind)
			}
		})
	}
}

func TestParseSSH(t *testing.T) {
	ref := mustParse(t, "git@github.com:owner/repo.git")
	if ref.Host != "github.com" {
		t.Errorf("Host = %q", ref.Host)
	}
	if ref.RepoPath != "owner/repo" {
		t.Errorf("RepoPath = %q", ref.RepoPath)
	}

	ref = mustParse(t, "git@github.com:owner/repo.git#v2.0.0@tools")
	if ref.GitRef != "v2.0.0" || ref.Alias != "tools" {
		t.Errorf("GitRef = %q, Alias = %q", ref.GitRef, ref.Alias)
	}
}

func TestParseVirtualFile(t *testing.T) {
	ref := mustParse(t, "github/awesome-copilot/prompts/code-review.prompt.md")
	if ref.Kind != KindFile {
		t.Fatalf("Kind = %v, want file", ref.Kind)
	}
	if ref.RepoPath != "github/awesome-copilot" {
		t.Errorf("RepoPath = %q", ref.RepoPath)
	}
	if ref.VirtualPath != "prompts/code-review.prompt.md" {
		t.Errorf("VirtualPath = %q", ref.VirtualPath)
	}
}

func TestParseVirtualCollection(t *testing.T) {
	ref := mustParse(t, "github/awesome-copilot/collections/project-planning")
	if ref.Kind != KindCollection {
		t.Fatalf("Kind = %v, want collection", ref.Kind)
	}
	if ref.VirtualPath != "collections/project-planning" {
		t.Errorf("VirtualPath = %q", ref.VirtualPath)
	}

	paths := ref.CollectionManifestPaths()
	if len(paths) != 2 || paths[0] != "collections/project-planning.collection.yml" {
		t.Errorf("CollectionManifestPaths() = %v", paths)
	}
}

func TestParseCollectionManifestSuffixStripped(t *testing.T) {
	// Naming the manifest file directly must not double the extension.
	ref := mustParse(t, "owner/repo/collections/backend.collection.yml")
	if ref.VirtualPath != "collections/backend" {
		t.Errorf("VirtualPath = %q, want collections/backend", ref.VirtualPath)
	}
	paths := ref.CollectionManifestPaths()
	if paths[0] != "collections/backend.collection.yml" {
		t.Errorf("manifest path = %q", paths[0])
	}

	ref = mustParse(t, "owner/repo/collections/backend.collection.yaml")
	if ref.VirtualPath != "collections/backend" {
		t.Errorf("VirtualPath = %q, want collections/backend", ref.VirtualPath)
	}
}

func TestParseVirtualDirectory(t *testing.T) {
	ref := mustParse(t, "owner/repo/docs/guides")
	if ref.Kind != KindDirectory {
		t.Fatalf("Kind = %v, want directory", ref.Kind)
	}
	if ref.VirtualPath != "docs/guides" {
		t.Errorf("VirtualPath = %q", ref.VirtualPath)
	}
}

func TestParseAzureDevOps(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		repoPath    string
		virtualPath string
		kind        Kind
	}{
		{"web url with _git", "dev.azure.com/dmeppiel-org/market-js-app/_git/compliance-rules",
			"dmeppiel-org/market-js-app/compliance-rules", "", KindRepository},
		{"simplified", "dev.azure.com/myorg/myproject/myrepo",
			"myorg/myproject/myrepo", "", KindRepository},
		{"collection", "dev.azure.com/myorg/myproject/myrepo/collections/my-collection",
			"myorg/myproject/myrepo", "collections/my-collection", KindCollection},
		{"collection with _git", "dev.azure.com/myorg/myproject/_git/copilot-instructions/collections/csharp-ddd",
			"myorg/myproject/copilot-instructions", "collections/csharp-ddd", KindCollection},
		{"virtual file", "dev.azure.com/myorg/myproject/myrepo/prompts/code-review.prompt.md",
			"myorg/myproject/myrepo", "prompts/code-review.prompt.md", KindFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := mustParse(t, tt.input)
			if !ref.AzureDevOps {
				t.Fatal("AzureDevOps = false")
			}
			if ref.RepoPath != tt.repoPath {
				t.Errorf("RepoPath = %q, want %q", ref.RepoPath, tt.repoPath)
			}
			if ref.VirtualPath != tt.virtualPath {
				t.Errorf("VirtualPath = %q, want %q", ref.VirtualPath, tt.virtualPath)
			}
			if ref.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", ref.Kind, tt.kind)
			}
		})
	}
}

func TestParseAzureDevOpsMissingRepoSegment(t *testing.T) {
	// Omitting the repo would put "collections" in the repo slot; this
	// must be rejected instead of silently mis-resolving.
	_, err := Parse("dev.azure.com/myorg/myproject/collections/my-collection", Hosts{})
	if err == nil {
		t.Fatal("expected error for missing repository segment")
	}
	if !apmerrors.Is(err, apmerrors.ErrCodeInvalidReference) {
		t.Errorf("error code = %v", apmerrors.GetCode(err))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"control characters", "owner/re\npo"},
		{"single segment", "repo"},
		{"empty ref", "owner/repo#"},
		{"empty alias", "owner/repo@"},
		{"invalid alias chars", "owner/repo@my alias"},
		{"invalid segment chars", "ow ner/repo"},
		{"unknown md extension", "owner/repo/prompts/notes.md"},
		{"ado too few segments", "dev.azure.com/org/project"},
		{"unsupported host", "gitlab.example.com/owner/repo"},
		{"path traversal", "owner/repo/../../etc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.input, Hosts{}); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestParseCustomHosts(t *testing.T) {
	hosts := Hosts{
		Default: "github.enterprise.example.com",
		GitHub:  []string{"github.internal.corp"},
	}

	ref, err := Parse("owner/repo", hosts)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if ref.Host != "github.enterprise.example.com" {
		t.Errorf("Host = %q", ref.Host)
	}

	ref, err = Parse("github.internal.corp/owner/repo", hosts)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if ref.Host != "github.internal.corp" {
		t.Errorf("Host = %q", ref.Host)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"owner/repo", "owner/repo"},
		{"owner/repo#main@tools", "owner/repo#main@tools"},
		{"github.com/owner/repo#v1.0.0", "owner/repo#v1.0.0"},
		{"owner/repo/prompts/review.prompt.md#main", "owner/repo/prompts/review.prompt.md#main"},
	}

	for _, tt := range tests {
		ref := mustParse(t, tt.input)
		if got := ref.String(); got != tt.want {
			t.Errorf("String(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := mustParse(t, "owner/repo@tools").DisplayName(); got != "tools" {
		t.Errorf("DisplayName = %q, want tools", got)
	}
	if got := mustParse(t, "owner/repo").DisplayName(); got != "owner/repo" {
		t.Errorf("DisplayName = %q, want owner/repo", got)
	}
	if got := mustParse(t, "github/awesome-copilot/collections/planning").DisplayName(); got != "awesome-copilot-planning" {
		t.Errorf("DisplayName = %q, want awesome-copilot-planning", got)
	}
}

func TestPrimitiveDir(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"review.prompt.md", "prompts"},
		{"style.instructions.md", "instructions"},
		{"helper.chatmode.md", "chatmodes"},
		{"planner.agent.md", "agents"},
		{"unknown.md", "prompts"},
	}
	for _, tt := range tests {
		if got := PrimitiveDir(tt.name); got != tt.want {
			t.Errorf("PrimitiveDir(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLongVirtualNameBounded(t *testing.T) {
	long := strings.Repeat("x", 150)
	ref := mustParse(t, "owner/repo/collections/"+long)
	if len(ref.VirtualName()) > 100 {
		t.Errorf("VirtualName length = %d, want <= 100", len(ref.VirtualName()))
	}
}
