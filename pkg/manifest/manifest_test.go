package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	data := []byte(`name: my-project
version: 1.0.0
description: Test project
dependencies:
  apm:
    - owner/repo
    - owner/other#v1.0.0
  mcp:
    - some-mcp-server
scripts:
  start: echo hi
`)
	pkg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if pkg.Name != "my-project" || pkg.Version != "1.0.0" {
		t.Errorf("Name = %q, Version = %q", pkg.Name, pkg.Version)
	}
	deps := pkg.APMDependencies()
	if len(deps) != 2 || deps[0] != "owner/repo" {
		t.Errorf("APMDependencies = %v", deps)
	}
	if !pkg.HasAPMDependencies() {
		t.Error("HasAPMDependencies = false")
	}
	if pkg.Scripts["start"] != "echo hi" {
		t.Errorf("Scripts = %v", pkg.Scripts)
	}
}

func TestParseMissingFields(t *testing.T) {
	if _, err := Parse([]byte("version: 1.0.0\n")); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := Parse([]byte("name: x\n")); err == nil {
		t.Error("expected error for missing version")
	}
	if _, err := Parse([]byte("not: [valid")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	pkg := Synthesize("repo-code-review", "A prompt", "owner")
	if err := pkg.Save(dir); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Name != "repo-code-review" || loaded.Version != "1.0.0" {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Description != "A prompt" || loaded.Author != "owner" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestSynthesizeDefaultDescription(t *testing.T) {
	pkg := Synthesize("repo-thing", "", "owner")
	if pkg.Description == "" {
		t.Error("Synthesize should default the description")
	}
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()

	// Missing manifest
	result := ValidateDir(dir)
	if result.IsValid() {
		t.Error("empty dir should be invalid")
	}

	// Manifest but no .apm dir
	pkg := Synthesize("pkg", "", "")
	if err := pkg.Save(dir); err != nil {
		t.Fatal(err)
	}
	result = ValidateDir(dir)
	if result.IsValid() {
		t.Error("dir without .apm should be invalid")
	}

	// Full structure with a primitive
	promptDir := filepath.Join(dir, MetadataDir, "prompts")
	if err := os.MkdirAll(promptDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(promptDir, "review.prompt.md"), []byte("# Review"), 0o644); err != nil {
		t.Fatal(err)
	}
	result = ValidateDir(dir)
	if !result.IsValid() {
		t.Errorf("expected valid, errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestValidateDirWarnings(t *testing.T) {
	dir := t.TempDir()
	pkg := Synthesize("pkg", "", "")
	pkg.Version = "not-semver"
	if err := pkg.Save(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, MetadataDir), 0o755); err != nil {
		t.Fatal(err)
	}

	result := ValidateDir(dir)
	if !result.IsValid() {
		t.Fatalf("expected valid, errors: %v", result.Errors)
	}
	// No primitives and a loose version should both warn.
	if len(result.Warnings) != 2 {
		t.Errorf("Warnings = %v", result.Warnings)
	}
}

func TestParseCollection(t *testing.T) {
	data := []byte(`id: project-planning
name: Project Planning
description: Prompts for planning
tags: [planning]
items:
  - path: prompts/breakdown.prompt.md
    kind: prompt
  - path: instructions/style.instructions.md
    kind: instruction
  - path: chatmodes/architect.chatmode.md
    kind: chat-mode
`)
	c, err := ParseCollection(data)
	if err != nil {
		t.Fatalf("ParseCollection error: %v", err)
	}
	if c.ID != "project-planning" || len(c.Items) != 3 {
		t.Errorf("parsed = %+v", c)
	}
	if got := c.Items[2].Subdirectory(); got != "chatmodes" {
		t.Errorf("Subdirectory = %q", got)
	}
	if got := len(c.ItemsByKind("prompt")); got != 1 {
		t.Errorf("ItemsByKind(prompt) = %d", got)
	}
}

func TestParseCollectionErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing fields", "id: x\nitems:\n  - path: a\n    kind: prompt\n"},
		{"empty items", "id: x\nname: X\ndescription: d\nitems: []\n"},
		{"item missing path", "id: x\nname: X\ndescription: d\nitems:\n  - kind: prompt\n"},
		{"item missing kind", "id: x\nname: X\ndescription: d\nitems:\n  - path: a.md\n"},
		{"unsafe item path", "id: x\nname: X\ndescription: d\nitems:\n  - path: ../../etc/passwd\n    kind: prompt\n"},
		{"invalid yaml", "id: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCollection([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCollectionItemDefaultSubdirectory(t *testing.T) {
	item := CollectionItem{Path: "x.md", Kind: "mystery"}
	if got := item.Subdirectory(); got != "prompts" {
		t.Errorf("Subdirectory = %q", got)
	}
}

func TestDescriptionFromFrontmatter(t *testing.T) {
	content := []byte(`---
description: Reviews code for style issues
applyTo: "**/*.go"
---

# Code Review
`)
	if got := DescriptionFromFrontmatter(content); got != "Reviews code for style issues" {
		t.Errorf("DescriptionFromFrontmatter = %q", got)
	}

	if got := DescriptionFromFrontmatter([]byte("# No frontmatter\n")); got != "" {
		t.Errorf("expected empty, got %q", got)
	}

	if got := DescriptionFromFrontmatter([]byte("---\nunclosed frontmatter\n")); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
