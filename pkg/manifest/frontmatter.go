package manifest

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// DescriptionFromFrontmatter extracts the description field from a
// markdown file's YAML frontmatter. Returns "" when the file has no
// frontmatter or the block doesn't parse.
func DescriptionFromFrontmatter(data []byte) string {
	text := strings.TrimLeft(string(data), "\uFEFF")
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return ""
	}
	rest := text[strings.Index(text, "\n")+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return ""
	}

	var meta struct {
		Description string `yaml:"description"`
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return ""
	}
	return strings.TrimSpace(meta.Description)
}
