package manifest

import (
	"strings"

	"gopkg.in/yaml.v3"

	apmerrors "github.com/matzehuels/agentpm/pkg/errors"
)

// CollectionItem is a single file listed in a collection manifest.
type CollectionItem struct {
	Path string `yaml:"path"`
	Kind string `yaml:"kind"`
}

// kindSubdirs maps a collection item kind to its .apm/ subdirectory.
var kindSubdirs = map[string]string{
	"prompt":      "prompts",
	"instruction": "instructions",
	"chat-mode":   "chatmodes",
	"chatmode":    "chatmodes",
	"agent":       "agents",
	"context":     "contexts",
}

// Subdirectory returns the .apm/ subdirectory for this item's kind.
// Unknown kinds default to "prompts".
func (i CollectionItem) Subdirectory() string {
	if dir, ok := kindSubdirs[strings.ToLower(i.Kind)]; ok {
		return dir
	}
	return "prompts"
}

// Collection is a parsed .collection.yml manifest.
type Collection struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Items       []CollectionItem `yaml:"items"`
	Tags        []string         `yaml:"tags,omitempty"`
}

// ItemsByKind returns the items matching kind, case-insensitively.
func (c *Collection) ItemsByKind(kind string) []CollectionItem {
	var out []CollectionItem
	for _, item := range c.Items {
		if strings.EqualFold(item.Kind, kind) {
			out = append(out, item)
		}
	}
	return out
}

// ParseCollection parses and validates a collection manifest.
func ParseCollection(data []byte) (*Collection, error) {
	var c Collection
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, apmerrors.Wrap(apmerrors.ErrCodeInvalidCollection, err, "invalid collection YAML")
	}

	var missing []string
	if c.ID == "" {
		missing = append(missing, "id")
	}
	if c.Name == "" {
		missing = append(missing, "name")
	}
	if c.Description == "" {
		missing = append(missing, "description")
	}
	if len(c.Items) == 0 {
		missing = append(missing, "items")
	}
	if len(missing) > 0 {
		return nil, apmerrors.New(apmerrors.ErrCodeInvalidCollection,
			"collection manifest missing required fields: %s", strings.Join(missing, ", "))
	}

	for i, item := range c.Items {
		if item.Path == "" {
			return nil, apmerrors.New(apmerrors.ErrCodeInvalidCollection,
				"collection item %d missing required field 'path'", i)
		}
		if item.Kind == "" {
			return nil, apmerrors.New(apmerrors.ErrCodeInvalidCollection,
				"collection item %d missing required field 'kind'", i)
		}
		if err := apmerrors.ValidatePath(item.Path); err != nil {
			return nil, apmerrors.Wrap(apmerrors.ErrCodeInvalidCollection, err,
				"collection item %d has an unsafe path", i)
		}
	}

	return &c, nil
}
