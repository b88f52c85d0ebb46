// Package index builds the "code" and "wsp" collections from navigation entries and
// markdown documents.
package index

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrDuplicateNeed = errors.New("duplicate navigation need")
	ErrCountMismatch = errors.New("collection count does not match entries processed")
)

// NavigationEntry maps a need, phrased as a question or task, to a location:
// "path" or "path:symbol".
type NavigationEntry struct {
	Need     string
	Location string
}

// LoadNavigation reads a YAML (or JSON) mapping of need to location, keeping the
// document order.
func LoadNavigation(path string) ([]NavigationEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read navigation %s: %w", path, err)
	}
	entries, err := ParseNavigation(data)
	if err != nil {
		return nil, fmt.Errorf("navigation %s: %w", path, err)
	}
	return entries, nil
}

// ParseNavigation decodes a need -> location mapping. An empty document yields no entries.
func ParseNavigation(data []byte) ([]NavigationEntry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	if doc.Kind == yaml.ScalarNode && doc.Tag == "!!null" {
		return nil, nil
	}
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of need to location", doc.Line)
	}

	entries := make([]NavigationEntry, 0, len(doc.Content)/2)
	seen := make(map[string]int, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: need and location must be plain strings", key.Line)
		}

		need := strings.TrimSpace(key.Value)
		location := strings.TrimSpace(value.Value)
		if need == "" || location == "" {
			return nil, fmt.Errorf("line %d: empty need or location", key.Line)
		}
		if first, dup := seen[need]; dup {
			return nil, fmt.Errorf("%w: %q (lines %d and %d)", ErrDuplicateNeed, need, first, key.Line)
		}
		seen[need] = key.Line

		entries = append(entries, NavigationEntry{Need: need, Location: location})
	}
	return entries, nil
}
