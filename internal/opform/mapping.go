package opform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadMappingFile reads an old -> new column mapping from a YAML or TOML file.
// The pairs sit at the top level or under a "columns" key.
func LoadMappingFile(path string) (Rows, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMapping(data, filepath.Ext(path))
}

// ParseMapping decodes a mapping document; ext selects TOML for ".toml" and
// YAML otherwise.
func ParseMapping(data []byte, ext string) (Rows, error) {
	raw := map[string]any{}
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse toml mapping: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml mapping: %w", err)
		}
	}
	if nested, ok := raw["columns"]; ok {
		inner, ok := nested.(map[string]any)
		if !ok {
			return nil, errors.New("columns must be a mapping of old to new names")
		}
		raw = inner
	}
	mapping := make(map[string]string, len(raw))
	for old, value := range raw {
		next, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("column %q: new name must be a string", old)
		}
		mapping[old] = next
	}
	if len(mapping) == 0 {
		return nil, errors.New("mapping is empty")
	}
	return RowsFromMapping(mapping, nil), nil
}

// ParsePairs turns "old=new" arguments into rows, keeping their order.
func ParsePairs(pairs []string) (Rows, error) {
	rows := make(Rows, 0, len(pairs))
	for _, pair := range pairs {
		old, next, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(old) == "" {
			return nil, fmt.Errorf("invalid pair %q, expected old=new", pair)
		}
		rows = append(rows, Row{Old: strings.TrimSpace(old), New: strings.TrimSpace(next)})
	}
	return rows, nil
}

// MappingYAML renders complete rows as a YAML mapping, the same shape
// LoadMappingFile reads back.
func MappingYAML(rows Rows) ([]byte, error) {
	mapping := rows.Mapping()
	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range keys {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: mapping[key]},
		)
	}
	return yaml.Marshal(map[string]*yaml.Node{"columns": doc})
}
