package rates

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// document is the on-disk shape of a rate file.
type document struct {
	Domestic *JurisdictionRate `json:"domestic,omitempty" yaml:"domestic,omitempty" toml:"domestic,omitempty"`
	Rates    []JurisdictionRate `json:"rates" yaml:"rates" toml:"rates"`
}

// Default builds a fresh table from the embedded rates.
func Default() *Table {
	t, err := Parse(defaultsYAML, ".yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded rate table is invalid: %v", err))
	}
	return t
}

// LoadFile reads a rate table from a TOML, YAML or JSON file, chosen by
// extension.
func LoadFile(path string) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("access rate file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate file: %w", err)
	}
	t, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a rate document. ext selects the format (".toml", ".yaml",
// ".yml" or ".json").
func Parse(data []byte, ext string) (*Table, error) {
	var doc document
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse TOML rate table: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse YAML rate table: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse JSON rate table: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	var opts []Option
	if doc.Domestic != nil {
		opts = append(opts, WithDomestic(doc.Domestic.FullDay, doc.Domestic.PartialDay))
	}
	return NewTable(doc.Rates, opts...)
}

// LoadOrDefault loads path, or returns the embedded table when path is empty.
func LoadOrDefault(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
