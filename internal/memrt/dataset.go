package memrt

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Dataset is a document tree keyed by root type name, then field name.
// Object documents are plain maps; values of interface or union fields
// carry a __type key naming their concrete type.
type Dataset map[string]map[string]any

// ParseDataset decodes a YAML dataset document.
func ParseDataset(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return ds, nil
}

// LoadDataset reads and decodes a YAML dataset file.
func LoadDataset(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %q: %w", path, err)
	}
	return ParseDataset(raw)
}
