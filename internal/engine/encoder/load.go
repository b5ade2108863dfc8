package encoder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a fitted-encoder artifact: a mapping from field name to the
// ordered list of classes seen at training time. Files ending in .yaml or
// .yml are parsed as YAML, everything else as JSON.
//
//	gender: [f, m]
//	jaundice: ["no", "yes"]
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("encoder: file is empty: %s", path)
	}

	var classes map[string][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &classes)
	default:
		err = json.Unmarshal(data, &classes)
	}
	if err != nil {
		return nil, fmt.Errorf("encoder: parse %s: %w", path, err)
	}
	return New(classes)
}
