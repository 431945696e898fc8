package configuration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// document is the on-disk form shared by the JSON and YAML encodings.
type document struct {
	BinaryOptions  map[string]bool    `json:"binaryOptions" yaml:"binaryOptions"`
	NumericOptions map[string]float64 `json:"numericOptions" yaml:"numericOptions"`
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a configuration file. Files ending in .yaml or .yml are decoded
// as YAML, everything else as JSON.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}

	var doc document
	if isYAML(path) {
		err = yaml.Unmarshal(data, &doc)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode configuration %s: %w", path, err)
	}
	return New(doc.BinaryOptions, doc.NumericOptions), nil
}

// Save writes the configuration to path, choosing the encoding like Load.
func (c *Configuration) Save(path string) error {
	doc := document{BinaryOptions: c.binary, NumericOptions: c.numeric}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration %s: %w", path, err)
	}
	return nil
}
