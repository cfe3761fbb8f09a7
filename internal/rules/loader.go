package rules

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a rules YAML file over the defaults. Unknown fields fail the
// decode so typos never silently fall back to a default value.
func Load(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return Rules{}, err
	}

	return cfg, nil
}

// LoadOrDefault loads from path when non-empty, else returns validated defaults
func LoadOrDefault(path string) (Rules, error) {
	if path == "" {
		cfg := Default()
		if err := Validate(cfg); err != nil {
			return Rules{}, err
		}
		return cfg, nil
	}
	return Load(path)
}
