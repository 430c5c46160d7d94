// Package config loads machine definitions from YAML or JSON files and
// builds runnable machines out of them. Conditions, guards and handlers
// are code, not data; a loaded definition carries the structure and the
// host attaches behavior afterwards.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a definition file, dispatching on the extension.
// Unrecognized extensions default to YAML.
func Load(path string) (*Definition, error) {
	if strings.HasSuffix(path, ".json") {
		return LoadJSON(path)
	}
	return LoadYAML(path)
}

// LoadYAML reads a machine definition from a YAML file.
func LoadYAML(path string) (*Definition, error) {
	// #nosec G304 -- path comes from the caller; validate untrusted input upstream.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file %s: %w", path, err)
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML definition: %w", err)
	}
	return &def, nil
}

// SaveYAML writes a machine definition to a YAML file.
func SaveYAML(path string, def *Definition) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML definition: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write definition file: %w", err)
	}
	return nil
}

// LoadJSON reads a machine definition from a JSON file.
func LoadJSON(path string) (*Definition, error) {
	// #nosec G304 -- path comes from the caller; validate untrusted input upstream.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file %s: %w", path, err)
	}
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON definition: %w", err)
	}
	return &def, nil
}

// SaveJSON writes a machine definition to a JSON file.
func SaveJSON(path string, def *Definition) error {
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON definition: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write definition file: %w", err)
	}
	return nil
}
