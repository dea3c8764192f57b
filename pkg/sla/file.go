package sla

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// definitionFile is the YAML document shape for a definition file.
type definitionFile struct {
	Definitions []*Definition `yaml:"definitions"`
}

// LoadDefinitions loads and validates SLA definitions from a YAML file or
// a directory of YAML files. A file may hold one definition or a list
// under a top-level "definitions" key. Any definition failing validation
// aborts the whole load.
func LoadDefinitions(path string) ([]*Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", path, err)
	}

	var defs []*Definition
	if info.IsDir() {
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			ext := filepath.Ext(p)
			if ext != ".yaml" && ext != ".yml" {
				return nil
			}
			loaded, err := loadDefinitionFile(p)
			if err != nil {
				return err
			}
			defs = append(defs, loaded...)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk directory %q: %w", path, err)
		}
	} else {
		defs, err = loadDefinitionFile(path)
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[def.ID]; dup {
			return nil, &ConfigurationError{DefinitionID: def.ID, Detail: "duplicate definition id"}
		}
		seen[def.ID] = struct{}{}
	}

	return defs, nil
}

// loadDefinitionFile loads the definitions declared in a single YAML file.
func loadDefinitionFile(path string) ([]*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	var doc definitionFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse definition file %q: %w", path, err)
	}

	if len(doc.Definitions) == 0 {
		var def Definition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse definition file %q: %w", path, err)
		}
		if def.ID == "" {
			return nil, fmt.Errorf("definition file %q declares no definitions", path)
		}
		doc.Definitions = []*Definition{&def}
	}

	return doc.Definitions, nil
}
