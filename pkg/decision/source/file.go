package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"mercator-hq/saturn/pkg/decision"
)

// FileSource loads decision tables from YAML files on disk.
// The path may be a single file or a directory; directories are walked
// and every .yaml/.yml file is loaded. A file may hold one table or a
// list of tables under a top-level "tables" key.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a new file-based table source.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger.With("component", "decision.source"),
	}
}

// tableFile is the YAML document shape for a table file.
type tableFile struct {
	Tables []*decision.Table `yaml:"tables"`
}

// LoadTables loads and validates all tables from the configured path.
// Unlike transient I/O failures, a table that fails validation aborts the
// whole load: serving a partially-loaded rule set would silently misroute
// business data.
func (s *FileSource) LoadTables(ctx context.Context) ([]*decision.Table, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	var tables []*decision.Table
	if info.IsDir() {
		tables, err = s.loadDirectory(ctx)
	} else {
		tables, err = s.loadFile(s.path)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(tables))
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if prev, dup := seen[t.ID]; dup {
			return nil, &decision.ConfigurationError{
				TableID: t.ID,
				Detail:  fmt.Sprintf("table defined in both %q and %q", prev, s.path),
			}
		}
		seen[t.ID] = s.path
	}

	s.logger.Info("loaded decision tables",
		"path", s.path,
		"table_count", len(tables),
	)

	return tables, nil
}

// loadDirectory loads all table files from a directory tree.
func (s *FileSource) loadDirectory(ctx context.Context) ([]*decision.Table, error) {
	var tables []*decision.Table

	err := filepath.Walk(s.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		loaded, err := s.loadFile(path)
		if err != nil {
			return err
		}
		tables = append(tables, loaded...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", s.path, err)
	}

	return tables, nil
}

// loadFile loads the tables declared in a single YAML file.
func (s *FileSource) loadFile(path string) ([]*decision.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	var doc tableFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse table file %q: %w", path, err)
	}

	if len(doc.Tables) == 0 {
		// Single-table document.
		var t decision.Table
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("failed to parse table file %q: %w", path, err)
		}
		if t.ID == "" {
			return nil, fmt.Errorf("table file %q declares no tables", path)
		}
		doc.Tables = []*decision.Table{&t}
	}

	s.logger.Debug("loaded table file",
		"path", path,
		"table_count", len(doc.Tables),
	)

	return doc.Tables, nil
}
