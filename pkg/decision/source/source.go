package source

import (
	"context"
	"sync"

	"mercator-hq/saturn/pkg/decision"
)

// Source provides decision tables to a registry.
type Source interface {
	// LoadTables loads and validates all tables from the source.
	LoadTables(ctx context.Context) ([]*decision.Table, error)
}

// Registry holds the current set of validated decision tables, keyed by
// table id. Reads and reloads may happen concurrently.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*decision.Table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tables: make(map[string]*decision.Table),
	}
}

// Load replaces the registry contents with the source's tables. On error
// the previous contents are kept, so a bad reload never drops the tables
// already being served.
func (r *Registry) Load(ctx context.Context, src Source) error {
	tables, err := src.LoadTables(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]*decision.Table, len(tables))
	for _, t := range tables {
		next[t.ID] = t
	}

	r.mu.Lock()
	r.tables = next
	r.mu.Unlock()
	return nil
}

// Get returns the table with the given id, or ErrTableNotFound.
func (r *Registry) Get(id string) (*decision.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tables[id]
	if !ok {
		return nil, decision.ErrTableNotFound
	}
	return t, nil
}

// Put inserts or replaces a single table. The table must already be
// validated.
func (r *Registry) Put(t *decision.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tables[t.ID] = t
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tables)
}

// MemorySource is a static in-memory table source, intended for tests and
// callers that build tables programmatically.
type MemorySource struct {
	Tables []*decision.Table
}

// LoadTables validates and returns the configured tables.
func (s *MemorySource) LoadTables(ctx context.Context) ([]*decision.Table, error) {
	for _, t := range s.Tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return s.Tables, nil
}
