package sla

import (
	"sync"
)

// Registry holds the current set of validated SLA definitions, keyed by
// definition id. Reads and reloads may happen concurrently.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]*Definition),
	}
}

// Definition returns the definition with the given id, or
// ErrDefinitionNotFound.
func (r *Registry) Definition(id string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[id]
	if !ok {
		return nil, ErrDefinitionNotFound
	}
	return def, nil
}

// Put inserts or replaces a single definition. The definition must
// already be validated.
func (r *Registry) Put(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defs[def.ID] = def
}

// Replace swaps the registry contents for the given definitions.
func (r *Registry) Replace(defs []*Definition) {
	next := make(map[string]*Definition, len(defs))
	for _, def := range defs {
		next[def.ID] = def
	}

	r.mu.Lock()
	r.defs = next
	r.mu.Unlock()
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.defs)
}
