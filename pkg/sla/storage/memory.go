package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/saturn/pkg/sla"
)

// MemoryStore implements Store with an in-memory map. Intended for tests
// and embedded single-process use.
type MemoryStore struct {
	mu        sync.RWMutex
	instances map[string]*sla.Instance
}

// NewMemoryStore creates an empty in-memory instance store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		instances: make(map[string]*sla.Instance),
	}
}

// Create persists a new instance.
func (s *MemoryStore) Create(ctx context.Context, inst *sla.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instances[inst.ID]; exists {
		return fmt.Errorf("instance %s already exists", inst.ID)
	}
	stored := *inst
	s.instances[inst.ID] = &stored
	return nil
}

// Get returns a copy of the instance with the given id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*sla.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *inst
	return &copied, nil
}

// Update applies the mutation under the version guard.
func (s *MemoryStore) Update(ctx context.Context, inst *sla.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.instances[inst.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != inst.Version {
		return ErrVersionConflict
	}

	inst.Version++
	next := *inst
	s.instances[inst.ID] = &next
	return nil
}

// ListOpen returns every instance the tick must revisit: a tracked side
// still pending, or breached with escalation rungs remaining.
func (s *MemoryStore) ListOpen(ctx context.Context) ([]*sla.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var open []*sla.Instance
	for _, inst := range s.instances {
		if isOpen(inst) {
			copied := *inst
			open = append(open, &copied)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].StartedAt.Before(open[j].StartedAt)
	})
	return open, nil
}

// Close releases the store's contents.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.instances = make(map[string]*sla.Instance)
	return nil
}

// isOpen reports whether the tick must still revisit the instance: a
// tracked side pending, or a tracked side breached while post-breach
// escalation rungs (thresholds above 100%) remain unfired.
func isOpen(inst *sla.Instance) bool {
	for _, side := range []sla.Side{sla.SideResponse, sla.SideResolution} {
		if !inst.Tracked(side) {
			continue
		}
		switch inst.StatusOf(side) {
		case sla.StatusPending:
			return true
		case sla.StatusBreached:
			if !inst.EscalationsExhausted {
				return true
			}
		}
	}
	return false
}

// MemoryEventLog implements EventLog with an in-memory slice. Intended
// for tests and embedded single-process use.
type MemoryEventLog struct {
	mu     sync.RWMutex
	events []*sla.Event
}

// NewMemoryEventLog creates an empty in-memory event log.
func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{}
}

// Append persists events.
func (l *MemoryEventLog) Append(ctx context.Context, events ...*sla.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range events {
		copied := *e
		l.events = append(l.events, &copied)
	}
	return nil
}

// List returns events matching the query, ordered by timestamp ascending.
func (l *MemoryEventLog) List(ctx context.Context, query *EventQuery) ([]*sla.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []*sla.Event
	for _, e := range l.events {
		if query == nil || query.matches(e) {
			copied := *e
			matched = append(matched, &copied)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].At.Before(matched[j].At)
	})

	if query != nil {
		if query.Offset > 0 {
			if query.Offset >= len(matched) {
				return nil, nil
			}
			matched = matched[query.Offset:]
		}
		if query.Limit > 0 && query.Limit < len(matched) {
			matched = matched[:query.Limit]
		}
	}
	return matched, nil
}

// Close releases the log's contents.
func (l *MemoryEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = nil
	return nil
}
