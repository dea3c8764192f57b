package storage

import (
	"context"
	"errors"
	"time"

	"mercator-hq/saturn/pkg/sla"
)

// ErrNotFound indicates the requested instance does not exist.
var ErrNotFound = errors.New("sla instance not found")

// ErrVersionConflict indicates a concurrent writer updated the instance
// since it was read. The caller's computed transitions must be discarded;
// the instance will be revisited on the next tick.
var ErrVersionConflict = errors.New("sla instance version conflict")

// Store persists SLA instances.
type Store interface {
	// Create persists a new instance. The instance id must be unused.
	Create(ctx context.Context, inst *sla.Instance) error

	// Get returns the instance with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*sla.Instance, error)

	// Update persists a mutated instance if and only if the stored
	// version still equals inst.Version (the version the caller read).
	// On success the stored version is incremented and inst.Version is
	// bumped in place to match, so the caller may keep using inst for a
	// follow-up update. On a lost race it returns ErrVersionConflict and
	// changes nothing, inst.Version included.
	Update(ctx context.Context, inst *sla.Instance) error

	// ListOpen returns every instance the escalation tick must revisit,
	// in creation order: at least one tracked side still pending, or a
	// tracked side breached while the instance's escalation ladder is
	// not exhausted (post-breach rungs may still fire).
	ListOpen(ctx context.Context) ([]*sla.Instance, error)

	// Close releases resources held by the store.
	Close() error
}

// EventLog persists the append-only SLA event stream.
type EventLog interface {
	// Append persists events. Events are write-once; ids must be unused.
	Append(ctx context.Context, events ...*sla.Event) error

	// List returns events matching the query, ordered by timestamp
	// ascending.
	List(ctx context.Context, query *EventQuery) ([]*sla.Event, error)

	// Close releases resources held by the log.
	Close() error
}

// EventQuery filters the event log. Zero-valued fields are unrestricted.
type EventQuery struct {
	// InstanceID restricts to one instance's events.
	InstanceID string

	// Kind restricts to one event kind.
	Kind sla.EventKind

	// Since restricts to events at or after this instant.
	Since *time.Time

	// Until restricts to events strictly before this instant.
	Until *time.Time

	// Limit caps the number of returned events. Zero means no cap.
	Limit int

	// Offset skips the first Offset matching events.
	Offset int
}

// matches reports whether an event passes the query's filters, ignoring
// pagination.
func (q *EventQuery) matches(e *sla.Event) bool {
	if q.InstanceID != "" && e.InstanceID != q.InstanceID {
		return false
	}
	if q.Kind != "" && e.Kind != q.Kind {
		return false
	}
	if q.Since != nil && e.At.Before(*q.Since) {
		return false
	}
	if q.Until != nil && !e.At.Before(*q.Until) {
		return false
	}
	return true
}
