package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/sla"
)

func testInstance(id string, start time.Time) *sla.Instance {
	due := start.Add(60 * time.Minute)
	return &sla.Instance{
		ID:               id,
		DefinitionID:     "standard",
		TargetRef:        "ticket-" + id,
		StartedAt:        start,
		ResponseDueAt:    &due,
		ResponseStatus:   sla.StatusPending,
		ResolutionStatus: sla.StatusPending,
		Version:          1,
	}
}

func TestMemoryStore_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	inst := testInstance("a", start)
	if err := store.Create(ctx, inst); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := store.Create(ctx, inst); err == nil {
		t.Fatal("Create() with duplicate id expected error")
	}

	got, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("Get() version = %d, want 1", got.Version)
	}

	got.ResponseStatus = sla.StatusMet
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("Update() in-memory version = %d, want 2", got.Version)
	}

	reread, _ := store.Get(ctx, "a")
	if reread.ResponseStatus != sla.StatusMet || reread.Version != 2 {
		t.Errorf("stored state = %s v%d, want met v2", reread.ResponseStatus, reread.Version)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_UpdateVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	if err := store.Create(ctx, testInstance("a", start)); err != nil {
		t.Fatal(err)
	}

	// Two readers pick up the same version.
	first, _ := store.Get(ctx, "a")
	second, _ := store.Get(ctx, "a")

	first.ResponseStatus = sla.StatusMet
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("first Update() error: %v", err)
	}

	// The second writer lost the race and must see a conflict.
	second.ResponseStatus = sla.StatusBreached
	err := store.Update(ctx, second)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("second Update() error = %v, want ErrVersionConflict", err)
	}

	// The winner's write stands.
	stored, _ := store.Get(ctx, "a")
	if stored.ResponseStatus != sla.StatusMet {
		t.Errorf("stored status = %s, want met", stored.ResponseStatus)
	}
}

func TestMemoryStore_ListOpen(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	open := testInstance("open", start)
	if err := store.Create(ctx, open); err != nil {
		t.Fatal(err)
	}

	closed := testInstance("closed", start.Add(time.Minute))
	closed.ResponseStatus = sla.StatusMet
	if err := store.Create(ctx, closed); err != nil {
		t.Fatal(err)
	}

	// Untracked on both sides: never open.
	untracked := testInstance("untracked", start.Add(2*time.Minute))
	untracked.ResponseDueAt = nil
	if err := store.Create(ctx, untracked); err != nil {
		t.Fatal(err)
	}

	// Breached with ladder rungs remaining: the tick must revisit it.
	aggravated := testInstance("aggravated", start.Add(3*time.Minute))
	aggravated.ResponseStatus = sla.StatusBreached
	if err := store.Create(ctx, aggravated); err != nil {
		t.Fatal(err)
	}

	// Breached with the ladder spent: done.
	spent := testInstance("spent", start.Add(4*time.Minute))
	spent.ResponseStatus = sla.StatusBreached
	spent.EscalationsExhausted = true
	if err := store.Create(ctx, spent); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen() error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "open" || got[1].ID != "aggravated" {
		ids := make([]string, 0, len(got))
		for _, inst := range got {
			ids = append(ids, inst.ID)
		}
		t.Errorf("ListOpen() = %v, want [open aggravated]", ids)
	}
}

func TestMemoryEventLog_AppendAndQuery(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryEventLog()
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	events := []*sla.Event{
		{ID: "1", InstanceID: "a", Kind: sla.EventCreated, At: base},
		{ID: "2", InstanceID: "a", Kind: sla.EventBreached, At: base.Add(time.Hour)},
		{ID: "3", InstanceID: "b", Kind: sla.EventCreated, At: base.Add(30 * time.Minute)},
	}
	if err := log.Append(ctx, events...); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	byInstance, err := log.List(ctx, &EventQuery{InstanceID: "a"})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(byInstance) != 2 {
		t.Fatalf("List(instance a) = %d events, want 2", len(byInstance))
	}
	// Ordered by timestamp ascending.
	if byInstance[0].ID != "1" || byInstance[1].ID != "2" {
		t.Errorf("List() order = %s, %s; want 1, 2", byInstance[0].ID, byInstance[1].ID)
	}

	byKind, _ := log.List(ctx, &EventQuery{Kind: sla.EventCreated})
	if len(byKind) != 2 {
		t.Errorf("List(kind created) = %d events, want 2", len(byKind))
	}

	since := base.Add(15 * time.Minute)
	until := base.Add(45 * time.Minute)
	windowed, _ := log.List(ctx, &EventQuery{Since: &since, Until: &until})
	if len(windowed) != 1 || windowed[0].ID != "3" {
		t.Errorf("List(window) = %v, want just event 3", windowed)
	}

	limited, _ := log.List(ctx, &EventQuery{Limit: 1, Offset: 1})
	if len(limited) != 1 || limited[0].ID != "3" {
		t.Errorf("List(limit 1 offset 1) = %v, want event 3", limited)
	}
}
