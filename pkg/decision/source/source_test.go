package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/saturn/pkg/decision"
)

func validTable(id string) *decision.Table {
	return &decision.Table{
		ID:     id,
		Policy: decision.HitPolicyFirst,
		Inputs: []decision.InputColumn{{ID: "severity", Type: decision.TypeString}},
		Outputs: []decision.OutputColumn{
			{ID: "queue", Type: decision.TypeString, Default: "default-queue"},
		},
		Rules: []decision.Rule{
			{
				ID:   "critical",
				When: map[string]decision.Condition{"severity": {Operator: decision.OpEquals, Value: "critical"}},
				Then: map[string]any{"queue": "oncall"},
			},
		},
	}
}

func TestRegistry_LoadAndGet(t *testing.T) {
	reg := NewRegistry()
	src := &MemorySource{Tables: []*decision.Table{validTable("routing")}}

	if err := reg.Load(context.Background(), src); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}

	table, err := reg.Get("routing")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if table.ID != "routing" {
		t.Errorf("Get() table id = %q, want routing", table.ID)
	}

	if _, err := reg.Get("missing"); !errors.Is(err, decision.ErrTableNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrTableNotFound", err)
	}
}

func TestRegistry_BadReloadKeepsPreviousTables(t *testing.T) {
	reg := NewRegistry()
	good := &MemorySource{Tables: []*decision.Table{validTable("routing")}}
	if err := reg.Load(context.Background(), good); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	bad := &MemorySource{Tables: []*decision.Table{{ID: "broken", Policy: "NOPE"}}}
	if err := reg.Load(context.Background(), bad); err == nil {
		t.Fatal("Load() expected error for invalid table")
	}

	// The previous tables keep being served.
	if _, err := reg.Get("routing"); err != nil {
		t.Errorf("Get(routing) after failed reload: %v", err)
	}
}

func TestFileSource_SingleTableDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routing.yaml")
	doc := `
id: routing
hit_policy: FIRST
inputs:
  - id: severity
    type: string
outputs:
  - id: queue
    type: string
    default: default-queue
rules:
  - id: critical
    when:
      severity:
        operator: equals
        value: critical
    then:
      queue: oncall
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFileSource(path, nil)
	tables, err := src.LoadTables(context.Background())
	if err != nil {
		t.Fatalf("LoadTables() error: %v", err)
	}
	if len(tables) != 1 || tables[0].ID != "routing" {
		t.Fatalf("LoadTables() = %v, want one table 'routing'", tables)
	}
	if tables[0].Rules[0].When["severity"].Operator != decision.OpEquals {
		t.Errorf("parsed operator = %q, want equals", tables[0].Rules[0].When["severity"].Operator)
	}
}

func TestFileSource_TableListDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	doc := `
tables:
  - id: routing
    hit_policy: FIRST
    inputs:
      - id: severity
        type: string
    outputs:
      - id: queue
        type: string
        default: q
  - id: scoring
    hit_policy: COLLECT
    inputs:
      - id: amount
        type: number
    outputs:
      - id: score
        type: number
        default: 0
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFileSource(path, nil)
	tables, err := src.LoadTables(context.Background())
	if err != nil {
		t.Fatalf("LoadTables() error: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("LoadTables() = %d tables, want 2", len(tables))
	}
}

func TestFileSource_InvalidTableAbortsLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	doc := `
id: broken
hit_policy: NOT_A_POLICY
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFileSource(path, nil)
	_, err := src.LoadTables(context.Background())
	var cfgErr *decision.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("LoadTables() error = %v, want ConfigurationError", err)
	}
}

func TestFileSource_DuplicateTableIDs(t *testing.T) {
	dir := t.TempDir()
	doc := `
id: routing
hit_policy: FIRST
outputs:
  - id: queue
    type: string
    default: q
`
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	src := NewFileSource(dir, nil)
	_, err := src.LoadTables(context.Background())
	var cfgErr *decision.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("LoadTables() error = %v, want ConfigurationError for duplicate ids", err)
	}
}
