package sla

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDefinitionFile(t *testing.T, dir, name, doc string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefinitions_SingleDocument(t *testing.T) {
	path := writeDefinitionFile(t, t.TempDir(), "standard.yaml", `
id: standard
response_minutes: 60
resolution_minutes: 240
warning_percent: 80
active: true
`)

	defs, err := LoadDefinitions(path)
	if err != nil {
		t.Fatalf("LoadDefinitions() error: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("LoadDefinitions() = %d definitions, want 1", len(defs))
	}
	if defs[0].ID != "standard" || defs[0].ResponseMinutes != 60 {
		t.Errorf("loaded definition = %+v", defs[0])
	}
}

func TestLoadDefinitions_ListDocument(t *testing.T) {
	path := writeDefinitionFile(t, t.TempDir(), "defs.yaml", `
definitions:
  - id: standard
    response_minutes: 60
    resolution_minutes: 240
    active: true
  - id: premium
    response_minutes: 15
    resolution_minutes: 120
    escalations:
      - threshold_percent: 50
        action: notify
        targets: [oncall]
      - threshold_percent: 100
        action: escalate
    active: true
`)

	defs, err := LoadDefinitions(path)
	if err != nil {
		t.Fatalf("LoadDefinitions() error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("LoadDefinitions() = %d definitions, want 2", len(defs))
	}
	if defs[1].ID != "premium" || len(defs[1].Escalations) != 2 {
		t.Errorf("premium definition = %+v", defs[1])
	}
	if defs[1].Escalations[0].Action != ActionNotify {
		t.Errorf("first rung action = %s, want notify", defs[1].Escalations[0].Action)
	}
}

func TestLoadDefinitions_Directory(t *testing.T) {
	dir := t.TempDir()
	writeDefinitionFile(t, dir, "standard.yaml", "id: standard\nresponse_minutes: 60\nresolution_minutes: 240\nactive: true\n")
	writeDefinitionFile(t, dir, "premium.yml", "id: premium\nresponse_minutes: 15\nresolution_minutes: 120\nactive: true\n")
	writeDefinitionFile(t, dir, "notes.txt", "not yaml, ignored\n")

	defs, err := LoadDefinitions(dir)
	if err != nil {
		t.Fatalf("LoadDefinitions() error: %v", err)
	}
	if len(defs) != 2 {
		t.Errorf("LoadDefinitions(dir) = %d definitions, want 2", len(defs))
	}
}

func TestLoadDefinitions_InvalidDefinitionAbortsLoad(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "negative budget",
			doc:  "id: bad\nresponse_minutes: -1\nresolution_minutes: 240\n",
		},
		{
			name: "non-ascending ladder",
			doc: `
id: bad
response_minutes: 60
resolution_minutes: 240
escalations:
  - threshold_percent: 100
    action: notify
  - threshold_percent: 50
    action: escalate
`,
		},
		{
			name: "missing id",
			doc:  "response_minutes: 60\nresolution_minutes: 240\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDefinitionFile(t, t.TempDir(), "bad.yaml", tt.doc)
			if _, err := LoadDefinitions(path); err == nil {
				t.Error("LoadDefinitions() expected error")
			}
		})
	}
}

func TestLoadDefinitions_DuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeDefinitionFile(t, dir, "a.yaml", "id: standard\nresponse_minutes: 60\nresolution_minutes: 240\nactive: true\n")
	writeDefinitionFile(t, dir, "b.yaml", "id: standard\nresponse_minutes: 30\nresolution_minutes: 120\nactive: true\n")

	if _, err := LoadDefinitions(dir); err == nil {
		t.Error("LoadDefinitions() with duplicate ids expected error")
	}
}
