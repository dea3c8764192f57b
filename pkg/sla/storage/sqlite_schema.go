package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the SLA database schema.
const Schema = `
-- SLA instances
CREATE TABLE IF NOT EXISTS sla_instances (
    id TEXT PRIMARY KEY,
    definition_id TEXT NOT NULL,
    target_ref TEXT NOT NULL,

    started_at TIMESTAMP NOT NULL,
    response_due_at TIMESTAMP,
    resolution_due_at TIMESTAMP,
    first_response_at TIMESTAMP,
    resolved_at TIMESTAMP,

    response_status TEXT NOT NULL,
    resolution_status TEXT NOT NULL,

    paused BOOLEAN NOT NULL DEFAULT 0,
    paused_at TIMESTAMP,
    paused_total_ns INTEGER NOT NULL DEFAULT 0,

    escalation_level INTEGER NOT NULL DEFAULT 0,
    last_escalation_at TIMESTAMP,
    escalations_exhausted BOOLEAN NOT NULL DEFAULT 0,

    version INTEGER NOT NULL
);

-- Append-only SLA event log
CREATE TABLE IF NOT EXISTS sla_events (
    id TEXT PRIMARY KEY,
    instance_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    payload TEXT,
    at TIMESTAMP NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for the tick's open-instance scan and event queries
CREATE INDEX IF NOT EXISTS idx_sla_instances_statuses ON sla_instances(response_status, resolution_status);
CREATE INDEX IF NOT EXISTS idx_sla_instances_definition ON sla_instances(definition_id);
CREATE INDEX IF NOT EXISTS idx_sla_events_instance ON sla_events(instance_id);
CREATE INDEX IF NOT EXISTS idx_sla_events_kind ON sla_events(kind);
CREATE INDEX IF NOT EXISTS idx_sla_events_at ON sla_events(at);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
