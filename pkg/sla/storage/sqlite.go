package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/saturn/pkg/sla"
)

// SQLiteConfig contains configuration for the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/sla.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements Store and EventLog on a single SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens (and if necessary initializes) the database.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "sla.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

// initialize sets up the schema and enables WAL mode.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("sqlite enable wal: %w", err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("sqlite set busy timeout: %w", err)
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("sqlite create schema: %w", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("sqlite insert schema version: %w", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite get schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("sqlite schema version mismatch: expected %d, got %d", SchemaVersion, version)
	}
	return nil
}

const instanceColumns = `id, definition_id, target_ref, started_at,
response_due_at, resolution_due_at, first_response_at, resolved_at,
response_status, resolution_status,
paused, paused_at, paused_total_ns,
escalation_level, last_escalation_at, escalations_exhausted, version`

// Create persists a new instance.
func (s *SQLiteStore) Create(ctx context.Context, inst *sla.Instance) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sla_instances (`+instanceColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.ID, inst.DefinitionID, inst.TargetRef, inst.StartedAt,
		nullTime(inst.ResponseDueAt), nullTime(inst.ResolutionDueAt),
		nullTime(inst.FirstResponseAt), nullTime(inst.ResolvedAt),
		string(inst.ResponseStatus), string(inst.ResolutionStatus),
		inst.Paused, nullTime(inst.PausedAt), int64(inst.PausedTotal),
		inst.EscalationLevel, nullTime(inst.LastEscalationAt),
		inst.EscalationsExhausted, inst.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite create instance: %w", err)
	}
	return nil
}

// Get returns the instance with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*sla.Instance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM sla_instances WHERE id = ?`, id)
	inst, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get instance: %w", err)
	}
	return inst, nil
}

// Update applies the mutation under the version guard: the UPDATE is
// conditioned on the stored version still matching the version the
// caller read, which makes the write a compare-and-swap.
func (s *SQLiteStore) Update(ctx context.Context, inst *sla.Instance) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE sla_instances SET
    first_response_at = ?, resolved_at = ?,
    response_status = ?, resolution_status = ?,
    paused = ?, paused_at = ?, paused_total_ns = ?,
    escalation_level = ?, last_escalation_at = ?, escalations_exhausted = ?,
    version = version + 1
WHERE id = ? AND version = ?`,
		nullTime(inst.FirstResponseAt), nullTime(inst.ResolvedAt),
		string(inst.ResponseStatus), string(inst.ResolutionStatus),
		inst.Paused, nullTime(inst.PausedAt), int64(inst.PausedTotal),
		inst.EscalationLevel, nullTime(inst.LastEscalationAt),
		inst.EscalationsExhausted,
		inst.ID, inst.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite update instance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite update instance: %w", err)
	}
	if affected == 0 {
		// Distinguish a lost race from a missing row.
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM sla_instances WHERE id = ?`, inst.ID).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("sqlite update instance: %w", err)
		}
		return ErrVersionConflict
	}

	inst.Version++
	return nil
}

// ListOpen returns every instance the tick must revisit: a tracked side
// still pending, or breached with escalation rungs remaining.
func (s *SQLiteStore) ListOpen(ctx context.Context) ([]*sla.Instance, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+instanceColumns+` FROM sla_instances
WHERE (response_due_at IS NOT NULL
       AND (response_status = 'pending'
            OR (response_status = 'breached' AND escalations_exhausted = 0)))
   OR (resolution_due_at IS NOT NULL
       AND (resolution_status = 'pending'
            OR (resolution_status = 'breached' AND escalations_exhausted = 0)))
ORDER BY started_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite list open instances: %w", err)
	}
	defer rows.Close()

	var open []*sla.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite list open instances: %w", err)
		}
		open = append(open, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite list open instances: %w", err)
	}
	return open, nil
}

// Append persists events.
func (s *SQLiteStore) Append(ctx context.Context, events ...*sla.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite append events: %w", err)
	}
	defer tx.Rollback()

	for _, e := range events {
		var payload []byte
		if e.Payload != nil {
			payload, err = json.Marshal(e.Payload)
			if err != nil {
				return fmt.Errorf("sqlite append events: marshal payload: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO sla_events (id, instance_id, kind, payload, at)
VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.InstanceID, string(e.Kind), nullString(payload), e.At,
		); err != nil {
			return fmt.Errorf("sqlite append events: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite append events: %w", err)
	}
	return nil
}

// List returns events matching the query, ordered by timestamp ascending.
func (s *SQLiteStore) List(ctx context.Context, query *EventQuery) ([]*sla.Event, error) {
	q := strings.Builder{}
	q.WriteString(`SELECT id, instance_id, kind, payload, at FROM sla_events WHERE 1=1`)
	var args []any

	if query != nil {
		if query.InstanceID != "" {
			q.WriteString(` AND instance_id = ?`)
			args = append(args, query.InstanceID)
		}
		if query.Kind != "" {
			q.WriteString(` AND kind = ?`)
			args = append(args, string(query.Kind))
		}
		if query.Since != nil {
			q.WriteString(` AND at >= ?`)
			args = append(args, *query.Since)
		}
		if query.Until != nil {
			q.WriteString(` AND at < ?`)
			args = append(args, *query.Until)
		}
	}
	q.WriteString(` ORDER BY at ASC`)
	if query != nil && query.Limit > 0 {
		q.WriteString(` LIMIT ?`)
		args = append(args, query.Limit)
		if query.Offset > 0 {
			q.WriteString(` OFFSET ?`)
			args = append(args, query.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite list events: %w", err)
	}
	defer rows.Close()

	var events []*sla.Event
	for rows.Next() {
		var (
			e       sla.Event
			kind    string
			payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.InstanceID, &kind, &payload, &e.At); err != nil {
			return nil, fmt.Errorf("sqlite list events: %w", err)
		}
		e.Kind = sla.EventKind(kind)
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("sqlite list events: unmarshal payload: %w", err)
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite list events: %w", err)
	}
	return events, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner abstracts sql.Row and sql.Rows for scanInstance.
type scanner interface {
	Scan(dest ...any) error
}

// scanInstance maps one instance row onto the domain type.
func scanInstance(row scanner) (*sla.Instance, error) {
	var (
		inst             sla.Instance
		respStatus       string
		resoStatus       string
		respDue, resoDue sql.NullTime
		firstResp, resolved,
		pausedAt, lastEsc sql.NullTime
		pausedTotalNS int64
	)
	err := row.Scan(
		&inst.ID, &inst.DefinitionID, &inst.TargetRef, &inst.StartedAt,
		&respDue, &resoDue, &firstResp, &resolved,
		&respStatus, &resoStatus,
		&inst.Paused, &pausedAt, &pausedTotalNS,
		&inst.EscalationLevel, &lastEsc, &inst.EscalationsExhausted, &inst.Version,
	)
	if err != nil {
		return nil, err
	}

	inst.ResponseStatus = sla.Status(respStatus)
	inst.ResolutionStatus = sla.Status(resoStatus)
	inst.ResponseDueAt = timePtr(respDue)
	inst.ResolutionDueAt = timePtr(resoDue)
	inst.FirstResponseAt = timePtr(firstResp)
	inst.ResolvedAt = timePtr(resolved)
	inst.PausedAt = timePtr(pausedAt)
	inst.LastEscalationAt = timePtr(lastEsc)
	inst.PausedTotal = time.Duration(pausedTotalNS)
	return &inst, nil
}

// nullTime converts a *time.Time to its sql representation.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// timePtr converts a sql.NullTime back to a *time.Time.
func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	at := t.Time
	return &at
}

// nullString converts a possibly-empty byte slice to its sql
// representation.
func nullString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
