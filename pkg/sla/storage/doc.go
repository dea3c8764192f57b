// Package storage defines persistence for SLA instances and their
// append-only event log, with in-memory and SQLite backends.
//
// Instance updates use optimistic concurrency: every instance carries a
// version, and Update only applies when the stored version still matches
// the version the caller read. A losing writer gets ErrVersionConflict
// and must discard its computed transitions, which is what makes
// escalation levels fire at most once across concurrent tick workers.
//
// The event log is write-once: events are appended and queried, never
// mutated or deleted.
package storage
