// Package sla implements SLA deadline tracking and escalation.
//
// A Definition carries response and resolution minute budgets, an optional
// business-hours calendar, and an escalation ladder of percentage
// thresholds. An Instance tracks one target against a definition: due
// timestamps are computed once at creation from the immutable start
// timestamp, and pause/resume is accounted for by a cumulative paused
// duration rather than by mutating the stored deadlines, so repeated
// pauses cannot drift the deadline arithmetic.
//
// The Tracker owns all state transitions: completion recording
// (idempotent), pause and resume (no-ops when already in the requested
// state), passive breach detection, and monotonic escalation-level
// advancement. The Tracker mutates instances in memory only; callers
// persist the result under an optimistic-concurrency guard (see
// pkg/sla/storage) so that each escalation level fires at most once even
// with concurrent tick workers.
package sla
