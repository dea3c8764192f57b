package sla

import (
	"fmt"
	"time"

	"mercator-hq/saturn/pkg/sla/calendar"
)

// Side identifies one of the two independently tracked deadlines on an
// instance.
type Side string

const (
	// SideResponse is the first-response deadline.
	SideResponse Side = "response"

	// SideResolution is the resolution deadline.
	SideResolution Side = "resolution"
)

// Status is the state of one tracked side.
type Status string

const (
	// StatusPending means the side's deadline has neither been met nor
	// breached. An untracked side stays pending forever.
	StatusPending Status = "pending"

	// StatusMet is terminal: the completion event arrived on time.
	StatusMet Status = "met"

	// StatusBreached is terminal: the deadline passed without a
	// completion event, or the event arrived late. A late completion is
	// still recorded for audit but does not revert the status.
	StatusBreached Status = "breached"
)

// ActionKind is the action taken when an escalation threshold is crossed.
type ActionKind string

const (
	// ActionNotify sends a notification to the rule's targets without
	// changing ownership. Emits a warning_sent event.
	ActionNotify ActionKind = "notify"

	// ActionEscalate escalates to the rule's targets. Emits an escalated
	// event.
	ActionEscalate ActionKind = "escalate"
)

// Valid reports whether the action kind is known.
func (a ActionKind) Valid() bool {
	return a == ActionNotify || a == ActionEscalate
}

// EscalationRule is one rung of a definition's escalation ladder.
type EscalationRule struct {
	// ThresholdPercent is the elapsed-budget percentage at which the rule
	// fires. May exceed 100 to represent aggravated breach. Thresholds
	// within one definition must be strictly increasing; the rule at
	// ascending position k is escalation level k (1-indexed).
	ThresholdPercent float64 `yaml:"threshold_percent"`

	// Action is what happens when the threshold is crossed.
	Action ActionKind `yaml:"action"`

	// Targets are opaque identifiers (role names, user ids, group keys)
	// resolved by the notification collaborator.
	Targets []string `yaml:"targets"`
}

// Definition is an SLA policy: budgets, calendar, and escalation ladder.
type Definition struct {
	// ID identifies the definition.
	ID string `yaml:"id"`

	// WorkspaceID is the owning workspace.
	WorkspaceID string `yaml:"workspace_id"`

	// AppliesTo holds simple field-equality filters used by collaborators
	// to pick which definition applies to a target. Not interpreted by
	// this engine.
	AppliesTo map[string]string `yaml:"applies_to"`

	// ResponseMinutes is the first-response budget in minutes. Zero means
	// the response side is not tracked.
	ResponseMinutes int `yaml:"response_minutes"`

	// ResolutionMinutes is the resolution budget in minutes. Zero means
	// the resolution side is not tracked.
	ResolutionMinutes int `yaml:"resolution_minutes"`

	// WarningPercent is the warning threshold. When the definition has no
	// explicit escalation ladder, a default two-rung ladder is derived
	// from it: notify at WarningPercent, escalate at 100.
	WarningPercent float64 `yaml:"warning_percent"`

	// BusinessHoursOnly restricts deadline arithmetic to the calendar's
	// active windows. When false, budgets count wall-clock minutes.
	BusinessHoursOnly bool `yaml:"business_hours_only"`

	// Calendar is the business-hours calendar. Only consulted when
	// BusinessHoursOnly is set.
	Calendar calendar.Calendar `yaml:"calendar"`

	// Escalations is the explicit escalation ladder, thresholds strictly
	// ascending.
	Escalations []EscalationRule `yaml:"escalations"`

	// Active marks the definition as eligible for new instances.
	Active bool `yaml:"active"`

	// Priority breaks ties when multiple definitions match one target.
	// Consumed by collaborators, not by this engine.
	Priority int `yaml:"priority"`
}

// Validate checks the definition for configuration errors. It is called
// eagerly at load time; a definition that fails validation is fatal until
// an operator fixes it.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return &ConfigurationError{Detail: "definition id is required"}
	}
	if d.ResponseMinutes < 0 || d.ResolutionMinutes < 0 {
		return &ConfigurationError{DefinitionID: d.ID, Detail: "budgets must not be negative"}
	}
	if d.ResponseMinutes == 0 && d.ResolutionMinutes == 0 {
		return &ConfigurationError{DefinitionID: d.ID, Detail: "at least one of response or resolution budget is required"}
	}
	if d.WarningPercent < 0 {
		return &ConfigurationError{DefinitionID: d.ID, Detail: "warning percent must not be negative"}
	}
	if d.BusinessHoursOnly {
		if err := d.Calendar.Validate(); err != nil {
			return &ConfigurationError{DefinitionID: d.ID, Detail: fmt.Sprintf("calendar: %v", err)}
		}
	}

	prev := 0.0
	for i, rule := range d.Escalations {
		if rule.ThresholdPercent <= 0 {
			return &ConfigurationError{DefinitionID: d.ID, Detail: fmt.Sprintf("escalation rule %d: threshold must be positive", i)}
		}
		if rule.ThresholdPercent <= prev {
			return &ConfigurationError{DefinitionID: d.ID, Detail: fmt.Sprintf("escalation rule %d: thresholds must be strictly increasing", i)}
		}
		if !rule.Action.Valid() {
			return &ConfigurationError{DefinitionID: d.ID, Detail: fmt.Sprintf("escalation rule %d: unknown action %q", i, rule.Action)}
		}
		prev = rule.ThresholdPercent
	}
	return nil
}

// Ladder returns the effective escalation ladder: the explicit rules when
// present, otherwise a two-rung default derived from WarningPercent
// (notify at the warning threshold, escalate at 100%).
func (d *Definition) Ladder() []EscalationRule {
	if len(d.Escalations) > 0 {
		return d.Escalations
	}
	if d.WarningPercent > 0 {
		return []EscalationRule{
			{ThresholdPercent: d.WarningPercent, Action: ActionNotify},
			{ThresholdPercent: 100, Action: ActionEscalate},
		}
	}
	return nil
}

// budget returns the side's minute budget; zero means untracked.
func (d *Definition) budget(side Side) int {
	if side == SideResponse {
		return d.ResponseMinutes
	}
	return d.ResolutionMinutes
}

// Instance tracks one target against a definition.
type Instance struct {
	// ID identifies the instance.
	ID string

	// DefinitionID references the definition this instance tracks
	// against.
	DefinitionID string

	// TargetRef is an opaque reference to the tracked target.
	TargetRef string

	// StartedAt is the immutable tracking start. All deadline arithmetic
	// derives from it.
	StartedAt time.Time

	// ResponseDueAt and ResolutionDueAt are the due timestamps computed
	// at creation, before any pause shifting. Nil when the side's budget
	// is absent. Effective deadlines are derived via EffectiveDueAt.
	ResponseDueAt   *time.Time
	ResolutionDueAt *time.Time

	// FirstResponseAt and ResolvedAt record the completion events. Nil
	// until they occur.
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time

	// ResponseStatus and ResolutionStatus are the per-side states.
	ResponseStatus   Status
	ResolutionStatus Status

	// Paused is the joint pause flag for both sides' clocks.
	Paused bool

	// PausedAt is when the open pause started. Nil when not paused.
	PausedAt *time.Time

	// PausedTotal is the accumulated duration of closed pauses.
	PausedTotal time.Duration

	// EscalationLevel is the highest escalation level fired so far.
	// Zero means none. Monotonically non-decreasing.
	EscalationLevel int

	// LastEscalationAt is when the level last advanced.
	LastEscalationAt *time.Time

	// EscalationsExhausted reports that the ladder's top rung has fired,
	// or that the definition carries no ladder. Stores use it to keep
	// breached instances visible to the tick while post-breach rungs
	// (thresholds above 100%) remain unfired.
	EscalationsExhausted bool

	// Version is the optimistic-concurrency guard used by stores: an
	// update only applies when the stored version still matches.
	Version int64
}

// Tracked reports whether the side has a deadline on this instance.
func (i *Instance) Tracked(side Side) bool {
	return i.dueAt(side) != nil
}

// StatusOf returns the side's status.
func (i *Instance) StatusOf(side Side) Status {
	if side == SideResponse {
		return i.ResponseStatus
	}
	return i.ResolutionStatus
}

// Closed reports whether every tracked side has left pending. Closed
// instances are immutable.
func (i *Instance) Closed() bool {
	closed := false
	for _, side := range []Side{SideResponse, SideResolution} {
		if !i.Tracked(side) {
			continue
		}
		if i.StatusOf(side) == StatusPending {
			return false
		}
		closed = true
	}
	return closed
}

// EffectiveDueAt returns the side's deadline shifted by all pause time
// accumulated up to now: closed pauses plus the open pause, if any. Nil
// for an untracked side.
func (i *Instance) EffectiveDueAt(side Side, now time.Time) *time.Time {
	due := i.dueAt(side)
	if due == nil {
		return nil
	}
	shifted := due.Add(i.pausedUntil(now))
	return &shifted
}

// dueAt returns the side's creation-time due timestamp.
func (i *Instance) dueAt(side Side) *time.Time {
	if side == SideResponse {
		return i.ResponseDueAt
	}
	return i.ResolutionDueAt
}

// pausedUntil returns the total pause duration accumulated by now.
func (i *Instance) pausedUntil(now time.Time) time.Duration {
	total := i.PausedTotal
	if i.Paused && i.PausedAt != nil && now.After(*i.PausedAt) {
		total += now.Sub(*i.PausedAt)
	}
	return total
}

// adjusted maps a wall-clock instant onto the instance's effective clock
// by subtracting accumulated pause time. Comparing the adjusted instant
// against the creation-time due timestamps is equivalent to comparing the
// raw instant against the pause-shifted deadlines.
func (i *Instance) adjusted(now time.Time) time.Time {
	return now.Add(-i.pausedUntil(now))
}

// EventKind is the kind of an append-only SLA event.
type EventKind string

const (
	EventCreated          EventKind = "created"
	EventResponseRecorded EventKind = "response_recorded"
	EventResolved         EventKind = "resolved"
	EventBreached         EventKind = "breached"
	EventWarningSent      EventKind = "warning_sent"
	EventEscalated        EventKind = "escalated"
	EventPaused           EventKind = "paused"
	EventResumed          EventKind = "resumed"
)

// Event is a write-once log entry describing an instance transition.
// Events are appended by the engine and persisted and dispatched by
// collaborators; they are never mutated or deleted.
type Event struct {
	// ID identifies the event.
	ID string

	// InstanceID references the instance the event belongs to.
	InstanceID string

	// Kind is the event kind.
	Kind EventKind

	// Payload carries kind-specific structured data.
	Payload map[string]any

	// At is when the transition happened.
	At time.Time
}
