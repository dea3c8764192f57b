package sla

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Tracker owns the SLA instance lifecycle: creation, completion
// recording, pause/resume, passive breach detection, and escalation
// evaluation. It mutates instances in memory only; persistence and the
// optimistic-concurrency discipline belong to the caller.
type Tracker struct {
	logger *slog.Logger
}

// NewTracker creates a new tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		logger: logger.With("component", "sla.tracker"),
	}
}

// NewInstance creates an instance for the target, computing due
// timestamps from the definition's budgets: through the business-hours
// calendar when the definition is business-hours-only, otherwise plain
// start + budget. An absent budget leaves the side untracked.
func (t *Tracker) NewInstance(def *Definition, targetRef string, start time.Time) (*Instance, *Event, error) {
	if err := def.Validate(); err != nil {
		return nil, nil, err
	}

	inst := &Instance{
		ID:               uuid.NewString(),
		DefinitionID:     def.ID,
		TargetRef:        targetRef,
		StartedAt:        start,
		ResponseStatus:   StatusPending,
		ResolutionStatus: StatusPending,
		Version:          1,
	}
	if due := t.dueFor(def, SideResponse, start); due != nil {
		inst.ResponseDueAt = due
	}
	if due := t.dueFor(def, SideResolution, start); due != nil {
		inst.ResolutionDueAt = due
	}
	inst.EscalationsExhausted = len(def.Ladder()) == 0

	event := newEvent(inst.ID, EventCreated, start, map[string]any{
		"definition_id": def.ID,
		"target_ref":    targetRef,
	})

	t.logger.Debug("sla instance created",
		"instance_id", inst.ID,
		"definition_id", def.ID,
		"target_ref", targetRef,
	)

	return inst, event, nil
}

// dueFor computes a side's due timestamp, or nil when untracked.
func (t *Tracker) dueFor(def *Definition, side Side, start time.Time) *time.Time {
	budget := def.budget(side)
	if budget == 0 {
		return nil
	}
	var due time.Time
	if def.BusinessHoursOnly {
		due = def.Calendar.AddBusinessMinutes(start, budget)
	} else {
		due = start.Add(time.Duration(budget) * time.Minute)
	}
	return &due
}

// RecordResponse records the first-response event. Idempotent: a second
// call is a no-op returning a nil event. The response status becomes met
// or breached depending on whether the event arrived before the
// pause-shifted deadline; a side already breached keeps its status and
// the late response is recorded for audit only.
func (t *Tracker) RecordResponse(inst *Instance, when time.Time) *Event {
	return t.recordCompletion(inst, SideResponse, when)
}

// RecordResolution records the resolution event. Semantics mirror
// RecordResponse.
func (t *Tracker) RecordResolution(inst *Instance, when time.Time) *Event {
	return t.recordCompletion(inst, SideResolution, when)
}

func (t *Tracker) recordCompletion(inst *Instance, side Side, when time.Time) *Event {
	recordedAt := inst.completionAt(side)
	if recordedAt != nil {
		return nil
	}

	inst.setCompletionAt(side, when)

	status := inst.StatusOf(side)
	if inst.Tracked(side) && status == StatusPending {
		due := inst.EffectiveDueAt(side, when)
		if when.After(*due) {
			status = StatusBreached
		} else {
			status = StatusMet
		}
		inst.setStatus(side, status)
	}

	kind := EventResponseRecorded
	if side == SideResolution {
		kind = EventResolved
	}
	return newEvent(inst.ID, kind, when, map[string]any{
		"side":   string(side),
		"status": string(inst.StatusOf(side)),
	})
}

// Pause stops both sides' clocks. A no-op returning nil when already
// paused or when the instance is closed (closed instances are
// immutable). The remaining time to each deadline at the instant of
// pause is exactly the remaining time at the instant of resume.
func (t *Tracker) Pause(inst *Instance, now time.Time) *Event {
	if inst.Paused || inst.Closed() {
		return nil
	}
	inst.Paused = true
	at := now
	inst.PausedAt = &at

	return newEvent(inst.ID, EventPaused, now, nil)
}

// Resume restarts both sides' clocks, folding the open pause into the
// cumulative paused duration. A no-op returning nil when not paused or
// when the instance is closed.
func (t *Tracker) Resume(inst *Instance, now time.Time) *Event {
	if !inst.Paused || inst.Closed() {
		return nil
	}
	var paused time.Duration
	if inst.PausedAt != nil && now.After(*inst.PausedAt) {
		paused = now.Sub(*inst.PausedAt)
	}
	inst.PausedTotal += paused
	inst.Paused = false
	inst.PausedAt = nil

	return newEvent(inst.ID, EventResumed, now, map[string]any{
		"paused_minutes": paused.Minutes(),
	})
}

// Reevaluation is the outcome of one tick-driven re-evaluation of an
// instance.
type Reevaluation struct {
	// Changed reports whether the instance was mutated and must be
	// persisted (under the version guard).
	Changed bool

	// Breached lists the sides that transitioned to breached during this
	// re-evaluation.
	Breached []Side

	// EscalationsFired is the number of escalation-ladder rungs fired.
	EscalationsFired int

	// Events are the transitions to append to the event log, in order.
	Events []*Event
}

// Reevaluate performs passive breach detection and escalation-threshold
// evaluation against the instant now. It never blocks and never touches
// storage; the caller persists the mutated instance and appends the
// returned events only if its compare-and-swap on the instance version
// succeeds, which makes each breach and each escalation level fire at
// most once across concurrent workers.
func (t *Tracker) Reevaluate(def *Definition, inst *Instance, now time.Time) *Reevaluation {
	result := &Reevaluation{}
	adjusted := inst.adjusted(now)

	// Passive breach detection. The pending -> breached transition is
	// one-way, so the breached event cannot fire twice.
	for _, side := range []Side{SideResponse, SideResolution} {
		if !inst.Tracked(side) || inst.StatusOf(side) != StatusPending {
			continue
		}
		due := inst.dueAt(side)
		if !adjusted.After(*due) {
			continue
		}
		inst.setStatus(side, StatusBreached)
		result.Changed = true
		result.Breached = append(result.Breached, side)
		result.Events = append(result.Events, newEvent(inst.ID, EventBreached, now, map[string]any{
			"side":   string(side),
			"due_at": inst.EffectiveDueAt(side, now).Format(time.RFC3339),
		}))
	}

	t.evaluateEscalation(def, inst, now, adjusted, result)

	if result.Changed {
		t.logger.Debug("sla instance reevaluated",
			"instance_id", inst.ID,
			"breached", len(result.Breached),
			"escalations_fired", result.EscalationsFired,
			"escalation_level", inst.EscalationLevel,
		)
	}
	return result
}

// evaluateEscalation advances the escalation level to the highest ladder
// rung whose threshold the elapsed percentage has crossed, firing every
// skipped rung in ascending order so a missed tick cannot skip a level.
func (t *Tracker) evaluateEscalation(def *Definition, inst *Instance, now, adjusted time.Time, result *Reevaluation) {
	ladder := def.Ladder()
	if inst.EscalationLevel >= len(ladder) {
		// The ladder is spent (or absent). Record that so stores stop
		// listing the instance once every tracked side has breached.
		if !inst.EscalationsExhausted {
			inst.EscalationsExhausted = true
			result.Changed = true
		}
		return
	}

	pct, tracked := t.elapsedPercent(def, inst, adjusted)
	if !tracked {
		return
	}

	target := 0
	for i, rule := range ladder {
		if rule.ThresholdPercent <= pct {
			target = i + 1
		}
	}
	if target <= inst.EscalationLevel {
		return
	}

	for level := inst.EscalationLevel + 1; level <= target; level++ {
		rule := ladder[level-1]
		kind := EventEscalated
		if rule.Action == ActionNotify {
			kind = EventWarningSent
		}
		result.Events = append(result.Events, newEvent(inst.ID, kind, now, map[string]any{
			"level":             level,
			"threshold_percent": rule.ThresholdPercent,
			"action":            string(rule.Action),
			"targets":           rule.Targets,
			"elapsed_percent":   pct,
		}))
		result.EscalationsFired++
	}

	inst.EscalationLevel = target
	if target == len(ladder) {
		inst.EscalationsExhausted = true
	}
	at := now
	inst.LastEscalationAt = &at
	result.Changed = true
}

// elapsedPercent computes the elapsed-budget percentage of whichever
// tracked, not-yet-met side is most advanced toward breach. Paused time
// is excluded via the adjusted instant; a breached side counts as at
// least 100%. The second return is false when no side drives escalation
// (all sides met or untracked).
func (t *Tracker) elapsedPercent(def *Definition, inst *Instance, adjusted time.Time) (float64, bool) {
	best := 0.0
	found := false
	for _, side := range []Side{SideResponse, SideResolution} {
		budget := def.budget(side)
		if budget == 0 || !inst.Tracked(side) || inst.StatusOf(side) == StatusMet {
			continue
		}

		var elapsed float64
		if def.BusinessHoursOnly {
			elapsed = float64(def.Calendar.BusinessMinutesElapsed(inst.StartedAt, adjusted))
		} else {
			elapsed = adjusted.Sub(inst.StartedAt).Minutes()
		}
		pct := 100 * elapsed / float64(budget)
		if inst.StatusOf(side) == StatusBreached && pct < 100 {
			pct = 100
		}

		if pct > best {
			best = pct
		}
		found = true
	}
	return best, found
}

// completionAt returns the side's recorded completion timestamp.
func (i *Instance) completionAt(side Side) *time.Time {
	if side == SideResponse {
		return i.FirstResponseAt
	}
	return i.ResolvedAt
}

// setCompletionAt records the side's completion timestamp.
func (i *Instance) setCompletionAt(side Side, when time.Time) {
	at := when
	if side == SideResponse {
		i.FirstResponseAt = &at
	} else {
		i.ResolvedAt = &at
	}
}

// setStatus sets the side's status.
func (i *Instance) setStatus(side Side, status Status) {
	if side == SideResponse {
		i.ResponseStatus = status
	} else {
		i.ResolutionStatus = status
	}
}

// newEvent builds an append-only event.
func newEvent(instanceID string, kind EventKind, at time.Time, payload map[string]any) *Event {
	return &Event{
		ID:         uuid.NewString(),
		InstanceID: instanceID,
		Kind:       kind,
		Payload:    payload,
		At:         at,
	}
}
