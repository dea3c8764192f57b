package sla

import (
	"testing"
	"time"

	"mercator-hq/saturn/pkg/sla/calendar"
)

func wallClockDef() *Definition {
	return &Definition{
		ID:                "standard",
		ResponseMinutes:   60,
		ResolutionMinutes: 240,
		Escalations: []EscalationRule{
			{ThresholdPercent: 50, Action: ActionNotify, Targets: []string{"agent"}},
			{ThresholdPercent: 100, Action: ActionEscalate, Targets: []string{"lead"}},
			{ThresholdPercent: 150, Action: ActionEscalate, Targets: []string{"manager"}},
		},
		Active: true,
	}
}

var trackerStart = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC) // Monday 10:00

func TestNewInstance_DueTimestamps(t *testing.T) {
	tr := NewTracker(nil)

	inst, event, err := tr.NewInstance(wallClockDef(), "ticket-42", trackerStart)
	if err != nil {
		t.Fatalf("NewInstance() error: %v", err)
	}

	if inst.Version != 1 {
		t.Errorf("Version = %d, want 1", inst.Version)
	}
	if inst.ResponseStatus != StatusPending || inst.ResolutionStatus != StatusPending {
		t.Errorf("statuses = %s/%s, want pending/pending", inst.ResponseStatus, inst.ResolutionStatus)
	}
	if want := trackerStart.Add(60 * time.Minute); !inst.ResponseDueAt.Equal(want) {
		t.Errorf("ResponseDueAt = %v, want %v", inst.ResponseDueAt, want)
	}
	if want := trackerStart.Add(240 * time.Minute); !inst.ResolutionDueAt.Equal(want) {
		t.Errorf("ResolutionDueAt = %v, want %v", inst.ResolutionDueAt, want)
	}
	if event.Kind != EventCreated {
		t.Errorf("event kind = %s, want created", event.Kind)
	}
}

func TestNewInstance_BusinessHoursDue(t *testing.T) {
	def := &Definition{
		ID:                "business",
		ResolutionMinutes: 480, // one full business day
		BusinessHoursOnly: true,
		Calendar:          calendar.Default(),
		Active:            true,
	}
	tr := NewTracker(nil)

	inst, _, err := tr.NewInstance(def, "ticket-1", trackerStart)
	if err != nil {
		t.Fatalf("NewInstance() error: %v", err)
	}

	// Monday 10:00 + 8 business hours = Tuesday 10:00.
	want := time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC)
	if !inst.ResolutionDueAt.Equal(want) {
		t.Errorf("ResolutionDueAt = %v, want %v", inst.ResolutionDueAt, want)
	}
	// No response budget: the side is untracked.
	if inst.Tracked(SideResponse) {
		t.Error("response side tracked without a budget")
	}
}

func TestNewInstance_RejectsInvalidDefinition(t *testing.T) {
	tr := NewTracker(nil)
	def := &Definition{ID: "empty"} // no budgets

	if _, _, err := tr.NewInstance(def, "x", trackerStart); err == nil {
		t.Fatal("NewInstance() expected ConfigurationError")
	}
}

func TestRecordResponse_Idempotent(t *testing.T) {
	tr := NewTracker(nil)
	inst, _, _ := tr.NewInstance(wallClockDef(), "ticket-1", trackerStart)

	first := trackerStart.Add(30 * time.Minute)
	event := tr.RecordResponse(inst, first)
	if event == nil || event.Kind != EventResponseRecorded {
		t.Fatalf("RecordResponse() event = %v, want response_recorded", event)
	}
	if inst.ResponseStatus != StatusMet {
		t.Errorf("ResponseStatus = %s, want met", inst.ResponseStatus)
	}

	// Second call is a no-op: no event, timestamp unchanged.
	if again := tr.RecordResponse(inst, trackerStart.Add(45*time.Minute)); again != nil {
		t.Errorf("second RecordResponse() = %v, want nil", again)
	}
	if !inst.FirstResponseAt.Equal(first) {
		t.Errorf("FirstResponseAt = %v, want %v", inst.FirstResponseAt, first)
	}
}

func TestRecordResolution_LateIsBreached(t *testing.T) {
	tr := NewTracker(nil)
	inst, _, _ := tr.NewInstance(wallClockDef(), "ticket-1", trackerStart)

	late := trackerStart.Add(300 * time.Minute) // budget is 240
	event := tr.RecordResolution(inst, late)
	if event == nil {
		t.Fatal("RecordResolution() returned nil event")
	}
	if inst.ResolutionStatus != StatusBreached {
		t.Errorf("ResolutionStatus = %s, want breached", inst.ResolutionStatus)
	}
	if event.Payload["status"] != string(StatusBreached) {
		t.Errorf("event status payload = %v, want breached", event.Payload["status"])
	}
}

func TestRecordResolution_AfterPassiveBreachKeepsStatus(t *testing.T) {
	tr := NewTracker(nil)
	def := wallClockDef()
	inst, _, _ := tr.NewInstance(def, "ticket-1", trackerStart)

	// Tick detects the breach first.
	result := tr.Reevaluate(def, inst, trackerStart.Add(400*time.Minute))
	if len(result.Breached) == 0 {
		t.Fatal("Reevaluate() detected no breach")
	}

	// The late resolution is recorded for audit, status stays breached.
	event := tr.RecordResolution(inst, trackerStart.Add(500*time.Minute))
	if event == nil {
		t.Fatal("RecordResolution() returned nil event")
	}
	if inst.ResolutionStatus != StatusBreached {
		t.Errorf("ResolutionStatus = %s, want breached", inst.ResolutionStatus)
	}
}

func TestPauseResume_ShiftsDeadlines(t *testing.T) {
	tr := NewTracker(nil)
	def := wallClockDef()
	inst, _, _ := tr.NewInstance(def, "ticket-1", trackerStart)

	t1 := trackerStart.Add(20 * time.Minute)
	t2 := trackerStart.Add(50 * time.Minute)

	if event := tr.Pause(inst, t1); event == nil || event.Kind != EventPaused {
		t.Fatalf("Pause() event = %v, want paused", event)
	}
	// Pausing again is a no-op.
	if event := tr.Pause(inst, t1.Add(time.Minute)); event != nil {
		t.Errorf("second Pause() = %v, want nil", event)
	}

	if event := tr.Resume(inst, t2); event == nil || event.Kind != EventResumed {
		t.Fatalf("Resume() event = %v, want resumed", event)
	}
	if event := tr.Resume(inst, t2.Add(time.Minute)); event != nil {
		t.Errorf("second Resume() = %v, want nil", event)
	}

	// Every deadline shifts by exactly the paused span (30 minutes).
	paused := t2.Sub(t1)
	wantResponse := trackerStart.Add(60 * time.Minute).Add(paused)
	if got := inst.EffectiveDueAt(SideResponse, t2); !got.Equal(wantResponse) {
		t.Errorf("EffectiveDueAt(response) = %v, want %v", got, wantResponse)
	}

	// Just before the shifted deadline: no breach.
	result := tr.Reevaluate(def, inst, wantResponse.Add(-time.Minute))
	for _, side := range result.Breached {
		if side == SideResponse {
			t.Error("response breached before shifted deadline")
		}
	}
	if inst.ResponseStatus != StatusPending {
		t.Errorf("ResponseStatus = %s, want pending", inst.ResponseStatus)
	}

	// Just after: breach.
	result = tr.Reevaluate(def, inst, wantResponse.Add(time.Minute))
	if inst.ResponseStatus != StatusBreached {
		t.Errorf("ResponseStatus = %s, want breached", inst.ResponseStatus)
	}
	found := false
	for _, e := range result.Events {
		if e.Kind == EventBreached {
			found = true
		}
	}
	if !found {
		t.Error("Reevaluate() produced no breached event")
	}
}

func TestPause_WhilePausedDeadlineKeepsShifting(t *testing.T) {
	tr := NewTracker(nil)
	def := wallClockDef()
	inst, _, _ := tr.NewInstance(def, "ticket-1", trackerStart)

	tr.Pause(inst, trackerStart.Add(10*time.Minute))

	// Deep into the pause, far past the raw deadline: still no breach,
	// because the open pause keeps shifting the effective deadline.
	result := tr.Reevaluate(def, inst, trackerStart.Add(24*time.Hour))
	if len(result.Breached) != 0 {
		t.Errorf("Reevaluate() breached %v while paused", result.Breached)
	}
	if inst.ResponseStatus != StatusPending {
		t.Errorf("ResponseStatus = %s, want pending", inst.ResponseStatus)
	}
}

func TestPauseResume_ClosedInstanceIsImmutable(t *testing.T) {
	tr := NewTracker(nil)
	def := wallClockDef()
	inst, _, _ := tr.NewInstance(def, "ticket-1", trackerStart)

	tr.RecordResponse(inst, trackerStart.Add(30*time.Minute))
	tr.RecordResolution(inst, trackerStart.Add(100*time.Minute))
	if !inst.Closed() {
		t.Fatal("instance not closed after both completions")
	}

	if event := tr.Pause(inst, trackerStart.Add(110*time.Minute)); event != nil {
		t.Errorf("Pause() on closed instance = %v, want nil", event)
	}
	if inst.Paused {
		t.Error("Paused = true after pausing a closed instance")
	}
	if event := tr.Resume(inst, trackerStart.Add(120*time.Minute)); event != nil {
		t.Errorf("Resume() on closed instance = %v, want nil", event)
	}
}

func TestPause_PassivelyBreachedInstanceIsImmutable(t *testing.T) {
	tr := NewTracker(nil)
	def := wallClockDef()
	inst, _, _ := tr.NewInstance(def, "ticket-1", trackerStart)

	// Both sides breach passively; the instance is closed without any
	// completion being recorded.
	tr.Reevaluate(def, inst, trackerStart.Add(500*time.Minute))
	if !inst.Closed() {
		t.Fatal("instance not closed after both sides breached")
	}

	if event := tr.Pause(inst, trackerStart.Add(510*time.Minute)); event != nil {
		t.Errorf("Pause() on breached instance = %v, want nil", event)
	}
	if inst.Paused {
		t.Error("Paused = true after pausing a breached instance")
	}
}

func TestNewInstance_NoLadderStartsExhausted(t *testing.T) {
	tr := NewTracker(nil)

	flat := &Definition{ID: "flat", ResponseMinutes: 60, Active: true}
	inst, _, err := tr.NewInstance(flat, "ticket-1", trackerStart)
	if err != nil {
		t.Fatal(err)
	}
	if !inst.EscalationsExhausted {
		t.Error("EscalationsExhausted = false for a definition without a ladder")
	}

	inst, _, _ = tr.NewInstance(wallClockDef(), "ticket-2", trackerStart)
	if inst.EscalationsExhausted {
		t.Error("EscalationsExhausted = true with ladder rungs unfired")
	}
}

func TestReevaluate_BreachFiresOnce(t *testing.T) {
	tr := NewTracker(nil)
	def := wallClockDef()
	inst, _, _ := tr.NewInstance(def, "ticket-1", trackerStart)

	now := trackerStart.Add(500 * time.Minute) // both sides overdue
	result := tr.Reevaluate(def, inst, now)
	if len(result.Breached) != 2 {
		t.Fatalf("Reevaluate() breached = %v, want both sides", result.Breached)
	}

	// The pending -> breached transition is one-way: a second pass
	// produces no further breach events.
	again := tr.Reevaluate(def, inst, now.Add(time.Hour))
	if len(again.Breached) != 0 {
		t.Errorf("second Reevaluate() breached = %v, want none", again.Breached)
	}
}

func TestReevaluate_EscalationAdvancesMonotonically(t *testing.T) {
	tr := NewTracker(nil)
	def := &Definition{
		ID:                "esc",
		ResolutionMinutes: 100,
		Escalations: []EscalationRule{
			{ThresholdPercent: 50, Action: ActionNotify},
			{ThresholdPercent: 100, Action: ActionEscalate},
			{ThresholdPercent: 150, Action: ActionEscalate},
		},
		Active: true,
	}
	inst, _, _ := tr.NewInstance(def, "ticket-1", trackerStart)

	// 85% elapsed: level 1 fires as a warning.
	result := tr.Reevaluate(def, inst, trackerStart.Add(85*time.Minute))
	if result.EscalationsFired != 1 {
		t.Fatalf("EscalationsFired = %d, want 1", result.EscalationsFired)
	}
	if inst.EscalationLevel != 1 {
		t.Fatalf("EscalationLevel = %d, want 1", inst.EscalationLevel)
	}
	if result.Events[len(result.Events)-1].Kind != EventWarningSent {
		t.Errorf("event kind = %s, want warning_sent", result.Events[len(result.Events)-1].Kind)
	}

	// 140% elapsed: only level 2 fires, level 1 does not repeat.
	result = tr.Reevaluate(def, inst, trackerStart.Add(140*time.Minute))
	escalated := 0
	for _, e := range result.Events {
		if e.Kind == EventEscalated || e.Kind == EventWarningSent {
			escalated++
		}
	}
	if escalated != 1 {
		t.Errorf("escalation events = %d, want 1", escalated)
	}
	if inst.EscalationLevel != 2 {
		t.Errorf("EscalationLevel = %d, want 2", inst.EscalationLevel)
	}

	// Time keeps passing but no further threshold is crossed until 150%.
	result = tr.Reevaluate(def, inst, trackerStart.Add(149*time.Minute))
	if result.EscalationsFired != 0 {
		t.Errorf("EscalationsFired = %d, want 0", result.EscalationsFired)
	}
}

func TestReevaluate_SkippedLevelsFireInOrder(t *testing.T) {
	tr := NewTracker(nil)
	def := &Definition{
		ID:                "esc",
		ResolutionMinutes: 100,
		Escalations: []EscalationRule{
			{ThresholdPercent: 50, Action: ActionNotify},
			{ThresholdPercent: 100, Action: ActionEscalate},
			{ThresholdPercent: 150, Action: ActionEscalate},
		},
		Active: true,
	}
	inst, _, _ := tr.NewInstance(def, "ticket-1", trackerStart)

	// A long scheduler outage: the first tick after it must fire every
	// skipped rung, in ascending order.
	result := tr.Reevaluate(def, inst, trackerStart.Add(200*time.Minute))
	if result.EscalationsFired != 3 {
		t.Fatalf("EscalationsFired = %d, want 3", result.EscalationsFired)
	}
	if inst.EscalationLevel != 3 {
		t.Errorf("EscalationLevel = %d, want 3", inst.EscalationLevel)
	}

	var levels []int
	for _, e := range result.Events {
		if e.Kind == EventWarningSent || e.Kind == EventEscalated {
			levels = append(levels, e.Payload["level"].(int))
		}
	}
	for i, level := range levels {
		if level != i+1 {
			t.Errorf("escalation order = %v, want [1 2 3]", levels)
			break
		}
	}
}

func TestReevaluate_PostBreachRungFiresAfterBreach(t *testing.T) {
	tr := NewTracker(nil)
	def := &Definition{
		ID:              "aggravated",
		ResponseMinutes: 60,
		Escalations: []EscalationRule{
			{ThresholdPercent: 80, Action: ActionNotify},
			{ThresholdPercent: 150, Action: ActionEscalate},
		},
		Active: true,
	}
	inst, _, _ := tr.NewInstance(def, "ticket-1", trackerStart)

	// 120% elapsed: the side breaches and the 80% rung fires, but the
	// 150% rung is still ahead.
	result := tr.Reevaluate(def, inst, trackerStart.Add(72*time.Minute))
	if len(result.Breached) != 1 {
		t.Fatalf("Breached = %v, want response side", result.Breached)
	}
	if result.EscalationsFired != 1 || inst.EscalationLevel != 1 {
		t.Fatalf("fired = %d level = %d, want 1/1", result.EscalationsFired, inst.EscalationLevel)
	}
	if inst.EscalationsExhausted {
		t.Fatal("EscalationsExhausted = true with the 150% rung unfired")
	}

	// 158% elapsed: the post-breach rung fires and the ladder is spent.
	result = tr.Reevaluate(def, inst, trackerStart.Add(95*time.Minute))
	if result.EscalationsFired != 1 || inst.EscalationLevel != 2 {
		t.Fatalf("fired = %d level = %d, want 1/2", result.EscalationsFired, inst.EscalationLevel)
	}
	if !inst.EscalationsExhausted {
		t.Error("EscalationsExhausted = false after the top rung fired")
	}

	// Nothing left to do.
	result = tr.Reevaluate(def, inst, trackerStart.Add(200*time.Minute))
	if result.Changed {
		t.Error("Reevaluate() mutated a spent instance")
	}
}

func TestReevaluate_MetSideDoesNotDriveEscalation(t *testing.T) {
	tr := NewTracker(nil)
	def := wallClockDef()
	inst, _, _ := tr.NewInstance(def, "ticket-1", trackerStart)

	// Response met early; resolution (240 min budget) is only 25% in at
	// the 60-minute mark, so no threshold is crossed even though the
	// response budget would be at 100%.
	tr.RecordResponse(inst, trackerStart.Add(10*time.Minute))
	result := tr.Reevaluate(def, inst, trackerStart.Add(60*time.Minute))
	if result.EscalationsFired != 0 {
		t.Errorf("EscalationsFired = %d, want 0", result.EscalationsFired)
	}
}

func TestDefinitionValidate(t *testing.T) {
	tests := []struct {
		name      string
		def       Definition
		wantError bool
	}{
		{
			name: "valid",
			def:  *wallClockDef(),
		},
		{
			name:      "no budgets",
			def:       Definition{ID: "x"},
			wantError: true,
		},
		{
			name:      "negative budget",
			def:       Definition{ID: "x", ResponseMinutes: -5},
			wantError: true,
		},
		{
			name: "non-ascending ladder",
			def: Definition{
				ID: "x", ResponseMinutes: 60,
				Escalations: []EscalationRule{
					{ThresholdPercent: 100, Action: ActionNotify},
					{ThresholdPercent: 50, Action: ActionEscalate},
				},
			},
			wantError: true,
		},
		{
			name: "unknown action",
			def: Definition{
				ID: "x", ResponseMinutes: 60,
				Escalations: []EscalationRule{
					{ThresholdPercent: 50, Action: "page"},
				},
			},
			wantError: true,
		},
		{
			name: "bad calendar only checked when business hours",
			def: Definition{
				ID: "x", ResponseMinutes: 60,
				BusinessHoursOnly: false,
				// Zero-valued calendar would fail validation.
			},
		},
		{
			name: "bad calendar rejected when business hours",
			def: Definition{
				ID: "x", ResponseMinutes: 60,
				BusinessHoursOnly: true,
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestDefinitionLadder_DefaultFromWarningPercent(t *testing.T) {
	def := Definition{ID: "x", ResponseMinutes: 60, WarningPercent: 75}
	ladder := def.Ladder()
	if len(ladder) != 2 {
		t.Fatalf("Ladder() = %d rungs, want 2", len(ladder))
	}
	if ladder[0].ThresholdPercent != 75 || ladder[0].Action != ActionNotify {
		t.Errorf("rung 1 = %+v, want notify at 75", ladder[0])
	}
	if ladder[1].ThresholdPercent != 100 || ladder[1].Action != ActionEscalate {
		t.Errorf("rung 2 = %+v, want escalate at 100", ladder[1])
	}

	// An explicit ladder wins over the derived one.
	def.Escalations = []EscalationRule{{ThresholdPercent: 30, Action: ActionNotify}}
	if got := def.Ladder(); len(got) != 1 || got[0].ThresholdPercent != 30 {
		t.Errorf("Ladder() = %+v, want the explicit ladder", got)
	}
}
