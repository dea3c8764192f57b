package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/saturn/pkg/decision"
	"mercator-hq/saturn/pkg/decision/source"
	"mercator-hq/saturn/pkg/sla"
	"mercator-hq/saturn/pkg/sla/scheduler"
	"mercator-hq/saturn/pkg/sla/storage"
	"mercator-hq/saturn/pkg/telemetry/metrics"
)

// mutateRetries bounds the optimistic-retry loop for lifecycle
// mutations. Conflicts are rare; two retries cover a racing tick.
const mutateRetries = 3

// Service is the compliance engine facade.
type Service struct {
	tables    *source.Registry
	defs      *sla.Registry
	evaluator *decision.Evaluator
	tracker   *sla.Tracker
	store     storage.Store
	events    storage.EventLog
	sched     *scheduler.Scheduler
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// Options configures a Service. Tables, Definitions, Store and Events
// are required; Scheduler and Metrics are optional.
type Options struct {
	Tables      *source.Registry
	Definitions *sla.Registry
	Store       storage.Store
	Events      storage.EventLog
	Scheduler   *scheduler.Scheduler
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}

// NewService creates the facade over the given components.
func NewService(opts Options) (*Service, error) {
	if opts.Tables == nil {
		return nil, fmt.Errorf("compliance: table registry is required")
	}
	if opts.Definitions == nil {
		return nil, fmt.Errorf("compliance: definition registry is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("compliance: instance store is required")
	}
	if opts.Events == nil {
		return nil, fmt.Errorf("compliance: event log is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "compliance")

	return &Service{
		tables:    opts.Tables,
		defs:      opts.Definitions,
		evaluator: decision.NewEvaluator(logger),
		tracker:   sla.NewTracker(logger),
		store:     opts.Store,
		events:    opts.Events,
		sched:     opts.Scheduler,
		metrics:   opts.Metrics,
		logger:    logger,
	}, nil
}

// EvaluateTable evaluates the registered decision table against the
// given input bindings.
func (s *Service) EvaluateTable(ctx context.Context, tableID string, bindings decision.Bindings) (*decision.Result, error) {
	table, err := s.tables.Get(tableID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result, err := s.evaluator.Evaluate(table, bindings)
	if s.metrics != nil && s.metrics.Enabled() {
		outcome := "matched"
		switch {
		case err != nil:
			outcome = "error"
		case len(result.MatchedRuleIDs) == 0:
			outcome = "default"
		}
		s.metrics.Decision.RecordEvaluation(tableID, string(table.Policy), outcome, time.Since(started))
	}
	return result, err
}

// CreateInstance starts tracking a new SLA instance for the target
// under the given definition.
func (s *Service) CreateInstance(ctx context.Context, definitionID, targetRef string, start time.Time) (*sla.Instance, error) {
	def, err := s.defs.Definition(definitionID)
	if err != nil {
		return nil, err
	}

	inst, event, err := s.tracker.NewInstance(def, targetRef, start)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, inst); err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	if err := s.events.Append(ctx, event); err != nil {
		s.logger.Error("failed to append created event",
			"instance_id", inst.ID,
			"error", err,
		)
	}

	if s.metrics != nil && s.metrics.Enabled() {
		s.metrics.SLA.RecordInstanceCreated(definitionID)
	}
	s.logger.Info("sla instance created",
		"instance_id", inst.ID,
		"definition_id", definitionID,
		"target_ref", targetRef,
	)
	return inst, nil
}

// GetInstance returns the instance with the given id.
func (s *Service) GetInstance(ctx context.Context, id string) (*sla.Instance, error) {
	return s.store.Get(ctx, id)
}

// ListEvents returns events matching the query.
func (s *Service) ListEvents(ctx context.Context, query *storage.EventQuery) ([]*sla.Event, error) {
	return s.events.List(ctx, query)
}

// RecordFirstResponse marks the response side met at the given instant.
// Recording a response twice is a no-op that returns the current state.
func (s *Service) RecordFirstResponse(ctx context.Context, instanceID string, when time.Time) (*sla.Instance, error) {
	return s.mutate(ctx, instanceID, func(inst *sla.Instance) (*sla.Event, error) {
		return s.tracker.RecordResponse(inst, when), nil
	})
}

// RecordResolution marks the resolution side met at the given instant.
// Recording a resolution twice is a no-op that returns the current state.
func (s *Service) RecordResolution(ctx context.Context, instanceID string, when time.Time) (*sla.Instance, error) {
	return s.mutate(ctx, instanceID, func(inst *sla.Instance) (*sla.Event, error) {
		return s.tracker.RecordResolution(inst, when), nil
	})
}

// Pause stops the SLA clock for the instance. Pausing a paused instance
// is a no-op; pausing a closed instance returns ErrInstanceClosed.
func (s *Service) Pause(ctx context.Context, instanceID string, now time.Time) (*sla.Instance, error) {
	return s.mutate(ctx, instanceID, func(inst *sla.Instance) (*sla.Event, error) {
		if inst.Closed() {
			return nil, sla.ErrInstanceClosed
		}
		return s.tracker.Pause(inst, now), nil
	})
}

// Resume restarts the SLA clock for the instance, extending every
// pending deadline by the paused span. Resuming an unpaused instance is
// a no-op; resuming a closed instance returns ErrInstanceClosed.
func (s *Service) Resume(ctx context.Context, instanceID string, now time.Time) (*sla.Instance, error) {
	return s.mutate(ctx, instanceID, func(inst *sla.Instance) (*sla.Event, error) {
		if inst.Closed() {
			return nil, sla.ErrInstanceClosed
		}
		return s.tracker.Resume(inst, now), nil
	})
}

// RunEscalationTick runs one scheduler tick immediately.
func (s *Service) RunEscalationTick(ctx context.Context) (scheduler.TickSummary, error) {
	if s.sched == nil {
		return scheduler.TickSummary{}, fmt.Errorf("compliance: no scheduler configured")
	}
	return s.sched.Tick(ctx)
}

// mutate reads the instance, applies the mutation and persists it under
// the version guard, retrying the whole read-apply-write cycle when a
// concurrent writer wins the race. A mutation returning a nil event is
// a no-op; the freshly read state is returned unchanged.
func (s *Service) mutate(ctx context.Context, instanceID string, apply func(*sla.Instance) (*sla.Event, error)) (*sla.Instance, error) {
	var lastErr error
	for attempt := 0; attempt < mutateRetries; attempt++ {
		inst, err := s.store.Get(ctx, instanceID)
		if err != nil {
			return nil, err
		}

		event, err := apply(inst)
		if err != nil {
			return nil, err
		}
		if event == nil {
			return inst, nil
		}

		if err := s.store.Update(ctx, inst); err != nil {
			if errors.Is(err, storage.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("update instance: %w", err)
		}

		if err := s.events.Append(ctx, event); err != nil {
			s.logger.Error("failed to append lifecycle event",
				"instance_id", instanceID,
				"kind", string(event.Kind),
				"error", err,
			)
		}
		return inst, nil
	}
	return nil, fmt.Errorf("update instance %s: %w", instanceID, lastErr)
}
