package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/saturn/pkg/sla"
	"mercator-hq/saturn/pkg/sla/storage"
)

// Config contains scheduler configuration.
type Config struct {
	// Schedule is the cron expression for the periodic tick.
	// Default: every minute.
	Schedule string `yaml:"schedule"`

	// Workers is the number of concurrent tick workers.
	// Default: 4
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		Schedule: "* * * * *",
		Workers:  4,
	}
}

// TickSummary summarizes one tick over the open instances.
type TickSummary struct {
	// Processed is the number of open instances re-evaluated.
	Processed int

	// Breached is the number of side transitions to breached.
	Breached int

	// Escalated is the number of escalation-ladder rungs fired.
	Escalated int

	// Conflicts is the number of instances skipped because a concurrent
	// writer won the version race.
	Conflicts int
}

// Scheduler re-evaluates open SLA instances on a cron schedule.
type Scheduler struct {
	config  *Config
	defs    *sla.Registry
	tracker *sla.Tracker
	store   storage.Store
	events  storage.EventLog

	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool

	// onTick, when set, observes each completed tick. Used to feed
	// metrics without coupling the scheduler to the telemetry package.
	onTick func(TickSummary, time.Duration)

	// onTransition, when set, observes each persisted per-instance
	// transition.
	onTransition func(*sla.Instance, *sla.Reevaluation)
}

// New creates a scheduler over the given definition registry, tracker
// and storage.
func New(config *Config, defs *sla.Registry, tracker *sla.Tracker, store storage.Store, events storage.EventLog) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	return &Scheduler{
		config:  config,
		defs:    defs,
		tracker: tracker,
		store:   store,
		events:  events,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "sla.scheduler"),
	}
}

// OnTick registers an observer called after every completed tick.
func (s *Scheduler) OnTick(fn func(TickSummary, time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTick = fn
}

// OnTransition registers an observer called after every persisted
// per-instance transition.
func (s *Scheduler) OnTransition(fn func(*sla.Instance, *sla.Reevaluation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTransition = fn
}

// Start begins the scheduled ticks based on the cron expression.
//
// Common cron expressions:
//   - "* * * * *"    - Every minute
//   - "*/5 * * * *"  - Every 5 minutes
//
// If Schedule is empty, the scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Schedule == "" {
		s.logger.Info("tick schedule not configured, skipping scheduler")
		return nil
	}

	_, err := cron.ParseStandard(s.config.Schedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.config.Schedule, err)
	}

	_, err = s.cron.AddFunc(s.config.Schedule, func() {
		s.runTick(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("sla scheduler started",
		"schedule", s.config.Schedule,
		"workers", s.config.Workers,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runTick executes one tick cycle.
func (s *Scheduler) runTick(ctx context.Context) {
	started := time.Now()
	summary, err := s.Tick(ctx)
	if err != nil {
		s.logger.Error("scheduled tick failed",
			"error", err,
		)
		return
	}

	s.mu.Lock()
	observer := s.onTick
	s.mu.Unlock()
	if observer != nil {
		observer(summary, time.Since(started))
	}

	if summary.Breached > 0 || summary.Escalated > 0 || summary.Conflicts > 0 {
		s.logger.Info("scheduled tick completed",
			"processed", summary.Processed,
			"breached", summary.Breached,
			"escalated", summary.Escalated,
			"conflicts", summary.Conflicts,
		)
	} else {
		s.logger.Debug("scheduled tick completed, no transitions",
			"processed", summary.Processed,
		)
	}
}

// Tick re-evaluates every open instance once. Instances are fanned out
// to a bounded worker pool; each worker persists its transitions under
// the instance's version guard and discards them on a lost race.
func (s *Scheduler) Tick(ctx context.Context) (TickSummary, error) {
	now := time.Now()

	open, err := s.store.ListOpen(ctx)
	if err != nil {
		return TickSummary{}, fmt.Errorf("list open instances: %w", err)
	}

	var (
		mu      sync.Mutex
		summary TickSummary
		wg      sync.WaitGroup
	)
	work := make(chan *sla.Instance)

	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inst := range work {
				outcome := s.process(ctx, inst, now)
				mu.Lock()
				summary.Processed++
				summary.Breached += outcome.breached
				summary.Escalated += outcome.escalated
				summary.Conflicts += outcome.conflicts
				mu.Unlock()
			}
		}()
	}

	for _, inst := range open {
		select {
		case work <- inst:
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return summary, ctx.Err()
		}
	}
	close(work)
	wg.Wait()

	return summary, nil
}

// tickOutcome is the per-instance contribution to the tick summary.
type tickOutcome struct {
	breached  int
	escalated int
	conflicts int
}

// process re-evaluates one instance and persists its transitions.
func (s *Scheduler) process(ctx context.Context, inst *sla.Instance, now time.Time) tickOutcome {
	def, err := s.defs.Definition(inst.DefinitionID)
	if err != nil {
		s.logger.Warn("skipping instance with unknown definition",
			"instance_id", inst.ID,
			"definition_id", inst.DefinitionID,
		)
		return tickOutcome{}
	}

	result := s.tracker.Reevaluate(def, inst, now)
	if !result.Changed {
		return tickOutcome{}
	}

	if err := s.store.Update(ctx, inst); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			// A concurrent writer got there first. The computed
			// transitions are stale; the next tick re-reads the instance.
			return tickOutcome{conflicts: 1}
		}
		s.logger.Error("failed to persist instance transitions",
			"instance_id", inst.ID,
			"error", err,
		)
		return tickOutcome{}
	}

	if err := s.events.Append(ctx, result.Events...); err != nil {
		s.logger.Error("failed to append instance events",
			"instance_id", inst.ID,
			"error", err,
		)
	}

	s.mu.Lock()
	observer := s.onTransition
	s.mu.Unlock()
	if observer != nil {
		observer(inst, result)
	}

	return tickOutcome{
		breached:  len(result.Breached),
		escalated: result.EscalationsFired,
	}
}

// Stop stops the scheduler and waits for any running tick to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done() // Wait for running jobs to finish
		s.running = false
		s.logger.Info("sla scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled tick time.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
