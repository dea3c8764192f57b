package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SLAMetrics tracks metrics related to SLA lifecycle and scheduler ticks.
//
// Metrics:
//   - saturn_sla_instances_created_total: Instances created by definition
//   - saturn_sla_breaches_total: Breach transitions by definition and side
//   - saturn_sla_escalations_total: Escalation rungs fired by definition and level
//   - saturn_sla_tick_duration_seconds: Scheduler tick duration
//   - saturn_sla_tick_conflicts_total: Instances skipped on a lost version race
//   - saturn_sla_open_instances: Open instances seen by the last tick
type SLAMetrics struct {
	instancesCreatedTotal *prometheus.CounterVec
	breachesTotal         *prometheus.CounterVec
	escalationsTotal      *prometheus.CounterVec
	tickDuration          prometheus.Histogram
	tickConflictsTotal    prometheus.Counter
	openInstances         prometheus.Gauge
}

// NewSLAMetrics creates and registers SLA metrics with the provided
// registry.
func NewSLAMetrics(cfg *Config, registry *prometheus.Registry) *SLAMetrics {
	sm := &SLAMetrics{
		instancesCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "sla_instances_created_total",
				Help:      "Total number of SLA instances created",
			},
			[]string{"definition_id"},
		),

		breachesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "sla_breaches_total",
				Help:      "Total number of SLA breach transitions",
			},
			[]string{"definition_id", "side"},
		),

		escalationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "sla_escalations_total",
				Help:      "Total number of escalation ladder rungs fired",
			},
			[]string{"definition_id", "level"},
		),

		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "sla_tick_duration_seconds",
				Help:      "Duration of one scheduler tick in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
			},
		),

		tickConflictsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "sla_tick_conflicts_total",
				Help:      "Total number of instances skipped because a concurrent writer won the version race",
			},
		),

		openInstances: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "sla_open_instances",
				Help:      "Number of open SLA instances seen by the last tick",
			},
		),
	}

	registry.MustRegister(
		sm.instancesCreatedTotal,
		sm.breachesTotal,
		sm.escalationsTotal,
		sm.tickDuration,
		sm.tickConflictsTotal,
		sm.openInstances,
	)

	return sm
}

// RecordInstanceCreated records a created instance.
func (sm *SLAMetrics) RecordInstanceCreated(definitionID string) {
	sm.instancesCreatedTotal.WithLabelValues(definitionID).Inc()
}

// RecordBreach records a breach transition for one side.
func (sm *SLAMetrics) RecordBreach(definitionID, side string) {
	sm.breachesTotal.WithLabelValues(definitionID, side).Inc()
}

// RecordEscalation records one fired escalation ladder rung.
func (sm *SLAMetrics) RecordEscalation(definitionID string, level int) {
	sm.escalationsTotal.WithLabelValues(definitionID, strconv.Itoa(level)).Inc()
}

// RecordTick records one completed scheduler tick.
func (sm *SLAMetrics) RecordTick(open, conflicts int, duration time.Duration) {
	sm.tickDuration.Observe(duration.Seconds())
	sm.tickConflictsTotal.Add(float64(conflicts))
	sm.openInstances.Set(float64(open))
}
