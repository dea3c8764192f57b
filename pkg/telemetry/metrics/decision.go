package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics tracks metrics related to decision-table evaluation.
//
// Metrics:
//   - saturn_decision_evaluations_total: Total evaluations by table, hit policy and outcome
//   - saturn_decision_evaluation_duration_seconds: Evaluation duration
//   - saturn_decision_table_reloads_total: Table registry reloads by status
type DecisionMetrics struct {
	// Total evaluations, labelled by outcome
	evaluationsTotal *prometheus.CounterVec

	// Evaluation duration histogram
	evaluationDuration *prometheus.HistogramVec

	// Table registry reloads
	tableReloadsTotal *prometheus.CounterVec
}

// NewDecisionMetrics creates and registers decision metrics with the
// provided registry.
func NewDecisionMetrics(cfg *Config, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "decision_evaluations_total",
				Help:      "Total number of decision table evaluations",
			},
			[]string{"table_id", "hit_policy", "outcome"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "decision_evaluation_duration_seconds",
				Help:      "Duration of decision table evaluation in seconds",
				// Evaluations are in-memory rule scans (< 10ms)
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"table_id"},
		),

		tableReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "decision_table_reloads_total",
				Help:      "Total number of decision table registry reloads",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		dm.evaluationsTotal,
		dm.evaluationDuration,
		dm.tableReloadsTotal,
	)

	return dm
}

// RecordEvaluation records one table evaluation.
//
// The outcome is "matched" when rules matched, "default" when the
// table's defaults were applied, or "error" when evaluation failed.
func (dm *DecisionMetrics) RecordEvaluation(tableID, hitPolicy, outcome string, duration time.Duration) {
	dm.evaluationsTotal.WithLabelValues(tableID, hitPolicy, outcome).Inc()
	dm.evaluationDuration.WithLabelValues(tableID).Observe(duration.Seconds())
}

// RecordReload records a table registry reload ("success" or "error").
func (dm *DecisionMetrics) RecordReload(status string) {
	dm.tableReloadsTotal.WithLabelValues(status).Inc()
}
