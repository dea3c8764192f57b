// Package metrics exposes Prometheus metrics for decision evaluation
// and SLA tracking. A Collector owns the registry and the metric
// subsystems; the HTTP handler serves the standard exposition format.
package metrics
