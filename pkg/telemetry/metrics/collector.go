package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Enabled toggles metric recording.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric namespace prefix.
	// Default: "saturn"
	Namespace string `yaml:"namespace"`

	// Path is the HTTP path the exposition handler is mounted at.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Namespace: "saturn",
		Path:      "/metrics",
	}
}

// Collector owns the Prometheus registry and the metric subsystems.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	// Decision records decision-table evaluation metrics.
	Decision *DecisionMetrics

	// SLA records SLA lifecycle and tick metrics.
	SLA *SLAMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "saturn"
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		Decision: NewDecisionMetrics(cfg, registry),
		SLA:      NewSLAMetrics(cfg, registry),
	}
}

// Enabled reports whether metric recording is enabled.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}
