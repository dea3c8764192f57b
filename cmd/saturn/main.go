// Mercator Saturn is a compliance engine: a decision-table evaluator
// paired with an SLA deadline and escalation tracker.
//
// It evaluates versioned decision tables against input bindings,
// tracks response and resolution deadlines against business-hours
// calendars, and fires escalation ladders as deadlines approach or
// pass.
//
// Usage:
//
//	# Start the engine with default configuration
//	saturn run
//
//	# Start with custom configuration file
//	saturn run --config /path/to/config.yaml
//
//	# Validate decision tables and SLA definitions
//	saturn validate --tables tables.yaml --definitions slas.yaml
//
//	# Show version information
//	saturn version
package main

func main() {
	Execute()
}
