// Package config defines the engine's YAML configuration: the HTTP
// server, storage backend, tick scheduler, table and definition
// sources, and telemetry. Loading applies defaults, environment
// variable overrides (SATURN_SECTION_FIELD) and validation in that
// order.
package config
