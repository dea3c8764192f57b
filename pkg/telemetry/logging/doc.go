// Package logging configures structured logging for the engine.
//
// All components log through log/slog; this package builds the handler
// from configuration (level, format) and installs it as the process
// default so component loggers created with slog.Default() inherit it.
package logging
