// Package source provides decision-table providers for the evaluator.
//
// Two sources are included: MemorySource, a static in-memory set used by
// tests and embedding callers, and FileSource, which loads tables from
// YAML files and can watch the files for changes with fsnotify, reloading
// with debouncing to avoid reload storms.
//
// Every table is validated eagerly when loaded, so configuration errors
// surface at startup or on reload rather than at first evaluation.
package source
