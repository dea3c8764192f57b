// Package decision implements decision-table evaluation.
//
// A decision table declares typed input and output columns, a hit policy,
// and an ordered list of rules. Each rule maps input columns to conditions
// and output columns to literal values. Evaluation binds live field values
// to the input columns, matches every rule's conditions, and resolves the
// set of matching rules into output bindings according to the table's hit
// policy (FIRST, UNIQUE, ANY, COLLECT, RULE_ORDER).
//
// Evaluation is pure and synchronous: tables are immutable once validated,
// and Evaluate holds no shared mutable state, so it is safe to call from
// any number of concurrent goroutines.
//
// Misconfigured tables fail loudly. Type mismatches, missing input
// bindings, and dangling column references surface as typed errors rather
// than silently producing a non-match.
package decision
