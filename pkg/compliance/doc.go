// Package compliance is the engine's top-level facade. It ties the
// decision-table registry, the SLA definition registry, the tracker and
// storage together behind one Service that callers embed or expose.
//
// Lifecycle mutations go through a short optimistic-retry loop: the
// service re-reads the instance and re-applies the mutation when a
// concurrent writer wins the version race, so callers never see a
// transient conflict for operations that are idempotent anyway.
package compliance
