// Package scheduler drives periodic re-evaluation of open SLA
// instances. A cron-scheduled tick lists every open instance, fans it
// out to a bounded worker pool, and persists each computed transition
// under the instance's version guard. Workers that lose the
// compare-and-swap discard their transitions; the instance is picked up
// again on the next tick.
package scheduler
