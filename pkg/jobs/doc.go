// Package jobs tracks background analysis work in memory.
//
// A Store holds jobs keyed by short minted IDs and moves them through a
// fixed lifecycle: pending, running, then completed or failed. Running jobs
// report integer progress with an optional message, which front ends poll
// while an analysis is in flight.
//
// Finished jobs are retained for a configurable TTL so their results stay
// queryable, then removed by PruneExpired. Callers drive pruning on their
// own schedule, typically from a refresh scheduler entry.
//
// All methods are safe for concurrent use. Get and List return snapshots,
// so a held *Job never changes underneath the caller.
package jobs
