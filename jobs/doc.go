// Package jobs moves document IDs from the request path to background workers.
//
// A Dispatcher places jobs on a Queue. A Runner reserves them, looks the
// job kind up in its handler table and executes the handler on a goroutine
// pool under the job's timeout.
//
// Delivery is at-least-once. A reserved job is leased for its timeout;
// if the runner crashes or the handler times out the lease expires and the
// job becomes visible again. Handlers must therefore be idempotent.
//
// Outcomes:
//
//   - handler returns nil: job is acknowledged and removed
//   - handler returns an error: job is released for another attempt until
//     the runner's MaxAttempts is reached, then dropped
//   - handler exceeds the timeout: job is left leased
//   - no handler for the kind: job is dropped
package jobs
