// Package cancellation implements per-pipeline cancellation signals.
//
// The registry owns one one-shot token per active pipeline id and the
// attached cleanup handlers and partial-result buffer:
//   - Register fails while the id is still active
//   - Cancel fires the token, wakes node-executor waiters and runs
//     cleanup handlers exactly once, in registration order
//   - Unregister is idempotent and discards everything for the id
//
// The operator control surface aborts a running pipeline by calling
// Cancel with an audit reason.
package cancellation
