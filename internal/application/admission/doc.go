// Package admission implements the gate in front of the execution engine.
//
// Requests are served under a priority discipline with two corrections:
//   - Backpressure: Put fails fast with QueueFullError at max depth
//   - Fairness: a source served within the fairness window has its next
//     entries transiently demoted so other sources are not starved
//
// Demotion per Get call is bounded, so an entry whose source is still in
// cool-down is eventually served rather than starved indefinitely.
package admission
