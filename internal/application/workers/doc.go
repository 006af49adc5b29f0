// Package workers implements the worker pool that drains the admission
// queue.
//
// The worker pool manages a fixed number of goroutines that:
//   - Pull the next fair, priority-ordered entry from the admission queue
//   - Acquire a node from the adaptive router, backing off when saturated
//   - Execute the pipeline through the engine
//   - Feed latency/success observations back into the router
//   - Persist the terminal run record with its partial results
//
// The health monitor tracks worker, queue and router status and exports
// the gauges.
package workers
