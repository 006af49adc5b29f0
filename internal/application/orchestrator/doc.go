// Package orchestrator implements the core execution logic for linear
// stage pipelines.
//
// The engine runs an ordered stage chain under one total timeout:
//   - Each stage runs with its own node timeout and cancellation awareness
//   - The pipeline budget dominates and cancels the running node when it fires
//   - Completed stage outputs are recorded as partial results immediately
//   - Failures surface as typed errors; the engine never retries
//
// The manager coordinates the service surface (submit, status, cancel) and
// the validator checks submissions against the stage catalog.
package orchestrator
