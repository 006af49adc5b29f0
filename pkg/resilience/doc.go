// Package resilience provides composable decorators around stage
// functions: retry with exponential backoff, circuit breaker and
// fallback.
//
// The wrappers are deliberately independent of the execution engine,
// which has no retry logic of its own. Callers compose them around an
// individual stage function before handing it to the engine:
//
//	fn = resilience.Retry(retryCfg, resilience.RetryAll)(fn)
//	fn = breaker.Wrap(fn)
//	fn = resilience.Fallback(fn, cached)
//
// Backoff waits observe the stage context, which the engine cancels when
// the pipeline's cancellation token fires, so a cancelled pipeline is
// never held hostage by a slow retry loop.
package resilience
