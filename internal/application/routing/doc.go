// Package routing implements adaptive, load-based node selection.
//
// The router tracks capacity, in-flight load and exponential moving
// averages of latency and error rate per node. Selection is pluggable
// (least-loaded or lowest-latency), deterministic on ties, and refuses
// saturated nodes so the caller falls back to queueing.
package routing
