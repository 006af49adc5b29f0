// Package domain defines the core types shared across the DA Pipeline
// Orchestrator: requests, stages, execution status, partial results,
// routing snapshots, lifecycle events and the typed error taxonomy.
//
// Types here carry no behaviour beyond trivial accessors; all coordination
// logic lives in internal/application.
package domain
