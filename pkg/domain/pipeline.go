package domain

import (
	"context"
	"time"
)

// StageFunc is the unit-of-work contract consumed from external
// collaborators. It receives the previous stage's output and produces the
// next stage's input. The engine treats any returned error as stage failure
// and does not interpret stage-internal semantics. Implementations should
// observe ctx: the engine cancels it on node timeout and on pipeline
// cancellation.
type StageFunc func(ctx context.Context, input interface{}) (interface{}, error)

// Stage pairs a stage function with the name used in partial results,
// events and error reports.
type Stage struct {
	Name string
	Fn   StageFunc
}

// ExecutionStatus is the lifecycle state of a pipeline run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusSucceeded ExecutionStatus = "succeeded"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusTimedOut  ExecutionStatus = "timed_out"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusSucceeded, ExecutionStatusFailed,
		ExecutionStatusTimedOut, ExecutionStatusCancelled:
		return true
	}
	return false
}

// PartialResult is the output of a stage that completed before its
// pipeline terminated, retained for diagnostics and recovery.
type PartialResult struct {
	Stage  string      `json:"stage"`
	Output interface{} `json:"output"`
}

// RunRecord is the persisted audit record of one pipeline run.
type RunRecord struct {
	PipelineID  string          `json:"pipeline_id"`
	Source      string          `json:"source"`
	Stages      []string        `json:"stages"`
	Status      ExecutionStatus `json:"status"`
	Output      interface{}     `json:"output,omitempty"`
	Partials    []PartialResult `json:"partials,omitempty"`
	Error       string          `json:"error,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
