package domain

import (
	"fmt"
	"time"
)

// Priority orders admission: higher values are served first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// String returns the lowercase name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Demote returns the next lower priority, clamped at PriorityLow.
func (p Priority) Demote() Priority {
	if p <= PriorityLow {
		return PriorityLow
	}
	return p - 1
}

// ParsePriority parses a priority name. Unknown names default to normal.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "normal", "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	default:
		return PriorityNormal, fmt.Errorf("unknown priority: %q", s)
	}
}

// Request is one unit of admission. It is immutable once enqueued;
// fairness demotion happens on the queue entry, never on the request.
type Request struct {
	ID          string
	Source      string
	Priority    Priority
	SubmittedAt time.Time

	// Task is opaque to the admission queue. The worker pool expects a
	// PipelineTask but the queue itself never inspects it.
	Task interface{}
}

// PipelineTask is the payload carried by requests submitted through the
// service API: a list of catalog stage names plus the initial input.
type PipelineTask struct {
	Stages []string    `json:"stages"`
	Input  interface{} `json:"input"`
}
