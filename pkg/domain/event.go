package domain

import "time"

// EventType identifies a pipeline lifecycle transition.
type EventType string

const (
	EventTypePipelineSubmitted EventType = "pipeline.submitted"
	EventTypePipelineStarted   EventType = "pipeline.started"
	EventTypeStageCompleted    EventType = "stage.completed"
	EventTypePipelineCompleted EventType = "pipeline.completed"
	EventTypePipelineFailed    EventType = "pipeline.failed"
	EventTypePipelineTimedOut  EventType = "pipeline.timed_out"
	EventTypePipelineCancelled EventType = "pipeline.cancelled"
)

// Event is published on every pipeline boundary so an external
// observability collaborator can follow execution without polling.
type Event struct {
	ID         string                 `json:"id"`
	Type       EventType              `json:"type"`
	PipelineID string                 `json:"pipeline_id"`
	Stage      string                 `json:"stage,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Data       map[string]interface{} `json:"data,omitempty"`
}
