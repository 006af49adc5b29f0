package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoNodeAvailable is returned by the router when no registered node has
// spare capacity. Callers are expected to keep the work queued rather than
// overload a saturated node.
var ErrNoNodeAvailable = errors.New("no node with spare capacity")

// QueueFullError is returned by the admission queue when depth has reached
// the configured maximum. Admission never blocks; callers retry or reject
// upstream.
type QueueFullError struct {
	Max int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("admission queue full (max %d)", e.Max)
}

// NodeTimeoutError reports a single stage exceeding its node timeout.
type NodeTimeoutError struct {
	NodeID  string
	Timeout time.Duration
}

func (e *NodeTimeoutError) Error() string {
	return fmt.Sprintf("node %s timed out after %s", e.NodeID, e.Timeout)
}

// PipelineTimeoutError reports the pipeline-level budget firing. It carries
// the ordered partial results captured before the timeout.
type PipelineTimeoutError struct {
	PipelineID string
	Partials   []PartialResult
}

func (e *PipelineTimeoutError) Error() string {
	return fmt.Sprintf("pipeline %s timed out (%d partial results)", e.PipelineID, len(e.Partials))
}

// CancelledError reports that the pipeline's cancellation token fired.
type CancelledError struct {
	PipelineID string
	Reason     string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("pipeline %s cancelled: %s", e.PipelineID, e.Reason)
}

// DuplicateRegistrationError reports an attempt to register a pipeline id
// that is still active in the cancellation registry.
type DuplicateRegistrationError struct {
	PipelineID string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("pipeline %s is already registered", e.PipelineID)
}
