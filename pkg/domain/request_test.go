package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityDemote(t *testing.T) {
	assert.Equal(t, PriorityNormal, PriorityHigh.Demote())
	assert.Equal(t, PriorityLow, PriorityNormal.Demote())
	assert.Equal(t, PriorityLow, PriorityLow.Demote())
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("high")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	p, err = ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityNormal, p)

	_, err = ParsePriority("urgent")
	assert.Error(t, err)
}

func TestExecutionStatusTerminal(t *testing.T) {
	assert.False(t, ExecutionStatusPending.Terminal())
	assert.False(t, ExecutionStatusRunning.Terminal())
	assert.True(t, ExecutionStatusSucceeded.Terminal())
	assert.True(t, ExecutionStatusFailed.Terminal())
	assert.True(t, ExecutionStatusTimedOut.Terminal())
	assert.True(t, ExecutionStatusCancelled.Terminal())
}

func TestErrorTypesUnwrapWithErrorsAs(t *testing.T) {
	var full *QueueFullError
	assert.True(t, errors.As(error(&QueueFullError{Max: 8}), &full))
	assert.Contains(t, full.Error(), "8")

	var nodeTimeout *NodeTimeoutError
	assert.True(t, errors.As(error(&NodeTimeoutError{NodeID: "parse"}), &nodeTimeout))
	assert.Contains(t, nodeTimeout.Error(), "parse")

	var pipelineTimeout *PipelineTimeoutError
	err := error(&PipelineTimeoutError{PipelineID: "p1", Partials: []PartialResult{{Stage: "s"}}})
	assert.True(t, errors.As(err, &pipelineTimeout))
	assert.Contains(t, pipelineTimeout.Error(), "1 partial")

	var cancelled *CancelledError
	assert.True(t, errors.As(error(&CancelledError{PipelineID: "p1", Reason: "operator"}), &cancelled))
	assert.Contains(t, cancelled.Error(), "operator")
}

func TestNodeSnapshotHelpers(t *testing.T) {
	n := NodeSnapshot{ID: "a", Capacity: 4, Load: 3}
	assert.True(t, n.HasCapacity())
	assert.InDelta(t, 0.75, n.Utilization(), 0.001)

	n.Load = 4
	assert.False(t, n.HasCapacity())
}
