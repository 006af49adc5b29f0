package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/aescanero/dapo/internal/application/admission"
	"github.com/aescanero/dapo/internal/application/cancellation"
	"github.com/aescanero/dapo/pkg/adapters/events/memory"
	"github.com/aescanero/dapo/pkg/adapters/metrics/noop"
	runsmemory "github.com/aescanero/dapo/pkg/adapters/runstore/memory"
	"github.com/aescanero/dapo/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T, queueSize int) (*Manager, *admission.Queue, *cancellation.Registry, *runsmemory.InMemoryRunStore) {
	t.Helper()

	catalog := NewCatalog()
	require.NoError(t, catalog.Register("fetch", noopStage))
	require.NoError(t, catalog.Register("parse", noopStage))

	queue := admission.NewQueue(queueSize, 0, noop.NewCollector(), zap.NewNop())
	registry := cancellation.NewRegistry(zap.NewNop())
	runs := runsmemory.NewInMemoryRunStore()

	m := NewManager(
		queue,
		registry,
		catalog,
		NewValidator(),
		runs,
		memory.NewInMemoryEventBus(),
		noop.NewCollector(),
		zap.NewNop(),
	)
	return m, queue, registry, runs
}

func TestManagerSubmitEnqueuesAndRecords(t *testing.T) {
	m, queue, _, runs := newTestManager(t, 10)
	ctx := context.Background()

	id, err := m.Submit(ctx, SubmitRequest{
		Stages:   []string{"fetch", "parse"},
		Input:    "payload",
		Source:   "api",
		Priority: domain.PriorityHigh,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	assert.Equal(t, 1, queue.Len())

	e, err := queue.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, e.Request.ID)
	assert.Equal(t, domain.PriorityHigh, e.Request.Priority)
	task, ok := e.Request.Task.(domain.PipelineTask)
	require.True(t, ok)
	assert.Equal(t, []string{"fetch", "parse"}, task.Stages)
	assert.Equal(t, "payload", task.Input)

	rec, err := runs.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusPending, rec.Status)
	assert.Equal(t, "api", rec.Source)
}

func TestManagerSubmitRejectsInvalid(t *testing.T) {
	m, queue, _, _ := newTestManager(t, 10)

	_, err := m.Submit(context.Background(), SubmitRequest{
		Stages: []string{"ghost"},
		Source: "api",
	})
	require.Error(t, err)
	assert.Equal(t, 0, queue.Len())
}

func TestManagerSubmitSurfacesBackpressure(t *testing.T) {
	m, _, _, _ := newTestManager(t, 1)
	ctx := context.Background()

	_, err := m.Submit(ctx, SubmitRequest{Stages: []string{"fetch"}, Source: "api"})
	require.NoError(t, err)

	_, err = m.Submit(ctx, SubmitRequest{Stages: []string{"fetch"}, Source: "api"})
	var full *domain.QueueFullError
	assert.ErrorAs(t, err, &full)
}

func TestManagerPartialsLiveThenStored(t *testing.T) {
	m, _, registry, runs := newTestManager(t, 10)
	ctx := context.Background()

	_, err := registry.Register("p1")
	require.NoError(t, err)
	require.NoError(t, registry.RecordPartial("p1", "fetch", "raw"))

	// While active, partials come from the registry.
	partials, err := m.Partials(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, partials, 1)
	assert.Equal(t, "fetch", partials[0].Stage)

	// After the run terminates, the stored record serves the read.
	registry.Unregister("p1")
	require.NoError(t, runs.SaveRecord(ctx, &domain.RunRecord{
		PipelineID: "p1",
		Status:     domain.ExecutionStatusTimedOut,
		Partials:   []domain.PartialResult{{Stage: "fetch", Output: "raw"}},
	}))

	partials, err = m.Partials(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, partials, 1)
	assert.Equal(t, "raw", partials[0].Output)
}

func TestManagerCancelDefaultsReason(t *testing.T) {
	m, _, registry, _ := newTestManager(t, 10)

	token, err := registry.Register("p1")
	require.NoError(t, err)

	require.NoError(t, m.Cancel(context.Background(), "p1", ""))
	assert.True(t, token.Cancelled())
	assert.Equal(t, "operator request", token.Reason())
}

func TestManagerCancelUnknownPipeline(t *testing.T) {
	m, _, _, _ := newTestManager(t, 10)
	assert.Error(t, m.Cancel(context.Background(), "ghost", "because"))
}

func TestManagerStatusMergesLivePartials(t *testing.T) {
	m, _, registry, runs := newTestManager(t, 10)
	ctx := context.Background()

	require.NoError(t, runs.SaveRecord(ctx, &domain.RunRecord{
		PipelineID:  "p1",
		Status:      domain.ExecutionStatusRunning,
		SubmittedAt: time.Now(),
	}))
	_, err := registry.Register("p1")
	require.NoError(t, err)
	require.NoError(t, registry.RecordPartial("p1", "fetch", "raw"))

	rec, err := m.Status(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rec.Partials, 1)
	assert.Equal(t, "fetch", rec.Partials[0].Stage)
}
