package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/dapo/internal/application/admission"
	"github.com/aescanero/dapo/internal/application/cancellation"
	"github.com/aescanero/dapo/pkg/domain"
	"github.com/aescanero/dapo/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager is the service-facing coordinator: it validates and admits
// pipeline submissions, answers status queries and forwards operator
// cancellations to the registry. Execution itself happens in the worker
// pool, which drains the admission queue.
type Manager struct {
	queue     *admission.Queue
	registry  *cancellation.Registry
	catalog   *Catalog
	validator *Validator
	runs      ports.RunStore
	events    ports.EventBus
	metrics   ports.MetricsCollector
	logger    *zap.Logger
}

// SubmitRequest is one pipeline submission from an external collaborator.
type SubmitRequest struct {
	Stages   []string
	Input    interface{}
	Source   string
	Priority domain.Priority
}

// NewManager creates a manager wired to the given core components.
func NewManager(
	queue *admission.Queue,
	registry *cancellation.Registry,
	catalog *Catalog,
	validator *Validator,
	runs ports.RunStore,
	events ports.EventBus,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		queue:     queue,
		registry:  registry,
		catalog:   catalog,
		validator: validator,
		runs:      runs,
		events:    events,
		metrics:   metrics,
		logger:    logger,
	}
}

// Submit validates a submission and admits it to the queue. It returns
// the generated pipeline id, or QueueFullError when admission is
// rejected by backpressure.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if err := m.validator.Validate(req, m.catalog); err != nil {
		m.logger.Error("submission validation failed",
			zap.String("source", req.Source),
			zap.Error(err))
		m.metrics.RecordPipelineSubmitted("invalid")
		return "", fmt.Errorf("validation failed: %w", err)
	}

	pipelineID := uuid.New().String()
	now := time.Now()

	request := domain.Request{
		ID:          pipelineID,
		Source:      req.Source,
		Priority:    req.Priority,
		SubmittedAt: now,
		Task:        domain.PipelineTask{Stages: req.Stages, Input: req.Input},
	}

	if err := m.queue.Put(request); err != nil {
		m.metrics.RecordPipelineSubmitted("rejected")
		return "", err
	}

	record := &domain.RunRecord{
		PipelineID:  pipelineID,
		Source:      req.Source,
		Stages:      req.Stages,
		Status:      domain.ExecutionStatusPending,
		SubmittedAt: now,
	}
	if err := m.runs.SaveRecord(ctx, record); err != nil {
		m.logger.Error("failed to save initial run record",
			zap.String("pipeline_id", pipelineID),
			zap.Error(err))
	}

	event := domain.Event{
		ID:         uuid.New().String(),
		Type:       domain.EventTypePipelineSubmitted,
		PipelineID: pipelineID,
		Timestamp:  now,
		Data: map[string]interface{}{
			"source":   req.Source,
			"priority": req.Priority.String(),
			"stages":   req.Stages,
		},
	}
	if err := m.events.Publish(ctx, topicPipelineEvents, event); err != nil {
		m.logger.Error("failed to publish submitted event",
			zap.String("pipeline_id", pipelineID),
			zap.Error(err))
	}

	m.metrics.RecordPipelineSubmitted("accepted")
	m.logger.Info("pipeline submitted",
		zap.String("pipeline_id", pipelineID),
		zap.String("source", req.Source),
		zap.String("priority", req.Priority.String()),
		zap.Strings("stages", req.Stages))
	return pipelineID, nil
}

// Status returns the run record for a pipeline. For active runs the
// partial results are read live from the cancellation registry.
func (m *Manager) Status(ctx context.Context, pipelineID string) (*domain.RunRecord, error) {
	record, err := m.runs.GetRecord(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run record: %w", err)
	}

	if !record.Status.Terminal() {
		if partials, perr := m.registry.Partials(pipelineID); perr == nil {
			record.Partials = partials
		}
	}
	return record, nil
}

// Partials returns the completed stage outputs for a pipeline, live from
// the registry while the run is active and from the run store afterwards.
func (m *Manager) Partials(ctx context.Context, pipelineID string) ([]domain.PartialResult, error) {
	if m.registry.Active(pipelineID) {
		return m.registry.Partials(pipelineID)
	}
	record, err := m.runs.GetRecord(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run record: %w", err)
	}
	return record.Partials, nil
}

// Cancel aborts a running pipeline on demand, recording the operator's
// reason for audit.
func (m *Manager) Cancel(ctx context.Context, pipelineID, reason string) error {
	if reason == "" {
		reason = "operator request"
	}
	if err := m.registry.Cancel(pipelineID, reason); err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}
	m.logger.Info("pipeline cancel requested",
		zap.String("pipeline_id", pipelineID),
		zap.String("reason", reason))
	return nil
}

// List returns the ids of every recorded run.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.runs.ListRecords(ctx)
}
