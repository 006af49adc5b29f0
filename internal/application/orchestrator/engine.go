package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/aescanero/dapo/internal/application/cancellation"
	"github.com/aescanero/dapo/pkg/domain"
	"github.com/aescanero/dapo/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReasonPipelineTimeout is the cancellation reason recorded when the
// pipeline-level budget fires.
const ReasonPipelineTimeout = "pipeline timeout"

const topicPipelineEvents = "pipeline.events"

// Result is the tagged outcome of one pipeline run. Partials is populated
// on every exit path so completed stage outputs are never lost.
type Result struct {
	PipelineID string
	Status     domain.ExecutionStatus
	Output     interface{}
	Partials   []domain.PartialResult
}

// Engine executes linear stage chains. It owns timeout and cancellation
// semantics and nothing else: no retries, no routing, no admission. Any
// stage failure fails the whole pipeline; resilience is composed around
// individual stage functions before they reach the engine.
type Engine struct {
	registry *cancellation.Registry
	events   ports.EventBus
	metrics  ports.MetricsCollector
	logger   *zap.Logger

	nodeTimeout     time.Duration
	pipelineTimeout time.Duration
	cleanupGrace    time.Duration
}

// NewEngine creates an engine with default timeouts. Per-run overrides go
// through ExecutePipeline's pipelineTimeout argument.
func NewEngine(
	registry *cancellation.Registry,
	events ports.EventBus,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	nodeTimeout, pipelineTimeout, cleanupGrace time.Duration,
) *Engine {
	return &Engine{
		registry:        registry,
		events:          events,
		metrics:         metrics,
		logger:          logger,
		nodeTimeout:     nodeTimeout,
		pipelineTimeout: pipelineTimeout,
		cleanupGrace:    cleanupGrace,
	}
}

// ExecutePipeline runs an ordered chain of stages under one total timeout.
// Stage i's output is stage i+1's input; each completed output is recorded
// in the partial-result buffer immediately. A pipelineTimeout of zero uses
// the engine default.
//
// The pipeline id is registered with the cancellation registry for the
// duration of the run and unregistered on every exit path. On timeout the
// run fails with PipelineTimeoutError carrying the partials captured so
// far; on cancellation with CancelledError. The returned Result is non-nil
// on every path.
func (e *Engine) ExecutePipeline(
	ctx context.Context,
	pipelineID string,
	stages []domain.Stage,
	input interface{},
	pipelineTimeout time.Duration,
) (*Result, error) {
	if pipelineTimeout <= 0 {
		pipelineTimeout = e.pipelineTimeout
	}

	token, err := e.registry.Register(pipelineID)
	if err != nil {
		return &Result{PipelineID: pipelineID, Status: domain.ExecutionStatusFailed}, err
	}
	defer e.registry.Unregister(pipelineID)

	// The pipeline budget dominates: when it fires, the token propagates
	// into whatever node is currently running.
	budget := time.AfterFunc(pipelineTimeout, func() {
		if err := e.registry.Cancel(pipelineID, ReasonPipelineTimeout); err != nil {
			e.logger.Debug("timeout cancel skipped", zap.String("pipeline_id", pipelineID), zap.Error(err))
		}
	})
	defer budget.Stop()

	start := time.Now()
	e.publish(ctx, domain.EventTypePipelineStarted, pipelineID, "", nil)
	e.logger.Info("pipeline started",
		zap.String("pipeline_id", pipelineID),
		zap.Int("stages", len(stages)),
		zap.Duration("pipeline_timeout", pipelineTimeout))

	partials := make([]domain.PartialResult, 0, len(stages))
	current := input

	for _, stage := range stages {
		out, nodeErr := e.executeNode(ctx, pipelineID, stage, current, e.nodeTimeout, token)
		if nodeErr != nil {
			res := &Result{PipelineID: pipelineID, Partials: partials}
			return e.finish(ctx, res, nodeErr, start)
		}

		if recErr := e.registry.RecordPartial(pipelineID, stage.Name, out); recErr != nil {
			e.logger.Warn("failed to record partial result",
				zap.String("pipeline_id", pipelineID),
				zap.String("stage", stage.Name),
				zap.Error(recErr))
		}
		partials = append(partials, domain.PartialResult{Stage: stage.Name, Output: out})
		e.publish(ctx, domain.EventTypeStageCompleted, pipelineID, stage.Name, nil)
		current = out
	}

	res := &Result{
		PipelineID: pipelineID,
		Status:     domain.ExecutionStatusSucceeded,
		Output:     current,
		Partials:   partials,
	}
	duration := time.Since(start)
	e.metrics.RecordPipelineCompleted(string(res.Status), duration)
	e.publish(ctx, domain.EventTypePipelineCompleted, pipelineID, "", nil)
	e.logger.Info("pipeline completed",
		zap.String("pipeline_id", pipelineID),
		zap.Duration("duration", duration))
	return res, nil
}

// finish classifies a node failure into the pipeline-level taxonomy,
// records metrics and publishes the terminal event.
func (e *Engine) finish(ctx context.Context, res *Result, nodeErr error, start time.Time) (*Result, error) {
	var (
		cancelled *domain.CancelledError
		finalErr  = nodeErr
		eventType domain.EventType
	)

	switch {
	case errors.As(nodeErr, &cancelled) && cancelled.Reason == ReasonPipelineTimeout:
		res.Status = domain.ExecutionStatusTimedOut
		finalErr = &domain.PipelineTimeoutError{PipelineID: res.PipelineID, Partials: res.Partials}
		eventType = domain.EventTypePipelineTimedOut
		e.metrics.RecordPipelineTimeout()
	case errors.As(nodeErr, &cancelled):
		res.Status = domain.ExecutionStatusCancelled
		eventType = domain.EventTypePipelineCancelled
		e.metrics.RecordCancellation(cancelled.Reason)
	default:
		res.Status = domain.ExecutionStatusFailed
		eventType = domain.EventTypePipelineFailed
	}

	e.metrics.RecordPipelineCompleted(string(res.Status), time.Since(start))
	e.publish(ctx, eventType, res.PipelineID, "", map[string]interface{}{
		"error": finalErr.Error(),
	})
	e.logger.Warn("pipeline terminated",
		zap.String("pipeline_id", res.PipelineID),
		zap.String("status", string(res.Status)),
		zap.Error(finalErr))
	return res, finalErr
}

func (e *Engine) publish(ctx context.Context, eventType domain.EventType, pipelineID, stage string, data map[string]interface{}) {
	event := domain.Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		PipelineID: pipelineID,
		Stage:      stage,
		Timestamp:  time.Now(),
		Data:       data,
	}
	if err := e.events.Publish(ctx, topicPipelineEvents, event); err != nil {
		e.logger.Error("failed to publish event",
			zap.String("event_type", string(eventType)),
			zap.String("pipeline_id", pipelineID),
			zap.Error(err))
	}
}
