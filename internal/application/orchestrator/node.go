package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/dapo/internal/application/cancellation"
	"github.com/aescanero/dapo/pkg/domain"
	"go.uber.org/zap"
)

type nodeOutcome struct {
	output interface{}
	err    error
}

// executeNode runs one stage as an independently schedulable unit and
// waits for whichever occurs first: completion, the node timeout, the
// pipeline's cancellation token or the caller's context.
//
// On timeout the stage context is cancelled and the unit is given
// cleanupGrace to stop; a unit that keeps running past the grace period is
// reported as a leak rather than silently ignored. A cancellation signal
// fails the node immediately, without waiting for the unit to finish; the
// unit is still watched in the background under the same grace period.
func (e *Engine) executeNode(
	ctx context.Context,
	pipelineID string,
	stage domain.Stage,
	input interface{},
	timeout time.Duration,
	token *cancellation.Token,
) (interface{}, error) {
	stageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan nodeOutcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- nodeOutcome{err: fmt.Errorf("stage %s panicked: %v", stage.Name, rec)}
			}
		}()
		out, err := stage.Fn(stageCtx, input)
		done <- nodeOutcome{output: out, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case outcome := <-done:
		duration := time.Since(start)
		if outcome.err != nil {
			e.metrics.RecordStageExecuted("failed", duration)
			return nil, fmt.Errorf("stage %s: %w", stage.Name, outcome.err)
		}
		e.metrics.RecordStageExecuted("succeeded", duration)
		return outcome.output, nil

	case <-timer.C:
		cancel()
		e.metrics.RecordNodeTimeout(stage.Name)
		e.reapNode(pipelineID, stage.Name, done)
		return nil, &domain.NodeTimeoutError{NodeID: stage.Name, Timeout: timeout}

	case <-token.Done():
		cancel()
		e.metrics.RecordStageExecuted("cancelled", time.Since(start))
		go e.reapNode(pipelineID, stage.Name, done)
		return nil, &domain.CancelledError{PipelineID: pipelineID, Reason: token.Reason()}

	case <-ctx.Done():
		cancel()
		go e.reapNode(pipelineID, stage.Name, done)
		return nil, ctx.Err()
	}
}

// reapNode waits up to the cleanup grace period for a timed-out unit to
// observe its cancelled context. Units still running afterwards are
// reported as resource leaks.
func (e *Engine) reapNode(pipelineID, stageName string, done <-chan nodeOutcome) {
	grace := time.NewTimer(e.cleanupGrace)
	defer grace.Stop()

	select {
	case <-done:
		e.logger.Debug("timed-out stage stopped within grace",
			zap.String("pipeline_id", pipelineID),
			zap.String("stage", stageName))
	case <-grace.C:
		e.metrics.RecordNodeLeak(stageName)
		e.logger.Error("stage did not stop within cleanup grace, goroutine leaked",
			zap.String("pipeline_id", pipelineID),
			zap.String("stage", stageName),
			zap.Duration("cleanup_grace", e.cleanupGrace))
	}
}
