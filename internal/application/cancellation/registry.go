package cancellation

import (
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/dapo/pkg/domain"
	"go.uber.org/zap"
)

// CleanupFunc releases resources held by a pipeline when its token fires.
type CleanupFunc func() error

// Registry owns the per-pipeline cancellation state: the one-shot token,
// cleanup handlers and the partial-result buffer. A single registry
// instance is injected wherever needed; all mutation is serialized behind
// one mutex.
type Registry struct {
	logger *zap.Logger

	mu        sync.Mutex
	pipelines map[string]*entry
}

type entry struct {
	token    *Token
	cleanups []CleanupFunc
	partials []domain.PartialResult

	cancelReason string
	cancelledAt  time.Time
	// cleanup handlers run exactly once, even if Cancel is called twice
	cleanupDone bool
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:    logger,
		pipelines: make(map[string]*entry),
	}
}

// Register creates the cancellation token for a pipeline run. It fails
// with DuplicateRegistrationError while the pipeline id is still active.
func (r *Registry) Register(pipelineID string) (*Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pipelines[pipelineID]; exists {
		return nil, &domain.DuplicateRegistrationError{PipelineID: pipelineID}
	}

	token := NewToken()
	r.pipelines[pipelineID] = &entry{token: token}
	return token, nil
}

// Unregister discards the token, cleanup handlers and partial results for
// a pipeline. It is idempotent.
func (r *Registry) Unregister(pipelineID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pipelines, pipelineID)
}

// RegisterCleanup appends a handler that runs when the pipeline is
// cancelled. If the pipeline was already cancelled the handler runs
// immediately, preserving the exactly-once guarantee.
func (r *Registry) RegisterCleanup(pipelineID string, fn CleanupFunc) error {
	r.mu.Lock()
	e, ok := r.pipelines[pipelineID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("pipeline not registered: %s", pipelineID)
	}
	if e.cleanupDone {
		r.mu.Unlock()
		r.runCleanup(pipelineID, 0, fn)
		return nil
	}
	e.cleanups = append(e.cleanups, fn)
	r.mu.Unlock()
	return nil
}

// RecordPartial appends one completed stage output to the pipeline's
// partial-result buffer.
func (r *Registry) RecordPartial(pipelineID, stage string, output interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.pipelines[pipelineID]
	if !ok {
		return fmt.Errorf("pipeline not registered: %s", pipelineID)
	}
	e.partials = append(e.partials, domain.PartialResult{Stage: stage, Output: output})
	return nil
}

// Partials returns a copy of the partial-result buffer. Results remain
// readable after the pipeline terminates, until Unregister is called.
func (r *Registry) Partials(pipelineID string) ([]domain.PartialResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.pipelines[pipelineID]
	if !ok {
		return nil, fmt.Errorf("pipeline not registered: %s", pipelineID)
	}
	out := make([]domain.PartialResult, len(e.partials))
	copy(out, e.partials)
	return out, nil
}

// Cancel fires the pipeline's token, waking any waiter inside the node
// executor, and runs cleanup handlers in registration order. A handler's
// own failure is logged and isolated; it never blocks the remaining
// handlers or masks the primary cancellation error.
func (r *Registry) Cancel(pipelineID, reason string) error {
	r.mu.Lock()
	e, ok := r.pipelines[pipelineID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("pipeline not registered: %s", pipelineID)
	}

	if !e.token.Cancel(reason) || e.cleanupDone {
		// Already cancelled; handlers ran on the first call.
		r.mu.Unlock()
		return nil
	}
	e.cleanupDone = true
	e.cancelReason = reason
	e.cancelledAt = time.Now()
	cleanups := e.cleanups
	r.mu.Unlock()

	r.logger.Info("pipeline cancelled",
		zap.String("pipeline_id", pipelineID),
		zap.String("reason", reason),
		zap.Int("cleanup_handlers", len(cleanups)))

	for i, fn := range cleanups {
		r.runCleanup(pipelineID, i, fn)
	}
	return nil
}

// CancelReason returns the audit reason and timestamp for a cancelled
// pipeline, or ok=false if the pipeline is unknown or not cancelled.
func (r *Registry) CancelReason(pipelineID string) (reason string, at time.Time, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.pipelines[pipelineID]
	if !exists || !e.token.Cancelled() {
		return "", time.Time{}, false
	}
	return e.cancelReason, e.cancelledAt, true
}

// Active reports whether a pipeline id is currently registered.
func (r *Registry) Active(pipelineID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pipelines[pipelineID]
	return ok
}

// ActiveCount returns the number of registered pipelines.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pipelines)
}

func (r *Registry) runCleanup(pipelineID string, index int, fn CleanupFunc) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("cleanup handler panicked",
				zap.String("pipeline_id", pipelineID),
				zap.Int("handler", index),
				zap.Any("panic", rec))
		}
	}()

	if err := fn(); err != nil {
		r.logger.Error("cleanup handler failed",
			zap.String("pipeline_id", pipelineID),
			zap.Int("handler", index),
			zap.Error(err))
	}
}
