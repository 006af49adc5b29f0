package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/dapo/internal/application/admission"
	"github.com/aescanero/dapo/internal/application/orchestrator"
	"github.com/aescanero/dapo/internal/application/routing"
	"github.com/aescanero/dapo/pkg/domain"
	"github.com/aescanero/dapo/pkg/ports"
	"go.uber.org/zap"
)

// nodeRetryDelay is how long a worker waits before re-asking the router
// when every node is saturated.
const nodeRetryDelay = 100 * time.Millisecond

// Pool manages the worker goroutines that drain the admission queue.
// Each worker pulls one entry, asks the router for a node, runs the
// pipeline through the engine and feeds the observation back into the
// router.
type Pool struct {
	size    int
	queue   *admission.Queue
	router  *routing.Router
	engine  *orchestrator.Engine
	catalog *orchestrator.Catalog
	runs    ports.RunStore
	metrics ports.MetricsCollector
	logger  *zap.Logger
	health  *HealthMonitor

	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool
func NewPool(
	size int,
	queue *admission.Queue,
	router *routing.Router,
	engine *orchestrator.Engine,
	catalog *orchestrator.Catalog,
	runs ports.RunStore,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	healthCheckInterval time.Duration,
) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		size:    size,
		queue:   queue,
		router:  router,
		engine:  engine,
		catalog: catalog,
		runs:    runs,
		metrics: metrics,
		logger:  logger,
		workers: make([]*worker, size),
		ctx:     ctx,
		cancel:  cancel,
	}

	pool.health = NewHealthMonitor(pool, healthCheckInterval, logger)

	return pool
}

// Start starts the worker pool
func (p *Pool) Start() error {
	p.logger.Info("starting worker pool", zap.Int("size", p.size))

	for i := 0; i < p.size; i++ {
		w := &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(p.ctx)
	}

	p.health.Start()

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// Shutdown gracefully shuts down the worker pool
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	p.health.Stop()

	// Cancel context to signal workers to stop
	p.cancel()

	// Wait for all workers to finish with timeout
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// Healthy reports whether the pool has no stopped workers.
func (p *Pool) Healthy() bool {
	return p.health.IsHealthy()
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus)
	for _, w := range p.workers {
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// run is the main worker loop: admission queue → router → engine.
func (w *worker) run(ctx context.Context) {
	defer w.pool.wg.Done()

	w.pool.logger.Info("worker started", zap.String("worker_id", w.id))

	for {
		entry, err := w.pool.queue.Get(ctx)
		if err != nil {
			// Context cancelled: pool is shutting down.
			break
		}
		w.execute(ctx, entry)
	}

	w.mu.Lock()
	w.status = WorkerStatusStopped
	w.mu.Unlock()
	w.pool.logger.Info("worker stopped", zap.String("worker_id", w.id))
}

// execute runs one admitted pipeline end to end.
func (w *worker) execute(ctx context.Context, entry *admission.Entry) {
	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.lastJob = time.Now()
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.status = WorkerStatusIdle
		w.mu.Unlock()
	}()

	req := entry.Request
	task, ok := req.Task.(domain.PipelineTask)
	if !ok {
		w.pool.logger.Error("invalid task payload",
			zap.String("worker_id", w.id),
			zap.String("pipeline_id", req.ID))
		return
	}

	stages, err := w.pool.catalog.Resolve(task.Stages)
	if err != nil {
		w.pool.logger.Error("failed to resolve stages",
			zap.String("worker_id", w.id),
			zap.String("pipeline_id", req.ID),
			zap.Error(err))
		w.record(ctx, req, nil, time.Now(), err)
		return
	}

	node, err := w.acquireNode(ctx)
	if err != nil {
		return
	}

	w.pool.logger.Info("executing pipeline",
		zap.String("worker_id", w.id),
		zap.String("pipeline_id", req.ID),
		zap.String("node_id", node.ID),
		zap.Int("stages", len(stages)))

	startTime := time.Now()
	w.markRunning(ctx, req, startTime)

	result, execErr := w.pool.engine.ExecutePipeline(ctx, req.ID, stages, task.Input, 0)

	duration := time.Since(startTime)
	if uerr := w.pool.router.UpdateNodeMetrics(node.ID, execErr == nil, duration); uerr != nil {
		w.pool.logger.Warn("failed to update node metrics",
			zap.String("node_id", node.ID),
			zap.Error(uerr))
	}

	w.record(ctx, req, result, startTime, execErr)

	w.pool.logger.Info("pipeline execution finished",
		zap.String("worker_id", w.id),
		zap.String("pipeline_id", req.ID),
		zap.String("node_id", node.ID),
		zap.String("status", string(result.Status)),
		zap.Duration("duration", duration))
}

// acquireNode asks the router for a node with spare capacity, backing off
// while every node is saturated.
func (w *worker) acquireNode(ctx context.Context) (domain.NodeSnapshot, error) {
	for {
		node, err := w.pool.router.SelectNode()
		if err == nil {
			return node, nil
		}

		select {
		case <-ctx.Done():
			return domain.NodeSnapshot{}, ctx.Err()
		case <-time.After(nodeRetryDelay):
		}
	}
}

// markRunning updates the run record when execution begins.
func (w *worker) markRunning(ctx context.Context, req domain.Request, startedAt time.Time) {
	record := &domain.RunRecord{
		PipelineID:  req.ID,
		Source:      req.Source,
		Status:      domain.ExecutionStatusRunning,
		SubmittedAt: req.SubmittedAt,
		StartedAt:   &startedAt,
	}
	if task, ok := req.Task.(domain.PipelineTask); ok {
		record.Stages = task.Stages
	}
	if err := w.pool.runs.SaveRecord(ctx, record); err != nil {
		w.pool.logger.Error("failed to save running record",
			zap.String("pipeline_id", req.ID),
			zap.Error(err))
	}
}

// record persists the terminal run record with the partial results the
// engine captured.
func (w *worker) record(ctx context.Context, req domain.Request, result *orchestrator.Result, startedAt time.Time, execErr error) {
	completedAt := time.Now()
	record := &domain.RunRecord{
		PipelineID:  req.ID,
		Source:      req.Source,
		SubmittedAt: req.SubmittedAt,
		StartedAt:   &startedAt,
		CompletedAt: &completedAt,
	}
	if task, ok := req.Task.(domain.PipelineTask); ok {
		record.Stages = task.Stages
	}

	if result != nil {
		record.Status = result.Status
		record.Output = result.Output
		record.Partials = result.Partials
	} else {
		record.Status = domain.ExecutionStatusFailed
	}
	if execErr != nil {
		record.Error = execErr.Error()
	}

	if err := w.pool.runs.SaveRecord(ctx, record); err != nil {
		w.pool.logger.Error("failed to save terminal record",
			zap.String("pipeline_id", req.ID),
			zap.Error(err))
	}
}
