package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsCollector using Prometheus
type Collector struct {
	pipelinesSubmitted *prometheus.CounterVec
	pipelinesCompleted *prometheus.CounterVec
	pipelineDuration   *prometheus.HistogramVec
	pipelineTimeouts   prometheus.Counter

	stagesExecuted *prometheus.CounterVec
	stageDuration  prometheus.Histogram
	nodeTimeouts   *prometheus.CounterVec
	nodeLeaks      *prometheus.CounterVec

	cancellations *prometheus.CounterVec

	queueDepth   prometheus.Gauge
	queueRejects prometheus.Counter

	activePipelines prometheus.Gauge

	breakerTransitions *prometheus.CounterVec

	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	return &Collector{
		pipelinesSubmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dapo_pipelines_submitted_total",
				Help: "Total number of pipelines submitted",
			},
			[]string{"status"},
		),
		pipelinesCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dapo_pipelines_completed_total",
				Help: "Total number of pipelines reaching a terminal state",
			},
			[]string{"status"},
		),
		pipelineDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dapo_pipeline_duration_seconds",
				Help:    "Pipeline execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		pipelineTimeouts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dapo_pipeline_timeouts_total",
				Help: "Total number of pipeline-level timeout firings",
			},
		),
		stagesExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dapo_stages_executed_total",
				Help: "Total number of stage executions",
			},
			[]string{"status"},
		),
		stageDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dapo_stage_duration_seconds",
				Help:    "Stage execution duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		nodeTimeouts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dapo_node_timeouts_total",
				Help: "Total number of node-level timeout firings",
			},
			[]string{"node_id"},
		),
		nodeLeaks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dapo_node_leaks_total",
				Help: "Total number of stages that ignored cancellation past the cleanup grace",
			},
			[]string{"node_id"},
		),
		cancellations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dapo_cancellations_total",
				Help: "Total number of pipeline cancellations",
			},
			[]string{"reason"},
		),
		queueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dapo_queue_depth",
				Help: "Current depth of the admission queue",
			},
		),
		queueRejects: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dapo_queue_rejects_total",
				Help: "Total number of admissions rejected by backpressure",
			},
		),
		activePipelines: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dapo_active_pipelines",
				Help: "Number of currently registered pipeline runs",
			},
		),
		breakerTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dapo_breaker_transitions_total",
				Help: "Total number of circuit breaker state transitions",
			},
			[]string{"breaker", "from", "to"},
		),
		workerPoolIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dapo_worker_pool_idle",
				Help: "Number of idle workers",
			},
		),
		workerPoolBusy: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dapo_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolStopped: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dapo_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
		),
	}
}

// RecordPipelineSubmitted increments the count of submitted pipelines
func (c *Collector) RecordPipelineSubmitted(status string) {
	c.pipelinesSubmitted.WithLabelValues(status).Inc()
}

// RecordPipelineCompleted records a terminal pipeline outcome
func (c *Collector) RecordPipelineCompleted(status string, duration time.Duration) {
	c.pipelinesCompleted.WithLabelValues(status).Inc()
	c.pipelineDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordStageExecuted records a stage execution
func (c *Collector) RecordStageExecuted(status string, duration time.Duration) {
	c.stagesExecuted.WithLabelValues(status).Inc()
	c.stageDuration.Observe(duration.Seconds())
}

// RecordPipelineTimeout increments the pipeline timeout counter
func (c *Collector) RecordPipelineTimeout() {
	c.pipelineTimeouts.Inc()
}

// RecordNodeTimeout increments the node timeout counter
func (c *Collector) RecordNodeTimeout(nodeID string) {
	c.nodeTimeouts.WithLabelValues(nodeID).Inc()
}

// RecordCancellation increments the cancellation counter
func (c *Collector) RecordCancellation(reason string) {
	c.cancellations.WithLabelValues(reason).Inc()
}

// RecordNodeLeak increments the leaked-node counter
func (c *Collector) RecordNodeLeak(nodeID string) {
	c.nodeLeaks.WithLabelValues(nodeID).Inc()
}

// RecordQueueReject increments the backpressure rejection counter
func (c *Collector) RecordQueueReject() {
	c.queueRejects.Inc()
}

// SetQueueDepth sets the current admission queue depth
func (c *Collector) SetQueueDepth(depth int) {
	c.queueDepth.Set(float64(depth))
}

// SetActivePipelines sets the number of registered pipeline runs
func (c *Collector) SetActivePipelines(count int) {
	c.activePipelines.Set(float64(count))
}

// RecordBreakerTransition records a circuit breaker state transition
func (c *Collector) RecordBreakerTransition(name, from, to string) {
	c.breakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}
