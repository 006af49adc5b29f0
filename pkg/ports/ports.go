package ports

import (
	"context"
	"time"

	"github.com/aescanero/dapo/pkg/domain"
)

// EventHandler consumes one event from a topic subscription.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes pipeline lifecycle events to an external
// observability collaborator. Implementations: in-memory (tests, dev)
// and Redis Streams.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}

// RunStore persists pipeline run records for post-mortem reads.
// It stores execution audit state only, never pipeline definitions.
type RunStore interface {
	SaveRecord(ctx context.Context, rec *domain.RunRecord) error
	GetRecord(ctx context.Context, pipelineID string) (*domain.RunRecord, error)
	ListRecords(ctx context.Context) ([]string, error)
	DeleteRecord(ctx context.Context, pipelineID string) error
}

// MetricsCollector receives counters and histograms at every engine
// boundary. Implementations: Prometheus and a no-op for tests.
type MetricsCollector interface {
	RecordPipelineSubmitted(status string)
	RecordPipelineCompleted(status string, duration time.Duration)
	RecordStageExecuted(status string, duration time.Duration)
	RecordPipelineTimeout()
	RecordNodeTimeout(nodeID string)
	RecordCancellation(reason string)
	RecordNodeLeak(nodeID string)
	RecordQueueReject()
	SetQueueDepth(depth int)
	SetActivePipelines(count int)
	RecordBreakerTransition(name, from, to string)
	RecordWorkerPoolStatus(idle, busy, stopped int)
}
