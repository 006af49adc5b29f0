package admission

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/aescanero/dapo/pkg/domain"
	"github.com/aescanero/dapo/pkg/ports"
	"go.uber.org/zap"
)

// maxFairnessDemotions bounds the number of head re-evaluations one Get
// call may perform. When every entry is simultaneously in cool-down the
// head is served anyway after the bound, guaranteeing liveness.
const maxFairnessDemotions = 3

// Entry wraps a request with its effective priority, which may be
// transiently demoted for fairness, and the enqueue timestamp used for
// tie-break ordering.
type Entry struct {
	Request    domain.Request
	Effective  domain.Priority
	EnqueuedAt time.Time

	seq   uint64
	index int
}

// Queue is the priority+fairness+backpressure gate in front of the
// engine. Put never blocks (fail-fast backpressure); Get suspends the
// caller while the queue is empty.
type Queue struct {
	logger  *zap.Logger
	metrics ports.MetricsCollector

	maxSize        int
	fairnessWindow time.Duration

	mu         sync.Mutex
	entries    entryHeap
	lastServed map[string]time.Time
	seq        uint64

	notify chan struct{}

	// now is replaceable in tests
	now func() time.Time
}

// NewQueue creates an admission queue with the given depth limit and
// fairness window.
func NewQueue(maxSize int, fairnessWindow time.Duration, metrics ports.MetricsCollector, logger *zap.Logger) *Queue {
	return &Queue{
		logger:         logger,
		metrics:        metrics,
		maxSize:        maxSize,
		fairnessWindow: fairnessWindow,
		lastServed:     make(map[string]time.Time),
		notify:         make(chan struct{}, 1),
		now:            time.Now,
	}
}

// Put admits a request at its declared priority. It fails with
// QueueFullError when depth has reached the maximum and never blocks, so
// callers can retry or reject upstream.
func (q *Queue) Put(req domain.Request) error {
	q.mu.Lock()

	if q.entries.Len() >= q.maxSize {
		q.mu.Unlock()
		q.metrics.RecordQueueReject()
		q.logger.Warn("admission rejected, queue full",
			zap.String("request_id", req.ID),
			zap.String("source", req.Source),
			zap.Int("max_size", q.maxSize))
		return &domain.QueueFullError{Max: q.maxSize}
	}

	q.seq++
	heap.Push(&q.entries, &Entry{
		Request:    req,
		Effective:  req.Priority,
		EnqueuedAt: q.now(),
		seq:        q.seq,
	})
	depth := q.entries.Len()
	q.mu.Unlock()

	q.metrics.SetQueueDepth(depth)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Get returns the highest-priority, earliest-enqueued entry. Before
// serving, it checks whether the head's source was served within the
// fairness window; if so the entry is demoted one level and the head is
// re-evaluated, at most maxFairnessDemotions times per call. When the
// queue is empty the caller is suspended until an entry arrives or ctx is
// done.
func (q *Queue) Get(ctx context.Context) (*Entry, error) {
	q.mu.Lock()
	rounds := 0
	for {
		if q.entries.Len() == 0 {
			q.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-q.notify:
			}
			q.mu.Lock()
			continue
		}

		head := q.entries[0]
		if q.shouldDemote(head) && rounds < maxFairnessDemotions {
			head.Effective = head.Effective.Demote()
			heap.Fix(&q.entries, 0)
			rounds++
			continue
		}

		e := heap.Pop(&q.entries).(*Entry)
		if q.fairnessWindow > 0 {
			q.lastServed[e.Request.Source] = q.now()
			q.pruneLastServed()
		}
		depth := q.entries.Len()
		q.mu.Unlock()

		// Pass the wakeup on: two Puts racing two parked consumers can
		// coalesce into the single notify slot.
		if depth > 0 {
			select {
			case q.notify <- struct{}{}:
			default:
			}
		}

		q.metrics.SetQueueDepth(depth)
		return e, nil
	}
}

// pruneLastServed drops fairness bookkeeping for sources whose cool-down
// has elapsed, so the map does not grow with tenant count forever.
// Callers hold q.mu.
func (q *Queue) pruneLastServed() {
	if q.fairnessWindow <= 0 {
		return
	}
	now := q.now()
	for source, served := range q.lastServed {
		if now.Sub(served) >= q.fairnessWindow {
			delete(q.lastServed, source)
		}
	}
}

// shouldDemote reports whether the entry's source is inside its fairness
// cool-down and the entry can still be demoted. Callers hold q.mu.
func (q *Queue) shouldDemote(e *Entry) bool {
	if q.fairnessWindow <= 0 || e.Effective <= domain.PriorityLow {
		return false
	}
	served, ok := q.lastServed[e.Request.Source]
	if !ok {
		return false
	}
	return q.now().Sub(served) < q.fairnessWindow
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.entries.Len()
}

// entryHeap orders entries by (effective priority desc, enqueue time asc,
// insertion sequence asc).
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].Effective != h[j].Effective {
		return h[i].Effective > h[j].Effective
	}
	if !h[i].EnqueuedAt.Equal(h[j].EnqueuedAt) {
		return h[i].EnqueuedAt.Before(h[j].EnqueuedAt)
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x interface{}) {
	e := x.(*Entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
