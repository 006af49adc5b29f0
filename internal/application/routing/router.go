package routing

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aescanero/dapo/pkg/domain"
	"go.uber.org/zap"
)

// Strategy selects between the pluggable node scoring policies.
type Strategy string

const (
	// StrategyLeastLoaded minimizes current_load / capacity.
	StrategyLeastLoaded Strategy = "least_loaded"
	// StrategyLowestLatency minimizes the latency moving average.
	StrategyLowestLatency Strategy = "lowest_latency"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyLeastLoaded, StrategyLowestLatency:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown routing strategy: %q", s)
	}
}

type node struct {
	id       string
	capacity int
	load     int

	avgLatencyMs float64
	errorRate    float64
	// observed distinguishes the first latency sample from later EMA folds
	observed bool
}

// Router maintains live node metrics and picks the best target per
// strategy. All registry reads and writes are serialized behind one
// mutex; selection cost is linear in registered-node count.
type Router struct {
	logger   *zap.Logger
	strategy Strategy
	// smoothing is the EMA weight given to each new observation
	smoothing float64

	mu    sync.RWMutex
	nodes map[string]*node
}

// NewRouter creates a router with the given strategy and EMA smoothing
// factor in (0, 1].
func NewRouter(strategy Strategy, smoothing float64, logger *zap.Logger) *Router {
	if smoothing <= 0 || smoothing > 1 {
		smoothing = 0.3
	}
	return &Router{
		logger:    logger,
		strategy:  strategy,
		smoothing: smoothing,
		nodes:     make(map[string]*node),
	}
}

// RegisterNode adds a routing target. Capacity is fixed at registration.
func (r *Router) RegisterNode(id string, capacity int) error {
	if capacity < 1 {
		return fmt.Errorf("node %s: capacity must be at least 1", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[id]; exists {
		return fmt.Errorf("node already registered: %s", id)
	}
	r.nodes[id] = &node{id: id, capacity: capacity}
	r.logger.Info("node registered", zap.String("node_id", id), zap.Int("capacity", capacity))
	return nil
}

// DeregisterNode removes a routing target. Unknown ids are ignored.
func (r *Router) DeregisterNode(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
}

// SelectNode applies the configured strategy over a consistent snapshot
// and reserves one unit of load on the winner. Ties break toward the
// smaller node id. It returns ErrNoNodeAvailable when no node has spare
// capacity, signaling the caller to keep the work queued.
func (r *Router) SelectNode() (domain.NodeSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *node
	var bestScore float64
	for _, n := range r.nodes {
		if n.load >= n.capacity {
			continue
		}
		score := r.score(n)
		if best == nil || score < bestScore || (score == bestScore && n.id < best.id) {
			best = n
			bestScore = score
		}
	}
	if best == nil {
		return domain.NodeSnapshot{}, domain.ErrNoNodeAvailable
	}

	best.load++
	return snapshotOf(best), nil
}

func (r *Router) score(n *node) float64 {
	switch r.strategy {
	case StrategyLowestLatency:
		return n.avgLatencyMs
	default:
		return float64(n.load) / float64(n.capacity)
	}
}

// UpdateNodeMetrics releases the load unit reserved by SelectNode and
// folds the observation into the latency and error-rate moving averages.
func (r *Router) UpdateNodeMetrics(id string, success bool, latency time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("node not registered: %s", id)
	}

	if n.load > 0 {
		n.load--
	}

	failure := 0.0
	if !success {
		failure = 1.0
	}
	latMs := float64(latency.Milliseconds())

	if !n.observed {
		n.avgLatencyMs = latMs
		n.errorRate = failure
		n.observed = true
	} else {
		n.avgLatencyMs = r.smoothing*latMs + (1-r.smoothing)*n.avgLatencyMs
		n.errorRate = r.smoothing*failure + (1-r.smoothing)*n.errorRate
	}
	return nil
}

// Snapshot returns a copy of every registered node, sorted by id.
func (r *Router) Snapshot() []domain.NodeSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.NodeSnapshot, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, snapshotOf(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func snapshotOf(n *node) domain.NodeSnapshot {
	return domain.NodeSnapshot{
		ID:           n.id,
		Capacity:     n.capacity,
		Load:         n.load,
		AvgLatencyMs: n.avgLatencyMs,
		ErrorRate:    n.errorRate,
	}
}
