package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aescanero/dapo/pkg/domain"
	"github.com/aescanero/dapo/pkg/ports"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while the breaker rejects calls without
// invoking the guarded dependency.
var ErrCircuitOpen = errors.New("circuit breaker open")

// State is the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig parametrizes a circuit breaker.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// CircuitBreaker guards one dependency. CLOSED passes calls through and
// counts consecutive failures; crossing the threshold opens the circuit,
// which fails fast until the recovery timeout admits a single trial call.
// The trial's success closes the circuit with a zeroed counter; its
// failure reopens it and restarts the timer.
//
// Transitions only ever follow CLOSED→OPEN→HALF_OPEN→{CLOSED|OPEN}.
// Breakers are dependency-scoped, not pipeline-scoped.
type CircuitBreaker struct {
	name    string
	cfg     BreakerConfig
	metrics ports.MetricsCollector
	logger  *zap.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trialing bool

	// now is replaceable in tests
	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker guarding the named
// dependency.
func NewCircuitBreaker(name string, cfg BreakerConfig, metrics ports.MetricsCollector, logger *zap.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		name:    name,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		state:   StateClosed,
		now:     time.Now,
	}
}

// Wrap decorates a stage function with this breaker.
func (b *CircuitBreaker) Wrap(fn domain.StageFunc) domain.StageFunc {
	return func(ctx context.Context, input interface{}) (interface{}, error) {
		return b.Execute(ctx, input, fn)
	}
}

// Execute runs fn under the breaker's admission policy.
func (b *CircuitBreaker) Execute(ctx context.Context, input interface{}, fn domain.StageFunc) (interface{}, error) {
	if err := b.allow(); err != nil {
		return nil, err
	}

	out, err := fn(ctx, input)
	b.record(err)
	return out, err
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive-failure counter.
func (b *CircuitBreaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *CircuitBreaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.RecoveryTimeout {
			return ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
		b.trialing = true
		return nil
	default: // StateHalfOpen: one trial call at a time
		if b.trialing {
			return ErrCircuitOpen
		}
		b.trialing = true
		return nil
	}
}

func (b *CircuitBreaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.trialing = false
		if err == nil {
			b.failures = 0
			b.transition(StateClosed)
		} else {
			b.openedAt = b.now()
			b.transition(StateOpen)
		}
		return
	}

	if err == nil {
		b.failures = 0
		return
	}

	b.failures++
	if b.state == StateClosed && b.failures >= b.cfg.FailureThreshold {
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

// transition switches state and reports it. Callers hold b.mu.
func (b *CircuitBreaker) transition(to State) {
	from := b.state
	b.state = to
	if b.metrics != nil {
		b.metrics.RecordBreakerTransition(b.name, from.String(), to.String())
	}
	if b.logger != nil {
		b.logger.Info("circuit breaker transition",
			zap.String("breaker", b.name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}
}
