// Package breaker implements the per-provider/operation circuit breaker
// as a single-owner actor: one goroutine per breaker id owns all mutable
// state (state machine, counters, half-open admission) and is reachable
// only through a bounded inbox of typed messages. This replaces the
// mutex/atomic-guarded breaker the teacher lineage uses
// (pkg/resilience/circuit_breaker.go) per the mandatory actor redesign.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/codemesh-labs/routing-core/pkg/clock"
	"github.com/codemesh-labs/routing-core/pkg/corerrors"
	"github.com/codemesh-labs/routing-core/pkg/observability"
)

// State is the circuit breaker's position in its 3-state machine.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Config configures a single breaker.
type Config struct {
	FailureThreshold    uint32
	RecoveryTimeout     time.Duration
	SuccessThreshold    uint32
	HalfOpenMaxRequests uint32
	PersistenceEnabled  bool
}

// DefaultConfig returns reasonable defaults, matching the teacher's own
// DefaultCircuitBreakerConfigs shape (pkg/resilience/circuit_breaker_config.go).
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		RecoveryTimeout:     30 * time.Second,
		SuccessThreshold:    2,
		HalfOpenMaxRequests: 1,
		PersistenceEnabled:  false,
	}
}

// Metrics holds the monotonic counters the spec requires, plus the
// consecutive-failure count that resets to 0 on success.
type Metrics struct {
	Total               uint64
	Successful          uint64
	Failed              uint64
	Rejected            uint64
	CircuitOpenedCount  uint64
	CircuitClosedCount  uint64
	ConsecutiveFailures uint32
	LastSuccess         time.Time
	LastFailure         time.Time
}

// inbox capacity, matching the core's ~100-capacity actor mailbox convention.
const inboxCapacity = 100

// Breaker is a handle to a running breaker actor. All methods are safe
// for concurrent use; they communicate with the actor goroutine purely
// via channels.
type Breaker struct {
	id     string
	inbox  chan message
	done   chan struct{}
	closed sync.Once
}

type message interface{ isMessage() }

type admitMsg struct {
	reply chan admitResult
}

func (admitMsg) isMessage() {}

type admitResult struct {
	allowed       bool
	halfOpenSlot  bool
	state         State
}

type recordMsg struct {
	success      bool
	halfOpenSlot bool
}

func (recordMsg) isMessage() {}

type stateMsg struct {
	reply chan State
}

func (stateMsg) isMessage() {}

type metricsMsg struct {
	reply chan Metrics
}

func (metricsMsg) isMessage() {}

type shutdownMsg struct{}

func (shutdownMsg) isMessage() {}

// New starts a new breaker actor for id and returns a handle to it. store
// may be nil, in which case persistence is skipped regardless of
// cfg.PersistenceEnabled. logger may be nil.
func New(id string, cfg Config, clk clock.Clock, store *SnapshotStore, logger observability.Logger) *Breaker {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	b := &Breaker{
		id:    id,
		inbox: make(chan message, inboxCapacity),
		done:  make(chan struct{}),
	}

	a := &actor{
		id:     id,
		cfg:    cfg,
		clock:  clk,
		store:  store,
		logger: logger,
		state:  StateClosed,
	}
	if cfg.PersistenceEnabled && store != nil {
		a.loadSnapshot()
	}

	go a.run(b.inbox, b.done)
	return b
}

// ID returns the breaker's identifier.
func (b *Breaker) ID() string { return b.id }

// Call consults the actor for admission, and if admitted, runs fn outside
// the actor's critical section. The result is reported back to the actor
// so it can update its counters and, if applicable, transition state.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, corerrors.Timeout("circuit_breaker.call", 0)
	}
	reply := make(chan admitResult, 1)
	select {
	case b.inbox <- admitMsg{reply: reply}:
	case <-ctx.Done():
		return nil, corerrors.Timeout("circuit_breaker.call", 0)
	}

	var ar admitResult
	select {
	case ar = <-reply:
	case <-ctx.Done():
		return nil, corerrors.Timeout("circuit_breaker.call", 0)
	}

	if !ar.allowed {
		return nil, corerrors.CircuitOpen(b.id)
	}

	result, err := fn(ctx)

	// Best-effort: the actor's inbox is bounded, but a record must never
	// block indefinitely behind a caller's cancelled context, since that
	// would leave the actor's half-open slot permanently consumed.
	select {
	case b.inbox <- recordMsg{success: err == nil, halfOpenSlot: ar.halfOpenSlot}:
	case <-time.After(time.Second):
	}

	return result, err
}

// State returns the breaker's current state, applying the lazy
// Open->HalfOpen transition if the recovery timeout has elapsed.
func (b *Breaker) State() State {
	reply := make(chan State, 1)
	b.inbox <- stateMsg{reply: reply}
	return <-reply
}

// Metrics returns a snapshot of the breaker's counters.
func (b *Breaker) Metrics() Metrics {
	reply := make(chan Metrics, 1)
	b.inbox <- metricsMsg{reply: reply}
	return <-reply
}

// Shutdown stops the actor goroutine and waits for it to drain and exit.
func (b *Breaker) Shutdown() {
	b.closed.Do(func() {
		b.inbox <- shutdownMsg{}
		<-b.done
	})
}
