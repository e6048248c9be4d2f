// Package failover selects a candidate provider id from a healthy
// pool and retries a caller-supplied operation across candidates on
// failure, excluding tried ids as it goes.
//
// Grounded in spec.md 4.3 and in the teacher's named-default-table
// idiom (pkg/resilience/circuit_breaker_config.go's
// DefaultCircuitBreakerConfigs / bulkhead.go's DefaultBulkheadConfigs)
// for the built-in priority table.
package failover

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/codemesh-labs/routing-core/pkg/corerrors"
	"github.com/codemesh-labs/routing-core/pkg/health"
)

// Context carries the parameters of a single failover attempt.
type Context struct {
	OperationType string
	Preferred     []string
	Excluded      map[string]struct{}
	MaxAttempts   int
	CurrentAttempt int
}

// excluding returns a copy of ctx with extra ids added to Excluded.
func (c Context) excluding(ids ...string) Context {
	out := Context{
		OperationType:  c.OperationType,
		Preferred:      c.Preferred,
		MaxAttempts:    c.MaxAttempts,
		CurrentAttempt: c.CurrentAttempt,
	}
	out.Excluded = make(map[string]struct{}, len(c.Excluded)+len(ids))
	for id := range c.Excluded {
		out.Excluded[id] = struct{}{}
	}
	for _, id := range ids {
		out.Excluded[id] = struct{}{}
	}
	return out
}

// Strategy selects one candidate id from the pool of healthy ones.
type Strategy interface {
	SelectProvider(candidates []string, monitor *health.Monitor, ctx Context) (string, error)
}

// builtinPriority is the fallback priority table named in spec.md 4.3:
// ollama < openai < anthropic < gemini < other, smaller is better.
var builtinPriority = []string{"ollama", "openai", "anthropic", "gemini"}

func defaultPriority(id string) int {
	lower := strings.ToLower(id)
	for i, name := range builtinPriority {
		if strings.Contains(lower, name) {
			return i
		}
	}
	return len(builtinPriority)
}

// PriorityStrategy picks the healthy candidate with the smallest
// priority, falling back to the built-in table for ids it has no
// explicit entry for. Ties are broken by insertion order in
// candidates.
type PriorityStrategy struct {
	Priorities map[string]int
}

// NewPriorityStrategy creates a PriorityStrategy with an empty override
// table, relying entirely on the built-in fallback.
func NewPriorityStrategy() *PriorityStrategy {
	return &PriorityStrategy{Priorities: make(map[string]int)}
}

func (s *PriorityStrategy) priorityOf(id string) int {
	if p, ok := s.Priorities[id]; ok {
		return p
	}
	return defaultPriority(id)
}

// SelectProvider implements Strategy.
func (s *PriorityStrategy) SelectProvider(candidates []string, monitor *health.Monitor, ctx Context) (string, error) {
	best := ""
	bestPriority := 0
	found := false

	for _, id := range candidates {
		if _, excluded := ctx.Excluded[id]; excluded {
			continue
		}
		if monitor != nil && !monitor.IsHealthy(id) {
			continue
		}
		p := s.priorityOf(id)
		if !found || p < bestPriority {
			best, bestPriority, found = id, p, true
		}
	}

	if !found {
		return "", corerrors.NotFound("no healthy candidate available")
	}
	return best, nil
}

// RoundRobinStrategy cycles through healthy candidates using an atomic
// counter, grounded in the teacher's plain-atomic style for read-mostly
// counters that live outside actor-owned state (pkg/resilience).
type RoundRobinStrategy struct {
	counter atomic.Uint64
}

// SelectProvider implements Strategy.
func (s *RoundRobinStrategy) SelectProvider(candidates []string, monitor *health.Monitor, ctx Context) (string, error) {
	var healthy []string
	for _, id := range candidates {
		if _, excluded := ctx.Excluded[id]; excluded {
			continue
		}
		if monitor != nil && !monitor.IsHealthy(id) {
			continue
		}
		healthy = append(healthy, id)
	}
	if len(healthy) == 0 {
		return "", corerrors.NotFound("no healthy candidate available")
	}
	idx := s.counter.Add(1) - 1
	return healthy[idx%uint64(len(healthy))], nil
}

// Operation is the caller-supplied work to run against a selected
// provider id.
type Operation func(ctx context.Context, id string) error

// RecoveryHook is notified when a provider should be rechecked after a
// failed attempt (spec.md 4.3: "mark provider for a health recheck").
type RecoveryHook func(id string)

// Manager runs execute_with_failover against a Strategy and a Health
// Monitor.
type Manager struct {
	Strategy Strategy
	Monitor  *health.Monitor
	OnRecheck RecoveryHook
}

// NewManager creates a Manager with the given strategy and monitor.
func NewManager(strategy Strategy, monitor *health.Monitor) *Manager {
	return &Manager{Strategy: strategy, Monitor: monitor}
}

// ExecuteWithFailover implements spec.md 4.3's execute_with_failover:
// selection failure and operation failure are both treated uniformly
// as retryable attempt events, up to ctx.MaxAttempts.
func (m *Manager) ExecuteWithFailover(goCtx context.Context, candidates []string, ctx Context, op Operation) error {
	maxAttempts := ctx.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	tried := ctx.excluding()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		attemptCtx := tried
		attemptCtx.CurrentAttempt = attempt

		id, err := m.Strategy.SelectProvider(candidates, m.Monitor, attemptCtx)
		if err != nil {
			lastErr = err
			continue
		}

		if err := op(goCtx, id); err != nil {
			lastErr = err
			tried = tried.excluding(id)
			if m.OnRecheck != nil {
				m.OnRecheck(id)
			}
			continue
		}

		return nil
	}

	if lastErr != nil {
		return lastErr
	}
	return corerrors.NoProviders("failover attempts exhausted")
}
