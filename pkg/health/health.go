// Package health tracks per-provider rolling health history, derives a
// trend, and computes a fail-safe is_healthy. It owns a read-mostly
// concurrent map: mutations are per-key (push to one provider's FIFO,
// recompute that provider's derived metrics); iteration is only used for
// bulk summaries (list_healthy_providers) and may observe a non-snapshot
// view, per spec.md 5.
//
// Grounded in the teacher's pkg/health/health_checker.go (Status enum,
// HealthCheck interface, concurrent RunChecks, AggregatedHealth shape),
// replaced with the spec's bounded-FIFO + trend model.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/codemesh-labs/routing-core/pkg/clock"
)

// maxHistory bounds the per-provider FIFO, per spec.md 3.
const maxHistory = 10

// unhealthyThreshold is the number of consecutive unhealthy records
// required before a provider's status flips to Unhealthy.
const unhealthyThreshold = 3

// Status is a single health check's outcome.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// Trend classifies how a provider's health has moved over its history.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDegrading Trend = "degrading"
	TrendUnknown   Trend = "unknown"
)

// Record is a single health check observation.
type Record struct {
	Timestamp    time.Time
	Status       Status
	ResponseTime time.Duration
	ErrorMessage string
}

// CheckResult is what an external HealthChecker reports back.
type CheckResult struct {
	ProviderID   string
	Status       Status
	ResponseTime time.Duration
	ErrorMessage string
	Timestamp    time.Time
}

// ProviderHealth is the monitor's view of a single provider.
type ProviderHealth struct {
	ProviderID          string
	Status              Status
	LastCheck           time.Time
	ConsecutiveFailures int
	TotalChecks         int
	ResponseTime        time.Duration
	History             []Record
	Trend               Trend
	AvgResponseTime     time.Duration
	SuccessRate         float64
}

// clone returns a value copy safe to hand to callers (History is copied
// too, since it's a slice).
func (p ProviderHealth) clone() ProviderHealth {
	h := make([]Record, len(p.History))
	copy(h, p.History)
	p.History = h
	return p
}

// HealthChecker is the external capability the monitor uses to actively
// probe a provider on demand (check_provider).
type HealthChecker interface {
	CheckHealth(ctx context.Context, providerID string) (CheckResult, error)
}

// entry is the per-provider mutable state, guarded by its own mutex so
// distinct providers never contend with each other.
type entry struct {
	mu     sync.Mutex
	health ProviderHealth
}

// Monitor is the health monitor. Safe for concurrent use.
type Monitor struct {
	providers sync.Map // string -> *entry
	clock     clock.Clock
}

// NewMonitor creates an empty Monitor. A nil clk defaults to the real
// wall clock; tests inject a clock.FakeClock for determinism.
func NewMonitor(clk clock.Clock) *Monitor {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Monitor{clock: clk}
}

func (m *Monitor) entryFor(id string) *entry {
	if v, ok := m.providers.Load(id); ok {
		return v.(*entry)
	}
	e := &entry{health: ProviderHealth{ProviderID: id, Status: StatusUnknown, Trend: TrendUnknown}}
	actual, _ := m.providers.LoadOrStore(id, e)
	return actual.(*entry)
}

// RecordResult pushes a result into the provider's FIFO and recomputes
// its derived status/trend/metrics, per spec.md 4.2.
func (m *Monitor) RecordResult(result CheckResult) {
	e := m.entryFor(result.ProviderID)
	e.mu.Lock()
	defer e.mu.Unlock()

	ts := result.Timestamp
	if ts.IsZero() {
		ts = m.clock.Now()
	}

	h := &e.health
	h.TotalChecks++
	h.LastCheck = ts
	h.ResponseTime = result.ResponseTime

	record := Record{
		Timestamp:    ts,
		Status:       result.Status,
		ResponseTime: result.ResponseTime,
		ErrorMessage: result.ErrorMessage,
	}

	h.History = append(h.History, record)
	if len(h.History) > maxHistory {
		h.History = h.History[len(h.History)-maxHistory:]
	}

	if result.Status == StatusUnhealthy {
		h.ConsecutiveFailures++
	} else if result.Status == StatusHealthy {
		h.ConsecutiveFailures = 0
	}

	if result.Status == StatusHealthy {
		h.Status = StatusHealthy
	} else if h.ConsecutiveFailures >= unhealthyThreshold {
		h.Status = StatusUnhealthy
	}

	h.AvgResponseTime = averageResponseTime(h.History)
	h.SuccessRate = successRate(h.History)
	h.Trend = calculateTrend(h.History)
}

// IsHealthy is fail-safe: an unknown provider is never healthy.
func (m *Monitor) IsHealthy(id string) bool {
	v, ok := m.providers.Load(id)
	if !ok {
		return false
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.health.Status == StatusHealthy
}

// GetHealth returns a copy of the provider's health, if known.
func (m *Monitor) GetHealth(id string) (ProviderHealth, bool) {
	v, ok := m.providers.Load(id)
	if !ok {
		return ProviderHealth{}, false
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.health.clone(), true
}

// ListHealthyProviders returns the ids currently considered healthy. This
// iterates the concurrent map and may observe a non-snapshot view if
// concurrent RecordResult calls are in flight, per spec.md 5.
func (m *Monitor) ListHealthyProviders() []string {
	var out []string
	m.providers.Range(func(key, value interface{}) bool {
		e := value.(*entry)
		e.mu.Lock()
		healthy := e.health.Status == StatusHealthy
		e.mu.Unlock()
		if healthy {
			out = append(out, key.(string))
		}
		return true
	})
	return out
}

// CheckProvider actively probes a provider via checker and records the
// result, returning it for the caller's immediate use.
func (m *Monitor) CheckProvider(ctx context.Context, providerID string, checker HealthChecker) CheckResult {
	result, err := checker.CheckHealth(ctx, providerID)
	if err != nil {
		result = CheckResult{
			ProviderID:   providerID,
			Status:       StatusUnhealthy,
			ErrorMessage: err.Error(),
		}
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = m.clock.Now()
	}
	m.RecordResult(result)
	return result
}

func averageResponseTime(history []Record) time.Duration {
	if len(history) == 0 {
		return 0
	}
	var total time.Duration
	for _, r := range history {
		total += r.ResponseTime
	}
	return total / time.Duration(len(history))
}

func successRate(history []Record) float64 {
	if len(history) == 0 {
		return 0
	}
	healthy := 0
	for _, r := range history {
		if r.Status == StatusHealthy {
			healthy++
		}
	}
	return float64(healthy) / float64(len(history))
}

// calculateTrend implements spec.md 4.2's calculate_trend exactly.
func calculateTrend(history []Record) Trend {
	n := len(history)
	if n < 3 {
		return TrendUnknown
	}

	last3 := history[n-3:]
	allUnhealthy := true
	for _, r := range last3 {
		if r.Status != StatusUnhealthy {
			allUnhealthy = false
			break
		}
	}
	if allUnhealthy {
		return TrendDegrading
	}

	mid := n / 2
	firstHalf := history[:mid]
	secondHalf := history[mid:]
	delta := successRate(secondHalf) - successRate(firstHalf)

	switch {
	case delta > 0.2:
		return TrendImproving
	case delta < -0.2:
		return TrendDegrading
	default:
		return TrendStable
	}
}
