package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codemesh-labs/routing-core/pkg/breaker"
	"github.com/codemesh-labs/routing-core/pkg/clock"
	"github.com/codemesh-labs/routing-core/pkg/failover"
	"github.com/codemesh-labs/routing-core/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextualStrategy_PicksHighestScoringHealthyCandidate(t *testing.T) {
	fc := clock.NewFakeClock(time.Unix(0, 0))
	m := health.NewMonitor(fc)
	for _, id := range []string{"anthropic-1", "ollama-1"} {
		m.RecordResult(health.CheckResult{ProviderID: id, Status: health.StatusHealthy, Timestamp: fc.Now()})
	}

	s := NewContextualStrategy(DefaultWeights(), DefaultTables())
	ctx := Context{QualityRequirement: 1.0, LatencySensitivity: 0.0, CostSensitivity: 0.0, ExpectedLoad: LoadLow, Excluded: map[string]struct{}{}}

	id, err := s.SelectProvider([]string{"anthropic-1", "ollama-1"}, m, ctx)
	require.NoError(t, err)
	assert.Equal(t, "anthropic-1", id)
}

func TestContextualStrategy_PreferredBonusCanFlipTie(t *testing.T) {
	fc := clock.NewFakeClock(time.Unix(0, 0))
	m := health.NewMonitor(fc)
	m.RecordResult(health.CheckResult{ProviderID: "a", Status: health.StatusHealthy, Timestamp: fc.Now()})
	m.RecordResult(health.CheckResult{ProviderID: "b", Status: health.StatusHealthy, Timestamp: fc.Now()})

	tables := Tables{} // all lookups fall back to 0.5, a true tie
	s := NewContextualStrategy(DefaultWeights(), tables)

	id, err := s.SelectProvider([]string{"a", "b"}, m, Context{Preferred: map[string]struct{}{"b": {}}, Excluded: map[string]struct{}{}})
	require.NoError(t, err)
	assert.Equal(t, "b", id)
}

func TestContextualStrategy_EmptyCandidatesIsNotFound(t *testing.T) {
	s := NewContextualStrategy(DefaultWeights(), DefaultTables())
	_, err := s.SelectProvider(nil, nil, Context{Excluded: map[string]struct{}{}})
	assert.Error(t, err)
}

func TestRouter_GetEmbeddingProvider_FailsOverAndRecordsHealth(t *testing.T) {
	fc := clock.NewFakeClock(time.Unix(0, 0))
	m := health.NewMonitor(fc)
	for _, id := range []string{"bad", "good"} {
		m.RecordResult(health.CheckResult{ProviderID: id, Status: health.StatusHealthy, Timestamp: fc.Now()})
	}
	breakers := breaker.NewManager(breaker.DefaultConfig(), fc, nil, nil)
	defer breakers.Shutdown()

	failoverMgr := failover.NewManager(failover.NewPriorityStrategy(), m)
	r := NewRouter(m, breakers, failoverMgr, NewContextualStrategy(DefaultWeights(), DefaultTables()), nil, nil)
	r.EmbeddingRegistry.Register("bad")
	r.EmbeddingRegistry.Register("good")

	id, err := r.GetEmbeddingProvider(context.Background(), failover.Context{MaxAttempts: 2}, func(goCtx context.Context, providerID string) error {
		if providerID == "bad" {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "good", id)

	badHealth, ok := m.GetHealth("bad")
	require.True(t, ok)
	assert.Equal(t, 1, badHealth.ConsecutiveFailures)
}
