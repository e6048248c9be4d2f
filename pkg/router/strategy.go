package router

import (
	"github.com/codemesh-labs/routing-core/pkg/corerrors"
	"github.com/codemesh-labs/routing-core/pkg/health"
)

// Weights are the contextual scoring formula's per-dimension weights,
// per spec.md 4.4; must sum to 1.
type Weights struct {
	Health  float64
	Cost    float64
	Quality float64
	Latency float64
	Load    float64
}

// DefaultWeights mirrors the teacher's balanced-default instinct
// (pkg/embedding/router.go's DefaultRouterConfig), weighting health and
// quality highest.
func DefaultWeights() Weights {
	return Weights{Health: 0.35, Cost: 0.15, Quality: 0.25, Latency: 0.15, Load: 0.10}
}

// preferredBonus is added to the score of a caller-preferred id, per
// spec.md 4.4.
const preferredBonus = 0.1

// Strategy picks the best scoring candidate from a pool.
type Strategy interface {
	SelectProvider(candidates []string, monitor *health.Monitor, ctx Context) (string, error)
}

// ContextualStrategy implements spec.md 4.4's scoring formula verbatim,
// directly grounded in pkg/embedding/router.go's SmartRouter scoring
// (health-bonus + per-provider sub-score tables + sort-descending
// selection), generalized from task-type-bound config to the spec's
// dimensionless weighted formula.
type ContextualStrategy struct {
	Weights Weights
	Tables  Tables
	// Cost overrides Tables' static cost-efficiency entries with
	// observed costs once available; nil falls back to Tables alone.
	Cost *CostTracker
}

// NewContextualStrategy creates a ContextualStrategy with the given
// weights and tables.
func NewContextualStrategy(weights Weights, tables Tables) *ContextualStrategy {
	return &ContextualStrategy{Weights: weights, Tables: tables}
}

func (s *ContextualStrategy) costEfficiencyOf(id string) float64 {
	if s.Cost != nil {
		if score, ok := s.Cost.EfficiencyOf(id); ok {
			return score
		}
	}
	return s.Tables.costEfficiency(id)
}

// SelectProvider implements Strategy.
func (s *ContextualStrategy) SelectProvider(candidates []string, monitor *health.Monitor, ctx Context) (string, error) {
	bestID := ""
	bestScore := 0.0
	found := false

	for _, id := range candidates {
		if ctx.isExcluded(id) {
			continue
		}
		if monitor != nil && !monitor.IsHealthy(id) {
			continue
		}

		score := s.Weights.Health
		score += s.Weights.Cost * s.costEfficiencyOf(id) * ctx.CostSensitivity
		score += s.Weights.Quality * s.Tables.qualityScore(id) * ctx.QualityRequirement
		score += s.Weights.Latency * s.Tables.latencyScore(id) * ctx.LatencySensitivity
		score += s.Weights.Load * s.Tables.loadScore(id, ctx.ExpectedLoad)
		if ctx.isPreferred(id) {
			score += preferredBonus
		}

		if !found || score > bestScore {
			bestID, bestScore, found = id, score, true
		}
	}

	if !found {
		if len(candidates) == 0 {
			return "", corerrors.NotFound("no candidates")
		}
		return "", corerrors.NoProviders("every candidate is excluded or unhealthy")
	}
	return bestID, nil
}
