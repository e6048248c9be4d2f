// Package router composes the Registry, Health Monitor, Circuit
// Breaker manager, Failover Manager, Cost Tracker, and metrics client
// into the Provider Router described in spec.md 4.4.
//
// Directly grounded in pkg/embedding/router.go's SmartRouter
// (contextual scoring formula shape, per-provider sub-score tables,
// sort-by-score-descending selection, circuit-breaker health bonus),
// generalized from the teacher's agents.TaskType-bound strategies to
// the spec's dimensionless weighted formula.
package router

import (
	"context"

	"github.com/codemesh-labs/routing-core/pkg/breaker"
	"github.com/codemesh-labs/routing-core/pkg/failover"
	"github.com/codemesh-labs/routing-core/pkg/health"
	"github.com/codemesh-labs/routing-core/pkg/observability"
)

// Router composes the subsystems a routing decision needs.
type Router struct {
	EmbeddingRegistry   *Registry
	VectorStoreRegistry *Registry

	Health   *health.Monitor
	Breakers *breaker.Manager
	Failover *failover.Manager
	Cost     *CostTracker
	Metrics  observability.MetricsClient
	Strategy Strategy
	Logger   observability.Logger
}

// NewRouter wires a Router from its dependencies. A nil metrics client
// or logger is replaced with a no-op implementation.
func NewRouter(
	health *health.Monitor,
	breakers *breaker.Manager,
	failoverMgr *failover.Manager,
	strategy Strategy,
	metrics observability.MetricsClient,
	logger observability.Logger,
) *Router {
	if metrics == nil {
		metrics = observability.NewNoopMetricsClient()
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Router{
		EmbeddingRegistry:   NewRegistry(),
		VectorStoreRegistry: NewRegistry(),
		Health:              health,
		Breakers:            breakers,
		Failover:            failoverMgr,
		Cost:                NewCostTracker(),
		Metrics:             metrics,
		Strategy:            strategy,
		Logger:              logger,
	}
}

// SelectEmbeddingProvider filters the embedding registry by ctx.Excluded,
// scores remaining candidates, and returns the chosen id, per spec.md
// 4.4's select_embedding_provider.
func (r *Router) SelectEmbeddingProvider(ctx Context) (string, error) {
	return r.Strategy.SelectProvider(r.EmbeddingRegistry.IDs(), r.Health, ctx)
}

// SelectVectorStoreProvider is the vector-store analogue of
// SelectEmbeddingProvider.
func (r *Router) SelectVectorStoreProvider(ctx Context) (string, error) {
	return r.Strategy.SelectProvider(r.VectorStoreRegistry.IDs(), r.Health, ctx)
}

// ProviderOperation is the caller-supplied work run against a selected
// provider id, wrapped by the breaker and observed by health/metrics.
type ProviderOperation func(goCtx context.Context, id string) error

// GetEmbeddingProvider runs op across the embedding registry via the
// Failover Manager, recording each attempt's success/failure against
// that id's circuit breaker, health, and metrics, per spec.md 4.4's
// get_*_provider.
func (r *Router) GetEmbeddingProvider(goCtx context.Context, ctx failover.Context, op ProviderOperation) (string, error) {
	return r.getProvider(goCtx, r.EmbeddingRegistry, ctx, op)
}

// GetVectorStoreProvider is the vector-store analogue of
// GetEmbeddingProvider.
func (r *Router) GetVectorStoreProvider(goCtx context.Context, ctx failover.Context, op ProviderOperation) (string, error) {
	return r.getProvider(goCtx, r.VectorStoreRegistry, ctx, op)
}

func (r *Router) getProvider(goCtx context.Context, registry *Registry, ctx failover.Context, op ProviderOperation) (string, error) {
	candidates := registry.IDs()
	var selected string

	err := r.Failover.ExecuteWithFailover(goCtx, candidates, ctx, func(opCtx context.Context, id string) error {
		selected = id
		b := r.Breakers.Get(id)

		_, callErr := b.Call(opCtx, func(innerCtx context.Context) (interface{}, error) {
			return nil, op(innerCtx, id)
		})

		result := health.CheckResult{ProviderID: id, Status: health.StatusHealthy}
		if callErr != nil {
			result.Status = health.StatusUnhealthy
			result.ErrorMessage = callErr.Error()
		}
		r.Health.RecordResult(result)

		r.Metrics.IncrementCounterWithLabels("router_provider_attempt", 1, map[string]string{
			"provider_id": id,
			"outcome":     outcomeLabel(callErr),
		})

		return callErr
	})

	if err != nil {
		return "", err
	}
	return selected, nil
}

func outcomeLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
