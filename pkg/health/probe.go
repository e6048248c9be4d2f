package health

import (
	"context"
	"time"
)

// checkTimeout bounds a single active probe, per spec.md 4.2: a check
// that does not return within this window is recorded Unhealthy with a
// fixed error message rather than left hanging.
const checkTimeout = 10 * time.Second

// timeoutMessage is the exact error message recorded when a probe
// exceeds checkTimeout.
const timeoutMessage = "Health check timed out"

// dimensionsProvider is the minimal embedding-provider capability an
// EmbeddingProbe needs. pkg/providers.EmbeddingProvider satisfies this
// structurally.
type dimensionsProvider interface {
	Dimensions(ctx context.Context) (int, error)
}

// EmbeddingProbe checks an embedding provider by asking it for its
// vector dimensionality; any error or timeout is Unhealthy.
type EmbeddingProbe struct {
	ProviderID string
	Provider   dimensionsProvider
}

// CheckHealth implements HealthChecker.
func (p EmbeddingProbe) CheckHealth(ctx context.Context, providerID string) (CheckResult, error) {
	return runTimed(ctx, providerID, func(ctx context.Context) error {
		_, err := p.Provider.Dimensions(ctx)
		return err
	})
}

// collectionChecker is the minimal vector-store capability a
// VectorStoreProbe needs.
type collectionChecker interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
}

// healthCheckCollection is the sentinel collection name probed by
// VectorStoreProbe; it need not exist for the check to pass, only the
// round trip must succeed.
const healthCheckCollection = "__health_check__"

// VectorStoreProbe checks a vector store by querying for a sentinel
// collection's existence; any error or timeout is Unhealthy.
type VectorStoreProbe struct {
	ProviderID string
	Store      collectionChecker
}

// CheckHealth implements HealthChecker.
func (p VectorStoreProbe) CheckHealth(ctx context.Context, providerID string) (CheckResult, error) {
	return runTimed(ctx, providerID, func(ctx context.Context) error {
		_, err := p.Store.CollectionExists(ctx, healthCheckCollection)
		return err
	})
}

// runTimed runs fn under checkTimeout, timing the call and translating
// a deadline exceeded into the fixed timeout message.
func runTimed(ctx context.Context, providerID string, fn func(context.Context) error) (CheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	done := make(chan error, 1)
	start := time.Now()
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		elapsed := time.Since(start)
		if err != nil && ctx.Err() != nil {
			// fn gave up because the bound was hit: record it as a timeout.
			return CheckResult{
				ProviderID:   providerID,
				Status:       StatusUnhealthy,
				ResponseTime: checkTimeout,
				ErrorMessage: timeoutMessage,
			}, nil
		}
		if err != nil {
			return CheckResult{
				ProviderID:   providerID,
				Status:       StatusUnhealthy,
				ResponseTime: elapsed,
				ErrorMessage: err.Error(),
			}, nil
		}
		return CheckResult{
			ProviderID:   providerID,
			Status:       StatusHealthy,
			ResponseTime: elapsed,
		}, nil
	case <-ctx.Done():
		return CheckResult{
			ProviderID:   providerID,
			Status:       StatusUnhealthy,
			ResponseTime: checkTimeout,
			ErrorMessage: timeoutMessage,
		}, nil
	}
}
