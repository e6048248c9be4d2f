// Package providers defines the capability-trait interfaces at the
// routing core's system boundary (spec.md 4.2/4.4's "embedding
// provider" and "vector store provider" externalities) plus concrete
// adapters. The core never imports a provider SDK directly: every
// subsystem (health, failover, router) depends only on these traits,
// grounded on the teacher's pkg/embedding/providers.Provider interface
// and pkg/repository/vector.Repository.
package providers

import (
	"context"
	"time"
)

// EmbeddingProvider is the minimal capability the routing core needs
// from an embedding backend, distilled from the teacher's
// pkg/embedding/providers.Provider interface (Name/
// GenerateEmbedding/GetSupportedModels/HealthCheck) down to what
// routing, health-checking, and failover actually call.
type EmbeddingProvider interface {
	// Name identifies the provider for logging, metrics, and
	// recovery-subsystem ids (e.g. "openai", "gemini", "ollama").
	Name() string

	// Dimensions reports the embedding vector length this provider
	// produces. Used directly as pkg/health's EmbeddingProbe check: a
	// provider that cannot answer is Unhealthy.
	Dimensions(ctx context.Context) (int, error)

	// GenerateEmbedding embeds a single text with model.
	GenerateEmbedding(ctx context.Context, text string, model string) (Embedding, error)

	// BatchGenerateEmbeddings embeds multiple texts in one round trip.
	BatchGenerateEmbeddings(ctx context.Context, texts []string, model string) ([]Embedding, error)
}

// Embedding is one generated vector plus the bookkeeping the teacher's
// EmbeddingResponse carries (model, dimensions, cost-relevant token
// count).
type Embedding struct {
	Vector     []float32
	Model      string
	Dimensions int
	TokensUsed int
}

// VectorStoreProvider is the minimal capability the routing core needs
// from a vector store, distilled from the teacher's
// pkg/repository/vector.Repository interface down to what health
// checking and search actually call.
type VectorStoreProvider interface {
	// Name identifies the store for logging and recovery-subsystem ids.
	Name() string

	// CollectionExists probes a named collection's existence. Used
	// directly as pkg/health's VectorStoreProbe check.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// Upsert stores vectors under collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Query runs a top-k nearest-neighbor search within collection.
	Query(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error)
}

// Point is one vector plus its source text and document id, keyed the
// same "<file>:<start_line>" way pkg/hybridsearch.Chunk is.
type Point struct {
	DocID  string
	Vector []float32
	Text   string
}

// ScoredPoint is one query result.
type ScoredPoint struct {
	DocID string
	Score float64
}

// defaultRequestTimeout bounds a single provider round trip when the
// caller supplies a context with no deadline of its own, mirroring
// pkg/health's checkTimeout convention for external calls.
const defaultRequestTimeout = 30 * time.Second

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultRequestTimeout)
}
