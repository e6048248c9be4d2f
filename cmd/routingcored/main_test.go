package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemesh-labs/routing-core/pkg/clock"
	"github.com/codemesh-labs/routing-core/pkg/config"
	"github.com/codemesh-labs/routing-core/pkg/observability"
	"github.com/codemesh-labs/routing-core/pkg/providers"
	"github.com/codemesh-labs/routing-core/pkg/ratelimit"
)

func TestBuildEmbeddingProvider_DispatchesByKind(t *testing.T) {
	p, err := buildEmbeddingProvider("mock-a", config.ProviderConfig{Kind: "mock", Dimensions: 32})
	require.NoError(t, err)
	assert.Equal(t, "mock-a", p.Name())

	_, err = p.GenerateEmbedding(context.Background(), "x", "m")
	require.NoError(t, err)

	_, ok := p.(*providers.MockEmbeddingProvider)
	assert.True(t, ok)
}

func TestBuildEmbeddingProvider_DefaultsDimensionsWhenUnset(t *testing.T) {
	p, err := buildEmbeddingProvider("mock-b", config.ProviderConfig{Kind: "mock"})
	require.NoError(t, err)
	dims, err := p.Dimensions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 256, dims)
}

func TestBuildEmbeddingProvider_UnknownKindErrors(t *testing.T) {
	_, err := buildEmbeddingProvider("x", config.ProviderConfig{Kind: "not-a-real-provider"})
	require.Error(t, err)
}

func TestBuildVectorStoreProvider_MockByDefault(t *testing.T) {
	s, err := buildVectorStoreProvider("store-a", config.ProviderConfig{})
	require.NoError(t, err)
	assert.Equal(t, "store-a", s.Name())
}

func TestBuildVectorStoreProvider_UnknownKindErrors(t *testing.T) {
	_, err := buildVectorStoreProvider("x", config.ProviderConfig{Kind: "not-a-real-store"})
	require.Error(t, err)
}

func TestBuildRateLimiter_MemoryBackendByDefault(t *testing.T) {
	cfg := ratelimit.Config{Enabled: true, Max: 10, WindowSeconds: 60}
	limiter, err := buildRateLimiter("", "", cfg, clock.RealClock{})
	require.NoError(t, err)
	assert.NotNil(t, limiter)
}

func TestBuildRateLimiter_RedisBackendRequiresAddress(t *testing.T) {
	cfg := ratelimit.Config{Enabled: true, Max: 10, WindowSeconds: 60}
	_, err := buildRateLimiter("redis", "", cfg, clock.RealClock{})
	require.Error(t, err)
}

func TestBuildProviders_SkipsUnknownKindsRatherThanFailing(t *testing.T) {
	cfg := &config.Config{
		Providers: config.ProvidersConfig{
			Embedding: map[string]config.ProviderConfig{
				"good": {Kind: "mock", Dimensions: 16},
				"bad":  {Kind: "not-a-real-provider"},
			},
			VectorStore: map[string]config.ProviderConfig{
				"good": {Kind: "mock"},
			},
		},
	}

	embeddings, stores := buildProviders(cfg, observability.NewNoopLogger())
	assert.Len(t, embeddings, 1)
	assert.Contains(t, embeddings, "good")
	assert.Len(t, stores, 1)
}
