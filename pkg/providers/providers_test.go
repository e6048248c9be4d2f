package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbeddingProvider_DeterministicAcrossCalls(t *testing.T) {
	p := NewMockEmbeddingProvider("test", 64)

	e1, err := p.GenerateEmbedding(context.Background(), "circuit breaker actor", "mock-model")
	require.NoError(t, err)
	e2, err := p.GenerateEmbedding(context.Background(), "circuit breaker actor", "mock-model")
	require.NoError(t, err)

	assert.Equal(t, e1.Vector, e2.Vector)
	assert.Len(t, e1.Vector, 64)
}

func TestMockEmbeddingProvider_DifferentTextDifferentVector(t *testing.T) {
	p := NewMockEmbeddingProvider("test", 32)

	e1, err := p.GenerateEmbedding(context.Background(), "alpha", "m")
	require.NoError(t, err)
	e2, err := p.GenerateEmbedding(context.Background(), "beta", "m")
	require.NoError(t, err)

	assert.NotEqual(t, e1.Vector, e2.Vector)
}

func TestMockEmbeddingProvider_SetFailingReturnsError(t *testing.T) {
	p := NewMockEmbeddingProvider("test", 16)
	p.SetFailing(true)

	_, err := p.GenerateEmbedding(context.Background(), "x", "m")
	require.Error(t, err)

	_, err = p.Dimensions(context.Background())
	require.Error(t, err)
}

func TestMockEmbeddingProvider_BatchMatchesSingle(t *testing.T) {
	p := NewMockEmbeddingProvider("test", 16)

	batch, err := p.BatchGenerateEmbeddings(context.Background(), []string{"a", "b"}, "m")
	require.NoError(t, err)
	require.Len(t, batch, 2)

	single, err := p.GenerateEmbedding(context.Background(), "a", "m")
	require.NoError(t, err)
	assert.Equal(t, single.Vector, batch[0].Vector)
}

func TestMockVectorStoreProvider_UpsertAndQueryRanksBySimilarity(t *testing.T) {
	s := NewMockVectorStoreProvider("test")
	ctx := context.Background()

	err := s.Upsert(ctx, "coll", []Point{
		{DocID: "a", Vector: []float32{1, 0, 0}},
		{DocID: "b", Vector: []float32{0, 1, 0}},
		{DocID: "c", Vector: []float32{0.9, 0.1, 0}},
	})
	require.NoError(t, err)

	exists, err := s.CollectionExists(ctx, "coll")
	require.NoError(t, err)
	assert.True(t, exists)

	results, err := s.Query(ctx, "coll", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].DocID)
	assert.Equal(t, "c", results[1].DocID)
}

func TestMockVectorStoreProvider_UnknownCollectionDoesNotExist(t *testing.T) {
	s := NewMockVectorStoreProvider("test")
	exists, err := s.CollectionExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMockVectorStoreProvider_SetFailingReturnsError(t *testing.T) {
	s := NewMockVectorStoreProvider("test")
	s.SetFailing(true)

	_, err := s.CollectionExists(context.Background(), "coll")
	require.Error(t, err)
	err = s.Upsert(context.Background(), "coll", nil)
	require.Error(t, err)
	_, err = s.Query(context.Background(), "coll", nil, 1)
	require.Error(t, err)
}

func TestCosineSimilarity_IdenticalVectorsScoreOne(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 0.0001)
}

func TestCosineSimilarity_MismatchedLengthsScoreZero(t *testing.T) {
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
}
