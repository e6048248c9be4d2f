package hybridsearch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestActor_IndexSearchClearRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)
	a := NewActor(10)
	defer a.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	a.Index(ctx, "coll1", []Chunk{
		{DocID: "a.go:1", Text: "circuit breaker actor implementation"},
		{DocID: "b.go:1", Text: "health monitor trend calculation"},
	})

	results, err := a.Search(ctx, "circuit breaker", []SemanticHit{
		{DocID: "a.go:1", Score: 0.6},
		{DocID: "b.go:1", Score: 0.9},
	}, DefaultWeights(), 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	stats, err := a.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentCount)

	a.Clear(ctx, "coll1")
	stats, err = a.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)
}

func TestActor_MultiCollectionRebuildsUnion(t *testing.T) {
	defer goleak.VerifyNone(t)
	a := NewActor(10)
	defer a.Shutdown()

	ctx := context.Background()
	a.Index(ctx, "coll1", []Chunk{{DocID: "a", Text: "routing breaker"}})
	a.Index(ctx, "coll2", []Chunk{{DocID: "b", Text: "routing health"}})

	stats, err := a.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentCount)

	a.Clear(ctx, "coll1")
	stats, err = a.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
}

func TestActor_SearchIsCancellable(t *testing.T) {
	defer goleak.VerifyNone(t)
	a := NewActor(10)
	defer a.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Search(ctx, "q", nil, DefaultWeights(), 10)
	assert.Error(t, err)
}
