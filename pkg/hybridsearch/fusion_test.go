package hybridsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuse_NoMatchingDocumentUsesSemanticOnly(t *testing.T) {
	s := NewScorer()
	s.Rebuild(nil)

	results := Fuse(s, "query", []SemanticHit{{DocID: "missing.go:1", Score: 0.8}}, DefaultWeights(), 10)
	assert.Len(t, results, 1)
	assert.InDelta(t, 0.7*0.8, results[0].Hybrid, 0.0001)
}

func TestFuse_SortsDescendingAndTruncates(t *testing.T) {
	s := NewScorer()
	s.Rebuild([]Document{
		{ID: "a.go:1", Terms: tokenize("routing breaker health monitor")},
		{ID: "b.go:1", Terms: tokenize("unrelated words here")},
	})

	hits := []SemanticHit{
		{DocID: "b.go:1", Score: 0.5},
		{DocID: "a.go:1", Score: 0.9},
	}
	results := Fuse(s, "routing breaker", hits, DefaultWeights(), 1)
	assert.Len(t, results, 1)
	assert.Equal(t, "a.go:1", results[0].DocID)
}

func TestFuse_TiesBrokenByInsertionOrder(t *testing.T) {
	s := NewScorer()
	s.Rebuild(nil)

	hits := []SemanticHit{
		{DocID: "x", Score: 0.5},
		{DocID: "y", Score: 0.5},
	}
	results := Fuse(s, "query", hits, DefaultWeights(), 10)
	require := assert.New(t)
	require.Len(results, 2)
	require.Equal("x", results[0].DocID)
	require.Equal("y", results[1].DocID)
}

func TestSigmoid_BoundedBetweenZeroAndOne(t *testing.T) {
	assert.InDelta(t, 0.5, sigmoid(0), 0.0001)
	assert.Greater(t, sigmoid(10), 0.99)
	assert.Less(t, sigmoid(-10), 0.01)
}
