package hybridsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_LowercasesFiltersAndDropsShortTokens(t *testing.T) {
	got := tokenize("Hello, World! a ab abc func_name 123")
	assert.Equal(t, []string{"abc", "func_name", "123"}, got)
}

func TestScorer_SingleDocumentIDFIsConstantOne(t *testing.T) {
	s := NewScorer()
	s.Rebuild([]Document{{ID: "a.go:1", Terms: tokenize("package main import fmt")}})
	assert.Equal(t, 1.0, s.idf("package"))
}

func TestScorer_MissingTermContributesZero(t *testing.T) {
	s := NewScorer()
	s.Rebuild([]Document{{ID: "a.go:1", Terms: tokenize("package main")}})
	assert.Equal(t, 0.0, s.Score("nonexistent_term_xyz", "a.go:1"))
}

func TestScorer_UnknownDocumentScoresZero(t *testing.T) {
	s := NewScorer()
	s.Rebuild([]Document{{ID: "a.go:1", Terms: tokenize("package main")}})
	assert.Equal(t, 0.0, s.Score("package", "missing.go:1"))
}

func TestScorer_MultiDocIDFFavorsRareTerms(t *testing.T) {
	s := NewScorer()
	s.Rebuild([]Document{
		{ID: "a", Terms: tokenize("routing breaker health")},
		{ID: "b", Terms: tokenize("routing breaker failover")},
		{ID: "c", Terms: tokenize("routing health recovery")},
	})
	// "breaker" appears in 2/3 docs, "recovery" in 1/3: recovery is rarer.
	assert.Greater(t, s.idf("recovery"), s.idf("breaker"))
}

func TestScorer_HigherTermFrequencyScoresHigher(t *testing.T) {
	s := NewScorer()
	// "routing" must appear in fewer than half the documents for its IDF
	// to be positive: with ln((N-df+0.5)/(df+0.5)) a term present in every
	// document has negative IDF, which would invert the ordering.
	s.Rebuild([]Document{
		{ID: "sparse", Terms: tokenize("routing health")},
		{ID: "dense", Terms: tokenize("routing routing routing health")},
		{ID: "c", Terms: tokenize("breaker failover")},
		{ID: "d", Terms: tokenize("health recovery")},
		{ID: "e", Terms: tokenize("unrelated words")},
	})
	assert.Greater(t, s.Score("routing", "dense"), s.Score("routing", "sparse"))
}

func TestScorer_StatsReportsCorpusSize(t *testing.T) {
	s := NewScorer()
	s.Rebuild([]Document{
		{ID: "a", Terms: tokenize("routing breaker")},
		{ID: "b", Terms: tokenize("routing health")},
	})
	stats := s.Stats()
	assert.Equal(t, 2, stats.DocumentCount)
	assert.Equal(t, 3, stats.TermCount) // routing, breaker, health
}
