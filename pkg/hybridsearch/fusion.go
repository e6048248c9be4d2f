package hybridsearch

import "math"

// sigmoid normalizes a raw BM25 score into (0,1), per spec.md 4.7.
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Weights are the fusion formula's per-signal weights, per spec.md
// 4.7, grounded in pkg/rag/retrieval/hybrid.go's
// HybridSearchConfig.VectorWeight/BM25Weight shape.
type Weights struct {
	BM25     float64
	Semantic float64
}

// DefaultWeights mirrors the teacher's DefaultHybridSearchConfig
// balance (vector-weighted, keyword as a secondary signal).
func DefaultWeights() Weights {
	return Weights{BM25: 0.3, Semantic: 0.7}
}

// SemanticHit is one externally-computed semantic-search result, keyed
// to its source document by "<file>:<start_line>" per spec.md 4.7.
type SemanticHit struct {
	DocID string
	Score float64
}

// FusedResult is one ranked fusion output.
type FusedResult struct {
	DocID  string
	Hybrid float64
}

// Fuse implements spec.md 4.7's fusion: each semantic hit's BM25 raw
// score (if the hit's DocID is indexed) is sigmoid-normalized and
// combined with its semantic score; hits with no matching document
// contribute only their semantic term. Results are sorted descending
// by hybrid score, ties broken by insertion order, truncated to limit.
func Fuse(scorer *Scorer, query string, hits []SemanticHit, weights Weights, limit int) []FusedResult {
	results := make([]FusedResult, 0, len(hits))
	for _, hit := range hits {
		var hybrid float64
		if _, ok := scorer.docIndex[hit.DocID]; ok {
			raw := scorer.Score(query, hit.DocID)
			normBM25 := sigmoid(raw)
			hybrid = weights.BM25*normBM25 + weights.Semantic*hit.Score
		} else {
			hybrid = weights.Semantic * hit.Score
		}
		results = append(results, FusedResult{DocID: hit.DocID, Hybrid: hybrid})
	}

	stableSortDescending(results)

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// stableSortDescending sorts by Hybrid score descending, preserving
// input order among ties (spec.md 4.7: "ties broken by insertion
// order").
func stableSortDescending(results []FusedResult) {
	for i := 1; i < len(results); i++ {
		j := i
		for j > 0 && results[j-1].Hybrid < results[j].Hybrid {
			results[j-1], results[j] = results[j], results[j-1]
			j--
		}
	}
}
