// Package hybridsearch implements the Hybrid Search Actor of spec.md
// 4.7: a local BM25 scorer fused with externally-supplied semantic
// scores, running as a single-owner actor over Index/Search/Clear/
// GetStats messages, per spec.md 9's mandatory REDESIGN FLAG.
//
// BM25 math and the fusion formula are implemented locally per
// spec.md 4.7's literal formulas, replacing the teacher's
// Postgres-tsvector/trigram approach in pkg/rag/retrieval/bm25.go
// (not portable outside Postgres) while keeping the shape of
// pkg/rag/retrieval/hybrid.go's weighted-combination config.
package hybridsearch

import (
	"math"
	"regexp"
	"strings"
)

// k1 and b are the BM25 TF-normalization constants, per spec.md 4.7.
const (
	defaultK1 = 1.2
	defaultB  = 0.75
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// tokenize lowercases, splits on whitespace, filters to [A-Za-z0-9_],
// and drops tokens of length <= 2, per spec.md 4.7.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 2 {
			continue
		}
		if !tokenPattern.MatchString(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Document is one indexed unit: a chunk identified by "<file>:<start_line>"
// per spec.md 4.7's fusion-matching key.
type Document struct {
	ID    string
	Terms []string // pre-tokenized
}

// bm25Doc is a Document plus its precomputed term frequencies and length.
type bm25Doc struct {
	id        string
	termFreqs map[string]int
	length    int
}

// Scorer holds the corpus-level BM25 state: document frequency per
// term and average document length, recomputed whenever the corpus
// changes (Index/Clear).
type Scorer struct {
	k1, b float64

	docs     []bm25Doc
	docIndex map[string]int // id -> index into docs
	docFreq  map[string]int // term -> number of docs containing it
	avgLen   float64
}

// NewScorer creates an empty Scorer with the spec's default k1/b.
func NewScorer() *Scorer {
	return &Scorer{k1: defaultK1, b: defaultB, docIndex: make(map[string]int), docFreq: make(map[string]int)}
}

// Rebuild replaces the scorer's entire corpus with docs and recomputes
// document frequencies and average length, per spec.md 4.7: "all
// cross-collection Index/Clear operations rebuild the global BM25
// scorer from the union of per-collection documents."
func (s *Scorer) Rebuild(docs []Document) {
	s.docs = make([]bm25Doc, 0, len(docs))
	s.docIndex = make(map[string]int, len(docs))
	s.docFreq = make(map[string]int)

	var totalLen int
	for _, d := range docs {
		tf := make(map[string]int, len(d.Terms))
		seen := make(map[string]struct{}, len(d.Terms))
		for _, term := range d.Terms {
			tf[term]++
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				s.docFreq[term]++
			}
		}
		idx := len(s.docs)
		s.docs = append(s.docs, bm25Doc{id: d.ID, termFreqs: tf, length: len(d.Terms)})
		s.docIndex[d.ID] = idx
		totalLen += len(d.Terms)
	}

	if len(s.docs) > 0 {
		s.avgLen = float64(totalLen) / float64(len(s.docs))
	} else {
		s.avgLen = 0
	}
}

// idf computes the inverse document frequency for term, per spec.md
// 4.7: ln((N-df+0.5)/(df+0.5)) for a multi-doc collection, a constant
// 1.0 for a single-doc collection.
func (s *Scorer) idf(term string) float64 {
	n := len(s.docs)
	if n <= 1 {
		return 1.0
	}
	df := s.docFreq[term]
	return math.Log((float64(n)-float64(df)+0.5)/(float64(df)+0.5))
}

// Score computes the raw BM25 score of query against the document
// identified by docID. Missing terms contribute 0; an unknown docID
// returns 0.
func (s *Scorer) Score(query string, docID string) float64 {
	idx, ok := s.docIndex[docID]
	if !ok {
		return 0
	}
	doc := s.docs[idx]

	var score float64
	for _, term := range tokenize(query) {
		tf, ok := doc.termFreqs[term]
		if !ok {
			continue
		}
		idf := s.idf(term)
		numerator := float64(tf) * (s.k1 + 1)
		denom := float64(tf) + s.k1*(1-s.b+s.b*float64(doc.length)/nonZero(s.avgLen))
		score += idf * (numerator / denom)
	}
	return score
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// Stats summarizes the scorer's current corpus.
type Stats struct {
	DocumentCount int
	TermCount     int
	AverageLength float64
}

// Stats reports the scorer's current corpus size.
func (s *Scorer) Stats() Stats {
	return Stats{DocumentCount: len(s.docs), TermCount: len(s.docFreq), AverageLength: s.avgLen}
}
