package hybridsearch

import "context"

// Chunk is one unit of text submitted for indexing under a collection,
// per spec.md 4.7's Index message.
type Chunk struct {
	DocID string
	Text  string
}

type indexMsg struct {
	collection string
	chunks     []Chunk
}

type searchMsg struct {
	query     string
	hits      []SemanticHit
	limit     int
	weights   Weights
	reply     chan []FusedResult
}

type clearMsg struct {
	collection string
}

type statsMsg struct {
	reply chan Stats
}

type shutdownMsg struct{}

type message interface{}

// Actor is the single-owner Hybrid Search Actor of spec.md 4.7: all
// state (per-collection documents, the corpus-wide BM25 scorer) is
// owned exclusively by its own goroutine and reached only through its
// bounded inbox, per spec.md 9's mandatory REDESIGN FLAG.
type Actor struct {
	inbox chan message
	done  chan struct{}
}

// NewActor starts the actor goroutine and returns a handle to it.
// inboxCapacity bounds the mailbox (spec.md 9's ~100 convention).
func NewActor(inboxCapacity int) *Actor {
	if inboxCapacity <= 0 {
		inboxCapacity = 100
	}
	a := &Actor{inbox: make(chan message, inboxCapacity), done: make(chan struct{})}
	go a.run()
	return a
}

func (a *Actor) run() {
	defer close(a.done)

	collections := make(map[string][]Chunk)
	scorer := NewScorer()

	rebuild := func() {
		var docs []Document
		for _, chunks := range collections {
			for _, c := range chunks {
				docs = append(docs, Document{ID: c.DocID, Terms: tokenize(c.Text)})
			}
		}
		scorer.Rebuild(docs)
	}

	for msg := range a.inbox {
		switch m := msg.(type) {
		case indexMsg:
			collections[m.collection] = append(collections[m.collection], m.chunks...)
			rebuild()
		case clearMsg:
			delete(collections, m.collection)
			rebuild()
		case searchMsg:
			m.reply <- Fuse(scorer, m.query, m.hits, m.weights, m.limit)
		case statsMsg:
			m.reply <- scorer.Stats()
		case shutdownMsg:
			return
		}
	}
}

// Index adds chunks to collection and rebuilds the corpus-wide scorer.
func (a *Actor) Index(ctx context.Context, collection string, chunks []Chunk) {
	select {
	case a.inbox <- indexMsg{collection: collection, chunks: chunks}:
	case <-ctx.Done():
	}
}

// Clear removes collection entirely and rebuilds the corpus-wide scorer.
func (a *Actor) Clear(ctx context.Context, collection string) {
	select {
	case a.inbox <- clearMsg{collection: collection}:
	case <-ctx.Done():
	}
}

// Search fuses hits against the BM25 scorer for query and returns the
// top limit results.
func (a *Actor) Search(ctx context.Context, query string, hits []SemanticHit, weights Weights, limit int) ([]FusedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply := make(chan []FusedResult, 1)
	select {
	case a.inbox <- searchMsg{query: query, hits: hits, limit: limit, weights: weights, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case result := <-reply:
		return result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetStats reports the scorer's current corpus size.
func (a *Actor) GetStats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case a.inbox <- statsMsg{reply: reply}:
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case stats := <-reply:
		return stats, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Shutdown stops the actor goroutine and waits for it to exit.
func (a *Actor) Shutdown() {
	a.inbox <- shutdownMsg{}
	<-a.done
}
