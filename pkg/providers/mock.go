package providers

import (
	"context"
	"math"
	"math/rand"
	"sync"
)

// MockEmbeddingProvider generates deterministic, hash-seeded embeddings
// for tests and local demos, grounded on the teacher's MockProvider
// (pkg/embedding/providers/mock_provider.go)'s generateMockEmbedding.
type MockEmbeddingProvider struct {
	mu         sync.Mutex
	name       string
	dimensions int
	failing    bool
	calls      int
}

// NewMockEmbeddingProvider creates a mock with the given vector width.
func NewMockEmbeddingProvider(name string, dimensions int) *MockEmbeddingProvider {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &MockEmbeddingProvider{name: name, dimensions: dimensions}
}

// SetFailing toggles whether every subsequent call returns an error,
// for exercising failover/circuit-breaker/recovery paths in tests.
func (m *MockEmbeddingProvider) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

func (m *MockEmbeddingProvider) Name() string { return m.name }

func (m *MockEmbeddingProvider) Dimensions(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failing {
		return 0, errMockFailure(m.name)
	}
	return m.dimensions, nil
}

func (m *MockEmbeddingProvider) GenerateEmbedding(ctx context.Context, text string, model string) (Embedding, error) {
	m.mu.Lock()
	m.calls++
	failing := m.failing
	dims := m.dimensions
	m.mu.Unlock()

	if failing {
		return Embedding{}, errMockFailure(m.name)
	}
	vec := deterministicVector(text, dims)
	tokens := len(text) / 4
	if tokens == 0 {
		tokens = 1
	}
	return Embedding{Vector: vec, Model: model, Dimensions: dims, TokensUsed: tokens}, nil
}

func (m *MockEmbeddingProvider) BatchGenerateEmbeddings(ctx context.Context, texts []string, model string) ([]Embedding, error) {
	out := make([]Embedding, 0, len(texts))
	for _, t := range texts {
		e, err := m.GenerateEmbedding(ctx, t, model)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// deterministicVector reproduces the teacher's hash-seeded mock
// embedding: a polynomial string hash seeds math/rand, then each
// dimension blends a random base with two periodic components before
// L2-normalizing the whole vector.
func deterministicVector(text string, dimensions int) []float32 {
	hash := 0
	for _, ch := range text {
		hash = hash*31 + int(ch)
	}
	r := rand.New(rand.NewSource(int64(hash)))

	vec := make([]float32, dimensions)
	for i := 0; i < dimensions; i++ {
		base := r.Float64()*2 - 1
		wave1 := math.Sin(float64(i) * 0.1)
		wave2 := math.Cos(float64(i) * 0.05)
		vec[i] = float32(base*0.7 + wave1*0.2 + wave2*0.1)
	}

	var sumSquares float32
	for _, v := range vec {
		sumSquares += v * v
	}
	if norm := float32(math.Sqrt(float64(sumSquares))); norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func errMockFailure(name string) error {
	return &MockError{Provider: name, Message: "simulated failure"}
}

// MockError is the error type mock providers return, mirroring the
// teacher's ProviderError shape down to what callers actually inspect.
type MockError struct {
	Provider string
	Message  string
}

func (e *MockError) Error() string { return e.Provider + ": " + e.Message }

// MockVectorStoreProvider is an in-memory VectorStoreProvider, grounded
// on the teacher's MockRepository (pkg/repository/vector/mock.go).
type MockVectorStoreProvider struct {
	mu          sync.Mutex
	name        string
	collections map[string][]Point
	failing     bool
}

// NewMockVectorStoreProvider creates an empty in-memory store.
func NewMockVectorStoreProvider(name string) *MockVectorStoreProvider {
	return &MockVectorStoreProvider{name: name, collections: make(map[string][]Point)}
}

// SetFailing toggles whether every subsequent call returns an error.
func (m *MockVectorStoreProvider) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

func (m *MockVectorStoreProvider) Name() string { return m.name }

func (m *MockVectorStoreProvider) CollectionExists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return false, errMockFailure(m.name)
	}
	_, ok := m.collections[name]
	return ok, nil
}

func (m *MockVectorStoreProvider) Upsert(ctx context.Context, collection string, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errMockFailure(m.name)
	}
	if m.collections[collection] == nil {
		m.collections[collection] = []Point{}
	}
	m.collections[collection] = append(m.collections[collection], points...)
	return nil
}

func (m *MockVectorStoreProvider) Query(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errMockFailure(m.name)
	}

	points := m.collections[collection]
	results := make([]ScoredPoint, 0, len(points))
	for _, p := range points {
		results = append(results, ScoredPoint{DocID: p.DocID, Score: cosineSimilarity(vector, p.Vector)})
	}
	for i := 1; i < len(results); i++ {
		j := i
		for j > 0 && results[j-1].Score < results[j].Score {
			results[j-1], results[j] = results[j], results[j-1]
			j--
		}
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
