package providers

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/codemesh-labs/routing-core/pkg/corerrors"
)

// GeminiEmbeddingProvider wraps google.golang.org/genai, grounded on
// entrepeneur4lyf-codeforge's GeminiSDKHandler
// (internal/llm/providers/gemini_sdk.go) lazy-client-construction
// idiom, adapted from content generation to embeddings.
type GeminiEmbeddingProvider struct {
	mu         sync.Mutex
	apiKey     string
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiEmbeddingProvider creates a provider against model (e.g.
// "text-embedding-004"). The client is created lazily on first use,
// mirroring entrepeneur4lyf-codeforge's handler.
func NewGeminiEmbeddingProvider(apiKey string, model string, dimensions int) *GeminiEmbeddingProvider {
	return &GeminiEmbeddingProvider{apiKey: apiKey, model: model, dimensions: dimensions}
}

func (p *GeminiEmbeddingProvider) Name() string { return "gemini" }

func (p *GeminiEmbeddingProvider) Dimensions(ctx context.Context) (int, error) {
	return p.dimensions, nil
}

func (p *GeminiEmbeddingProvider) ensureClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, corerrors.Backend("gemini: failed to create client", err)
	}
	p.client = client
	return client, nil
}

func (p *GeminiEmbeddingProvider) GenerateEmbedding(ctx context.Context, text string, model string) (Embedding, error) {
	embeddings, err := p.BatchGenerateEmbeddings(ctx, []string{text}, model)
	if err != nil {
		return Embedding{}, err
	}
	return embeddings[0], nil
}

func (p *GeminiEmbeddingProvider) BatchGenerateEmbeddings(ctx context.Context, texts []string, model string) ([]Embedding, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	em := p.model
	if model != "" {
		em = model
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
	}

	resp, err := client.Models.EmbedContent(ctx, em, contents, nil)
	if err != nil {
		return nil, corerrors.Backend(fmt.Sprintf("gemini: embed request failed for model %s", em), err)
	}

	out := make([]Embedding, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		out = append(out, Embedding{Vector: e.Values, Model: em, Dimensions: len(e.Values)})
	}
	return out, nil
}
