package providers

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/codemesh-labs/routing-core/pkg/corerrors"
)

// OpenAIEmbeddingProvider wraps the official openai-go SDK, grounded on
// entrepeneur4lyf-codeforge's OpenAISDKHandler
// (internal/llm/providers/openai_sdk.go) client-construction idiom,
// adapted from chat completions to embeddings.
type OpenAIEmbeddingProvider struct {
	client     openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIEmbeddingProvider creates a provider against model (e.g.
// openai.EmbeddingModelTextEmbedding3Small), reporting dimensions for
// pkg/health's EmbeddingProbe without needing a live round trip.
func NewOpenAIEmbeddingProvider(apiKey string, model openai.EmbeddingModel, dimensions int) *OpenAIEmbeddingProvider {
	return &OpenAIEmbeddingProvider{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		dimensions: dimensions,
	}
}

func (p *OpenAIEmbeddingProvider) Name() string { return "openai" }

func (p *OpenAIEmbeddingProvider) Dimensions(ctx context.Context) (int, error) {
	return p.dimensions, nil
}

func (p *OpenAIEmbeddingProvider) GenerateEmbedding(ctx context.Context, text string, model string) (Embedding, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	em := p.model
	if model != "" {
		em = openai.EmbeddingModel(model)
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: em,
	})
	if err != nil {
		return Embedding{}, corerrors.Backend(fmt.Sprintf("openai: embedding request failed for model %s", em), err)
	}
	if len(resp.Data) == 0 {
		return Embedding{}, corerrors.Backend("openai: embedding response had no data", nil)
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, f := range resp.Data[0].Embedding {
		vec[i] = float32(f)
	}
	return Embedding{
		Vector:     vec,
		Model:      string(em),
		Dimensions: len(vec),
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}

func (p *OpenAIEmbeddingProvider) BatchGenerateEmbeddings(ctx context.Context, texts []string, model string) ([]Embedding, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	em := p.model
	if model != "" {
		em = openai.EmbeddingModel(model)
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: em,
	})
	if err != nil {
		return nil, corerrors.Backend(fmt.Sprintf("openai: batch embedding request failed for model %s", em), err)
	}

	out := make([]Embedding, 0, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out = append(out, Embedding{Vector: vec, Model: string(em), Dimensions: len(vec)})
	}
	return out, nil
}
