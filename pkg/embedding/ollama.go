package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/AstrBotDevs/atri/pkg/fn"
)

// OllamaProvider implements Provider over Ollama's HTTP embeddings API.
type OllamaProvider struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
	retry   fn.RetryOpts
}

// NewOllamaProvider creates an Ollama-backed embedding provider. dims must
// match the configured model's output dimension (768 for
// nomic-embed-text, the reference model). Embed calls make up to five
// attempts with no wait between them.
func NewOllamaProvider(baseURL, model string, dims int) *OllamaProvider {
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		dims:    dims,
		client:  &http.Client{},
		retry:   fn.RetryOpts{MaxAttempts: 5},
	}
}

func (p *OllamaProvider) Dimension() int { return p.dims }

type ollamaEmbedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResp struct {
	Embedding []float64 `json:"embedding"`
}

// Embed calls Ollama's /api/embeddings endpoint for a single text, retrying
// failed calls (connection errors, non-200 status) up to five attempts in
// all, with no wait between attempts.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	result := fn.Retry(ctx, p.retry, func(ctx context.Context) fn.Result[[]float32] {
		vec, err := p.embedOnce(ctx, text)
		if err != nil {
			return fn.Err[[]float32](err)
		}
		return fn.Ok(vec)
	})
	return result.Unwrap()
}

func (p *OllamaProvider) embedOnce(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedReq{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: ollama embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: ollama embed: status %d", resp.StatusCode)
	}

	var result ollamaEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}
