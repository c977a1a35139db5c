// Package embedding defines the EmbeddingProvider seam and an Ollama-backed
// implementation of it, adapted from the corpus's HTTP embed client.
package embedding

import "context"

// Provider embeds text into a fixed-dimension dense vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
