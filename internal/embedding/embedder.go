// Package embedding provides sentence-embedding backends used for rule retrieval.
package embedding

import (
	"context"
	"fmt"
	"strings"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Options selects and configures an embedding backend.
type Options struct {
	Provider  string // "ollama", "gemini" or "mock"
	Model     string
	OllamaURL string
	APIKey    string
}

// New creates the embedder named by opts.Provider.
func New(ctx context.Context, opts Options) (Embedder, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "ollama":
		return NewOllamaEmbedder(opts.OllamaURL, opts.Model), nil
	case "gemini", "genai":
		return NewGenAIEmbedder(ctx, opts.APIKey, opts.Model)
	case "mock":
		return NewMockEmbedder(), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", opts.Provider)
	}
}
