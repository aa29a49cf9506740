// Package embeddings turns text into vectors using a primary embedding backend
// with a single general-purpose fallback.
package embeddings

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoEmbeddingProviderAvailable: neither embedding backend is configured.
	ErrNoEmbeddingProviderAvailable = errors.New("no embedding provider available")
	// ErrEmptyInput is returned for blank text.
	ErrEmptyInput = errors.New("embedding input is empty")
	// ErrEmptyVector is returned by backends that answer without a vector.
	ErrEmptyVector = errors.New("backend returned an empty embedding")
)

// Embedder is one embedding backend.
// Implementations: OllamaEmbedder, OpenAIEmbedder.
type Embedder interface {
	Name() string
	Model() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config selects and configures the embedding backends.
type Config struct {
	URL            string `yaml:"url,omitempty"`            // Primary (Ollama) endpoint; empty disables it
	Model          string `yaml:"model,omitempty"`          // Primary model
	OpenAIAPIKey   string `yaml:"openaiApiKey,omitempty"`   // General-purpose credential; empty disables the fallback
	OpenAIBaseURL  string `yaml:"openaiBaseURL,omitempty"`  // Optional OpenAI-compatible endpoint
	OpenAIModel    string `yaml:"openaiModel,omitempty"`    // Fallback model
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"` // Per-request timeout
}

const (
	DefaultOllamaModel    = "nomic-embed-text"
	DefaultOpenAIModel    = "text-embedding-3-small"
	DefaultTimeoutSeconds = 30
)

func (c Config) timeoutSeconds() int {
	if c.TimeoutSeconds > 0 {
		return c.TimeoutSeconds
	}
	return DefaultTimeoutSeconds
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}
