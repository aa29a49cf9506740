package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
)

// OpenAIEmbedder calls the OpenAI embeddings API. It shares the credential
// of the general-purpose generation provider.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates the fallback embedding backend.
func NewOpenAIEmbedder(apiKey, baseURL, model string, timeoutSeconds int) *OpenAIEmbedder {
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultTimeoutSeconds
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL += "/v1"
		}
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}

	e := &OpenAIEmbedder{
		client: openai.NewClientWithConfig(config),
		model:  orDefault(model, DefaultOpenAIModel),
	}
	L_debug("openai embedder created", "model", e.model, "baseURL", baseURL)
	return e
}

func (e *OpenAIEmbedder) Name() string  { return "openai" }
func (e *OpenAIEmbedder) Model() string { return e.model }

// Embed requests a single embedding.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyVector
	}
	return resp.Data[0].Embedding, nil
}
