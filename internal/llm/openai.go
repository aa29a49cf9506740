package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
)

// OpenAIProvider calls an OpenAI-compatible chat completions API.
// Serves the fast and secondary-reasoning providers (gateway BaseURL) and
// the general/general-mini providers (OpenAI itself).
type OpenAIProvider struct {
	id           ProviderID
	client       *openai.Client
	model        string
	maxTokens    int
	metricPrefix string
}

// NewOpenAIProvider creates an OpenAI-compatible adapter.
func NewOpenAIProvider(id ProviderID, cfg ProviderConfig) (*OpenAIProvider, error) {
	if !cfg.Configured(id) {
		return nil, &ProviderUnavailableError{Provider: id}
	}

	config := openai.DefaultConfig(cfg.APIKey)
	baseURL := normalizeBaseURL(cfg.BaseURL)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	timeout := time.Duration(cfg.timeoutSeconds()) * time.Second
	config.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.model(id)
	p := &OpenAIProvider{
		id:           id,
		client:       openai.NewClientWithConfig(config),
		model:        model,
		maxTokens:    cfg.MaxTokens,
		metricPrefix: metricPrefixFor(id, model),
	}

	displayURL := baseURL
	if displayURL == "" {
		displayURL = "(default)"
	}
	L_debug("openai provider created", "id", id, "model", model, "baseURL", displayURL, "maxTokens", cfg.MaxTokens, "timeout", timeout)
	return p, nil
}

// normalizeBaseURL ensures OpenAI-compatible endpoints end with /v1.
func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return ""
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}
	return baseURL
}

// usesCompletionTokens reports models that reject max_tokens and a custom temperature.
func usesCompletionTokens(model string) bool {
	m := strings.ToLower(model)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

func (p *OpenAIProvider) ID() ProviderID { return p.id }
func (p *OpenAIProvider) Model() string  { return p.model }

// Call sends a system message (when set) and one user message.
func (p *OpenAIProvider) Call(ctx context.Context, prompt, systemInstructions string, opts Options) (string, error) {
	start := time.Now()
	maxTokens, temperature := opts.resolve(p.maxTokens)
	maxTokens = capOutput(p.id, p.model, maxTokens, prompt, systemInstructions)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemInstructions != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemInstructions,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	}
	if usesCompletionTokens(p.model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
		req.Temperature = float32(temperature)
	}

	L_debug("sending request to OpenAI-compatible API", "provider", p.id, "model", p.model, "maxTokens", maxTokens)
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", finishCall(p.id, p.model, p.metricPrefix, start, callStats{}, err)
	}

	stats := callStats{
		inputTokens:  int64(resp.Usage.PromptTokens),
		outputTokens: int64(resp.Usage.CompletionTokens),
	}
	if len(resp.Choices) == 0 {
		return "", finishCall(p.id, p.model, p.metricPrefix, start, stats, ErrEmptyResponse)
	}
	choice := resp.Choices[0]
	stats.stopReason = string(choice.FinishReason)
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", finishCall(p.id, p.model, p.metricPrefix, start, stats, ErrEmptyResponse)
	}
	return choice.Message.Content, finishCall(p.id, p.model, p.metricPrefix, start, stats, nil)
}
