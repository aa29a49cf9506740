package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
)

// AnthropicProvider calls the Anthropic Messages API.
// Also works with Anthropic-compatible APIs via BaseURL.
type AnthropicProvider struct {
	id           ProviderID
	client       anthropic.Client
	model        string
	maxTokens    int
	metricPrefix string // e.g., "llm/primary-reasoning/claude-sonnet-4-20250514"
}

// NewAnthropicProvider creates an Anthropic adapter. Transport-level retries
// are left to the SDK (cfg.MaxRetries, default 2).
func NewAnthropicProvider(id ProviderID, cfg ProviderConfig) (*AnthropicProvider, error) {
	if !cfg.Configured(id) {
		return nil, &ProviderUnavailableError{Provider: id}
	}

	timeout := time.Duration(cfg.timeoutSeconds()) * time.Second
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(cfg.maxRetries()),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.model(id)
	p := &AnthropicProvider{
		id:           id,
		client:       anthropic.NewClient(opts...),
		model:        model,
		maxTokens:    cfg.MaxTokens,
		metricPrefix: metricPrefixFor(id, model),
	}

	L_debug("anthropic provider created", "id", id, "model", model, "baseURL", cfg.BaseURL, "maxTokens", cfg.MaxTokens, "timeout", timeout)
	return p, nil
}

func (p *AnthropicProvider) ID() ProviderID { return p.id }
func (p *AnthropicProvider) Model() string  { return p.model }

// Call sends one user turn with optional system instructions.
func (p *AnthropicProvider) Call(ctx context.Context, prompt, systemInstructions string, opts Options) (string, error) {
	start := time.Now()
	maxTokens, temperature := opts.resolve(p.maxTokens)
	maxTokens = capOutput(p.id, p.model, maxTokens, prompt, systemInstructions)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if systemInstructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemInstructions}}
	}

	L_debug("sending request to Anthropic", "model", p.model, "maxTokens", maxTokens)
	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", finishCall(p.id, p.model, p.metricPrefix, start, callStats{}, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	stats := callStats{
		inputTokens:  msg.Usage.InputTokens,
		outputTokens: msg.Usage.OutputTokens,
		stopReason:   string(msg.StopReason),
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", finishCall(p.id, p.model, p.metricPrefix, start, stats, ErrEmptyResponse)
	}
	return text.String(), finishCall(p.id, p.model, p.metricPrefix, start, stats, nil)
}
