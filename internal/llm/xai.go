package llm

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/roelfdiedericks/xai-go"

	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
)

// safeInt32 converts int to int32 with bounds checking to prevent overflow.
func safeInt32(n int) int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	if n < 0 {
		return 0
	}
	return int32(n)
}

// XAIProvider calls xAI's Grok API for the vision provider.
// The vision backend takes a single user turn, so system instructions and
// prompt are sent as one combined text payload.
type XAIProvider struct {
	id           ProviderID
	apiKey       string
	timeout      time.Duration
	model        string
	maxTokens    int
	metricPrefix string

	// Client is created on first use; the gRPC dial is deferred until needed.
	client   *xai.Client
	clientMu sync.Mutex
}

// NewXAIProvider creates an xAI adapter. The client is lazily initialized.
func NewXAIProvider(id ProviderID, cfg ProviderConfig) (*XAIProvider, error) {
	if !cfg.Configured(id) {
		return nil, &ProviderUnavailableError{Provider: id}
	}

	model := cfg.model(id)
	L_debug("xai provider created", "id", id, "model", model, "maxTokens", cfg.MaxTokens)

	return &XAIProvider{
		id:           id,
		apiKey:       cfg.APIKey,
		timeout:      time.Duration(cfg.timeoutSeconds()) * time.Second,
		model:        model,
		maxTokens:    cfg.MaxTokens,
		metricPrefix: metricPrefixFor(id, model),
	}, nil
}

// getClient returns the xAI client, creating it on first call.
func (p *XAIProvider) getClient() (*xai.Client, error) {
	p.clientMu.Lock()
	defer p.clientMu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	client, err := xai.New(xai.Config{
		APIKey:  xai.NewSecureString(p.apiKey),
		Timeout: p.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create xai client: %w", err)
	}

	p.client = client
	L_debug("xai client: initialized", "id", p.id, "timeout", p.timeout)
	return p.client, nil
}

func (p *XAIProvider) ID() ProviderID { return p.id }
func (p *XAIProvider) Model() string  { return p.model }

// composeVisionPrompt joins system instructions and prompt into one payload.
func composeVisionPrompt(prompt, systemInstructions string) string {
	if strings.TrimSpace(systemInstructions) == "" {
		return prompt
	}
	return systemInstructions + "\n\n" + prompt
}

// Call sends the combined payload as a single user message.
// Temperature is not forwarded; the backend default applies.
func (p *XAIProvider) Call(ctx context.Context, prompt, systemInstructions string, opts Options) (string, error) {
	start := time.Now()

	client, err := p.getClient()
	if err != nil {
		return "", finishCall(p.id, p.model, p.metricPrefix, start, callStats{}, err)
	}

	payload := composeVisionPrompt(prompt, systemInstructions)
	maxTokens, _ := opts.resolve(p.maxTokens)
	maxTokens = capOutput(p.id, p.model, maxTokens, payload)

	req := xai.NewChatRequest().
		WithModel(p.model).
		WithMaxTokens(safeInt32(maxTokens))
	req.UserMessage(xai.UserContent{Text: payload})

	L_debug("sending request to xAI", "model", p.model, "maxTokens", maxTokens)
	resp, err := client.CompleteChat(ctx, req)
	if err != nil {
		return "", finishCall(p.id, p.model, p.metricPrefix, start, callStats{}, err)
	}

	stats := callStats{
		inputTokens:  int64(resp.Usage.PromptTokens),
		outputTokens: int64(resp.Usage.CompletionTokens),
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", finishCall(p.id, p.model, p.metricPrefix, start, stats, ErrEmptyResponse)
	}
	return resp.Content, finishCall(p.id, p.model, p.metricPrefix, start, stats, nil)
}
