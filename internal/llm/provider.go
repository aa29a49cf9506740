// Package llm routes generation requests across several LLM backends.
// Every backend sits behind the Provider interface; the Executor walks a
// fixed fallback chain until one of them answers.
package llm

import (
	"context"
	"time"
)

// ProviderID names a backend and model pairing.
type ProviderID string

const (
	PrimaryReasoning   ProviderID = "primary-reasoning"
	Fast               ProviderID = "fast"
	Vision             ProviderID = "vision"
	SecondaryReasoning ProviderID = "secondary-reasoning"
	General            ProviderID = "general"
	GeneralMini        ProviderID = "general-mini"
)

// AllProviders returns every known provider in global fallback priority order.
func AllProviders() []ProviderID {
	return []ProviderID{PrimaryReasoning, Fast, SecondaryReasoning, Vision, General, GeneralMini}
}

// Valid reports whether id is one of the known providers.
func (id ProviderID) Valid() bool {
	for _, p := range AllProviders() {
		if p == id {
			return true
		}
	}
	return false
}

// needsEndpoint is true for providers served by the OpenAI-compatible gateway.
func (id ProviderID) needsEndpoint() bool {
	return id == Fast || id == SecondaryReasoning
}

func (id ProviderID) String() string { return string(id) }

// Provider is the uniform call contract every backend adapter implements.
// Implementations: AnthropicProvider, OpenAIProvider, XAIProvider.
// Adapters are immutable after construction and safe for concurrent use.
// They never retry internally.
type Provider interface {
	ID() ProviderID
	Model() string
	Call(ctx context.Context, prompt, systemInstructions string, opts Options) (string, error)
}

const (
	// DefaultMaxOutputTokens applies when neither the request nor the provider config sets a limit.
	DefaultMaxOutputTokens = 4096
	// DefaultTemperature applies when the request leaves temperature unset.
	DefaultTemperature = 0.7
)

// Options are the optional generation knobs of a request.
type Options struct {
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

// resolve fills in defaults. defaultMax is the adapter's configured output limit.
// Temperature is clamped to [0, 1].
func (o Options) resolve(defaultMax int) (maxTokens int, temperature float64) {
	maxTokens = defaultMax
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	if o.MaxOutputTokens != nil && *o.MaxOutputTokens > 0 {
		maxTokens = *o.MaxOutputTokens
	}

	temperature = DefaultTemperature
	if o.Temperature != nil {
		temperature = *o.Temperature
	}
	if temperature < 0 {
		temperature = 0
	}
	if temperature > 1 {
		temperature = 1
	}
	return maxTokens, temperature
}

// Int returns a pointer to v, for building Options literals.
func Int(v int) *int { return &v }

// Float returns a pointer to v, for building Options literals.
func Float(v float64) *float64 { return &v }

// GenerationRequest is one prompt to be served by some provider.
type GenerationRequest struct {
	Prompt             string  `json:"prompt"`
	SystemInstructions string  `json:"systemInstructions,omitempty"`
	Options            Options `json:"options,omitempty"`
}

// Attempt outcomes
const (
	OutcomeOK          = "ok"
	OutcomeFailed      = "failed"
	OutcomeUnavailable = "unavailable"
)

// Attempt records one provider tried while serving a request.
type Attempt struct {
	Provider ProviderID    `json:"provider"`
	Outcome  string        `json:"outcome"`
	Class    ErrorType     `json:"class,omitempty"`
	Duration time.Duration `json:"durationNs"`
	Err      error         `json:"-"`
}

// GenerationResult is the normalized answer plus provenance.
// ServedBy is always the provider whose call succeeded.
type GenerationResult struct {
	Content              string     `json:"content"`
	ServedBy             ProviderID `json:"servedBy"`
	ProcessingTimeMillis int64      `json:"processingTimeMillis"`
	Attempts             []Attempt  `json:"attempts,omitempty"`
	FailedOver           bool       `json:"failedOver"`
}
