package llm

import "strings"

// ProviderConfig configures one provider adapter.
// This is the canonical type used by both config loading and the registry.
type ProviderConfig struct {
	APIKey         string `yaml:"apiKey,omitempty"`         // Credential; empty disables the provider
	BaseURL        string `yaml:"baseURL,omitempty"`        // OpenAI-compatible gateway endpoint
	Model          string `yaml:"model,omitempty"`          // Backend model identifier
	MaxTokens      int    `yaml:"maxTokens,omitempty"`      // Default output limit (0 = DefaultMaxOutputTokens)
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"` // Client request timeout (0 = DefaultTimeoutSeconds)
	MaxRetries     *int   `yaml:"maxRetries,omitempty"`     // Transport-level retries where the SDK supports it
}

// DefaultTimeoutSeconds is the client timeout when none is configured.
const DefaultTimeoutSeconds = 120

// DefaultMaxRetries is the transport retry count for SDKs with built-in retry.
const DefaultMaxRetries = 2

// Configured reports whether cfg carries everything provider id needs.
// Gateway-backed providers also need an endpoint.
func (cfg ProviderConfig) Configured(id ProviderID) bool {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return false
	}
	if id.needsEndpoint() && strings.TrimSpace(cfg.BaseURL) == "" {
		return false
	}
	return true
}

func (cfg ProviderConfig) timeoutSeconds() int {
	if cfg.TimeoutSeconds > 0 {
		return cfg.TimeoutSeconds
	}
	return DefaultTimeoutSeconds
}

func (cfg ProviderConfig) maxRetries() int {
	if cfg.MaxRetries != nil && *cfg.MaxRetries >= 0 {
		return *cfg.MaxRetries
	}
	return DefaultMaxRetries
}

// Config holds one ProviderConfig per provider id.
type Config map[ProviderID]ProviderConfig

// DefaultModels are used when a provider's config leaves Model empty.
var DefaultModels = map[ProviderID]string{
	PrimaryReasoning:   "claude-sonnet-4-20250514",
	Fast:               "llama-3.3-70b-versatile",
	SecondaryReasoning: "deepseek-r1-distill-llama-70b",
	Vision:             "grok-2-vision-1212",
	General:            "gpt-4o",
	GeneralMini:        "gpt-4o-mini",
}

func (cfg ProviderConfig) model(id ProviderID) string {
	if m := strings.TrimSpace(cfg.Model); m != "" {
		return m
	}
	return DefaultModels[id]
}
