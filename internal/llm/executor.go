package llm

import (
	"context"
	"strings"
	"time"

	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
	. "github.com/roelfdiedericks/aiorchestrator/internal/metrics"
)

// ChainOrder returns the fallback candidates for a preferred provider, in
// the order they should be tried. The executor drops duplicates, the
// preferred provider itself and unavailable providers.
type ChainOrder func(preferred ProviderID) []ProviderID

// DefaultChainOrder is the fixed global priority order minus preferred.
// Reasoning-quality providers come before speed-oriented ones.
func DefaultChainOrder(preferred ProviderID) []ProviderID {
	all := AllProviders()
	chain := make([]ProviderID, 0, len(all))
	for _, id := range all {
		if id != preferred {
			chain = append(chain, id)
		}
	}
	return chain
}

// DefaultAttemptTimeout bounds a single provider call.
const DefaultAttemptTimeout = 60 * time.Second

// Executor runs a request against a preferred provider and walks the
// fallback chain on failure. Each provider is tried at most once per
// request and attempts are strictly sequential.
type Executor struct {
	registry       *Registry
	order          ChainOrder
	attemptTimeout time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithChainOrder replaces the fallback ordering function.
func WithChainOrder(order ChainOrder) ExecutorOption {
	return func(e *Executor) {
		if order != nil {
			e.order = order
		}
	}
}

// WithAttemptTimeout bounds each provider call. Zero or less disables the bound.
func WithAttemptTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.attemptTimeout = d
	}
}

// NewExecutor creates an executor over registry.
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:       registry,
		order:          DefaultChainOrder,
		attemptTimeout: DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// candidates returns preferred followed by its fallback chain, deduplicated.
func (e *Executor) candidates(preferred ProviderID) []ProviderID {
	chain := e.order(preferred)
	out := make([]ProviderID, 0, len(chain)+1)
	seen := make(map[ProviderID]bool, len(chain)+1)
	for _, id := range append([]ProviderID{preferred}, chain...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Execute serves req, starting with preferred. ProcessingTimeMillis covers
// the whole operation, failed attempts included. When every candidate fails
// or none is available it returns an *AllProvidersFailedError. When ctx ends
// mid-walk the walk stops and the error also wraps ctx.Err().
func (e *Executor) Execute(ctx context.Context, preferred ProviderID, req GenerationRequest) (*GenerationResult, error) {
	start := time.Now()
	candidates := e.candidates(preferred)
	attempts := make([]Attempt, 0, len(candidates))

	exhausted := func(cause error) error {
		MetricDuration("orchestrator", "generate", time.Since(start))
		MetricFailWithReason("orchestrator", "generate_status", "all_providers_failed")
		L_warn("llm: all providers failed", "preferred", preferred, "attempts", len(attempts), "cause", cause)
		return &AllProvidersFailedError{Operation: "generate", Attempts: attempts, Cause: cause}
	}

	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, exhausted(err)
		}

		p, err := e.registry.Provider(id)
		if err != nil {
			if id == preferred {
				attempts = append(attempts, Attempt{Provider: id, Outcome: OutcomeUnavailable, Err: err})
				L_debug("llm: preferred provider unavailable, falling back", "provider", id)
			}
			continue
		}

		attemptStart := time.Now()
		content, err := e.call(ctx, p, req)
		elapsed := time.Since(attemptStart)

		if err != nil {
			wrapped := callFailed(id, err)
			class := ErrorClass(wrapped)
			attempts = append(attempts, Attempt{Provider: id, Outcome: OutcomeFailed, Class: class, Duration: elapsed, Err: wrapped})
			MetricFailWithReason("orchestrator/attempt", string(id), string(class))
			if IsTransient(class) {
				L_info("llm: provider failed, trying next", "provider", id, "class", class, "duration", elapsed.Round(time.Millisecond))
			} else {
				L_warn("llm: provider failed, trying next", "provider", id, "class", class, "duration", elapsed.Round(time.Millisecond), "error", err)
			}
			continue
		}

		attempts = append(attempts, Attempt{Provider: id, Outcome: OutcomeOK, Duration: elapsed})
		MetricSuccess("orchestrator/attempt", string(id))

		total := time.Since(start)
		result := &GenerationResult{
			Content:              content,
			ServedBy:             id,
			ProcessingTimeMillis: total.Milliseconds(),
			Attempts:             attempts,
			FailedOver:           id != preferred,
		}

		MetricDuration("orchestrator", "generate", total)
		MetricSuccess("orchestrator", "generate_status")
		MetricOutcome("orchestrator", "served_by", string(id))
		if result.FailedOver {
			MetricInc("orchestrator", "fallbacks")
			L_info("llm: served by fallback provider", "preferred", preferred, "servedBy", id, "attempts", len(attempts), "duration", total.Round(time.Millisecond))
		} else {
			L_debug("llm: served by preferred provider", "provider", id, "duration", total.Round(time.Millisecond))
		}
		return result, nil
	}

	return nil, exhausted(nil)
}

// call runs one provider call under the per-attempt deadline. An empty
// answer counts as a failure so no partial success is ever returned.
func (e *Executor) call(ctx context.Context, p Provider, req GenerationRequest) (string, error) {
	if e.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.attemptTimeout)
		defer cancel()
	}

	content, err := p.Call(ctx, req.Prompt, req.SystemInstructions, req.Options)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
