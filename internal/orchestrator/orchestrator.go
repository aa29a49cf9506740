// Package orchestrator is the single entry point the application calls for
// generation, embeddings and provider health. Build one at startup and share it.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roelfdiedericks/aiorchestrator/internal/config"
	"github.com/roelfdiedericks/aiorchestrator/internal/embeddings"
	"github.com/roelfdiedericks/aiorchestrator/internal/llm"
	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
	"github.com/roelfdiedericks/aiorchestrator/internal/tokens"
)

// ErrEmptyPrompt is returned by Generate for a blank prompt.
var ErrEmptyPrompt = errors.New("prompt is empty")

// GenerateRequest is a caller's generation request.
type GenerateRequest struct {
	Prompt             string      `json:"prompt"`
	SystemInstructions string      `json:"systemInstructions,omitempty"`
	TaskType           string      `json:"taskType,omitempty"`
	Options            llm.Options `json:"options,omitempty"`
}

// Orchestrator ties the registry, selector, executor and embedding service
// together. It is read-only after construction and safe for concurrent use.
type Orchestrator struct {
	registry     *llm.Registry
	executor     *llm.Executor
	embedder     *embeddings.Service
	probeTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProbeTimeout bounds each health probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.probeTimeout = d
	}
}

// New builds an orchestrator from its parts. executorOpts are passed to the
// fallback executor.
func New(registry *llm.Registry, embedder *embeddings.Service, opts []Option, executorOpts ...llm.ExecutorOption) *Orchestrator {
	if embedder == nil {
		embedder = embeddings.NewServiceWith()
	}
	o := &Orchestrator{
		registry:     registry,
		executor:     llm.NewExecutor(registry, executorOpts...),
		embedder:     embedder,
		probeTimeout: llm.DefaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FromConfig builds every adapter and backend described by cfg.
func FromConfig(cfg *config.Config) *Orchestrator {
	registry := llm.NewRegistry(cfg.Providers.LLM())
	embedder := embeddings.NewService(cfg.Embeddings)

	var opts []Option
	if s := cfg.Orchestrator.ProbeTimeoutSeconds; s > 0 {
		opts = append(opts, WithProbeTimeout(time.Duration(s)*time.Second))
	}
	attempt := time.Duration(cfg.Orchestrator.AttemptTimeoutSeconds) * time.Second

	o := New(registry, embedder, opts, llm.WithAttemptTimeout(attempt))
	L_info("orchestrator: ready", "providers", registry.Available(), "embeddingBackends", embedder.Backends())
	return o
}

// Registry exposes the availability registry.
func (o *Orchestrator) Registry() *llm.Registry { return o.registry }

// Generate selects a provider for req.TaskType and serves the request,
// falling back across providers on failure.
func (o *Orchestrator) Generate(ctx context.Context, req GenerateRequest) (*llm.GenerationResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	requestID := RequestID(ctx)
	preferred := llm.SelectProvider(req.TaskType)
	L_debug("orchestrator: generate", "requestID", requestID, "taskType", req.TaskType, "preferred", preferred,
		"promptTokens", tokens.Estimate(req.Prompt))

	res, err := o.executor.Execute(ctx, preferred, llm.GenerationRequest{
		Prompt:             req.Prompt,
		SystemInstructions: req.SystemInstructions,
		Options:            req.Options,
	})
	if err != nil {
		L_warn("orchestrator: generate failed", "requestID", requestID, "taskType", req.TaskType, "error", err)
		return nil, err
	}

	L_info("orchestrator: generated", "requestID", requestID, "servedBy", res.ServedBy,
		"failedOver", res.FailedOver, "ms", res.ProcessingTimeMillis)
	return res, nil
}

// Embed returns the embedding vector for text.
func (o *Orchestrator) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := o.EmbedDetailed(ctx, text)
	if err != nil {
		return nil, err
	}
	return res.Vector, nil
}

// EmbedDetailed is Embed plus the serving backend and dimensions.
func (o *Orchestrator) EmbedDetailed(ctx context.Context, text string) (*embeddings.Result, error) {
	res, err := o.embedder.Embed(ctx, text)
	if err != nil {
		L_warn("orchestrator: embed failed", "requestID", RequestID(ctx), "error", err)
		return nil, err
	}
	return res, nil
}

// HealthCheck probes every configured LLM provider, one entry per provider.
// Unconfigured ones are omitted. Makes live calls; keep it off the request path.
func (o *Orchestrator) HealthCheck(ctx context.Context) map[string]bool {
	start := time.Now()
	results := o.registry.HealthCheck(ctx, o.probeTimeout)
	logHealth("providers", results, start)
	return results
}

// EmbeddingHealthCheck probes every configured embedding backend, keyed
// "embedding:<backend>".
func (o *Orchestrator) EmbeddingHealthCheck(ctx context.Context) map[string]bool {
	start := time.Now()
	results := o.embedder.HealthCheck(ctx, o.probeTimeout)
	logHealth("embeddings", results, start)
	return results
}

func logHealth(kind string, results map[string]bool, start time.Time) {
	healthy := 0
	for _, ok := range results {
		if ok {
			healthy++
		}
	}
	L_info("orchestrator: health check", "kind", kind, "checked", len(results), "healthy", healthy,
		"duration", time.Since(start).Round(time.Millisecond))
}

type requestIDKey struct{}

// WithRequestID attaches a request ID to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the ID attached to ctx, or a fresh one.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
