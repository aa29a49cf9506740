package embeddings

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roelfdiedericks/aiorchestrator/internal/llm"
	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
	. "github.com/roelfdiedericks/aiorchestrator/internal/metrics"
)

// Result is a vector plus the backend that produced it. Vectors from
// different backends are not comparable.
type Result struct {
	Vector     []float32 `json:"embedding"`
	ServedBy   string    `json:"servedBy"`
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
}

// Service tries the primary backend, then the fallback.
type Service struct {
	backends []Embedder // priority order, configured only
}

// NewService builds the configured backends from cfg. Either may be absent.
func NewService(cfg Config) *Service {
	var backends []Embedder
	if strings.TrimSpace(cfg.URL) != "" {
		backends = append(backends, NewOllamaEmbedder(cfg.URL, cfg.Model, cfg.timeoutSeconds()))
	} else {
		L_info("embeddings: primary backend unavailable", "reason", "no url configured")
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		backends = append(backends, NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.timeoutSeconds()))
	} else {
		L_info("embeddings: fallback backend unavailable", "reason", "no api key configured")
	}
	return NewServiceWith(backends...)
}

// NewServiceWith uses prebuilt backends in the given priority order.
func NewServiceWith(backends ...Embedder) *Service {
	s := &Service{}
	for _, b := range backends {
		if b != nil {
			s.backends = append(s.backends, b)
		}
	}
	return s
}

// Backends returns the configured backend names in priority order.
func (s *Service) Backends() []string {
	names := make([]string, 0, len(s.backends))
	for _, b := range s.backends {
		names = append(names, b.Name())
	}
	return names
}

// Available reports whether any backend is configured.
func (s *Service) Available() bool {
	return s != nil && len(s.backends) > 0
}

// Embed returns the vector for text from the first backend that succeeds.
// No chunking or truncation is applied.
func (s *Service) Embed(ctx context.Context, text string) (*Result, error) {
	if !s.Available() {
		return nil, ErrNoEmbeddingProviderAvailable
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	start := time.Now()
	attempts := make([]llm.Attempt, 0, len(s.backends))

	for _, b := range s.backends {
		if err := ctx.Err(); err != nil {
			return nil, &llm.AllProvidersFailedError{Operation: "embed", Attempts: attempts, Cause: err}
		}

		prefix := "embeddings/" + b.Name()
		attemptStart := time.Now()
		vec, err := b.Embed(ctx, text)
		elapsed := time.Since(attemptStart)
		MetricDuration(prefix, "request", elapsed)

		if err == nil && len(vec) == 0 {
			err = ErrEmptyVector
		}
		if err != nil {
			class := llm.ErrorClass(err)
			attempts = append(attempts, llm.Attempt{
				Provider: llm.ProviderID(b.Name()),
				Outcome:  llm.OutcomeFailed,
				Class:    class,
				Duration: elapsed,
				Err:      err,
			})
			MetricFailWithReason(prefix, "request_status", string(class))
			L_warn("embeddings: backend failed, trying next", "backend", b.Name(), "class", class, "error", err)
			continue
		}

		MetricSuccess(prefix, "request_status")
		MetricDuration("orchestrator", "embed", time.Since(start))
		if len(attempts) > 0 {
			MetricInc("orchestrator", "embed_fallbacks")
		}
		L_debug("embeddings: embedded", "backend", b.Name(), "dimensions", len(vec), "duration", elapsed.Round(time.Millisecond))
		return &Result{
			Vector:     vec,
			ServedBy:   b.Name(),
			Model:      b.Model(),
			Dimensions: len(vec),
		}, nil
	}

	MetricFailWithReason("orchestrator", "embed_status", "all_providers_failed")
	return nil, &llm.AllProvidersFailedError{Operation: "embed", Attempts: attempts}
}

// HealthCheck embeds a short probe with every configured backend in
// parallel. Keys are "embedding:<backend>".
func (s *Service) HealthCheck(ctx context.Context, timeout time.Duration) map[string]bool {
	results := make(map[string]bool, len(s.backends))
	if !s.Available() {
		return results
	}
	if timeout <= 0 {
		timeout = llm.DefaultProbeTimeout
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, b := range s.backends {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			vec, err := b.Embed(probeCtx, "ping")
			ok := err == nil && len(vec) > 0
			if !ok {
				L_warn("health: embedding probe failed", "backend", b.Name(), "error", err)
			}
			mu.Lock()
			results["embedding:"+b.Name()] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
