package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
	. "github.com/roelfdiedericks/aiorchestrator/internal/metrics"
)

// DefaultProbeTimeout bounds one health probe.
const DefaultProbeTimeout = 15 * time.Second

// probePrompt is the minimal live request sent to each provider.
const probePrompt = "ping"

// HealthCheck issues one minimal live call to every configured provider, in
// parallel, and reports which answered. Unconfigured providers are omitted.
// Not for the request path.
func (r *Registry) HealthCheck(ctx context.Context, timeout time.Duration) map[string]bool {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	ids := r.Available()
	results := make(map[string]bool, len(ids))
	var mu sync.Mutex
	var g errgroup.Group

	for _, id := range ids {
		p, err := r.Provider(id)
		if err != nil {
			continue
		}
		g.Go(func() error {
			ok := probe(ctx, p, timeout)
			mu.Lock()
			results[string(id)] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// probe reports whether p answered a minimal request within timeout.
// An empty answer still counts: reasoning models can spend the whole tiny
// budget before emitting text.
func probe(ctx context.Context, p Provider, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	opts := Options{MaxOutputTokens: Int(8), Temperature: Float(0)}
	_, err := p.Call(ctx, probePrompt, "", opts)
	elapsed := time.Since(start)
	if errors.Is(err, ErrEmptyResponse) {
		err = nil
	}
	MetricDuration("health/"+string(p.ID()), "probe", elapsed)

	if err != nil {
		MetricFailWithReason("health/"+string(p.ID()), "probe_status", string(ErrorClass(err)))
		L_warn("health: provider probe failed", "provider", p.ID(), "duration", elapsed.Round(time.Millisecond), "error", err)
		return false
	}
	MetricSuccess("health/"+string(p.ID()), "probe_status")
	L_debug("health: provider probe ok", "provider", p.ID(), "duration", elapsed.Round(time.Millisecond))
	return true
}
