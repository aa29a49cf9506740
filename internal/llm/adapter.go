package llm

import (
	"fmt"
	"time"

	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
	. "github.com/roelfdiedericks/aiorchestrator/internal/metrics"
	"github.com/roelfdiedericks/aiorchestrator/internal/tokens"
)

// metricPrefixFor returns the metrics topic for an adapter, e.g. "llm/fast/llama-3.3-70b-versatile".
func metricPrefixFor(id ProviderID, model string) string {
	return fmt.Sprintf("llm/%s/%s", id, model)
}

// capOutput keeps maxTokens inside the model's context window given the input texts.
func capOutput(id ProviderID, model string, maxTokens int, input ...string) int {
	capped := tokens.CapForModel(model, maxTokens, input...)
	if capped < maxTokens {
		L_debug("llm: capped max_tokens to fit context", "provider", id, "model", model, "requested", maxTokens, "capped", capped)
	}
	return capped
}

// callStats is what an adapter learned from one backend response.
type callStats struct {
	inputTokens  int64
	outputTokens int64
	stopReason   string
}

// finishCall records metrics and logs for one adapter call and wraps err as
// a ProviderCallFailedError.
func finishCall(id ProviderID, model, prefix string, start time.Time, stats callStats, err error) error {
	elapsed := time.Since(start)
	MetricDuration(prefix, "request", elapsed)

	if err != nil {
		wrapped := callFailed(id, err)
		class := ErrorClass(wrapped)
		MetricFailWithReason(prefix, "request_status", string(class))
		L_debug("llm: request failed", "provider", id, "model", model, "class", class, "duration", elapsed.Round(time.Millisecond), "error", err)
		return wrapped
	}

	MetricSuccess(prefix, "request_status")
	if stats.inputTokens > 0 {
		MetricAdd(prefix, "input_tokens", stats.inputTokens)
	}
	if stats.outputTokens > 0 {
		MetricAdd(prefix, "output_tokens", stats.outputTokens)
	}
	if stats.stopReason != "" {
		MetricOutcome(prefix, "stop_reason", stats.stopReason)
	}
	L_debug("llm: request completed", "provider", id, "model", model,
		"duration", elapsed.Round(time.Millisecond), "inputTokens", stats.inputTokens, "outputTokens", stats.outputTokens)
	return nil
}
