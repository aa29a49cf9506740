// Package tokens estimates prompt sizes with tiktoken so output budgets can be
// kept inside each model's context window.
package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
)

// Estimator counts tokens with a tiktoken encoding
type Estimator struct {
	encoding *tiktoken.Tiktoken
	mu       sync.RWMutex
}

// DefaultEncoding is cl100k_base. It is close enough for every backend we route to.
const DefaultEncoding = "cl100k_base"

var (
	globalEstimator     *Estimator
	globalEstimatorOnce sync.Once
)

// Get returns the shared estimator
func Get() *Estimator {
	globalEstimatorOnce.Do(func() {
		var err error
		globalEstimator, err = New()
		if err != nil {
			L_warn("tokens: encoding unavailable, counting by characters", "error", err)
			globalEstimator = &Estimator{}
		}
	})
	return globalEstimator
}

// New creates an estimator for DefaultEncoding
func New() (*Estimator, error) {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, err
	}
	return &Estimator{encoding: enc}, nil
}

// Count returns the token count for text, or len/4 without an encoding.
func (e *Estimator) Count(text string) int {
	if e == nil || e.encoding == nil {
		return len(text) / 4
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.encoding.Encode(text, nil, nil))
}

// Estimate counts text with the shared estimator.
func Estimate(text string) int {
	return Get().Count(text)
}

// SafetyMargin pads input estimates for non-OpenAI tokenizers (20%).
const SafetyMargin = 1.2

// ResponseBuffer is reserved between prompt and output when capping.
const ResponseBuffer = 256

// CapMaxTokens returns min(requestedMax, contextWindow - padded input - buffer),
// never less than 100. A non-positive contextWindow leaves requestedMax alone.
func CapMaxTokens(requestedMax, contextWindow, estimatedInput, buffer int) int {
	if contextWindow <= 0 {
		return requestedMax
	}

	safeInput := int(float64(estimatedInput) * SafetyMargin)
	available := contextWindow - safeInput - buffer
	if available < 100 {
		available = 100
	}

	if requestedMax > 0 && requestedMax < available {
		return requestedMax
	}
	return available
}

// contextWindows maps model name prefixes to context sizes. Longest prefix wins.
var contextWindows = map[string]int{
	"claude":        200000,
	"gpt-4o":        128000,
	"gpt-4.1":       1047576,
	"gpt-4-turbo":   128000,
	"gpt-4":         8192,
	"gpt-3.5-turbo": 16385,
	"o1":            200000,
	"o3":            200000,
	"o4":            200000,
	"grok-2-vision": 32768,
	"grok-4":        256000,
	"grok":          131072,
	"llama":         131072,
	"gemma":         131072,
	"mixtral":       32768,
	"deepseek":      65536,
	"qwen":          131072,
}

// ContextWindow returns the known context size for model, or 0 when unknown.
func ContextWindow(model string) int {
	model = strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	best, size := 0, 0
	for prefix, n := range contextWindows {
		if strings.HasPrefix(model, prefix) && len(prefix) > best {
			best, size = len(prefix), n
		}
	}
	return size
}

// CapForModel caps requestedMax for a prompt sent to model.
func CapForModel(model string, requestedMax int, prompt ...string) int {
	input := 0
	for _, p := range prompt {
		input += Estimate(p)
	}
	return CapMaxTokens(requestedMax, ContextWindow(model), input, ResponseBuffer)
}
