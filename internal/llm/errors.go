package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProviderUnavailable: the provider has no configuration and was never attempted.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderCallFailed: a configured provider was called and failed.
	ErrProviderCallFailed = errors.New("provider call failed")
	// ErrAllProvidersFailed: the preferred provider and every fallback failed or were unavailable.
	ErrAllProvidersFailed = errors.New("all providers failed")
	// ErrEmptyResponse is returned by adapters when the backend answers with no text.
	ErrEmptyResponse = errors.New("empty response from provider")
)

// ProviderUnavailableError reports a provider that is not configured.
type ProviderUnavailableError struct {
	Provider ProviderID
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("%s: provider not configured", e.Provider)
}

func (e *ProviderUnavailableError) Is(target error) bool {
	return target == ErrProviderUnavailable
}

// ProviderCallFailedError wraps the transport or backend error of one call.
type ProviderCallFailedError struct {
	Provider ProviderID
	Class    ErrorType
	Err      error
}

func (e *ProviderCallFailedError) Error() string {
	return fmt.Sprintf("%s: call failed (%s): %v", e.Provider, e.Class, e.Err)
}

func (e *ProviderCallFailedError) Unwrap() error { return e.Err }

func (e *ProviderCallFailedError) Is(target error) bool {
	return target == ErrProviderCallFailed
}

// callFailed wraps err for provider id, classifying it. Nil stays nil.
func callFailed(id ProviderID, err error) error {
	if err == nil {
		return nil
	}
	var cf *ProviderCallFailedError
	if errors.As(err, &cf) {
		return err
	}
	return &ProviderCallFailedError{Provider: id, Class: classify(err), Err: err}
}

// AllProvidersFailedError is returned once a fallback walk is exhausted.
type AllProvidersFailedError struct {
	Operation string
	Attempts  []Attempt
	// Cause is set when the walk stopped early, e.g. the caller's context ended.
	Cause error
}

func (e *AllProvidersFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: all providers failed", e.Operation)
	if len(e.Attempts) == 0 {
		b.WriteString(" (no provider available)")
	}
	for i, a := range e.Attempts {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(string(a.Provider))
		b.WriteString("=")
		b.WriteString(a.Outcome)
		if a.Class != "" && a.Outcome == OutcomeFailed {
			b.WriteString("/" + string(a.Class))
		}
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " (stopped: %v)", e.Cause)
	}
	return b.String()
}

func (e *AllProvidersFailedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

func (e *AllProvidersFailedError) Unwrap() error { return e.Cause }

// UnavailableMessage is what end users see instead of backend error text.
const UnavailableMessage = "The assistant is temporarily unavailable. Please try again shortly."

// UserMessage maps any orchestration error to text safe to show an end user.
// Raw backend errors are never surfaced.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "The request was cancelled."
	}
	return UnavailableMessage
}

// ErrorType categorizes backend errors for logs and metrics.
type ErrorType string

const (
	ErrorTypeUnknown         ErrorType = "unknown"
	ErrorTypeContextOverflow ErrorType = "context_overflow"
	ErrorTypeRateLimit       ErrorType = "rate_limit"
	ErrorTypeOverloaded      ErrorType = "overloaded"
	ErrorTypeAuth            ErrorType = "auth"
	ErrorTypeBilling         ErrorType = "billing"
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypeFormat          ErrorType = "format"
	ErrorTypeMaxTokens       ErrorType = "max_tokens"
	ErrorTypeEmpty           ErrorType = "empty_response"
	ErrorTypeCanceled        ErrorType = "canceled"
)

// classify prefers typed errors and falls back to message matching.
func classify(err error) ErrorType {
	switch {
	case err == nil:
		return ErrorTypeUnknown
	case errors.Is(err, ErrEmptyResponse):
		return ErrorTypeEmpty
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeCanceled
	}
	return ClassifyError(err.Error())
}

// errorPatterns are checked in order; the first class with a matching
// substring wins. max_tokens precedes auth and format because those 400s
// also carry invalid_request_error.
var errorPatterns = []struct {
	class    ErrorType
	patterns []string
}{
	{ErrorTypeMaxTokens, []string{
		"max_tokens: ", "max_tokens must be", "max_tokens cannot exceed",
		"maximum allowed number of output tokens",
	}},
	{ErrorTypeContextOverflow, []string{
		"context_length_exceeded", "context length exceeded", "maximum context length",
		"prompt is too long", "request_too_large", "exceeds model context window",
		"context size has been exceeded",
	}},
	{ErrorTypeRateLimit, []string{
		"429", "rate_limit", "rate limit", "too many requests", "quota exceeded",
		"exceeded your current quota", "resource_exhausted", "requests per minute",
	}},
	{ErrorTypeOverloaded, []string{
		"overloaded", "server is busy", "temporarily unavailable", "529", "503 service",
	}},
	{ErrorTypeBilling, []string{
		"402", "payment required", "insufficient credits", "credit balance",
		"billing", "insufficient_quota",
	}},
	{ErrorTypeAuth, []string{
		"401", "403", "invalid api key", "invalid_api_key", "incorrect api key",
		"unauthorized", "forbidden", "authentication", "permission denied",
	}},
	{ErrorTypeTimeout, []string{
		"408", "504", "timeout", "timed out", "deadline exceeded", "connection reset",
	}},
	{ErrorTypeFormat, []string{
		"invalid request format", "invalid_request_error", "malformed",
		"unexpected end of json", "cannot unmarshal",
	}},
}

// ClassifyError determines the error type from an error message.
// Returns ErrorTypeUnknown if the message doesn't match any known pattern.
func ClassifyError(msg string) ErrorType {
	if msg == "" {
		return ErrorTypeUnknown
	}
	lower := strings.ToLower(msg)
	for _, ep := range errorPatterns {
		for _, p := range ep.patterns {
			if strings.Contains(lower, p) {
				return ep.class
			}
		}
	}
	return ErrorTypeUnknown
}

// IsTransient reports whether a class of failure is likely to clear on its own.
// Used for log levels only: every failure moves the walk to the next provider.
func IsTransient(errType ErrorType) bool {
	switch errType {
	case ErrorTypeRateLimit, ErrorTypeOverloaded, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// ErrorClass returns the class carried by a ProviderCallFailedError, or
// classifies err directly.
func ErrorClass(err error) ErrorType {
	var cf *ProviderCallFailedError
	if errors.As(err, &cf) && cf.Class != "" {
		return cf.Class
	}
	return classify(err)
}
