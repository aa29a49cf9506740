package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestHealthCheck(t *testing.T) {
	primary := okProvider(PrimaryReasoning)
	fast := failingProvider(Fast, errors.New("401 unauthorized"))
	general := okProvider(General)
	reg := NewRegistryWith(primary, fast, general)

	got := reg.HealthCheck(context.Background(), time.Second)
	if len(got) != 3 {
		t.Fatalf("HealthCheck = %v, want 3 entries", got)
	}
	falses := 0
	for _, ok := range got {
		if !ok {
			falses++
		}
	}
	if falses != 1 || got["fast"] {
		t.Errorf("HealthCheck = %v, want only fast false", got)
	}
	if _, ok := got["vision"]; ok {
		t.Error("unconfigured providers must be omitted")
	}

	if primary.last.MaxOutputTokens == nil || *primary.last.MaxOutputTokens != 8 {
		t.Errorf("probe should request a tiny output budget, got %+v", primary.last)
	}

	again := reg.HealthCheck(context.Background(), time.Second)
	if len(again) != len(got) {
		t.Fatalf("second HealthCheck keys = %v, first = %v", again, got)
	}
	for k := range got {
		if _, ok := again[k]; !ok {
			t.Errorf("key %s missing on second check", k)
		}
	}
}

func TestHealthCheckProbeTimeout(t *testing.T) {
	hung := &fakeProvider{id: Vision, block: true}
	reg := NewRegistryWith(hung)

	start := time.Now()
	got := reg.HealthCheck(context.Background(), 20*time.Millisecond)
	if got["vision"] {
		t.Error("hung provider should report false")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("probe timeout not applied")
	}
}

func TestHealthCheckEmptyAnswerIsHealthy(t *testing.T) {
	body := `{"id":"x","object":"chat.completion","model":"o3-mini","choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"length"}],"usage":{"prompt_tokens":5,"completion_tokens":8,"total_tokens":13}}`
	var got map[string]any
	srv := openAIServer(t, &got, http.StatusOK, body)
	defer srv.Close()

	p, err := NewOpenAIProvider(General, ProviderConfig{APIKey: "sk", BaseURL: srv.URL, Model: "o3-mini"})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	broken := failingProvider(Fast, errors.New("connection refused"))
	reg := NewRegistryWith(p, broken)

	health := reg.HealthCheck(context.Background(), time.Second)
	if !health["general"] {
		t.Errorf("reasoning model that used its budget on thinking should be healthy: %v", health)
	}
	if health["fast"] {
		t.Errorf("unreachable provider should be unhealthy: %v", health)
	}
	if got["max_completion_tokens"] == nil {
		t.Error("health request should reach the backend with max_completion_tokens")
	}
}
