package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/roelfdiedericks/aiorchestrator/internal/embeddings"
	"github.com/roelfdiedericks/aiorchestrator/internal/llm"
	"github.com/roelfdiedericks/aiorchestrator/internal/orchestrator"
)

type stubProvider struct {
	id    llm.ProviderID
	reply string
	err   error
	hang  bool // wait for ctx to end
}

func (s *stubProvider) ID() llm.ProviderID { return s.id }
func (s *stubProvider) Model() string      { return "stub" }
func (s *stubProvider) Call(ctx context.Context, prompt, system string, opts llm.Options) (string, error) {
	if s.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Name() string  { return "ollama" }
func (s *stubEmbedder) Model() string { return "stub" }
func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vec, s.err
}

func newTestServer(t *testing.T, providers []llm.Provider, backends ...embeddings.Embedder) *httptest.Server {
	t.Helper()
	orch := orchestrator.New(llm.NewRegistryWith(providers...), embeddings.NewServiceWith(backends...), nil)
	s, err := NewServer(&ServerConfig{MaxBodyBytes: 256}, orch)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestGenerateEndpoint(t *testing.T) {
	ts := newTestServer(t, []llm.Provider{
		&stubProvider{id: llm.Fast, err: errors.New("503 service unavailable")},
		&stubProvider{id: llm.PrimaryReasoning, reply: "hello there"},
	})

	resp, out := post(t, ts.URL+"/api/generate", `{"prompt":"hi","taskType":"fast"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, out)
	}
	if out["content"] != "hello there" || out["servedBy"] != string(llm.PrimaryReasoning) {
		t.Errorf("body = %v", out)
	}
	if out["failedOver"] != true {
		t.Errorf("failedOver = %v, want true", out["failedOver"])
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestGenerateEndpointErrors(t *testing.T) {
	ts := newTestServer(t, []llm.Provider{
		&stubProvider{id: llm.General, err: errors.New("401 invalid api key sk-secret")},
	})

	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{"empty prompt", `{"prompt":"   "}`, http.StatusBadRequest, "prompt is required"},
		{"bad json", `{"prompt":`, http.StatusBadRequest, "invalid JSON body"},
		{"too large", `{"prompt":"` + strings.Repeat("x", 512) + `"}`, http.StatusRequestEntityTooLarge, "request body too large"},
		{"all failed", `{"prompt":"hi"}`, http.StatusServiceUnavailable, llm.UnavailableMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := post(t, ts.URL+"/api/generate", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if out["error"] != tt.errMsg {
				t.Errorf("error = %v, want %q", out["error"], tt.errMsg)
			}
		})
	}
}

func TestGenerateRejectsWrongContentType(t *testing.T) {
	ts := newTestServer(t, []llm.Provider{&stubProvider{id: llm.General, reply: "ok"}})

	resp, err := http.Post(ts.URL+"/api/generate", "text/plain", strings.NewReader(`{"prompt":"hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
}

func TestEmbedEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, &stubEmbedder{vec: []float32{0.1, 0.2, 0.3}})

	resp, out := post(t, ts.URL+"/api/embed", `{"text":"vector me"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, out)
	}
	if out["dimensions"] != float64(3) || out["servedBy"] != "ollama" {
		t.Errorf("body = %v", out)
	}
	if vec, _ := out["embedding"].([]any); len(vec) != 3 {
		t.Errorf("embedding = %v", out["embedding"])
	}

	resp, out = post(t, ts.URL+"/api/embed", `{"text":""}`)
	if resp.StatusCode != http.StatusBadRequest || out["error"] != "text is required" {
		t.Errorf("empty text: status = %d, body = %v", resp.StatusCode, out)
	}
}

func TestEmbedEndpointNoBackend(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, out := post(t, ts.URL+"/api/embed", `{"text":"vector me"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if out["error"] != llm.UnavailableMessage {
		t.Errorf("error = %v", out["error"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, []llm.Provider{
		&stubProvider{id: llm.Fast, reply: "pong"},
		&stubProvider{id: llm.General, err: errors.New("boom")},
	}, &stubEmbedder{vec: []float32{1}})

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var health map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if !health[string(llm.Fast)] || health[string(llm.General)] {
		t.Errorf("health = %v", health)
	}
	if _, ok := health[string(llm.Vision)]; ok {
		t.Error("unconfigured provider should be omitted")
	}
	if len(health) != 2 {
		t.Errorf("health = %v, want providers only", health)
	}

	emb, err := http.Get(ts.URL + "/api/health/embeddings")
	if err != nil {
		t.Fatal(err)
	}
	defer emb.Body.Close()
	var embHealth map[string]bool
	if err := json.NewDecoder(emb.Body).Decode(&embHealth); err != nil {
		t.Fatal(err)
	}
	if !embHealth["embedding:ollama"] || len(embHealth) != 1 {
		t.Errorf("embedding health = %v", embHealth)
	}

	live, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	live.Body.Close()
	if live.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", live.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, []llm.Provider{&stubProvider{id: llm.General, reply: "ok"}})
	post(t, ts.URL+"/api/generate", `{"prompt":"hi"}`)

	resp, err := http.Get(ts.URL + "/api/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var snap map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if len(snap) == 0 {
		t.Error("expected metrics after a generate call")
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	ts := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q", got)
	}
}

func TestGenerateAnswersBeforeWriteDeadline(t *testing.T) {
	var providers []llm.Provider
	for _, id := range llm.AllProviders() {
		providers = append(providers, &stubProvider{id: id, hang: true})
	}
	orch := orchestrator.New(llm.NewRegistryWith(providers...), nil, nil, llm.WithAttemptTimeout(300*time.Millisecond))

	writeTimeout := time.Second
	s, err := NewServer(&ServerConfig{WriteTimeout: writeTimeout}, orch)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewUnstartedServer(s.Routes())
	ts.Config.WriteTimeout = writeTimeout
	ts.Start()
	t.Cleanup(ts.Close)

	start := time.Now()
	resp, out := post(t, ts.URL+"/api/generate", `{"prompt":"hi"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if out["error"] != llm.UnavailableMessage {
		t.Errorf("error = %v", out["error"])
	}
	if elapsed := time.Since(start); elapsed >= writeTimeout {
		t.Errorf("answered after %v, past the %v write deadline", elapsed, writeTimeout)
	}
}

func TestRequestBudget(t *testing.T) {
	tests := []struct {
		write, want time.Duration
	}{
		{time.Second, 900 * time.Millisecond},
		{180 * time.Second, 175 * time.Second},
	}
	for _, tt := range tests {
		if got := requestBudget(tt.write); got != tt.want {
			t.Errorf("requestBudget(%v) = %v, want %v", tt.write, got, tt.want)
		}
	}
}
