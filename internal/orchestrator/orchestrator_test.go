package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roelfdiedericks/aiorchestrator/internal/config"
	"github.com/roelfdiedericks/aiorchestrator/internal/embeddings"
	"github.com/roelfdiedericks/aiorchestrator/internal/llm"
)

type stubProvider struct {
	id    llm.ProviderID
	reply string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubProvider) ID() llm.ProviderID { return s.id }
func (s *stubProvider) Model() string      { return "stub" }
func (s *stubProvider) Call(ctx context.Context, prompt, system string, opts llm.Options) (string, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type stubEmbedder struct {
	name string
	vec  []float32
	err  error
}

func (s *stubEmbedder) Name() string  { return s.name }
func (s *stubEmbedder) Model() string { return "stub" }
func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vec, s.err
}

func TestGenerateBusinessOnPrimary(t *testing.T) {
	primary := &stubProvider{id: llm.PrimaryReasoning, reply: "Here is the analysis."}
	o := New(llm.NewRegistryWith(primary), nil, nil)

	res, err := o.Generate(context.Background(), GenerateRequest{Prompt: "Assess this application", TaskType: "business"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.ServedBy != llm.PrimaryReasoning || res.Content != "Here is the analysis." {
		t.Errorf("result = %+v", res)
	}
}

func TestGenerateFastFallsBackToPrimary(t *testing.T) {
	fast := &stubProvider{id: llm.Fast, err: errors.New("gateway timeout 504"), delay: 25 * time.Millisecond}
	primary := &stubProvider{id: llm.PrimaryReasoning, reply: "ok", delay: 25 * time.Millisecond}
	o := New(llm.NewRegistryWith(fast, primary), nil, nil)

	res, err := o.Generate(context.Background(), GenerateRequest{Prompt: "quick", TaskType: "fast"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.ServedBy != llm.PrimaryReasoning {
		t.Errorf("ServedBy = %s", res.ServedBy)
	}
	if res.ProcessingTimeMillis < 50 {
		t.Errorf("ProcessingTimeMillis = %d, want both attempts counted", res.ProcessingTimeMillis)
	}
	if fast.calls.Load() != 1 || primary.calls.Load() != 1 {
		t.Errorf("calls fast=%d primary=%d", fast.calls.Load(), primary.calls.Load())
	}
}

func TestGenerateNothingConfigured(t *testing.T) {
	o := FromConfig(config.Default())

	_, err := o.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	if !errors.Is(err, llm.ErrAllProvidersFailed) {
		t.Fatalf("err = %v, want ErrAllProvidersFailed", err)
	}
	if got := llm.UserMessage(err); got != llm.UnavailableMessage {
		t.Errorf("UserMessage = %q", got)
	}
}

func TestGenerateEmptyPrompt(t *testing.T) {
	primary := &stubProvider{id: llm.PrimaryReasoning, reply: "x"}
	o := New(llm.NewRegistryWith(primary), nil, nil)

	if _, err := o.Generate(context.Background(), GenerateRequest{Prompt: "   "}); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("err = %v, want ErrEmptyPrompt", err)
	}
	if primary.calls.Load() != 0 {
		t.Error("no provider should be called for an empty prompt")
	}
}

func TestEmbedScenarios(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"text-embedding-3-small"}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Providers.General.APIKey = "sk-test"
	cfg.Providers.General.BaseURL = srv.URL
	cfg.Embeddings.OpenAIAPIKey = "sk-test"
	cfg.Embeddings.OpenAIBaseURL = srv.URL
	o := FromConfig(cfg)

	vec, err := o.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("vec = %v", vec)
	}

	none := FromConfig(config.Default())
	if _, err := none.Embed(context.Background(), "hello"); !errors.Is(err, embeddings.ErrNoEmbeddingProviderAvailable) {
		t.Errorf("err = %v, want ErrNoEmbeddingProviderAvailable", err)
	}
}

func TestHealthCheckThreeProviders(t *testing.T) {
	reg := llm.NewRegistryWith(
		&stubProvider{id: llm.PrimaryReasoning, reply: "pong"},
		&stubProvider{id: llm.Fast, reply: "pong"},
		&stubProvider{id: llm.General, err: errors.New("401 unauthorized")},
	)
	o := New(reg, nil, []Option{WithProbeTimeout(time.Second)})

	got := o.HealthCheck(context.Background())
	if len(got) != 3 {
		t.Fatalf("HealthCheck = %v, want 3 entries", got)
	}
	falses := 0
	for _, ok := range got {
		if !ok {
			falses++
		}
	}
	if falses != 1 || got["general"] {
		t.Errorf("HealthCheck = %v, want exactly general false", got)
	}
}

func TestHealthCheckKeepsEmbeddingsSeparate(t *testing.T) {
	reg := llm.NewRegistryWith(
		&stubProvider{id: llm.General, reply: "pong"},
		&stubProvider{id: llm.GeneralMini, reply: "pong"},
		&stubProvider{id: llm.Vision, reply: "pong"},
	)
	emb := embeddings.NewServiceWith(
		&stubEmbedder{name: "ollama", vec: []float32{1}},
		&stubEmbedder{name: "openai", err: errors.New("boom")},
	)
	o := New(reg, emb, nil)

	got := o.HealthCheck(context.Background())
	if len(got) != 3 || !got["general"] || !got["general-mini"] || !got["vision"] {
		t.Errorf("HealthCheck = %v, want the 3 providers only", got)
	}

	emh := o.EmbeddingHealthCheck(context.Background())
	if len(emh) != 2 || !emh["embedding:ollama"] || emh["embedding:openai"] {
		t.Errorf("EmbeddingHealthCheck = %v", emh)
	}
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if RequestID(ctx) != "req-123" {
		t.Error("request ID not carried")
	}
	if id := RequestID(context.Background()); len(id) != 36 {
		t.Errorf("generated ID = %q, want a UUID", id)
	}
}
