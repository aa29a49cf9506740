package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/roelfdiedericks/aiorchestrator/internal/llm"
)

type fakeEmbedder struct {
	name  string
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Name() string  { return f.name }
func (f *fakeEmbedder) Model() string { return "fake" }
func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

func TestEmbedNoBackends(t *testing.T) {
	svc := NewService(Config{})
	_, err := svc.Embed(context.Background(), "hello")
	if !errors.Is(err, ErrNoEmbeddingProviderAvailable) {
		t.Fatalf("err = %v, want ErrNoEmbeddingProviderAvailable", err)
	}
	if len(svc.HealthCheck(context.Background(), time.Second)) != 0 {
		t.Error("health check should be empty with no backends")
	}
}

func TestEmbedFallback(t *testing.T) {
	primary := &fakeEmbedder{name: "ollama", err: errors.New("connection refused")}
	secondary := &fakeEmbedder{name: "openai", vec: []float32{0.1, 0.2, 0.3}}
	svc := NewServiceWith(primary, secondary)

	res, err := svc.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if res.ServedBy != "openai" || res.Dimensions != 3 {
		t.Errorf("result = %+v", res)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.calls, secondary.calls)
	}
}

func TestEmbedPrimaryServes(t *testing.T) {
	primary := &fakeEmbedder{name: "ollama", vec: []float32{1}}
	secondary := &fakeEmbedder{name: "openai", vec: []float32{2}}
	svc := NewServiceWith(primary, secondary)

	res, err := svc.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if res.ServedBy != "ollama" || secondary.calls != 0 {
		t.Errorf("primary should serve alone: %+v, secondary calls %d", res, secondary.calls)
	}
}

func TestEmbedAllFail(t *testing.T) {
	svc := NewServiceWith(
		&fakeEmbedder{name: "ollama", err: errors.New("boom")},
		&fakeEmbedder{name: "openai"}, // empty vector
	)
	_, err := svc.Embed(context.Background(), "hello")
	if !errors.Is(err, llm.ErrAllProvidersFailed) {
		t.Fatalf("err = %v, want ErrAllProvidersFailed", err)
	}
	var apf *llm.AllProvidersFailedError
	if !errors.As(err, &apf) || apf.Operation != "embed" || len(apf.Attempts) != 2 {
		t.Errorf("unexpected error: %#v", err)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	svc := NewServiceWith(&fakeEmbedder{name: "ollama", vec: []float32{1}})
	if _, err := svc.Embed(context.Background(), "  "); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

func TestEmbedOnlyGeneralPurposeConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != DefaultOpenAIModel {
			t.Errorf("model = %v", req["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25,0.125,1]}],"model":"text-embedding-3-small","usage":{"prompt_tokens":1,"total_tokens":1}}`))
	}))
	defer srv.Close()

	svc := NewService(Config{OpenAIAPIKey: "sk-test", OpenAIBaseURL: srv.URL})
	if got := svc.Backends(); len(got) != 1 || got[0] != "openai" {
		t.Fatalf("backends = %v", got)
	}

	res, err := svc.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if res.Dimensions != 4 || res.Vector[1] != 0.25 {
		t.Errorf("result = %+v", res)
	}
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != DefaultOllamaModel || req.Input != "hello" {
			t.Errorf("request = %+v", req)
		}
		_, _ = w.Write([]byte(`{"model":"nomic-embed-text","embeddings":[[0.1,0.2]]}`))
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL+"/", "", 5)
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("vec = %v", vec)
	}
}

func TestOllamaEmbedderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"model not found"}`},
		{"empty vector", http.StatusOK, `{"embeddings":[]}`},
		{"bad json", http.StatusOK, `{"embeddings":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			if _, err := NewOllamaEmbedder(srv.URL, "", 5).Embed(context.Background(), "x"); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestEmbeddingHealthCheck(t *testing.T) {
	svc := NewServiceWith(
		&fakeEmbedder{name: "ollama", err: errors.New("down")},
		&fakeEmbedder{name: "openai", vec: []float32{1}},
	)
	got := svc.HealthCheck(context.Background(), time.Second)
	if len(got) != 2 || got["embedding:ollama"] || !got["embedding:openai"] {
		t.Errorf("HealthCheck = %v", got)
	}
}
