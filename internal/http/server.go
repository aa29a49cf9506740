// Package http serves the orchestrator to the chat widget and other
// in-house callers over a small JSON API.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/roelfdiedericks/aiorchestrator/internal/embeddings"
	"github.com/roelfdiedericks/aiorchestrator/internal/llm"
	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
	"github.com/roelfdiedericks/aiorchestrator/internal/orchestrator"
)

// Orchestrator is the part of *orchestrator.Orchestrator the API needs.
type Orchestrator interface {
	Generate(ctx context.Context, req orchestrator.GenerateRequest) (*llm.GenerationResult, error)
	EmbedDetailed(ctx context.Context, text string) (*embeddings.Result, error)
	HealthCheck(ctx context.Context) map[string]bool
	EmbeddingHealthCheck(ctx context.Context) map[string]bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Listen       string        // Address to listen on (e.g., ":8088", "127.0.0.1:8088")
	ReadTimeout  time.Duration // 0 = 30s
	WriteTimeout time.Duration // 0 = 180s; also caps the fallback walk, see requestBudget
	MaxBodyBytes int64         // 0 = 1 MiB
}

// Server represents the HTTP server
type Server struct {
	server        *http.Server
	orch          Orchestrator
	maxBodyBytes  int64
	requestBudget time.Duration
	listener      net.Listener
	wg            sync.WaitGroup
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *ServerConfig, orch Orchestrator) (*Server, error) {
	if orch == nil {
		return nil, errors.New("http: orchestrator is required")
	}

	listen := cfg.Listen
	if listen == "" {
		listen = ":8088"
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 180 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	s := &Server{orch: orch, maxBodyBytes: maxBody, requestBudget: requestBudget(writeTimeout)}
	s.server = &http.Server{
		Addr:         listen,
		Handler:      s.Routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	L_debug("http: server created", "listen", listen, "readTimeout", readTimeout, "writeTimeout", writeTimeout,
		"requestBudget", s.requestBudget, "maxBodyBytes", maxBody)
	return s, nil
}

// requestBudget is how long a generate or embed call may run. It ends before
// the write deadline so the error response still reaches the client.
func requestBudget(writeTimeout time.Duration) time.Duration {
	margin := min(writeTimeout/10, 5*time.Second)
	return writeTimeout - margin
}

// Routes builds the router. Exposed for tests.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(logRequest)
	r.Use(stripHeaders)
	r.Use(middleware.Recoverer)

	// Liveness only; never calls a provider.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.AllowContentType("application/json")).Post("/generate", s.handleGenerate)
		r.With(middleware.AllowContentType("application/json")).Post("/embed", s.handleEmbed)
		r.Get("/health", s.handleHealth)
		r.Get("/health/embeddings", s.handleEmbeddingHealth)
		r.Get("/metrics", s.handleMetrics)
	})

	return r
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		L_info("http: server starting", "addr", ln.Addr().String())

		err := s.server.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			L_error("http: server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		L_error("http: shutdown error", "error", err)
		return err
	}

	s.wg.Wait()
	L_info("http: server stopped")
	return nil
}

// requestID takes X-Request-ID from the caller or mints a UUID, echoes it
// and attaches it to the request context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)

		ctx := orchestrator.WithRequestID(r.Context(), id)
		ctx = context.WithValue(ctx, middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// logRequest logs each request once it completes
func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		L_info("http: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"requestID", middleware.GetReqID(r.Context()),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

// stripHeaders removes fingerprinting headers
func stripHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Del("Server")
		w.Header().Del("X-Powered-By")
		next.ServeHTTP(w, r)
	})
}
