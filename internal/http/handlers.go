package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roelfdiedericks/aiorchestrator/internal/embeddings"
	"github.com/roelfdiedericks/aiorchestrator/internal/llm"
	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
	"github.com/roelfdiedericks/aiorchestrator/internal/metrics"
	"github.com/roelfdiedericks/aiorchestrator/internal/orchestrator"
)

type errorResponse struct {
	Error string `json:"error"`
}

type generateResponse struct {
	Content              string         `json:"content"`
	ServedBy             llm.ProviderID `json:"servedBy"`
	ProcessingTimeMillis int64          `json:"processingTimeMillis"`
	FailedOver           bool           `json:"failedOver"`
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding  []float32 `json:"embedding"`
	Dimensions int       `json:"dimensions"`
	ServedBy   string    `json:"servedBy"`
}

// handleGenerate serves POST /api/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.GenerateRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestBudget)
	defer cancel()

	res, err := s.orch.Generate(ctx, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, generateResponse{
			Content:              res.Content,
			ServedBy:             res.ServedBy,
			ProcessingTimeMillis: res.ProcessingTimeMillis,
			FailedOver:           res.FailedOver,
		})
	case errors.Is(err, orchestrator.ErrEmptyPrompt):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "prompt is required"})
	default:
		writeUnavailable(r.Context(), w, err)
	}
}

// handleEmbed serves POST /api/embed
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestBudget)
	defer cancel()

	res, err := s.orch.EmbedDetailed(ctx, req.Text)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, embedResponse{
			Embedding:  res.Vector,
			Dimensions: res.Dimensions,
			ServedBy:   res.ServedBy,
		})
	case errors.Is(err, embeddings.ErrEmptyInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
	default:
		writeUnavailable(r.Context(), w, err)
	}
}

// handleHealth serves GET /api/health. Makes live provider calls.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.HealthCheck(r.Context()))
}

// handleEmbeddingHealth serves GET /api/health/embeddings
func (s *Server) handleEmbeddingHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.EmbeddingHealthCheck(r.Context()))
}

// handleMetrics serves GET /api/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.Snapshot())
}

// decode reads a size-limited JSON body into v, answering the client itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return false
		}
		L_debug("http: invalid request body", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

// writeUnavailable answers with the generic message. Backend error text stays in the logs.
func writeUnavailable(ctx context.Context, w http.ResponseWriter, err error) {
	L_warn("http: request failed", "requestID", orchestrator.RequestID(ctx), "error", err)
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: llm.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		L_debug("http: failed to write response", "error", err)
	}
}
