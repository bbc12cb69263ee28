// Package server exposes the resolver over a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lepinkainen/preview-forge/pkg/preview"
	"github.com/lepinkainen/preview-forge/pkg/resolver"
)

// MaxBatchSize caps how many URLs one batch request may carry.
const MaxBatchSize = 10

// Server wraps an http.Server around the resolver endpoints.
type Server struct {
	resolver *resolver.Resolver
	srv      *http.Server
}

// New creates a server listening on addr (for example ":8080").
func New(addr string, r *resolver.Resolver) *Server {
	s := &Server{resolver: r}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/preview", s.handlePreview)
	mux.HandleFunc("/api/preview/batch", s.handleBatch)
	mux.HandleFunc("/api/health", s.handleHealth)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      logRequests(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	slog.Info("HTTP API listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// previewResponse keeps the record in a named field: embedding it would
// promote Record's MarshalJSON and swallow the outcome.
type previewResponse struct {
	Preview *preview.Record `json:"preview"`
	Outcome string          `json:"outcome"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var rawURL string
	switch r.Method {
	case http.MethodGet:
		rawURL = r.URL.Query().Get("url")
	case http.MethodPost:
		var body struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		rawURL = body.URL
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "Missing url")
		return
	}

	rec, outcome, err := s.resolver.Resolve(r.Context(), rawURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{Preview: rec, Outcome: outcome.String()})
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

type batchEntry struct {
	URL     string          `json:"url"`
	Preview *preview.Record `json:"preview,omitempty"`
	Outcome string          `json:"outcome,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "Missing urls")
		return
	}
	if len(req.URLs) > MaxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Too many urls, maximum is %d", MaxBatchSize))
		return
	}

	results := s.resolver.ResolveBatch(r.Context(), req.URLs)
	entries := make([]batchEntry, len(results))
	for i, res := range results {
		entries[i] = batchEntry{URL: res.URL, Preview: res.Record}
		if res.Err != nil {
			entries[i].Error = res.Err.Error()
		} else {
			entries[i].Outcome = res.Outcome.String()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": entries})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// logRequests is a minimal slog access log.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request handled", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
