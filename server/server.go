// Package server exposes the engine over HTTP: quote scraping, knowledge
// base inspection, and the audit trail.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/saudraja/ollama-ai-scrapper/audit"
	"github.com/saudraja/ollama-ai-scrapper/kb"
	"github.com/saudraja/ollama-ai-scrapper/scraper"
)

// Server wires the HTTP surface over the scraping adapter and the
// knowledge base.
type Server struct {
	adapter *scraper.Adapter
	kb      *kb.KB
	audit   *audit.SQLiteLogger // nil disables /audit routes
	logger  *slog.Logger
}

// New creates a Server.
func New(adapter *scraper.Adapter, k *kb.KB, trail *audit.SQLiteLogger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{adapter: adapter, kb: k, audit: trail, logger: logger}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Post("/quotes/{provider}", s.handleQuotes)
	r.Get("/kb/stats", s.handleKBStats)
	r.Get("/kb/{provider}/{field}", s.handleKBStrategies)
	if s.audit != nil {
		r.Get("/audit/{provider}", s.handleAuditRecent)
	}

	return r
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	var req scraper.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	quotes, err := s.adapter.ScrapeQuotes(r.Context(), provider, &req)
	if err != nil {
		s.logger.Error("server: scrape failed", "provider", provider, "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (s *Server) handleKBStrategies(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	field := chi.URLParam(r, "field")
	writeJSON(w, http.StatusOK, map[string]any{
		"provider":   provider,
		"field":      field,
		"strategies": s.kb.Lookup(provider, field),
	})
}

func (s *Server) handleKBStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.kb.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"keys":       s.kb.Keys(),
		"strategies": stats.Strategies,
		"successes":  stats.Successes,
		"failures":   stats.Failures,
	})
}

func (s *Server) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	field := r.URL.Query().Get("field")

	entries, err := s.audit.Recent(r.Context(), provider, field, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
