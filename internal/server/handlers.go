package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"blogsmith/internal/core"
	"blogsmith/internal/enrich"
	"blogsmith/internal/llm"
	"blogsmith/internal/logger"

	"github.com/go-chi/chi/v5"
)

// HealthResponse is returned by /health
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// StatusResponse is returned by /api/status
type StatusResponse struct {
	Uptime   string         `json:"uptime"`
	Database DatabaseStatus `json:"database"`
}

// DatabaseStatus represents database health
type DatabaseStatus struct {
	Connected bool `json:"connected"`
	Articles  int  `json:"articles"`
}

type candidateRequest struct {
	URL string `json:"url"`
}

type configRequest struct {
	Tone             string   `json:"tone"`
	Keywords         []string `json:"keywords"`
	CustomPrompt     string   `json:"customPrompt"`
	TargetLanguage   string   `json:"targetLanguage"`
	ReadabilityLevel *int     `json:"readabilityLevel"`
}

type enrichRequest struct {
	Models []string `json:"models"`
}

type restoreRequest struct {
	Timestamp int64 `json:"timestamp"`
}

type chatRequest struct {
	Messages   []llm.ChatMessage `json:"messages"`
	NewMessage string            `json:"newMessage"`
	ArticleID  string            `json:"articleId,omitempty"`
}

// ChatResponse is returned by /api/chat
type ChatResponse struct {
	Reply string `json:"reply"`
}

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := s.store.Ping(r.Context()); err != nil {
		checks["database"] = "error"
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Checks: checks,
		})
		return
	}

	checks["database"] = "ok"
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: checks,
	})
}

// handleStatus handles the /api/status endpoint
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := StatusResponse{Uptime: time.Since(s.started).Round(time.Second).String()}

	if n, err := s.store.Count(r.Context()); err == nil {
		status.Database = DatabaseStatus{Connected: true, Articles: n}
	}
	s.respondJSON(w, http.StatusOK, status)
}

// handleListArticles handles GET /api/articles
func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	var (
		articles []*core.Article
		err      error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		st, perr := core.ParseStatus(status)
		if perr != nil {
			s.respondError(w, fmt.Errorf("%w: %v", core.ErrInvalidInput, perr))
			return
		}
		articles, err = s.store.ListByStatus(r.Context(), st)
	} else {
		articles, err = s.store.List(r.Context())
	}
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, articles)
}

// handlePublicArticles handles GET /api/articles/public, the processed articles only
func (s *Server) handlePublicArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.store.ListByStatus(r.Context(), core.StatusProcessed)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, articles)
}

// handleGetArticle handles GET /api/articles/{id}
func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}

// handleDeleteArticle handles DELETE /api/articles/{id}
func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}
	logger.Info("Article deleted", "article_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleScrape handles POST /api/articles/scrape
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.Scrape(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, a)
}

// handleResearch handles POST /api/articles/{id}/research
func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.service.Search(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"count":      len(candidates),
		"candidates": candidates,
	})
}

// handleCandidate handles POST /api/articles/{id}/candidates/approve|reject
func (s *Server) handleCandidate(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req candidateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.respondError(w, err)
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			s.respondError(w, fmt.Errorf("%w: url is required", core.ErrInvalidInput))
			return
		}

		id := chi.URLParam(r, "id")
		var err error
		if approve {
			err = s.service.Approve(r.Context(), id, req.URL)
		} else {
			err = s.service.Reject(r.Context(), id, req.URL)
		}
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respondArticle(w, r, id, http.StatusOK)
	}
}

// handleConfigure handles PUT /api/articles/{id}/config
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	cfg := core.GenerationConfig{
		Tone:             req.Tone,
		Keywords:         req.Keywords,
		CustomPrompt:     req.CustomPrompt,
		TargetLanguage:   req.TargetLanguage,
		ReadabilityLevel: req.ReadabilityLevel,
	}
	if err := s.service.Configure(r.Context(), id, cfg); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondArticle(w, r, id, http.StatusOK)
}

// handleEnrich handles POST /api/articles/{id}/enrich
func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	// the body is optional
	var req enrichRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, err)
		return
	}

	a, err := s.service.Enrich(r.Context(), chi.URLParam(r, "id"), enrich.Options{Models: req.Models})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}

// handleRestore handles POST /api/articles/{id}/restore
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.Timestamp <= 0 {
		s.respondError(w, fmt.Errorf("%w: timestamp is required", core.ErrInvalidInput))
		return
	}

	a, err := s.service.Restore(r.Context(), chi.URLParam(r, "id"), req.Timestamp)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}

// handleReset handles POST /api/articles/{id}/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}

// handleChat handles POST /api/chat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	reply, err := s.service.Chat(r.Context(), req.ArticleID, req.Messages, req.NewMessage)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ChatResponse{Reply: reply})
}

// handleListModels handles GET /api/models
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.service.ListModels(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models)
}

func (s *Server) respondArticle(w http.ResponseWriter, r *http.Request, id string, status int) {
	a, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, status, a)
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body: %w", core.ErrInvalidInput, err)
		}
		return fmt.Errorf("%w: invalid request body: %v", core.ErrInvalidInput, err)
	}
	return nil
}
