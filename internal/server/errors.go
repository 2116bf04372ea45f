package server

import (
	"context"
	"errors"
	"net/http"

	"blogsmith/internal/core"
	"blogsmith/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps domain errors to HTTP status codes and stable error codes.
func statusFor(err error) (int, string) {
	var (
		searchErr    *core.SearchProviderError
		genErr       *core.GenerationError
		malformedErr *core.MalformedResponseError
	)

	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, core.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, core.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrEmptyContent):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, core.ErrNoNewContent):
		return http.StatusUnprocessableEntity, "no_new_content"
	case errors.Is(err, core.ErrNoResearchSources):
		return http.StatusBadGateway, "no_research_sources"
	case errors.As(err, &searchErr):
		return http.StatusBadGateway, "search_failed"
	case errors.As(err, &malformedErr):
		return http.StatusBadGateway, "malformed_response"
	case errors.As(err, &genErr):
		return http.StatusBadGateway, "generation_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// respondError writes err as a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", err, "status", status, "code", code)
	}
	s.respondJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}
