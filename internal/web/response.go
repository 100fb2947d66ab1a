package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"tradejournal/internal/ports"
)

// Response is the standardized API response envelope.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		// Too late to change the status line; log so a payload that cannot be
		// serialized does not fail silently.
		s.logger.Error(context.Background(), err, "Failed to encode response body",
			map[string]interface{}{"statusCode": statusCode})
	}
}

// successResponse sends a 200 response wrapping the payload.
func (s *Server) successResponse(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, Response{Status: "success", Data: data})
}

// createdResponse sends a 201 Created response wrapping the payload.
func (s *Server) createdResponse(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusCreated, Response{Status: "success", Data: data})
}

// errorResponse sends an error response with the given status code.
func (s *Server) errorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	resp := Response{Status: "error", Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	s.writeJSON(w, statusCode, resp)
}

// serviceErrorResponse maps application sentinel errors onto HTTP status codes.
func (s *Server) serviceErrorResponse(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		s.errorResponse(w, http.StatusNotFound, message, err)
	case errors.Is(err, ports.ErrInvalidRequest),
		errors.Is(err, ports.ErrStopOnWrongSide),
		errors.Is(err, ports.ErrTargetOnWrongSide):
		s.errorResponse(w, http.StatusBadRequest, message, err)
	case errors.Is(err, ports.ErrTradeClosed):
		s.errorResponse(w, http.StatusConflict, message, err)
	case errors.Is(err, ports.ErrRateLimited):
		s.errorResponse(w, http.StatusTooManyRequests, message, err)
	default:
		s.errorResponse(w, http.StatusInternalServerError, message, err)
	}
}
