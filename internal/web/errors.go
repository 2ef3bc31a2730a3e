package web

// errors.go provides unified error responses for the JSON API.
//
// Every error is logged with its full technical detail server-side and
// returned to the client as a short sanitized message. Raw driver and
// file-system errors never reach the response body.

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"herdbook/internal/core"
	"herdbook/internal/logging"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError logs err with request context and writes a sanitized
// JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, statusCode, ErrorResponse{Error: sanitizeError(err)})
}

// sanitizeError maps internal errors to client-safe messages.
func sanitizeError(err error) string {
	switch {
	case errors.Is(err, core.ErrUnknownCategory):
		return "unknown category"
	case errors.Is(err, core.ErrTooManyImports):
		return "too many concurrent imports, please try again later"
	}

	msg := err.Error()
	// Parse and header problems are user-actionable; pass them through.
	if strings.HasPrefix(msg, "parse ") {
		return msg
	}
	return "internal error"
}
