package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/philly/ipcbus/internal/platform/apperror"
	"github.com/philly/ipcbus/internal/platform/logger"
)

// BaseHandler contains common dependencies and helper methods for all handlers
type BaseHandler struct {
	logger logger.Logger
}

// NewBaseHandler creates a new base handler with common dependencies
func NewBaseHandler(logger logger.Logger) *BaseHandler {
	return &BaseHandler{
		logger: logger,
	}
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSONError writes a JSON error response
func (h *BaseHandler) WriteJSONError(w http.ResponseWriter, r *http.Request, code string, message string, statusCode int) {
	h.WriteJSONResponse(w, r, ErrorResponse{Error: code, Message: message}, statusCode)
}

// WriteJSONResponse writes a JSON response
func (h *BaseHandler) WriteJSONResponse(w http.ResponseWriter, r *http.Request, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error(r.Context(), "failed to encode response",
			"error", err,
			"status_code", statusCode,
		)
	}
}

// HandleError maps err to a status code and writes it. Errors that are
// not AppErrors are reported as internal without exposing their text.
func (h *BaseHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		h.logger.Error(r.Context(), "unhandled error", "error", err, "path", r.URL.Path)
		h.WriteJSONError(w, r, string(apperror.CodeInternal), "internal error", http.StatusInternalServerError)
		return
	}

	status := statusFor(appErr.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "error", err, "path", r.URL.Path)
	}
	h.WriteJSONResponse(w, r, ErrorResponse{
		Error:   string(appErr.Code),
		Reason:  string(appErr.Reason),
		Message: appErr.Message,
		Details: appErr.Details,
	}, status)
}

func statusFor(code apperror.ErrorCode) int {
	switch code {
	case apperror.CodeNotFound:
		return http.StatusNotFound
	case apperror.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperror.CodeInvalidState:
		return http.StatusConflict
	case apperror.CodeTimeout:
		return http.StatusGatewayTimeout
	case apperror.CodeUnavailable:
		return http.StatusServiceUnavailable
	case apperror.CodeRemoteFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
