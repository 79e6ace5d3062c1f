package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ezenity/ezenity-api/internal/http/response"
	"github.com/ezenity/ezenity-api/internal/service"
)

// writeServiceError maps service errors onto HTTP. Anything unrecognised is
// logged in full and answered with a generic 500 carrying the request id.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "Account not found", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect", nil)
	case errors.Is(err, service.ErrInvalidToken):
		response.Error(w, r, http.StatusBadRequest, "INVALID_TOKEN", "Invalid token", nil)
	case errors.Is(err, service.ErrInvalidVerificationToken):
		response.Error(w, r, http.StatusBadRequest, "VERIFICATION_FAILED", "Verification failed", nil)
	case errors.Is(err, service.ErrForbidden):
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	case errors.Is(err, service.ErrEmailTaken):
		response.Error(w, r, http.StatusConflict, "CONFLICT", "Email is already registered", nil)
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", response.RequestID(r),
			"error", err,
		)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}
