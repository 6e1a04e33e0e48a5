package handlers

import (
	"coldcall-api/internal/logger"
	"coldcall-api/internal/models"
	apperrors "coldcall-api/internal/pkg/errors"
	"coldcall-api/internal/services"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Outreach is the set of user actions the HTTP layer exposes.
type Outreach interface {
	Search(ctx context.Context, identity string, params models.SearchParams) (*models.SearchResult, error)
	GenerateScript(ctx context.Context, identity, placeID string) (models.ResultRow, error)
	SetServiceDescription(identity, description string) (models.Session, error)
	Session(identity string) models.Session
	ClearResults(identity string) models.Session
	EndSession(identity string)
	Export(identity string) ([]byte, string, error)
	Usage(identity string) models.Decision
	DemoMode() (search, scripts bool)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody        `json:"error"`
	Usage *models.Decision `json:"usage,omitempty"`
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, apperrors.ErrProvider), errors.Is(err, apperrors.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// userMessage returns the text shown for err. Only typed errors carry a
// message meant for users.
func userMessage(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Code != apperrors.CodeInternal {
		return appErr.Message
	}
	return "Something went wrong. Please try again."
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error, usage *models.Decision) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logger.LogEvent(logrus.ErrorLevel, "Request failed", logrus.Fields{
			"path":       r.URL.Path,
			"request_id": services.RequestIDFromContext(r.Context()),
			"error":      err.Error(),
		})
	}

	respondWithJSON(w, status, errorResponse{
		Error: errorBody{Code: apperrors.CodeOf(err), Message: userMessage(err)},
		Usage: usage,
	})
}

func identityOrError(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, ok := services.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Session not found", http.StatusUnauthorized)
		return "", false
	}
	return identity, true
}
