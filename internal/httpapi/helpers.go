package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quiz-engine/internal/auth"
	"quiz-engine/internal/quiz"
)

// writeServiceError maps the engine's error taxonomy onto stable status
// codes. Every failure is reported to the caller; nothing is silently
// recovered here.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrAuthentication):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, quiz.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, quiz.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, quiz.ErrDuplicateAttempt):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "an active attempt already exists for this quiz"})
	case errors.Is(err, quiz.ErrInvalidStateTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "operation not allowed in current attempt state"})
	case errors.Is(err, quiz.ErrStorageUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable, retry later"})
	default:
		slog.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "request failed"})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
