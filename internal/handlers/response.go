package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"receipts-api/internal/middleware"
	"receipts-api/internal/services"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON document from the request body into dst.
// Any failure is reported as a ValidationError on "body".
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return &services.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if dec.More() {
		return &services.ValidationError{Field: "body", Message: "must contain a single JSON document"}
	}
	return nil
}

// writeServiceError is the single translation point from service errors to
// HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondWithError(w, http.StatusUnprocessableEntity, "validation_error", vErr.Error())
	case errors.Is(err, services.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondWithError(w, http.StatusUnauthorized, "invalid_token", "Could not validate credentials")
	case errors.Is(err, services.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondWithError(w, http.StatusUnauthorized, "invalid_credentials", "Incorrect username or password")
	case errors.Is(err, services.ErrUsernameAlreadyRegistered):
		respondWithError(w, http.StatusBadRequest, "username_taken", "Username already registered")
	case errors.Is(err, services.ErrInsufficientPayment):
		respondWithError(w, http.StatusBadRequest, "insufficient_payment",
			"The amount you provided is not enough to cover the total cost of the items.")
	case errors.Is(err, services.ErrReceiptNotFound):
		respondWithError(w, http.StatusNotFound, "receipt_not_found", "Receipt not found")
	default:
		event := logger.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			event = logger.Warn()
		}
		event.Err(err).
			Str("request_id", middleware.GetRequestID(r)).
			Str("path", r.URL.Path).
			Msg("Request failed")
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func respondWithError(w http.ResponseWriter, code int, errorCode, detail string) {
	respondWithJSON(w, code, middleware.ErrorResponse{
		Error:  errorCode,
		Detail: detail,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
