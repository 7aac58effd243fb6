package handlers

import (
	"net/http"

	"receipts-api/internal/middleware"
	"receipts-api/internal/services"

	"github.com/rs/zerolog"
)

type UserHandler struct {
	logger zerolog.Logger
}

func NewUserHandler(logger zerolog.Logger) *UserHandler {
	return &UserHandler{logger: logger}
}

// Me returns the account behind the bearer token.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		writeServiceError(w, r, h.logger, services.ErrUnauthorized)
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}
