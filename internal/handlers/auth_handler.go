package handlers

import (
	"net/http"

	"receipts-api/internal/models"
	"receipts-api/internal/services"

	"github.com/rs/zerolog"
)

const tokenType = "bearer"

type AuthHandler struct {
	userService *services.UserService
	authService *services.AuthService
	logger      zerolog.Logger
}

func NewAuthHandler(userService *services.UserService, authService *services.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		logger:      logger,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		h.logger.Warn().Err(err).Str("username", req.Username).Msg("Registration failed")
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.respondWithToken(w, r, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := services.ValidateLogin(&req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn().Str("username", req.Username).Msg("Login failed")
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.respondWithToken(w, r, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, user *models.User) {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   tokenType,
	})
}
