package handlers

import (
	"context"
	"net/http"

	"solvencia-backend/internal/models"
)

type authenticator interface {
	NewSession(ctx context.Context) (*models.SessionResponse, error)
	AdminLogin(ctx context.Context, req models.AdminLoginRequest) (*models.TokenResponse, error)
}

type AuthHandler struct {
	authService authenticator
}

func NewAuthHandler(authService authenticator) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// CreateSession starts an anonymous student session.
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	resp, err := h.authService.NewSession(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.AdminLogin(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
