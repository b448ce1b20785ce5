package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"solvencia-backend/internal/middleware"
	"solvencia-backend/internal/models"
)

const adminBcryptCost = 12

// AuthService issues anonymous student sessions and staff tokens. It replaces
// a shared client-side key with a bcrypt-checked password.
type AuthService struct {
	jwt       *middleware.JWTAuth
	adminHash []byte
}

// NewAuthService accepts either a bcrypt hash or a plain password; the plain
// one is hashed once at startup.
func NewAuthService(jwt *middleware.JWTAuth, adminPasswordHash, adminPassword string) (*AuthService, error) {
	hash := []byte(strings.TrimSpace(adminPasswordHash))
	if len(hash) == 0 {
		if adminPassword == "" {
			return nil, errors.New("admin password is not configured")
		}
		var err error
		hash, err = HashPassword(adminPassword)
		if err != nil {
			return nil, err
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH is not a bcrypt hash: %w", err)
	}

	return &AuthService{jwt: jwt, adminHash: hash}, nil
}

func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), adminBcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

func (s *AuthService) NewSession(ctx context.Context) (*models.SessionResponse, error) {
	sessionID := uuid.New()
	token, err := s.jwt.GenerateSessionToken(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &models.SessionResponse{
		SessionToken: token,
		SessionID:    sessionID.String(),
		ExpiresIn:    int(middleware.SessionTokenTTL.Seconds()),
	}, nil
}

func (s *AuthService) AdminLogin(ctx context.Context, req models.AdminLoginRequest) (*models.TokenResponse, error) {
	if req.Password == "" {
		return nil, &ValidationError{Fields: map[string]string{"password": "Password is required"}}
	}

	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(req.Password)); err != nil {
		return nil, &UnauthorizedError{Message: "Invalid password"}
	}

	token, err := s.jwt.GenerateAdminToken()
	if err != nil {
		return nil, fmt.Errorf("failed to sign admin token: %w", err)
	}

	return &models.TokenResponse{
		Token:     token,
		ExpiresIn: int(middleware.AdminTokenTTL.Seconds()),
	}, nil
}
