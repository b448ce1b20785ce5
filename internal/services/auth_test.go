package services

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"solvencia-backend/internal/middleware"
	"solvencia-backend/internal/models"
)

func TestAdminLogin(t *testing.T) {
	jwt := middleware.NewJWTAuth("test-secret")
	hash, _ := bcrypt.GenerateFromPassword([]byte("US-2025"), bcrypt.MinCost)

	svc, err := NewAuthService(jwt, string(hash), "")
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	resp, err := svc.AdminLogin(context.Background(), models.AdminLoginRequest{Password: "US-2025"})
	if err != nil {
		t.Fatalf("AdminLogin: %v", err)
	}
	if resp.Token == "" || resp.ExpiresIn != 12*3600 {
		t.Errorf("unexpected token response %+v", resp)
	}

	var unauthorized *UnauthorizedError
	if _, err := svc.AdminLogin(context.Background(), models.AdminLoginRequest{Password: "wrong"}); !errors.As(err, &unauthorized) {
		t.Errorf("expected UnauthorizedError, got %v", err)
	}

	var validation *ValidationError
	if _, err := svc.AdminLogin(context.Background(), models.AdminLoginRequest{}); !errors.As(err, &validation) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestNewAuthService_Config(t *testing.T) {
	jwt := middleware.NewJWTAuth("test-secret")

	if _, err := NewAuthService(jwt, "", ""); err == nil {
		t.Error("expected error without any admin secret")
	}
	if _, err := NewAuthService(jwt, "plain-text", ""); err == nil {
		t.Error("expected error for a non-bcrypt hash")
	}

	svc, err := NewAuthService(jwt, "", "secreto")
	if err != nil {
		t.Fatalf("NewAuthService with plain password: %v", err)
	}
	if _, err := svc.AdminLogin(context.Background(), models.AdminLoginRequest{Password: "secreto"}); err != nil {
		t.Errorf("expected plain password to work, got %v", err)
	}
}

func TestNewSession(t *testing.T) {
	jwt := middleware.NewJWTAuth("test-secret")
	svc := &AuthService{jwt: jwt}

	resp, err := svc.NewSession(context.Background())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	id, err := jwt.ParseSessionToken(resp.SessionToken)
	if err != nil {
		t.Fatalf("session token does not parse: %v", err)
	}
	if id.String() != resp.SessionID {
		t.Errorf("token session %s does not match %s", id, resp.SessionID)
	}
	if resp.ExpiresIn != 24*3600 {
		t.Errorf("expected 24h expiry, got %d", resp.ExpiresIn)
	}
}
