package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	SessionIDKey contextKey = "session_id"
	RoleKey      contextKey = "role"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"

	SessionTokenTTL = 24 * time.Hour
	AdminTokenTTL   = 12 * time.Hour
)

var ErrWrongRole = errors.New("token role not allowed")

type JWTAuth struct {
	Secret []byte
}

func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret)}
}

// GenerateSessionToken issues the anonymous token a student chats with.
func (j *JWTAuth) GenerateSessionToken(sessionID uuid.UUID) (string, error) {
	return j.sign(jwt.MapClaims{
		"session_id": sessionID.String(),
		"role":       RoleStudent,
		"exp":        time.Now().Add(SessionTokenTTL).Unix(),
		"iat":        time.Now().Unix(),
	})
}

// GenerateAdminToken issues the staff token for corpus and branding edits.
func (j *JWTAuth) GenerateAdminToken() (string, error) {
	return j.sign(jwt.MapClaims{
		"sub":  "admin",
		"role": RoleAdmin,
		"exp":  time.Now().Add(AdminTokenTTL).Unix(),
		"iat":  time.Now().Unix(),
	})
}

func (j *JWTAuth) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTAuth) parse(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// ParseSessionToken validates a student token and returns its session ID.
func (j *JWTAuth) ParseSessionToken(tokenStr string) (uuid.UUID, error) {
	claims, err := j.parse(tokenStr)
	if err != nil {
		return uuid.Nil, err
	}
	if role, _ := claims["role"].(string); role != RoleStudent {
		return uuid.Nil, ErrWrongRole
	}

	idStr, ok := claims["session_id"].(string)
	if !ok {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}
	return uuid.Parse(idStr)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeTokenError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, jwt.ErrTokenExpired) {
		writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
		return
	}
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
}

// Middleware validates the session JWT and attaches session_id to context.
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authorization header", r)
			return
		}

		sessionID, err := j.ParseSessionToken(tokenStr)
		if err != nil {
			writeTokenError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
		ctx = context.WithValue(ctx, RoleKey, RoleStudent)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware only lets admin tokens through.
func (j *JWTAuth) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authorization header", r)
			return
		}

		claims, err := j.parse(tokenStr)
		if err != nil {
			writeTokenError(w, r, err)
			return
		}
		if role, _ := claims["role"].(string); role != RoleAdmin {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Admin access required", r)
			return
		}

		ctx := context.WithValue(r.Context(), RoleKey, RoleAdmin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionID extracts session_id from request context
func GetSessionID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(SessionIDKey).(uuid.UUID)
	return id
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
