// Package middleware provides HTTP middleware components for NeuraTrade.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserIDKey is the Gin context key the authenticated subject is
// stored under after AuthMiddleware runs.
const ContextUserIDKey = "auth_subject"

// Claims is the token shape this service issues and verifies: just
// enough to identify the caller and bound the token's lifetime.
// Trimmed from the teacher's richer claims set since nothing in this
// domain needs roles, scopes, or refresh-token chaining.
type Claims struct {
	jwt.RegisteredClaims
}

// AuthConfig configures the bearer-token guard.
type AuthConfig struct {
	// Secret signs and verifies tokens (HMAC).
	Secret []byte
	// SkipFunc bypasses the guard for certain requests (health checks).
	SkipFunc func(*gin.Context) bool
}

// AuthMiddleware requires a valid "Bearer <token>" Authorization header
// on mutating routes (rule-plan validation, evaluation triggers). It
// does not authenticate end users or manage passwords — see DESIGN.md —
// it only verifies that the caller holds a token this service issued.
func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.SkipFunc != nil && cfg.SkipFunc(c) {
			c.Next()
			return
		}

		subject, err := verifyBearerToken(c.GetHeader("Authorization"), cfg.Secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(ContextUserIDKey, subject)
		c.Next()
	}
}

func verifyBearerToken(header string, secret []byte) (string, error) {
	const prefix = "Bearer "
	if header == "" || !strings.HasPrefix(header, prefix) {
		return "", errors.New("missing bearer token")
	}
	raw := strings.TrimPrefix(header, prefix)

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", errors.New("invalid bearer token")
	}
	if !token.Valid {
		return "", errors.New("invalid bearer token")
	}
	if claims.Subject == "" {
		return "", errors.New("token missing subject")
	}
	return claims.Subject, nil
}

// IssueToken mints a bearer token for subject, valid until expiresAt.
// Used by tests and operator tooling; this service has no end-user
// signup/login flow to issue tokens from in production.
func IssueToken(secret []byte, subject string, expiresAt jwt.NumericDate) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: &expiresAt,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
