// Package auth gates the internal operations (payment import, order
// cleanup, payment listings) behind a shared password. A successful
// login issues a signed session token.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured   = errors.New("internal password is not configured")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidToken    = errors.New("invalid or expired session token")
)

const issuer = "payopsd"

// Service checks the internal password and mints session tokens.
type Service struct {
	password []byte
	secret   []byte
	ttl      time.Duration
}

// NewService builds a Service. sessionTTL must be positive.
func NewService(password, secret string, sessionTTL time.Duration) *Service {
	return &Service{
		password: []byte(password),
		secret:   []byte(secret),
		ttl:      sessionTTL,
	}
}

// Login validates the password and returns a session token.
func (s *Service) Login(password string) (string, error) {
	if len(s.password) == 0 || len(s.secret) == 0 {
		return "", ErrNotConfigured
	}
	if subtle.ConstantTimeCompare(s.password, []byte(password)) != 1 {
		return "", ErrInvalidPassword
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "internal",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks a session token issued by Login.
func (s *Service) Verify(tokenString string) error {
	if len(s.secret) == 0 {
		return ErrNotConfigured
	}
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// Middleware rejects requests that do not carry a valid session token
// in the Authorization header.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing session token"}`, http.StatusUnauthorized)
			return
		}
		if err := s.Verify(token); err != nil {
			http.Error(w, `{"error":"invalid or expired session token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
