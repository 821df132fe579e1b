// Package auth is the access gate: it resolves a bearer credential into
// a caller identity and admin flag before any workflow operation runs.
package auth

import (
	"fmt"
	"time"

	"fulfillment-service/internal/errs"
	"fulfillment-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the resolved caller
type Identity struct {
	UserID  string
	Name    string
	IsAdmin bool
}

// Claims carried in the signed token
type Claims struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Service issues and validates access tokens
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a new auth service
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// GenerateToken signs a token for a user
func (s *Service) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:  user.ID,
		Name:    user.Name,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies a token and returns the caller identity
func (s *Service) ValidateToken(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errs.ErrUnauthenticated
	}

	return &Identity{
		UserID:  claims.UserID,
		Name:    claims.Name,
		IsAdmin: claims.IsAdmin,
	}, nil
}
