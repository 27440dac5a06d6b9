// Package unsubscribe issues and verifies the signed tokens embedded in
// opt-out links. Tokens carry only the recipient email; verifying one
// authorizes a single opt-out without exposing an enumerable identifier.
package unsubscribe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification errors.
var (
	// ErrInvalidToken indicates the token is malformed, has a bad
	// signature, or uses an unexpected signing method.
	ErrInvalidToken = errors.New("invalid unsubscribe token")

	// ErrExpiredToken indicates the token's lifetime has passed.
	ErrExpiredToken = errors.New("unsubscribe token expired")
)

// tokenClaims are the registered claims plus the recipient email.
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService generates and verifies HS256-signed opt-out tokens.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 32
// bytes.
func NewTokenService(secret string, lifetime time.Duration) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("token secret must be at least 32 bytes")
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive")
	}
	return &TokenService{
		secret:   []byte(secret),
		lifetime: lifetime,
	}, nil
}

// Generate issues a signed token authorizing an opt-out for the email.
func (s *TokenService) Generate(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", fmt.Errorf("email cannot be empty")
	}

	now := time.Now()
	claims := tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign unsubscribe token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates the token and returns the email it
// authorizes. Expired tokens return ErrExpiredToken; anything else wrong
// with the token returns ErrInvalidToken.
func (s *TokenService) Verify(ctx context.Context, tokenString string) (string, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	if claims.Email == "" {
		return "", ErrInvalidToken
	}

	return claims.Email, nil
}
