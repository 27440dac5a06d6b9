package unsubscribe

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestTokenService(t *testing.T, lifetime time.Duration) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testSecret, lifetime)
	require.NoError(t, err)
	return svc
}

func TestNewTokenServiceValidation(t *testing.T) {
	_, err := NewTokenService("too-short", time.Hour)
	assert.Error(t, err, "short secrets should be rejected")

	_, err = NewTokenService(testSecret, 0)
	assert.Error(t, err, "zero lifetime should be rejected")

	_, err = NewTokenService(testSecret, -time.Hour)
	assert.Error(t, err, "negative lifetime should be rejected")
}

func TestTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, time.Hour)

	token, err := svc.Generate(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	email, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)
}

func TestGenerateRejectsEmptyEmail(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)

	_, err := svc.Generate(context.Background(), "")
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, time.Hour)

	_, err := svc.Verify(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, time.Hour)

	token, err := svc.Generate(ctx, "a@example.com")
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = svc.Verify(ctx, tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, time.Hour)

	other, err := NewTokenService("ffffffffffffffffffffffffffffffff", time.Hour)
	require.NoError(t, err)

	token, err := other.Generate(ctx, "a@example.com")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, time.Hour)

	// Issued well past the verification leeway.
	claims := tokenClaims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, time.Hour)

	claims := tokenClaims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken, "the none algorithm is never accepted")
}

func TestVerifyRejectsTokenWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, time.Hour)

	claims := tokenClaims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, time.Hour)

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
