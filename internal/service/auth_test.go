package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyToken(t *testing.T) {
	auth := NewAuth(nil, "test-secret", time.Hour)

	signed := signTestToken(t, "test-secret", jwt.MapClaims{
		"sub":      int64(1),
		"username": "cajero",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	claims, err := auth.VerifyToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "cajero", claims["username"])
}

func TestVerifyTokenExpired(t *testing.T) {
	auth := NewAuth(nil, "test-secret", time.Hour)

	signed := signTestToken(t, "test-secret", jwt.MapClaims{
		"username": "cajero",
		"exp":      time.Now().Add(-time.Minute).Unix(),
	})

	_, err := auth.VerifyToken(signed)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	auth := NewAuth(nil, "test-secret", time.Hour)

	signed := signTestToken(t, "other-secret", jwt.MapClaims{
		"username": "cajero",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	_, err := auth.VerifyToken(signed)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterAndLogin(t *testing.T) {
	t.Skip("Integration test - requires database")
}
