package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockbbs/stockbbs/config"
)

func TestTokenRoundTrip(t *testing.T) {
	config.SetForTesting(config.AppConfig{JWTSecret: "round-trip-secret"})

	token, err := GenerateToken(42, "alice@example.com", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestParseToken_Invalid(t *testing.T) {
	config.SetForTesting(config.AppConfig{JWTSecret: "round-trip-secret"})

	_, err := ParseToken("not.a.token")
	assert.Error(t, err)

	expired, err := GenerateToken(1, "bob@example.com", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)
}

func TestParseToken_WrongSecret(t *testing.T) {
	config.SetForTesting(config.AppConfig{JWTSecret: "secret-a"})
	token, err := GenerateToken(7, "carol@example.com", time.Hour)
	require.NoError(t, err)

	config.SetForTesting(config.AppConfig{JWTSecret: "secret-b"})
	_, err = ParseToken(token)
	assert.Error(t, err)
}
