package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogthread/config"
)

func TestTokenRoundTrip(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "utils-test"})

	tok, expiresAt, err := GenerateToken("u-1", "alice", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)

	again, _, err := GenerateToken("u-1", "alice", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, tok, again)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "utils-test"})

	tok, _, err := GenerateToken("u-1", "alice", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(tok)
	assert.Error(t, err)
}

func TestBlacklistWithoutRedis(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "utils-test"})

	BlacklistToken("revoked-token", time.Now().Add(time.Minute))
	assert.True(t, IsTokenBlacklisted("revoked-token"))
	assert.False(t, IsTokenBlacklisted("other-token"))

	BlacklistToken("already-expired", time.Now().Add(-time.Minute))
	assert.False(t, IsTokenBlacklisted("already-expired"))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "guess"))

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}
