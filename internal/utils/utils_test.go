package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const secret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	want := Identity{UserID: 7, Email: "ops@example.com", Role: "OPERATOR"}
	tok, err := NewAccessToken(secret, want, 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

	got, err := ParseAccessToken(secret, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseAccessTokenRejects(t *testing.T) {
	good, err := NewAccessToken(secret, Identity{UserID: 1, Role: "VIEWER"}, 5)
	require.NoError(t, err)

	_, err = ParseAccessToken("other-secret", good.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	expired, err := NewAccessToken(secret, Identity{UserID: 1, Role: "VIEWER"}, -1)
	require.NoError(t, err)
	_, err = ParseAccessToken(secret, expired.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	noRole := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()})
	raw, err := noRole.SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = ParseAccessToken(secret, raw)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = ParseAccessToken(secret, "not-a-jwt")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestParseAccessTokenNumericSub(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 42, "role": "OPERATOR", "exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)

	id, err := ParseAccessToken(secret, raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id.UserID)
}

func TestRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(30)
	require.NoError(t, err)
	b, err := NewRefreshToken(30)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Len(t, HashRefreshRaw(a.Raw), 64)
	assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}
