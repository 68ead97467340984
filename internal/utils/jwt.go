package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for refresh tokens
	"encoding/hex"  // hex encoding of random bytes and digests
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// ErrInvalidToken is returned by ParseAccessToken for any token that is
// malformed, badly signed, expired or missing a claim.
var ErrInvalidToken = errors.New("invalid access token")

// AccessToken is a signed JWT together with its expiry.  Operators send it
// in the Authorization header as a bearer credential.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken is the long-lived token used to obtain new access tokens.
// Only its SHA-256 hash is stored in the database.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// Identity is what a verified access token says about its bearer.
type Identity struct {
	UserID uint64
	Email  string
	Role   string
}

// NewAccessToken builds and signs an HS256 JWT carrying sub, email, role,
// exp and iat.  The email claim is recorded as the actor of lock changes.
func NewAccessToken(secret string, id Identity, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(id.UserID, 10),
		"email": id.Email,
		"role":  id.Role,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of raw and extracts
// the bearer's identity.  Only HMAC-signed tokens are accepted.
func ParseAccessToken(secret, raw string) (Identity, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	var id Identity
	// sub is written as a string; older tokens carried a JSON number
	switch sub := claims["sub"].(type) {
	case string:
		id.UserID, err = strconv.ParseUint(sub, 10, 64)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: bad sub", ErrInvalidToken)
		}
	case float64:
		id.UserID = uint64(sub)
	default:
		return Identity{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	id.Role, _ = claims["role"].(string)
	id.Email, _ = claims["email"].(string)
	if id.UserID == 0 || id.Role == "" {
		return Identity{}, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return id, nil
}

// NewRefreshToken returns a random 96-character token and its expiry.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(48) // 48 bytes -> 96 hex chars
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the hex SHA-256 of a raw refresh token, the form
// stored in refresh_tokens.token_hash.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
