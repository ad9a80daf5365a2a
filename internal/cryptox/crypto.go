// Package cryptox holds the token codec and password hashing helpers.
//
// Tokens are opaque: n random bytes, hex encoded. Only their unkeyed SHA-256
// digest is ever persisted where the clear value must stay secret.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyToken is returned when hashing an empty token.
var ErrEmptyToken = errors.New("token required")

// randRead is a seam for tests.
var randRead = rand.Read

// GenerateToken returns size random bytes hex encoded, so the result is
// 2*size characters long.
//
// Example:
//
//	tok, err := GenerateToken(32)
//	// tok == "9f2d4c3a5e6b1a7d..." (64 chars)
func GenerateToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := randRead(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 digest of token. The digest is
// deterministic so it can be used as a lookup key.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:]), nil
}

// GenerateHashedToken mints a token and its digest in one call.
func GenerateHashedToken(size int) (token, hash string, err error) {
	token, err = GenerateToken(size)
	if err != nil {
		return "", "", err
	}
	hash, err = HashToken(token)
	if err != nil {
		return "", "", err
	}
	return token, hash, nil
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password []byte) (string, error) {
	h, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash string, password []byte) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), password) == nil
}

// WipeByteArray overwrites b with zeros. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
