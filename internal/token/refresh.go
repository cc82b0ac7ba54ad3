package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
)

// RefreshSaltSize is the number of random bytes keyed into each refresh token.
const RefreshSaltSize = 16

// NewRefreshSalt reads RefreshSaltSize bytes from r.
func NewRefreshSalt(r io.Reader) ([]byte, error) {
	salt := make([]byte, RefreshSaltSize)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, fmt.Errorf("generate refresh salt: %w", err)
	}
	return salt, nil
}

// DeriveRefreshToken computes base64(HMAC-SHA512(salt, accountID || secret)).
//
// The salt travels to the client inside the signed access token, so the
// server holds no per-session state. Anyone holding both the access token and
// the service secret can recompute the refresh token for that session.
func DeriveRefreshToken(salt []byte, accountID string, secret []byte) string {
	mac := hmac.New(sha512.New, salt)
	mac.Write([]byte(accountID))
	mac.Write(secret)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// MatchRefreshToken reports whether presented equals the refresh token derived
// from the salt and account embedded in claims. Comparison is constant time.
func MatchRefreshToken(claims *Claims, presented string, secret []byte) bool {
	if claims == nil || len(claims.RefreshKey) == 0 || claims.UserID == "" || presented == "" {
		return false
	}
	expected := DeriveRefreshToken(claims.RefreshKey, claims.UserID, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}

var defaultRandom io.Reader = rand.Reader
