// Package csrf implements the double-submit anti-forgery pattern: a
// random secret lives in an HttpOnly cookie, and a value derived from
// it is handed to the caller in the response body. A forger can set
// neither side consistently.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/0ashutosh1/Project/internal/autherr"
)

const secretSize = 32

// Issue generates a fresh cookie secret and the derived token bound to
// the session's account. A new pair is issued on every refresh, since a
// refresh is a new proof of session.
func Issue(accountID string) (secret, token string, err error) {
	b := make([]byte, secretSize)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("csrf: failed to generate secret: %w", err)
	}
	secret = base64.RawURLEncoding.EncodeToString(b)
	return secret, derive(secret, accountID), nil
}

// Validate recomputes the derived token and compares in constant time,
// so rejection latency carries no information about where the values
// diverge.
func Validate(requestToken, cookieSecret, accountID string) error {
	if requestToken == "" || cookieSecret == "" {
		return autherr.New(autherr.KindCSRF, "csrf token missing")
	}
	expected := derive(cookieSecret, accountID)
	if !hmac.Equal([]byte(requestToken), []byte(expected)) {
		return autherr.New(autherr.KindCSRF, "csrf token mismatch")
	}
	return nil
}

func derive(secret, accountID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(accountID))
	return hex.EncodeToString(mac.Sum(nil))
}
