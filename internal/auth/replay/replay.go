// Package replay generates and validates the one-time anti-replay values
// for a login attempt: the OAuth state, the OIDC nonce, and the PKCE
// verifier/challenge pair. The server stores none of them; the client
// holds the material between the challenge and the callback, and
// Validate is the sole comparison point.
package replay

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/0ashutosh1/Project/internal/autherr"
)

// Challenge is the client-held material for one login attempt.
type Challenge struct {
	State         string
	Nonce         string
	Verifier      string
	CodeChallenge string
}

// entropy per value: 32 bytes = 256 bits.
const valueSize = 32

func randomValue() (string, error) {
	b := make([]byte, valueSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("replay: failed to generate random value: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Generate produces fresh state, nonce and PKCE values. The code
// challenge is the S256 transform of the verifier.
func Generate() (Challenge, error) {
	state, err := randomValue()
	if err != nil {
		return Challenge{}, err
	}
	nonce, err := randomValue()
	if err != nil {
		return Challenge{}, err
	}
	verifier, err := randomValue()
	if err != nil {
		return Challenge{}, err
	}

	hash := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(hash[:])

	return Challenge{
		State:         state,
		Nonce:         nonce,
		Verifier:      verifier,
		CodeChallenge: challenge,
	}, nil
}

// Validate compares the values echoed back on the callback against the
// saved ones. The nonce values must be identical: when the provider's
// assertion carries a nonce, omitting the saved value is a mismatch,
// not a pass. Callers skip the nonce arguments entirely (both empty)
// for providers without one.
func Validate(returnedState, savedState, returnedNonceClaim, savedNonce string) error {
	if returnedState == "" || savedState == "" || returnedState != savedState {
		return autherr.Wrap(autherr.KindReplayDetected,
			"authentication challenge replay detected",
			fmt.Errorf("state mismatch"))
	}
	if returnedNonceClaim != savedNonce {
		return autherr.Wrap(autherr.KindReplayDetected,
			"authentication challenge replay detected",
			fmt.Errorf("nonce mismatch"))
	}
	return nil
}
