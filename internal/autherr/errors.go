// Package autherr defines the error taxonomy shared by the auth core.
// Every failure a flow can produce is tagged with a Kind; the HTTP layer
// translates kinds to status codes in exactly one place (HTTPStatus).
package autherr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an authentication failure.
type Kind uint8

const (
	// KindUnknown covers unexpected internal failures.
	KindUnknown Kind = iota
	// KindValidation is malformed or incomplete caller input.
	KindValidation
	// KindReplayDetected is a state or nonce mismatch on an OAuth callback.
	KindReplayDetected
	// KindProviderExchange is a network or upstream failure while talking
	// to an identity provider. The cause is audited, never echoed.
	KindProviderExchange
	// KindMissingVerifiedEmail means the provider profile carried no usable
	// email. The caller can remediate this, so the message is actionable.
	KindMissingVerifiedEmail
	// KindAlreadyLinkedElsewhere means the identity belongs to another account.
	KindAlreadyLinkedElsewhere
	// KindLastIdentity means unlinking would leave the account with no identity.
	KindLastIdentity
	// KindTokenInvalid is a token that fails signature or claim checks.
	KindTokenInvalid
	// KindTokenExpired is a token past its signed expiry.
	KindTokenExpired
	// KindTokenRevoked is a signature-valid token that has been revoked.
	KindTokenRevoked
	// KindCSRF is a double-submit token mismatch.
	KindCSRF
	// KindForbidden is a role check failure.
	KindForbidden
	// KindStorage is a store failure. Fatal for the request, not retried here.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindReplayDetected:
		return "replay_detected"
	case KindProviderExchange:
		return "provider_exchange_failed"
	case KindMissingVerifiedEmail:
		return "missing_verified_email"
	case KindAlreadyLinkedElsewhere:
		return "already_linked_elsewhere"
	case KindLastIdentity:
		return "last_identity"
	case KindTokenInvalid:
		return "token_invalid"
	case KindTokenExpired:
		return "token_expired"
	case KindTokenRevoked:
		return "token_revoked"
	case KindCSRF:
		return "csrf_rejected"
	case KindForbidden:
		return "forbidden"
	case KindStorage:
		return "storage_error"
	default:
		return "unknown"
	}
}

// Error is a kind-tagged error. Message is safe to return to the caller;
// the wrapped cause is for logs and audit entries only.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes two taxonomy errors match on Kind, so callers can compare
// against the package sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// New builds a tagged error with a caller-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap tags a cause. The cause stays private to logs.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Sentinels for errors.Is comparisons.
var (
	ErrReplayDetected       = New(KindReplayDetected, "authentication challenge replay detected")
	ErrProviderExchange     = New(KindProviderExchange, "provider exchange failed")
	ErrMissingVerifiedEmail = New(KindMissingVerifiedEmail, "provider returned no verified email; grant email access and retry")
	ErrAlreadyLinked        = New(KindAlreadyLinkedElsewhere, "identity already linked to another account")
	ErrLastIdentity         = New(KindLastIdentity, "cannot unlink the only linked identity")
	ErrTokenInvalid         = New(KindTokenInvalid, "invalid token")
	ErrTokenExpired         = New(KindTokenExpired, "token expired")
	ErrTokenRevoked         = New(KindTokenRevoked, "token revoked")
)

// KindOf extracts the Kind from any error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PublicMessage returns the caller-safe message for an error, falling back
// to a generic message for untagged failures.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus is the single boundary translator from error kind to
// transport status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindMissingVerifiedEmail, KindAlreadyLinkedElsewhere, KindLastIdentity:
		return http.StatusBadRequest
	case KindReplayDetected, KindTokenInvalid, KindTokenExpired, KindTokenRevoked:
		return http.StatusUnauthorized
	case KindCSRF, KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
