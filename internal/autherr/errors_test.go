package autherr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindSentinelsMatchWithErrorsIs(t *testing.T) {
	wrapped := Wrap(KindReplayDetected, "state mismatch", errors.New("cookie absent"))

	if !errors.Is(wrapped, ErrReplayDetected) {
		t.Fatalf("wrapped replay error should match ErrReplayDetected")
	}
	if errors.Is(wrapped, ErrTokenExpired) {
		t.Fatalf("replay error must not match a token kind")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(KindValidation, "bad input"), http.StatusBadRequest},
		{ErrMissingVerifiedEmail, http.StatusBadRequest},
		{ErrAlreadyLinked, http.StatusBadRequest},
		{ErrLastIdentity, http.StatusBadRequest},
		{ErrReplayDetected, http.StatusUnauthorized},
		{ErrTokenInvalid, http.StatusUnauthorized},
		{ErrTokenExpired, http.StatusUnauthorized},
		{ErrTokenRevoked, http.StatusUnauthorized},
		{New(KindCSRF, "csrf mismatch"), http.StatusForbidden},
		{New(KindForbidden, "admin only"), http.StatusForbidden},
		{New(KindStorage, "db down"), http.StatusInternalServerError},
		{errors.New("untagged"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestPublicMessageHidesCause(t *testing.T) {
	cause := errors.New("connection refused to upstream 10.0.0.3")
	err := Wrap(KindProviderExchange, "provider exchange failed", cause)

	msg := PublicMessage(err)
	if msg != "provider exchange failed" {
		t.Fatalf("unexpected public message: %q", msg)
	}
	// The cause must still be reachable for audit logging.
	if !errors.Is(err, cause) {
		t.Fatalf("cause should unwrap")
	}
}

func TestPublicMessageFallback(t *testing.T) {
	if got := PublicMessage(fmt.Errorf("raw failure")); got != "internal error" {
		t.Fatalf("untagged errors must map to a generic message, got %q", got)
	}
}
