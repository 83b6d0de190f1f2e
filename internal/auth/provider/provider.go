package provider

import (
	"context"
	"time"

	"github.com/0ashutosh1/Project/internal/auth"
)

// exchangeTimeout bounds every outbound call to a provider's token or
// profile endpoint.
const exchangeTimeout = 10 * time.Second

// OAuthProvider defines the contract every external auth provider
// must implement. Implementations return identity facts only and
// must not perform account creation, linking, or session management.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "google", "github").
	Name() string

	// AuthCodeURL returns the OAuth authorization URL. State, nonce and
	// PKCE parameters are provided by the caller; providers ignore the
	// values they do not support.
	AuthCodeURL(state, nonce, codeChallenge string) string

	// SupportsPKCE reports whether the provider accepts a PKCE verifier.
	SupportsPKCE() bool

	// SupportsNonce reports whether the provider embeds a nonce in its
	// signed identity assertion.
	SupportsNonce() bool

	// ExchangeCode exchanges the authorization code for provider
	// credentials and returns a normalized identity. No auth decisions
	// are made here.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*auth.Identity, error)
}

// WithTimeout derives the bounded context used for provider exchanges.
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, exchangeTimeout)
}
