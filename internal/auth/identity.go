package auth

// Identity represents a normalized external authentication identity
// returned by an OAuth provider. It contains facts only, no decisions.
type Identity struct {
	Provider       string // e.g. "google", "github", "facebook"
	ProviderUserID string // provider-scoped unique user identifier (sub)
	Email          string // email returned by provider, may be empty
	EmailVerified  bool   // whether provider asserts email ownership
	Name           string // display name as reported by the provider
	AvatarURL      string // profile picture, may be empty

	// NonceClaim is the nonce embedded in the provider's signed identity
	// assertion, for providers that support one. Empty otherwise.
	NonceClaim string
}
