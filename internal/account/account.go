// Package account holds the internal account model and the identity
// resolution rules: every external (provider, subject id) pair maps to
// at most one account, and every account keeps at least one linked
// identity.
package account

import "time"

// Role restricts accounts to the two application roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Account is the internal user record. Identities maps provider name
// to the provider-scoped subject id.
type Account struct {
	ID          string
	Email       string
	Name        string
	AvatarURL   string
	Role        Role
	Identities  map[string]string
	LastLoginAt time.Time
	CreatedAt   time.Time
}

// HasIdentity reports whether the account has an identity for the
// given provider.
func (a *Account) HasIdentity(provider string) bool {
	_, ok := a.Identities[provider]
	return ok
}

// IdentityCount returns the number of linked identities.
func (a *Account) IdentityCount() int {
	return len(a.Identities)
}

// clone returns a deep copy so store internals never escape.
func (a *Account) clone() *Account {
	cp := *a
	cp.Identities = make(map[string]string, len(a.Identities))
	for k, v := range a.Identities {
		cp.Identities[k] = v
	}
	return &cp
}
