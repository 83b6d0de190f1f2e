package account

import (
	"context"
	"errors"
)

// Store failures that the resolver distinguishes. Anything else is a
// storage error.
var (
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate is returned by Create when another account already
	// holds one of the new account's identities or its email.
	ErrDuplicate = errors.New("account or identity already exists")
)

// Store is the account record store consumed by the auth core.
// Create must be an exclusive create-if-absent: it writes the account
// and its identities as one atomic step and fails with ErrDuplicate if
// any identity pair or the email is already taken. That property is
// what keeps two concurrent first-logins from creating two accounts.
type Store interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByIdentity(ctx context.Context, provider, subjectID string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	Save(ctx context.Context, a *Account) error
}
