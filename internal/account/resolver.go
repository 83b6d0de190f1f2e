package account

import (
	"context"
	"errors"
	"time"

	"github.com/0ashutosh1/Project/internal/auth"
	"github.com/0ashutosh1/Project/internal/autherr"
	"github.com/0ashutosh1/Project/internal/logger"
)

// Resolver maps external identities to accounts. It is the only place
// where identity-to-account decisions live.
type Resolver struct {
	store Store
	now   func() time.Time
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// ResolveOrCreate finds the account owning the identity, or links the
// identity onto the account registered under the same email, or creates
// a new account. Returns the account and whether it was newly created.
//
// Logging in with a new provider under a known email is implicit
// linking: the provider already authenticated ownership of that email.
func (r *Resolver) ResolveOrCreate(ctx context.Context, identity *auth.Identity) (*Account, bool, error) {
	if identity == nil || identity.Provider == "" || identity.ProviderUserID == "" {
		return nil, false, autherr.New(autherr.KindValidation, "incomplete identity")
	}

	// A lost create/link race means another request owns the identity
	// now; one re-resolution pass settles on that account.
	for attempt := 0; attempt < 2; attempt++ {
		acct, created, err := r.resolveOnce(ctx, identity)
		if err == nil {
			return acct, created, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return nil, false, err
		}
	}
	return nil, false, autherr.New(autherr.KindStorage, "account resolution conflict")
}

func (r *Resolver) resolveOnce(ctx context.Context, identity *auth.Identity) (*Account, bool, error) {
	now := r.now().UTC()

	// 1. Known identity: refresh mutable profile fields.
	acct, err := r.store.FindByIdentity(ctx, identity.Provider, identity.ProviderUserID)
	if err == nil {
		acct.Name = identity.Name
		if identity.AvatarURL != "" {
			acct.AvatarURL = identity.AvatarURL
		}
		acct.LastLoginAt = now
		if err := r.store.Save(ctx, acct); err != nil {
			return nil, false, storeErr(err)
		}
		return acct, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, storeErr(err)
	}

	// 2. Known email: implicitly link the new provider.
	acct, err = r.store.FindByEmail(ctx, identity.Email)
	if err == nil {
		acct.Identities[identity.Provider] = identity.ProviderUserID
		acct.LastLoginAt = now
		if err := r.store.Save(ctx, acct); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return nil, false, err
			}
			return nil, false, storeErr(err)
		}
		logger.Info("identity linked by email", map[string]any{
			"provider":   identity.Provider,
			"account_id": acct.ID,
		})
		return acct, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, storeErr(err)
	}

	// 3. First login: create account with exactly this identity.
	acct = &Account{
		Email:     identity.Email,
		Name:      identity.Name,
		AvatarURL: identity.AvatarURL,
		Role:      RoleUser,
		Identities: map[string]string{
			identity.Provider: identity.ProviderUserID,
		},
		LastLoginAt: now,
		CreatedAt:   now,
	}
	if err := r.store.Create(ctx, acct); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, false, err
		}
		return nil, false, storeErr(err)
	}
	return acct, true, nil
}

// Link attaches an identity to an existing account. The pair must not
// belong to a different account.
func (r *Resolver) Link(ctx context.Context, accountID string, identity *auth.Identity) (*Account, error) {
	owner, err := r.store.FindByIdentity(ctx, identity.Provider, identity.ProviderUserID)
	if err == nil {
		if owner.ID == accountID {
			return owner, nil // already linked here, idempotent
		}
		return nil, autherr.ErrAlreadyLinked
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, storeErr(err)
	}

	acct, err := r.findByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	acct.Identities[identity.Provider] = identity.ProviderUserID
	if err := r.store.Save(ctx, acct); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, autherr.ErrAlreadyLinked
		}
		return nil, storeErr(err)
	}
	return acct, nil
}

// Unlink removes a provider's identity from the account. An account may
// never end up with zero identities.
func (r *Resolver) Unlink(ctx context.Context, accountID, provider string) (*Account, error) {
	acct, err := r.findByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if !acct.HasIdentity(provider) {
		return nil, autherr.New(autherr.KindValidation, "provider not linked")
	}
	if acct.IdentityCount() <= 1 {
		return nil, autherr.ErrLastIdentity
	}

	delete(acct.Identities, provider)
	if err := r.store.Save(ctx, acct); err != nil {
		return nil, storeErr(err)
	}
	return acct, nil
}

func (r *Resolver) findByID(ctx context.Context, accountID string) (*Account, error) {
	acct, err := r.store.FindByID(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		return nil, autherr.New(autherr.KindValidation, "account not found")
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return acct, nil
}

func storeErr(err error) error {
	return autherr.Wrap(autherr.KindStorage, "account store failure", err)
}
