package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/0ashutosh1/Project/internal/auth"
	"github.com/0ashutosh1/Project/internal/autherr"
)

func googleIdentity() *auth.Identity {
	return &auth.Identity{
		Provider:       "google",
		ProviderUserID: "123",
		Email:          "a@x.com",
		EmailVerified:  true,
		Name:           "Ada",
		AvatarURL:      "https://img.example.com/ada",
	}
}

func TestResolveOrCreateFirstLogin(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(NewMemoryStore())

	acct, created, err := r.ResolveOrCreate(ctx, googleIdentity())
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if !created {
		t.Fatalf("first login should create the account")
	}
	if acct.Role != RoleUser {
		t.Errorf("role = %q, want user", acct.Role)
	}
	if acct.Identities["google"] != "123" {
		t.Errorf("identity not linked: %v", acct.Identities)
	}
	if acct.IdentityCount() != 1 {
		t.Errorf("new account should have exactly one identity")
	}
	if acct.LastLoginAt.IsZero() {
		t.Errorf("lastLoginAt not set")
	}
}

func TestResolveOrCreateRefreshesProfile(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(NewMemoryStore())

	first, _, err := r.ResolveOrCreate(ctx, googleIdentity())
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}

	updated := googleIdentity()
	updated.Name = "Ada Lovelace"
	updated.AvatarURL = "https://img.example.com/ada2"

	second, created, err := r.ResolveOrCreate(ctx, updated)
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if created {
		t.Fatalf("repeat login must not create a second account")
	}
	if second.ID != first.ID {
		t.Fatalf("account id changed across logins")
	}
	if second.Name != "Ada Lovelace" || second.AvatarURL != "https://img.example.com/ada2" {
		t.Errorf("profile fields not refreshed: %+v", second)
	}
}

func TestResolveOrCreateImplicitLinkByEmail(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(NewMemoryStore())

	first, _, err := r.ResolveOrCreate(ctx, googleIdentity())
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}

	github := &auth.Identity{
		Provider:       "github",
		ProviderUserID: "9",
		Email:          "a@x.com",
		EmailVerified:  true,
		Name:           "Ada",
	}
	linked, created, err := r.ResolveOrCreate(ctx, github)
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if created {
		t.Fatalf("same email must link, not create")
	}
	if linked.ID != first.ID {
		t.Fatalf("linked to a different account")
	}
	if linked.Identities["github"] != "9" || linked.Identities["google"] != "123" {
		t.Errorf("identities = %v", linked.Identities)
	}
}

func TestResolveOrCreateConcurrentFirstLogins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const attempts = 16
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]bool{}
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acct, _, err := NewResolver(store).ResolveOrCreate(ctx, googleIdentity())
			if err != nil {
				t.Errorf("ResolveOrCreate: %v", err)
				return
			}
			mu.Lock()
			ids[acct.ID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != 1 {
		t.Fatalf("concurrent first-logins produced %d accounts, want 1", len(ids))
	}

	acct, err := store.FindByIdentity(ctx, "google", "123")
	if err != nil {
		t.Fatalf("FindByIdentity: %v", err)
	}
	if acct.Identities["google"] != "123" {
		t.Fatalf("identity mapping wrong: %v", acct.Identities)
	}
}

func TestLinkRejectsIdentityOwnedElsewhere(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(NewMemoryStore())

	owner, _, err := r.ResolveOrCreate(ctx, googleIdentity())
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}

	other, _, err := r.ResolveOrCreate(ctx, &auth.Identity{
		Provider:       "github",
		ProviderUserID: "9",
		Email:          "b@x.com",
		Name:           "Bob",
	})
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}

	_, err = r.Link(ctx, other.ID, googleIdentity())
	if !errors.Is(err, autherr.ErrAlreadyLinked) {
		t.Fatalf("want AlreadyLinkedElsewhere, got %v", err)
	}

	// Linking the identity to its own account is idempotent.
	if _, err := r.Link(ctx, owner.ID, googleIdentity()); err != nil {
		t.Fatalf("self link should be a no-op, got %v", err)
	}
}

func TestUnlinkInvariants(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(NewMemoryStore())

	acct, _, err := r.ResolveOrCreate(ctx, googleIdentity())
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}

	// Only one identity: unlink must be refused.
	if _, err := r.Unlink(ctx, acct.ID, "google"); !errors.Is(err, autherr.ErrLastIdentity) {
		t.Fatalf("want LastIdentity, got %v", err)
	}

	if _, err := r.Link(ctx, acct.ID, &auth.Identity{
		Provider:       "github",
		ProviderUserID: "9",
		Email:          "a@x.com",
	}); err != nil {
		t.Fatalf("Link: %v", err)
	}

	after, err := r.Unlink(ctx, acct.ID, "google")
	if err != nil {
		t.Fatalf("Unlink after second link: %v", err)
	}
	if after.HasIdentity("google") {
		t.Fatalf("google identity still present")
	}
	if after.IdentityCount() != 1 {
		t.Fatalf("identity count = %d, want 1", after.IdentityCount())
	}
}

func TestUnlinkUnknownProvider(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(NewMemoryStore())

	acct, _, err := r.ResolveOrCreate(ctx, googleIdentity())
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}

	_, err = r.Unlink(ctx, acct.ID, "facebook")
	if autherr.KindOf(err) != autherr.KindValidation {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestResolverUsesInjectedClock(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(NewMemoryStore())
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	acct, _, err := r.ResolveOrCreate(ctx, googleIdentity())
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if !acct.LastLoginAt.Equal(fixed) {
		t.Fatalf("lastLoginAt = %v, want %v", acct.LastLoginAt, fixed)
	}
}
