package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/0ashutosh1/Project/internal/account"
	"github.com/0ashutosh1/Project/internal/audit"
	"github.com/0ashutosh1/Project/internal/auth"
	"github.com/0ashutosh1/Project/internal/auth/provider"
	"github.com/0ashutosh1/Project/internal/autherr"
	"github.com/0ashutosh1/Project/internal/csrf"
	"github.com/0ashutosh1/Project/internal/token"
)

// stubProvider lets each test script the exchange outcome.
type stubProvider struct {
	name          string
	nonceSupport  bool
	identity      *auth.Identity
	exchangeError error
}

func (s *stubProvider) Name() string                      { return s.name }
func (s *stubProvider) AuthCodeURL(_, _, _ string) string { return "https://example.com/authorize" }
func (s *stubProvider) SupportsPKCE() bool                { return s.nonceSupport }
func (s *stubProvider) SupportsNonce() bool               { return s.nonceSupport }
func (s *stubProvider) ExchangeCode(context.Context, string, string) (*auth.Identity, error) {
	if s.exchangeError != nil {
		return nil, s.exchangeError
	}
	return s.identity, nil
}

type fixture struct {
	service *Service
	store   *account.MemoryStore
	trail   *audit.Trail
	issuer  *token.Issuer
}

func newFixture(t *testing.T, providers ...provider.OAuthProvider) *fixture {
	t.Helper()

	store := account.NewMemoryStore()
	trail := audit.NewTrail()
	issuer, err := token.NewIssuer(token.IssuerConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}, token.NewMemoryRevocations())
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	return &fixture{
		service: NewService(provider.NewRegistry(providers...), account.NewResolver(store), issuer, trail),
		store:   store,
		trail:   trail,
		issuer:  issuer,
	}
}

func googleStub() *stubProvider {
	return &stubProvider{
		name:         "google",
		nonceSupport: true,
		identity: &auth.Identity{
			Provider:       "google",
			ProviderUserID: "123",
			Email:          "a@x.com",
			EmailVerified:  true,
			Name:           "Ada",
			NonceClaim:     "nonce-1",
		},
	}
}

func loginInput() LoginInput {
	return LoginInput{
		Provider:   "google",
		Code:       "auth-code",
		Verifier:   "pkce-verifier",
		State:      "state-1",
		SavedState: "state-1",
		Nonce:      "nonce-1",
		Client:     audit.Client{IP: "203.0.113.9", UserAgent: "test"},
	}
}

func TestLoginHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, googleStub())

	res, err := f.service.Login(ctx, loginInput())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Account.Email != "a@x.com" {
		t.Errorf("account email = %q", res.Account.Email)
	}
	if res.Tokens.Access == "" || res.Tokens.Refresh == "" {
		t.Errorf("tokens not minted")
	}
	if err := csrf.Validate(res.CsrfToken, res.CsrfSecret, res.Account.ID); err != nil {
		t.Errorf("issued csrf pair does not validate: %v", err)
	}

	claims, err := f.issuer.VerifyAccess(ctx, res.Tokens.Access)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.AccountID() != res.Account.ID {
		t.Errorf("claims subject mismatch")
	}

	if f.trail.Metrics()[audit.TypeLogin] != 1 {
		t.Errorf("login not audited: %v", f.trail.Metrics())
	}
}

func TestLoginStateMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, googleStub())

	in := loginInput()
	in.SavedState = "different"

	_, err := f.service.Login(ctx, in)
	if !errors.Is(err, autherr.ErrReplayDetected) {
		t.Fatalf("want ReplayDetected, got %v", err)
	}

	// No session is minted and a security entry exists alongside the
	// login failure entry.
	m := f.trail.Metrics()
	if m[audit.TypeLogin] != 1 || m[audit.TypeSecurity] != 1 {
		t.Fatalf("metrics = %v", m)
	}
	if _, err := f.store.FindByIdentity(ctx, "google", "123"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("account must not be created on replay")
	}
}

func TestLoginNonceMismatch(t *testing.T) {
	ctx := context.Background()
	stub := googleStub()
	stub.identity.NonceClaim = "tampered"
	f := newFixture(t, stub)

	_, err := f.service.Login(ctx, loginInput())
	if !errors.Is(err, autherr.ErrReplayDetected) {
		t.Fatalf("want ReplayDetected, got %v", err)
	}
	if f.trail.Metrics()[audit.TypeSecurity] != 1 {
		t.Fatalf("nonce mismatch must raise a security event")
	}
}

func TestLoginOmittedNonceRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, googleStub())

	// The assertion carries a nonce but the caller supplies none.
	// Stripping the saved value must not bypass the comparison.
	in := loginInput()
	in.Nonce = ""

	_, err := f.service.Login(ctx, in)
	if !errors.Is(err, autherr.ErrReplayDetected) {
		t.Fatalf("want ReplayDetected, got %v", err)
	}
	if f.trail.Metrics()[audit.TypeSecurity] != 1 {
		t.Fatalf("omitted nonce must raise a security event")
	}
	if _, err := f.store.FindByIdentity(ctx, "google", "123"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("no session material may be minted on a nonce bypass attempt")
	}
}

func TestLoginNonceIgnoredForPlainOAuthProviders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubProvider{
		name: "github",
		identity: &auth.Identity{
			Provider:       "github",
			ProviderUserID: "9",
			Email:          "b@x.com",
			Name:           "Bob",
		},
	})

	in := loginInput()
	in.Provider = "github"
	in.Nonce = "" // github has no nonce claim

	if _, err := f.service.Login(ctx, in); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestLoginProviderExchangeFailure(t *testing.T) {
	ctx := context.Background()
	stub := googleStub()
	stub.exchangeError = autherr.Wrap(autherr.KindProviderExchange,
		"provider exchange failed", errors.New("upstream 502"))
	f := newFixture(t, stub)

	_, err := f.service.Login(ctx, loginInput())
	if autherr.KindOf(err) != autherr.KindProviderExchange {
		t.Fatalf("want ProviderExchange, got %v", err)
	}

	events := f.trail.Recent(1)
	if len(events) != 1 || events[0].Success {
		t.Fatalf("failure not audited")
	}
	// The audit entry keeps the full detail the caller never sees.
	if events[0].Reason == autherr.PublicMessage(err) {
		t.Fatalf("audit reason should carry more detail than the public message")
	}
}

func TestLoginMissingEmailCreatesNothing(t *testing.T) {
	ctx := context.Background()
	stub := googleStub()
	stub.exchangeError = autherr.ErrMissingVerifiedEmail
	f := newFixture(t, stub)

	_, err := f.service.Login(ctx, loginInput())
	if !errors.Is(err, autherr.ErrMissingVerifiedEmail) {
		t.Fatalf("want MissingVerifiedEmail, got %v", err)
	}

	if _, err := f.store.FindByEmail(ctx, "a@x.com"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("no account may exist after a failed exchange")
	}
	events := f.trail.Recent(1)
	if len(events) != 1 || events[0].Success {
		t.Fatalf("failed login must be audited with success=false")
	}
}

func TestLoginUnknownProvider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, googleStub())

	in := loginInput()
	in.Provider = "myspace"

	_, err := f.service.Login(ctx, in)
	if autherr.KindOf(err) != autherr.KindValidation {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestLinkFlow(t *testing.T) {
	ctx := context.Background()
	github := &stubProvider{
		name: "github",
		identity: &auth.Identity{
			Provider:       "github",
			ProviderUserID: "9",
			Email:          "other@x.com",
			Name:           "Ada",
		},
	}
	f := newFixture(t, googleStub(), github)

	res, err := f.service.Login(ctx, loginInput())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	in := loginInput()
	in.Provider = "github"
	in.Nonce = ""

	linked, err := f.service.Link(ctx, res.Account.ID, in)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if linked.Identities["github"] != "9" {
		t.Fatalf("identity not linked: %v", linked.Identities)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, googleStub())
	client := audit.Client{IP: "203.0.113.9"}

	res, err := f.service.Login(ctx, loginInput())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	refreshed, err := f.service.Refresh(ctx, res.Tokens.Refresh, client)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.Claims.AccountID() != res.Account.ID {
		t.Errorf("refresh claims mismatch")
	}
	if err := csrf.Validate(refreshed.CsrfToken, refreshed.CsrfSecret, res.Account.ID); err != nil {
		t.Errorf("reissued csrf pair invalid: %v", err)
	}

	if err := f.service.Logout(ctx, res.Tokens.Access, client); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := f.issuer.VerifyAccess(ctx, res.Tokens.Access); !errors.Is(err, autherr.ErrTokenRevoked) {
		t.Fatalf("access token should be revoked after logout, got %v", err)
	}

	// The rotated access token from before logout remains valid until
	// expiry; only the presented token was revoked.
	if _, err := f.issuer.VerifyAccess(ctx, refreshed.Access); err != nil {
		t.Fatalf("rotated token rejected: %v", err)
	}
}

func TestRefreshCsrfIssuanceFailureAudited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, googleStub())

	res, err := f.service.Login(ctx, loginInput())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	f.service.csrfIssue = func(string) (string, string, error) {
		return "", "", errors.New("entropy exhausted")
	}

	_, err = f.service.Refresh(ctx, res.Tokens.Refresh, audit.Client{})
	if autherr.KindOf(err) != autherr.KindUnknown {
		t.Fatalf("want Unknown kind, got %v", err)
	}

	events := f.trail.Recent(1)
	if len(events) != 1 || events[0].Success || events[0].Type != audit.TypeRefresh {
		t.Fatalf("failed csrf issuance not audited: %+v", events)
	}
	if events[0].AccountID != res.Account.ID {
		t.Fatalf("audit entry missing account id: %+v", events[0])
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, googleStub())

	_, err := f.service.Refresh(ctx, "garbage", audit.Client{})
	if !errors.Is(err, autherr.ErrTokenInvalid) {
		t.Fatalf("want TokenInvalid, got %v", err)
	}
	events := f.trail.Recent(1)
	if len(events) != 1 || events[0].Success || events[0].Type != audit.TypeRefresh {
		t.Fatalf("rejected refresh not audited: %+v", events)
	}
}

func TestUnlinkFlowAudited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, googleStub())

	res, err := f.service.Login(ctx, loginInput())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, err = f.service.Unlink(ctx, res.Account.ID, "google", audit.Client{})
	if !errors.Is(err, autherr.ErrLastIdentity) {
		t.Fatalf("want LastIdentity, got %v", err)
	}

	events := f.trail.Recent(1)
	if events[0].Type != audit.TypeUnlink || events[0].Success {
		t.Fatalf("refused unlink not audited: %+v", events[0])
	}
}
