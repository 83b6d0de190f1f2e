// Package flow composes the auth building blocks into the end-to-end
// login, link, unlink, refresh and logout sequences. Every terminal
// state produces an audit entry; replay and revoked-token reuse also
// produce a security entry.
package flow

import (
	"context"

	"github.com/0ashutosh1/Project/internal/account"
	"github.com/0ashutosh1/Project/internal/audit"
	"github.com/0ashutosh1/Project/internal/auth"
	"github.com/0ashutosh1/Project/internal/auth/provider"
	"github.com/0ashutosh1/Project/internal/auth/replay"
	"github.com/0ashutosh1/Project/internal/autherr"
	"github.com/0ashutosh1/Project/internal/csrf"
	"github.com/0ashutosh1/Project/internal/token"
)

// Service is the auth orchestrator. All dependencies are injected once
// at startup.
type Service struct {
	providers *provider.Registry
	resolver  *account.Resolver
	issuer    *token.Issuer
	trail     *audit.Trail
	csrfIssue func(accountID string) (secret, token string, err error)
}

func NewService(
	providers *provider.Registry,
	resolver *account.Resolver,
	issuer *token.Issuer,
	trail *audit.Trail,
) *Service {
	return &Service{
		providers: providers,
		resolver:  resolver,
		issuer:    issuer,
		trail:     trail,
		csrfIssue: csrf.Issue,
	}
}

// LoginInput carries the callback material for a login or link attempt.
// State and SavedState are the value returned through the provider
// redirect and the client-held value from the challenge phase; Nonce is
// the client-held nonce, compared against the provider's signed
// assertion when the provider supports one.
type LoginInput struct {
	Provider   string
	Code       string
	Verifier   string
	State      string
	SavedState string
	Nonce      string
	Client     audit.Client
}

// LoginResult is a terminal login success.
type LoginResult struct {
	Account       *account.Account
	Tokens        token.Pair
	CsrfSecret    string
	CsrfToken     string
	CorrelationID string
}

// RefreshResult is a terminal refresh success.
type RefreshResult struct {
	Access     string
	CsrfSecret string
	CsrfToken  string
	Claims     *token.Claims
}

// Login runs the full sequence: replay validation, code exchange,
// account resolution, session minting.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	identity, correlationID, err := s.exchange(ctx, audit.TypeLogin, in)
	if err != nil {
		return nil, err
	}

	acct, created, err := s.resolver.ResolveOrCreate(ctx, identity)
	if err != nil {
		s.fail(audit.TypeLogin, correlationID, in, err)
		return nil, err
	}

	pair, err := s.issuer.Mint(acct)
	if err != nil {
		err = autherr.Wrap(autherr.KindUnknown, "session minting failed", err)
		s.fail(audit.TypeLogin, correlationID, in, err)
		return nil, err
	}

	secret, csrfToken, err := s.csrfIssue(acct.ID)
	if err != nil {
		err = autherr.Wrap(autherr.KindUnknown, "csrf issuance failed", err)
		s.fail(audit.TypeLogin, correlationID, in, err)
		return nil, err
	}

	s.trail.Record(audit.Event{
		CorrelationID: correlationID,
		Type:          audit.TypeLogin,
		Provider:      in.Provider,
		AccountID:     acct.ID,
		Email:         acct.Email,
		Client:        in.Client,
		Success:       true,
		Metadata:      map[string]any{"account_created": created},
	})

	return &LoginResult{
		Account:       acct,
		Tokens:        pair,
		CsrfSecret:    secret,
		CsrfToken:     csrfToken,
		CorrelationID: correlationID,
	}, nil
}

// Link runs the same exchange and validation as Login but attaches the
// identity to an existing account instead of resolving one.
func (s *Service) Link(ctx context.Context, accountID string, in LoginInput) (*account.Account, error) {
	identity, correlationID, err := s.exchange(ctx, audit.TypeLink, in)
	if err != nil {
		return nil, err
	}

	acct, err := s.resolver.Link(ctx, accountID, identity)
	if err != nil {
		s.fail(audit.TypeLink, correlationID, in, err)
		return nil, err
	}

	s.trail.Record(audit.Event{
		CorrelationID: correlationID,
		Type:          audit.TypeLink,
		Provider:      in.Provider,
		AccountID:     acct.ID,
		Email:         acct.Email,
		Client:        in.Client,
		Success:       true,
	})
	return acct, nil
}

// Unlink removes a linked identity, refusing to remove the last one.
func (s *Service) Unlink(ctx context.Context, accountID, providerName string, client audit.Client) (*account.Account, error) {
	acct, err := s.resolver.Unlink(ctx, accountID, providerName)
	if err != nil {
		s.trail.Record(audit.Event{
			Type:      audit.TypeUnlink,
			Provider:  providerName,
			AccountID: accountID,
			Client:    client,
			Success:   false,
			Reason:    autherr.KindOf(err).String(),
		})
		return nil, err
	}

	s.trail.Record(audit.Event{
		Type:      audit.TypeUnlink,
		Provider:  providerName,
		AccountID: acct.ID,
		Email:     acct.Email,
		Client:    client,
		Success:   true,
	})
	return acct, nil
}

// Refresh rotates the access token off a valid refresh token and
// reissues the CSRF pair, since a refresh is a new proof of session.
func (s *Service) Refresh(ctx context.Context, refreshToken string, client audit.Client) (*RefreshResult, error) {
	access, claims, err := s.issuer.Rotate(refreshToken)
	if err != nil {
		s.trail.Record(audit.Event{
			Type:    audit.TypeRefresh,
			Client:  client,
			Success: false,
			Reason:  autherr.KindOf(err).String(),
		})
		return nil, err
	}

	secret, csrfToken, err := s.csrfIssue(claims.AccountID())
	if err != nil {
		err = autherr.Wrap(autherr.KindUnknown, "csrf issuance failed", err)
		s.trail.Record(audit.Event{
			Type:      audit.TypeRefresh,
			AccountID: claims.AccountID(),
			Client:    client,
			Success:   false,
			Reason:    err.Error(),
		})
		return nil, err
	}

	s.trail.Record(audit.Event{
		Type:      audit.TypeRefresh,
		AccountID: claims.AccountID(),
		Email:     claims.Email,
		Client:    client,
		Success:   true,
	})

	return &RefreshResult{
		Access:     access,
		CsrfSecret: secret,
		CsrfToken:  csrfToken,
		Claims:     claims,
	}, nil
}

// Logout revokes the presented access token for the rest of its signed
// lifetime.
func (s *Service) Logout(ctx context.Context, accessToken string, client audit.Client) error {
	claims, _ := s.issuer.ParseAccess(accessToken)

	if err := s.issuer.RevokeAccess(ctx, accessToken); err != nil {
		event := audit.Event{
			Type:    audit.TypeLogout,
			Client:  client,
			Success: false,
			Reason:  autherr.KindOf(err).String(),
		}
		if claims != nil {
			event.AccountID = claims.AccountID()
		}
		s.trail.Record(event)
		return err
	}

	event := audit.Event{
		Type:    audit.TypeLogout,
		Client:  client,
		Success: true,
	}
	if claims != nil {
		event.AccountID = claims.AccountID()
		event.Email = claims.Email
	}
	s.trail.Record(event)
	return nil
}

// exchange runs the shared front half of Login and Link: replay
// validation, then the provider code exchange, then the nonce check
// against the signed assertion. Failures are audited here.
func (s *Service) exchange(ctx context.Context, eventType string, in LoginInput) (*auth.Identity, string, error) {
	if in.Provider == "" || in.Code == "" {
		err := autherr.New(autherr.KindValidation, "provider and code are required")
		return nil, s.fail(eventType, "", in, err), err
	}

	p, err := s.providers.Get(in.Provider)
	if err != nil {
		err = autherr.New(autherr.KindValidation, "unknown oauth provider")
		return nil, s.fail(eventType, "", in, err), err
	}

	if err := replay.Validate(in.State, in.SavedState, "", ""); err != nil {
		correlationID := s.fail(eventType, "", in, err)
		s.trail.Security(audit.Event{
			CorrelationID: correlationID,
			Provider:      in.Provider,
			Client:        in.Client,
			Reason:        "oauth state replay",
			Severity:      audit.SeverityHigh,
		})
		return nil, correlationID, err
	}

	exchangeCtx, cancel := provider.WithTimeout(ctx)
	defer cancel()

	identity, err := p.ExchangeCode(exchangeCtx, in.Code, in.Verifier)
	if err != nil {
		return nil, s.fail(eventType, "", in, err), err
	}

	if p.SupportsNonce() {
		if err := replay.Validate(in.State, in.SavedState, identity.NonceClaim, in.Nonce); err != nil {
			correlationID := s.fail(eventType, "", in, err)
			s.trail.Security(audit.Event{
				CorrelationID: correlationID,
				Provider:      in.Provider,
				Client:        in.Client,
				Reason:        "identity assertion nonce mismatch",
				Severity:      audit.SeverityHigh,
			})
			return nil, correlationID, err
		}
	}

	return identity, "", nil
}

// fail records a terminal failure and returns the correlation id so
// follow-up entries can reuse it.
func (s *Service) fail(eventType, correlationID string, in LoginInput, err error) string {
	return s.trail.Record(audit.Event{
		CorrelationID: correlationID,
		Type:          eventType,
		Provider:      in.Provider,
		Client:        in.Client,
		Success:       false,
		Reason:        err.Error(),
	})
}
