package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/0ashutosh1/Project/internal/auth"
	"github.com/0ashutosh1/Project/internal/autherr"
	"github.com/0ashutosh1/Project/internal/logger"
)

const providerName = "google"

// Provider implements OAuth + OIDC authentication against Google.
// It is the only provider whose identity assertion carries a nonce,
// and the only one using PKCE.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

func New(
	ctx context.Context,
	clientID string,
	clientSecret string,
	redirectURL string,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	verifier := oidcProvider.Verifier(&oidc.Config{
		ClientID: clientID,
	})

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			oidc.ScopeOpenID,
			"profile",
			"email",
		},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		verifier:    verifier,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// SupportsPKCE reports PKCE support; Google accepts S256 challenges.
func (p *Provider) SupportsPKCE() bool { return true }

// SupportsNonce reports nonce support; the id_token echoes it back.
func (p *Provider) SupportsNonce() bool { return true }

// AuthCodeURL builds the OAuth authorization URL with nonce and PKCE
// parameters.
func (p *Provider) AuthCodeURL(state, nonce, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode exchanges the authorization code and returns a normalized
// identity. The nonce claim from the verified id_token is surfaced so
// the caller can compare it against the saved value.
func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Identity, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			fmt.Errorf("google token exchange: %w", err))
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			errors.New("google did not return id_token"))
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			fmt.Errorf("google id_token verification: %w", err))
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
		Nonce         string `json:"nonce"`
	}

	if err := idToken.Claims(&claims); err != nil {
		return nil, autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			fmt.Errorf("google id_token claims parse: %w", err))
	}

	if claims.Subject == "" {
		return nil, autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			errors.New("google id_token missing subject"))
	}

	if claims.Email == "" || !claims.EmailVerified {
		return nil, autherr.ErrMissingVerifiedEmail
	}

	logger.Info("google oidc verified", map[string]any{
		"issuer":         idToken.Issuer,
		"email_verified": claims.EmailVerified,
		"nonce_present":  claims.Nonce != "",
		"expiry_unix":    idToken.Expiry.Unix(),
	})

	return &auth.Identity{
		Provider:       providerName,
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
		Name:           claims.Name,
		AvatarURL:      claims.Picture,
		NonceClaim:     claims.Nonce,
	}, nil
}
