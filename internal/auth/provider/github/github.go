package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	oauth2github "golang.org/x/oauth2/github"

	"github.com/0ashutosh1/Project/internal/auth"
	"github.com/0ashutosh1/Project/internal/autherr"
)

const (
	providerName   = "github"
	defaultAPIBase = "https://api.github.com"
)

// Provider implements plain OAuth2 authentication against GitHub.
// GitHub has no OIDC id_token, so identity comes from the REST API
// and neither PKCE nor nonce are supported.
type Provider struct {
	oauthConfig *oauth2.Config
	apiBase     string
}

type Option func(*Provider)

// WithAPIBase overrides the GitHub API base URL. Used in tests.
func WithAPIBase(base string) Option {
	return func(p *Provider) { p.apiBase = base }
}

// WithEndpoint overrides the OAuth2 token endpoint. Used in tests.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(p *Provider) { p.oauthConfig.Endpoint = ep }
}

func New(
	clientID string,
	clientSecret string,
	redirectURL string,
	opts ...Option,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("github oauth config missing required fields")
	}

	p := &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     oauth2github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBase: defaultAPIBase,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) SupportsPKCE() bool { return false }

func (p *Provider) SupportsNonce() bool { return false }

// AuthCodeURL builds the OAuth authorization URL. GitHub ignores the
// nonce and PKCE parameters, so only state is used.
func (p *Provider) AuthCodeURL(state, _, _ string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

// ExchangeCode exchanges the authorization code and returns a normalized
// identity. GitHub users with a private email need the user:email scope;
// if no verified primary email is reachable the exchange fails with a
// remediable error.
func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	_ string,
) (*auth.Identity, error) {

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			fmt.Errorf("github token exchange: %w", err))
	}

	profile, err := p.fetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	if profile.Email == "" {
		email, err := p.fetchPrimaryEmail(ctx, token.AccessToken)
		if err != nil {
			return nil, err
		}
		profile.Email = email
	}

	if profile.Email == "" {
		return nil, autherr.ErrMissingVerifiedEmail
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}

	return &auth.Identity{
		Provider:       providerName,
		ProviderUserID: strconv.FormatInt(profile.ID, 10),
		Email:          profile.Email,
		EmailVerified:  true, // only verified emails are accepted below
		Name:           name,
		AvatarURL:      profile.AvatarURL,
	}, nil
}

type githubProfile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func (p *Provider) fetchProfile(ctx context.Context, accessToken string) (*githubProfile, error) {
	var profile githubProfile
	if err := p.apiGet(ctx, accessToken, "/user", &profile); err != nil {
		return nil, err
	}
	if profile.ID == 0 {
		return nil, autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			errors.New("github profile missing id"))
	}
	return &profile, nil
}

func (p *Provider) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := p.apiGet(ctx, accessToken, "/user/emails", &emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func (p *Provider) apiGet(ctx context.Context, accessToken, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+path, nil)
	if err != nil {
		return autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			fmt.Errorf("github api %s: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			fmt.Errorf("github api %s returned %d", path, resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			fmt.Errorf("github api %s decode: %w", path, err))
	}
	return nil
}
