package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	oauth2facebook "golang.org/x/oauth2/facebook"

	"github.com/0ashutosh1/Project/internal/auth"
	"github.com/0ashutosh1/Project/internal/autherr"
)

const (
	providerName     = "facebook"
	defaultGraphBase = "https://graph.facebook.com/v19.0"
)

// Provider implements plain OAuth2 authentication against the Facebook
// Graph API. No OIDC id_token, so neither PKCE nor nonce apply.
type Provider struct {
	oauthConfig *oauth2.Config
	graphBase   string
}

type Option func(*Provider)

// WithGraphBase overrides the Graph API base URL. Used in tests.
func WithGraphBase(base string) Option {
	return func(p *Provider) { p.graphBase = base }
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
		return nil, errors.New("facebook oauth config missing required fields")
	}

	p := &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     oauth2facebook.Endpoint,
			Scopes:       []string{"email", "public_profile"},
		},
		graphBase: defaultGraphBase,
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

// AuthCodeURL builds the OAuth authorization URL. Facebook ignores the
// nonce and PKCE parameters, so only state is used.
func (p *Provider) AuthCodeURL(state, _, _ string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

// ExchangeCode exchanges the authorization code and returns a normalized
// identity. Users can decline the email permission, in which case the
// profile has no email and the exchange fails with a remediable error.
func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	_ string,
) (*auth.Identity, error) {

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			fmt.Errorf("facebook token exchange: %w", err))
	}

	reqURL := fmt.Sprintf("%s/me?fields=%s&access_token=%s",
		p.graphBase,
		url.QueryEscape("id,name,email,picture.type(large)"),
		url.QueryEscape(token.AccessToken),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			fmt.Errorf("facebook graph request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			fmt.Errorf("facebook graph returned %d", resp.StatusCode))
	}

	var profile struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			fmt.Errorf("facebook graph decode: %w", err))
	}

	if profile.ID == "" {
		return nil, autherr.Wrap(autherr.KindProviderExchange,
			"provider exchange failed",
			errors.New("facebook profile missing id"))
	}

	if profile.Email == "" {
		return nil, autherr.ErrMissingVerifiedEmail
	}

	return &auth.Identity{
		Provider:       providerName,
		ProviderUserID: profile.ID,
		Email:          profile.Email,
		EmailVerified:  true, // facebook only exposes confirmed emails
		Name:           profile.Name,
		AvatarURL:      profile.Picture.Data.URL,
	}, nil
}
