// Package token mints, verifies, rotates and revokes the application's
// session credentials: a short-lived access token presented as a bearer
// credential and a longer-lived refresh token that only ever travels in
// a protected cookie.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/0ashutosh1/Project/internal/account"
	"github.com/0ashutosh1/Project/internal/autherr"
)

// Claims is the signed payload carried by both token kinds.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AccountID returns the subject claim.
func (c *Claims) AccountID() string { return c.Subject }

// Pair is a freshly minted access/refresh token pair.
type Pair struct {
	Access  string
	Refresh string
}

// Issuer signs and verifies session tokens. Minting, verification and
// rotation are pure computations; only revocation touches shared state.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	revocations   Revocations
	now           func() time.Time
}

type IssuerConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func NewIssuer(cfg IssuerConfig, revocations Revocations) (*Issuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: TTLs must be positive")
	}
	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		revocations:   revocations,
		now:           time.Now,
	}, nil
}

// Mint signs an access/refresh pair for the account.
func (i *Issuer) Mint(a *account.Account) (Pair, error) {
	access, err := i.sign(a.ID, a.Email, a.Name, string(a.Role), i.accessSecret, i.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.sign(a.ID, a.Email, a.Name, string(a.Role), i.refreshSecret, i.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) sign(accountID, email, name, role string, secret []byte, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Email: email,
		Name:  name,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess checks signature and expiry first, then consults the
// revocation registry. Garbage is rejected before any registry lookup.
func (i *Issuer) VerifyAccess(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := i.parse(tokenString, i.accessSecret)
	if err != nil {
		return nil, err
	}

	revoked, err := i.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, autherr.Wrap(autherr.KindStorage, "revocation lookup failed", err)
	}
	if revoked {
		return nil, autherr.ErrTokenRevoked
	}
	return claims, nil
}

// ParseAccess checks the access token's signature and expiry without
// consulting the revocation registry. Used where the claims are wanted
// even for a token that is about to be, or already is, revoked.
func (i *Issuer) ParseAccess(tokenString string) (*Claims, error) {
	return i.parse(tokenString, i.accessSecret)
}

// VerifyRefresh checks the refresh token's signature and expiry.
func (i *Issuer) VerifyRefresh(tokenString string) (*Claims, error) {
	return i.parse(tokenString, i.refreshSecret)
}

// Rotate mints a fresh access token from a valid refresh token. Claims
// are re-derived from the refresh payload with no store round-trip, so
// concurrent rotations of the same token are safe and each yields a
// valid, distinct access token. A role change therefore takes up to the
// access TTL to appear unless the user logs in again.
func (i *Issuer) Rotate(refreshToken string) (string, *Claims, error) {
	claims, err := i.parse(refreshToken, i.refreshSecret)
	if err != nil {
		return "", nil, err
	}

	access, err := i.sign(claims.Subject, claims.Email, claims.Name, claims.Role, i.accessSecret, i.accessTTL)
	if err != nil {
		return "", nil, err
	}
	return access, claims, nil
}

// RevokeAccess registers the token with the revocation registry for the
// remainder of its signed lifetime, never longer: after natural expiry
// the signature check alone rejects it. Revoking an already-expired
// token is a no-op.
func (i *Issuer) RevokeAccess(ctx context.Context, tokenString string) error {
	claims, err := i.parse(tokenString, i.accessSecret)
	if errors.Is(err, autherr.ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return err
	}

	ttl := claims.ExpiresAt.Sub(i.now())
	if ttl <= 0 {
		return nil
	}
	if err := i.revocations.Add(ctx, claims.ID, ttl); err != nil {
		return autherr.Wrap(autherr.KindStorage, "revocation add failed", err)
	}
	return nil
}

func (i *Issuer) parse(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherr.ErrTokenExpired
		}
		return nil, autherr.Wrap(autherr.KindTokenInvalid, "invalid token", err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, autherr.ErrTokenInvalid
	}
	return claims, nil
}
