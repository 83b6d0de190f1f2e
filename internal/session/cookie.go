// Package session owns the cookie contracts: the refresh token and the
// CSRF secret only ever travel in protected, script-inaccessible
// cookies.
package session

import (
	"net/http"
	"time"
)

const (
	// RefreshCookieName carries the refresh token. HttpOnly, strict
	// same-site, lifetime equal to the refresh-token TTL.
	RefreshCookieName = "refreshToken"

	// CsrfCookieName carries the CSRF cookie secret of the
	// double-submit pair.
	CsrfCookieName = "csrfSecret"
)

// CookieOptions defines how auth cookies are issued.
type CookieOptions struct {
	Path   string
	Secure bool
	Domain string
}

// normalize applies safe defaults without breaking callers.
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	return o
}

// SetRefreshCookie issues the refresh-token cookie.
func SetRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration, opts CookieOptions) {
	opts = opts.normalize()
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// SetCsrfCookie issues the CSRF secret cookie.
func SetCsrfCookie(w http.ResponseWriter, secret string, ttl time.Duration, opts CookieOptions) {
	opts = opts.normalize()
	http.SetCookie(w, &http.Cookie{
		Name:     CsrfCookieName,
		Value:    secret,
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearAuthCookies removes both auth cookies from the client.
func ClearAuthCookies(w http.ResponseWriter, opts CookieOptions) {
	opts = opts.normalize()
	for _, name := range []string{RefreshCookieName, CsrfCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     opts.Path,
			Domain:   opts.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   opts.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
