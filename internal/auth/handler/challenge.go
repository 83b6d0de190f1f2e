package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/0ashutosh1/Project/internal/auth/replay"
)

const (
	stateCookieName = "__oauth_state"
	nonceCookieName = "__oauth_nonce"
	challengeTTL    = 5 * time.Minute
)

// setChallengeCookies stores the state and nonce on the client for the
// callback comparison. The server holds nothing between the two phases.
func (h *Handler) setChallengeCookies(c *gin.Context, ch replay.Challenge) {
	for name, value := range map[string]string{
		stateCookieName: ch.State,
		nonceCookieName: ch.Nonce,
	} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(challengeTTL.Seconds()),
		})
	}
}

func (h *Handler) clearChallengeCookies(c *gin.Context) {
	for _, name := range []string{stateCookieName, nonceCookieName} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

func (h *Handler) savedState(c *gin.Context) string {
	cookie, err := c.Request.Cookie(stateCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *Handler) savedNonce(c *gin.Context) string {
	cookie, err := c.Request.Cookie(nonceCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
