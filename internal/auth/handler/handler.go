package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/0ashutosh1/Project/internal/audit"
	"github.com/0ashutosh1/Project/internal/auth/flow"
	"github.com/0ashutosh1/Project/internal/auth/provider"
	"github.com/0ashutosh1/Project/internal/auth/replay"
	"github.com/0ashutosh1/Project/internal/autherr"
	"github.com/0ashutosh1/Project/internal/middleware"
	"github.com/0ashutosh1/Project/internal/session"
)

type Handler struct {
	providers     *provider.Registry
	service       *flow.Service
	trail         *audit.Trail
	refreshTTL    time.Duration
	secureCookies bool
}

func NewHandler(
	registry *provider.Registry,
	service *flow.Service,
	trail *audit.Trail,
	refreshTTL time.Duration,
	secureCookies bool,
) *Handler {
	return &Handler{
		providers:     registry,
		service:       service,
		trail:         trail,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, guard *middleware.Guard) {
	r.GET("/auth/providers", h.providerStatus)
	r.GET("/auth/:provider/challenge", h.challenge)
	r.POST("/auth/:provider", h.login)
	r.POST("/auth/refresh", h.refresh)

	authed := r.Group("/auth")
	authed.Use(guard.RequireAuth(), guard.RequireCsrf())
	authed.POST("/:provider/link", h.link)
	authed.DELETE("/link/:provider", h.unlink)
	authed.POST("/logout", h.logout)

	api := r.Group("/api")
	api.Use(guard.RequireAuth())
	api.GET("/user/me", h.me)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/metrics", h.adminMetrics)
}

func (h *Handler) cookieOpts() session.CookieOptions {
	return session.CookieOptions{Secure: h.secureCookies}
}

func (h *Handler) client(c *gin.Context) audit.Client {
	return audit.Client{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func fail(c *gin.Context, err error) {
	c.JSON(autherr.HTTPStatus(err), gin.H{"error": autherr.PublicMessage(err)})
}

// challenge is phase one of the login protocol: the client receives
// fresh anti-replay material and the provider authorization URL. The
// server stores nothing; the callback is the sole validation point.
func (h *Handler) challenge(c *gin.Context) {
	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown oauth provider"})
		return
	}

	ch, err := replay.Generate()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate challenge"})
		return
	}

	h.setChallengeCookies(c, ch)

	resp := gin.H{
		"authUrl": p.AuthCodeURL(ch.State, ch.Nonce, ch.CodeChallenge),
		"state":   ch.State,
	}
	if p.SupportsPKCE() {
		resp["verifier"] = ch.Verifier
	}
	if p.SupportsNonce() {
		resp["nonce"] = ch.Nonce
	}
	c.JSON(http.StatusOK, resp)
}

type callbackRequest struct {
	Code     string `json:"code" binding:"required"`
	Verifier string `json:"verifier"`
	State    string `json:"state"`
	Nonce    string `json:"nonce"`
}

func (h *Handler) loginInput(c *gin.Context, req callbackRequest) flow.LoginInput {
	savedNonce := req.Nonce
	if savedNonce == "" {
		savedNonce = h.savedNonce(c)
	}
	return flow.LoginInput{
		Provider:   c.Param("provider"),
		Code:       req.Code,
		Verifier:   req.Verifier,
		State:      req.State,
		SavedState: h.savedState(c),
		Nonce:      savedNonce,
		Client:     h.client(c),
	}
}

// login is phase two: the callback material is validated, the code is
// exchanged, and on success the session pair is delivered — the access
// token in the body, the refresh token only as a protected cookie.
func (h *Handler) login(c *gin.Context) {
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.service.Login(c.Request.Context(), h.loginInput(c, req))
	h.clearChallengeCookies(c)
	if err != nil {
		fail(c, err)
		return
	}

	session.SetRefreshCookie(c.Writer, res.Tokens.Refresh, h.refreshTTL, h.cookieOpts())
	session.SetCsrfCookie(c.Writer, res.CsrfSecret, h.refreshTTL, h.cookieOpts())

	c.JSON(http.StatusOK, gin.H{"accessToken": res.Tokens.Access})
}

// link reuses the login callback shape but attaches the identity to
// the authenticated account.
func (h *Handler) link(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	acct, err := h.service.Link(c.Request.Context(), claims.AccountID(), h.loginInput(c, req))
	h.clearChallengeCookies(c)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "linked",
		"providers": providerMap(acct.Identities),
	})
}

func (h *Handler) unlink(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	acct, err := h.service.Unlink(c.Request.Context(), claims.AccountID(), c.Param("provider"), h.client(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "unlinked",
		"providers": providerMap(acct.Identities),
	})
}

// refresh mints a new access token off the refresh cookie and reissues
// the CSRF pair.
func (h *Handler) refresh(c *gin.Context) {
	cookie, err := c.Request.Cookie(session.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
		return
	}

	res, err := h.service.Refresh(c.Request.Context(), cookie.Value, h.client(c))
	if err != nil {
		fail(c, err)
		return
	}

	session.SetCsrfCookie(c.Writer, res.CsrfSecret, h.refreshTTL, h.cookieOpts())

	c.JSON(http.StatusOK, gin.H{
		"accessToken": res.Access,
		"csrfToken":   res.CsrfToken,
	})
}

// logout revokes the presented access token and clears the auth
// cookies. Idempotent.
func (h *Handler) logout(c *gin.Context) {
	accessToken, ok := middleware.AccessTokenFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	if err := h.service.Logout(c.Request.Context(), accessToken, h.client(c)); err != nil {
		fail(c, err)
		return
	}

	session.ClearAuthCookies(c.Writer, h.cookieOpts())
	c.Status(http.StatusNoContent)
}

// providerStatus reports which providers are configured.
func (h *Handler) providerStatus(c *gin.Context) {
	status := gin.H{}
	for _, name := range []string{"google", "github", "facebook"} {
		status[name] = h.providers.Enabled(name)
	}
	c.JSON(http.StatusOK, gin.H{"providers": status})
}

// me echoes the authenticated account from the access token claims.
func (h *Handler) me(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    claims.AccountID(),
		"email": claims.Email,
		"name":  claims.Name,
		"role":  claims.Role,
	})
}

func (h *Handler) adminMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"eventCounts": h.trail.Metrics(),
		"recent":      h.trail.Recent(50),
	})
}

func providerMap(identities map[string]string) gin.H {
	out := gin.H{}
	for provider := range identities {
		out[provider] = true
	}
	return out
}
