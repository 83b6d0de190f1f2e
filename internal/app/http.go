package app

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/0ashutosh1/Project/internal/account"
	"github.com/0ashutosh1/Project/internal/audit"
	"github.com/0ashutosh1/Project/internal/auth/flow"
	"github.com/0ashutosh1/Project/internal/auth/handler"
	"github.com/0ashutosh1/Project/internal/auth/provider"
	"github.com/0ashutosh1/Project/internal/auth/provider/facebook"
	"github.com/0ashutosh1/Project/internal/auth/provider/github"
	"github.com/0ashutosh1/Project/internal/auth/provider/google"
	"github.com/0ashutosh1/Project/internal/config"
	"github.com/0ashutosh1/Project/internal/logger"
	"github.com/0ashutosh1/Project/internal/middleware"
	"github.com/0ashutosh1/Project/internal/token"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	var store account.Store
	if infra.DB != nil {
		store = account.NewPostgresStore(infra.DB)
	} else {
		store = account.NewMemoryStore()
	}

	var revocations token.Revocations
	if infra.Redis != nil {
		revocations = token.NewRedisRevocations(infra.Redis.Client)
	} else {
		mem := token.NewMemoryRevocations()
		mem.StartSweep(ctx, cfg.RevocationSweepInterval)
		revocations = mem
	}

	issuer, err := token.NewIssuer(token.IssuerConfig{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}, revocations)
	if err != nil {
		return nil, nil, err
	}

	registry, err := buildProviders(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	trail := audit.NewTrail()
	service := flow.NewService(registry, account.NewResolver(store), issuer, trail)
	guard := middleware.NewGuard(issuer, trail)
	authHandler := handler.NewHandler(registry, service, trail, cfg.RefreshTTL, cfg.SecureCookies)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	authHandler.RegisterRoutes(router, guard)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return router, infra.close, nil
}

// buildProviders registers every provider whose credentials are fully
// configured. Partially configured providers fail startup rather than
// run half-working.
func buildProviders(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	var list []provider.OAuthProvider

	if cfg.GoogleClientID != "" || cfg.GoogleClientSecret != "" || cfg.GoogleRedirectURL != "" {
		p, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	if cfg.GitHubClientID != "" || cfg.GitHubClientSecret != "" || cfg.GitHubRedirectURL != "" {
		p, err := github.New(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	if cfg.FacebookClientID != "" || cfg.FacebookClientSecret != "" || cfg.FacebookRedirectURL != "" {
		p, err := facebook.New(cfg.FacebookClientID, cfg.FacebookClientSecret, cfg.FacebookRedirectURL)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	registry := provider.NewRegistry(list...)
	logger.Info("providers registered", map[string]any{"providers": registry.Names()})
	return registry, nil
}
