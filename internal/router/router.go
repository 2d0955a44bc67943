package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/clustershield/clustershield/internal/config"
	"github.com/clustershield/clustershield/internal/handler"
	"github.com/clustershield/clustershield/internal/middleware"
	"github.com/clustershield/clustershield/internal/repository"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI wires the full API surface: the public catalogue and CSRF
// issuance endpoints, the unauthenticated auth endpoints, and the
// session-protected groups. The rate limiter sits in front of everything;
// the CSRF guard covers every browser-reachable mutating route.
func RegisterAPI(
	e *echo.Echo,
	cfg config.Config,
	rdb *redis.Client,
	sessions *repository.SessionRepo,
	a *handler.AuthHandler,
	b *handler.BillingHandler,
	cl *handler.ClusterHandler,
) {
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	// Public reads + CSRF token issuance (same-origin gated inside the
	// handler; cross-origin callers see a uniform 404).
	e.GET("/v1/offers", b.ListOffers)
	e.GET("/v1/csrf", middleware.CSRFToken(cfg.SecureCookies()))

	// Session bootstrap endpoints. No session exists yet, but they are
	// browser-reachable mutations, so the CSRF guard applies.
	g := e.Group("/v1/auth", middleware.CSRFVerify())
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)

	// Everything below requires a live session and, for mutations, the
	// CSRF pair.
	auth := e.Group("/v1", middleware.SessionAuth(sessions), middleware.CSRFVerify())
	auth.GET("/me", a.Me)
	auth.PUT("/me", a.UpdateMe)

	auth.GET("/services", b.ListServices)
	auth.POST("/services", b.Purchase)
	auth.GET("/services/:id", b.GetService)
	auth.POST("/services/:id/renew", b.Renew)
	auth.GET("/invoices", b.ListInvoices)

	auth.POST("/services/:id/cluster", cl.Install)
	auth.POST("/services/:id/cluster/start", cl.Start)
	auth.POST("/services/:id/cluster/stop", cl.Stop)
	auth.GET("/services/:id/cluster/status", cl.Status)
}
