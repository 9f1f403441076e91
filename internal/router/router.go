package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/fintraq/auth-gateway/internal/config"
	"github.com/fintraq/auth-gateway/internal/handler"
	"github.com/fintraq/auth-gateway/internal/middleware"
)

// Register wires every route of the gateway: the public health check, the
// session endpoints under /api/auth, and the proxied data-plane prefixes.
// Rate limiting covers the whole auth group with a tighter bucket stacked on
// login; the proxied prefixes and /me run behind the access-token gate.
func Register(e *echo.Echo, a *handler.AuthHandler, p *handler.TenantProxy, cfg config.Config, rl config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/api/health", handler.Health)

	g := e.Group("/api/auth", middleware.TokenBucket(rl, rdb, rl.Capacity))
	g.POST("/register", a.Register)
	g.POST("/login", a.Login, middleware.TokenBucket(rl, rdb, rl.LoginCapacity))
	g.POST("/refresh-token", a.Refresh)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(cfg.AccessSecret))

	// Data-plane prefixes forward to the backend only after the gate has
	// attached a verified identity.
	for _, prefix := range cfg.ProxyPrefixes {
		d := e.Group(prefix, middleware.JWTAuth(cfg.AccessSecret))
		d.Any("", p.Handle)
		d.Any("/*", p.Handle)
	}
}
