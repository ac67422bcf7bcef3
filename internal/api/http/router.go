package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/space-booking/internal/api/http/handlers"
	"github.com/spec-kit/space-booking/internal/auth"
	"github.com/spec-kit/space-booking/internal/gateway"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	Proxy        *handlers.ProxyHandler
	Cookies      *auth.CookieAuth
	LoginLimiter fiber.Handler
	Routes       []gateway.Route
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	limiter := cfg.LoginLimiter
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	authGroup := app.Group("/api/auth")
	authGroup.Post("/login", limiter, cfg.Auth.Login)
	authGroup.Post("/register", limiter, cfg.Auth.Register)
	authGroup.Post("/logout", cfg.Auth.Logout)

	for _, route := range cfg.Routes {
		chain := []fiber.Handler{}
		switch route.Auth {
		case gateway.AuthRequired:
			chain = append(chain, cfg.Cookies.Require())
		case gateway.AuthOptional:
			chain = append(chain, cfg.Cookies.Optional())
		}
		chain = append(chain, cfg.Proxy.Handle(route))
		app.Add(route.Method, route.Path, chain...)
	}
}
