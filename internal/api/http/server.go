package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/api/http/handlers"
	"github.com/spec-kit/space-booking/internal/auth"
	"github.com/spec-kit/space-booking/internal/config"
	"github.com/spec-kit/space-booking/internal/gateway"
	"github.com/spec-kit/space-booking/internal/observability"
)

// NewGatewayApp assembles the gateway: middlewares, auth endpoints, health
// probes and one forwarding handler per route.
func NewGatewayApp(cfg *config.Config, routes []gateway.Route, logger *zap.Logger) *fiber.App {
	metrics := observability.NewMetrics()
	backend := gateway.NewBackend(cfg.Backend, logger, metrics)
	gw := gateway.New(backend, logger)
	cookies := auth.NewCookieAuth(cfg.Cookie)

	app := fiber.New(gateway.TrustProxies(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		BodyLimit:             20 << 20,
	}, cfg.Gateway))
	RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, map[string]handlers.Pinger{
			"backend": backend,
		}),
		Auth:         handlers.NewAuthHandler(gw, cookies),
		Proxy:        handlers.NewProxyHandler(gw),
		Cookies:      cookies,
		LoginLimiter: gateway.RateLimit(cfg.RateLimit, gateway.IPKeyExtractor, logger),
		Routes:       routes,
	})
	return app
}
