package gateway

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/config"
	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

// anyPeer trusts every IPv4 peer, standing in for a reverse proxy in front of app.Test.
var anyPeer = config.GatewayConfig{ProxyHeader: fiber.HeaderXForwardedFor, TrustedProxies: []string{"0.0.0.0/0"}}

func keyOf(t *testing.T, gw config.GatewayConfig, header, value string) string {
	t.Helper()
	app := fiber.New(TrustProxies(fiber.Config{}, gw))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(IPKeyExtractor(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(header, value)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestIPKeyExtractor(t *testing.T) {
	direct := keyOf(t, config.GatewayConfig{}, fiber.HeaderXForwardedFor, "203.0.113.7")
	assert.NotEqual(t, "203.0.113.7", direct, "forwarded header ignored without a proxy header")

	untrusted := keyOf(t, config.GatewayConfig{ProxyHeader: fiber.HeaderXForwardedFor}, fiber.HeaderXForwardedFor, "203.0.113.7")
	assert.NotEqual(t, "203.0.113.7", untrusted, "forwarded header ignored from untrusted peers")

	assert.Equal(t, "203.0.113.7", keyOf(t, anyPeer, fiber.HeaderXForwardedFor, "203.0.113.7"))
}

func limitedApp(gw config.GatewayConfig) *fiber.App {
	app := fiber.New(TrustProxies(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	}, gw))
	limiter := RateLimit(config.RateLimitConfig{LoginRequestsPerMinute: 1, LoginBurst: 2}, IPKeyExtractor, zap.NewNop())
	app.Post("/api/auth/login", limiter, func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	return app
}

func postLogin(t *testing.T, app *fiber.App, forwardedFor string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set(fiber.HeaderXForwardedFor, forwardedFor)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	app := limitedApp(anyPeer)

	assert.Equal(t, http.StatusOK, postLogin(t, app, "203.0.113.1").StatusCode)
	assert.Equal(t, http.StatusOK, postLogin(t, app, "203.0.113.1").StatusCode)

	blocked := postLogin(t, app, "203.0.113.1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.StatusCode)
	assert.NotEmpty(t, blocked.Header.Get(fiber.HeaderRetryAfter))

	assert.Equal(t, http.StatusOK, postLogin(t, app, "203.0.113.2").StatusCode, "other clients are unaffected")
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	for name, gw := range map[string]config.GatewayConfig{
		"no proxy header":   {},
		"untrusted proxies": {ProxyHeader: fiber.HeaderXForwardedFor, TrustedProxies: []string{"192.0.2.10"}},
	} {
		t.Run(name, func(t *testing.T) {
			app := limitedApp(gw)
			allowed := 0
			for i := 0; i < 20; i++ {
				if postLogin(t, app, fmt.Sprintf("198.51.100.%d", i+1)).StatusCode == http.StatusOK {
					allowed++
				}
			}
			assert.Equal(t, 2, allowed, "rotating X-Forwarded-For must not reset the bucket")
		})
	}
}
