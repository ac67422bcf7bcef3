package gateway

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/space-booking/internal/config"
	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

// KeyExtractor picks the bucket a request is counted against.
type KeyExtractor func(*fiber.Ctx) string

// IPKeyExtractor keys on c.IP(). Forwarded headers count only when the app
// was configured with TrustProxies and the peer is a trusted proxy.
func IPKeyExtractor(c *fiber.Ctx) string {
	return c.IP()
}

// TrustProxies sets fc so c.IP() reads cfg.ProxyHeader from trusted peers only.
// Without a header every client is identified by its peer address.
func TrustProxies(fc fiber.Config, cfg config.GatewayConfig) fiber.Config {
	fc.EnableTrustedProxyCheck = true
	fc.TrustedProxies = cfg.TrustedProxies
	fc.ProxyHeader = cfg.ProxyHeader
	if fc.ProxyHeader != "" {
		fc.EnableIPValidation = true
	}
	return fc
}

type rateLimiter struct {
	limiters    sync.Map // map[string]*rate.Limiter
	rate        rate.Limit
	burst       int
	mu          sync.Mutex
	lastCleanup time.Time
}

func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	rl.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops idle limiters (full buckets) at most every five minutes.
func (rl *rateLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastCleanup) < 5*time.Minute {
		return
	}
	rl.lastCleanup = time.Now()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// RateLimit throttles credential-issuing endpoints per client key.
func RateLimit(cfg config.RateLimitConfig, keys KeyExtractor, logger *zap.Logger) fiber.Handler {
	perMinute := cfg.LoginRequestsPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	burst := cfg.LoginBurst
	if burst <= 0 {
		burst = perMinute
	}
	rl := &rateLimiter{
		rate:        rate.Limit(float64(perMinute) / time.Minute.Seconds()),
		burst:       burst,
		lastCleanup: time.Now(),
	}

	return func(c *fiber.Ctx) error {
		key := keys(c)
		if key == "" {
			return c.Next()
		}
		limiter := rl.getLimiter(key)
		if limiter.Allow() {
			return c.Next()
		}

		reservation := limiter.Reserve()
		delay := reservation.Delay()
		reservation.Cancel()
		retryAfter := max(int(delay.Seconds()), 1)

		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		c.Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
		logger.Warn("rate limit exceeded",
			zap.String("key", key),
			zap.String("path", c.Path()),
			zap.Int("retry_after", retryAfter),
		)
		return apperrors.NewRateLimited("Too many requests. Please try again later.")
	}
}
