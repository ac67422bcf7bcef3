package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the gateway, the CLI and the dev backend.
type Config struct {
	App             AppConfig
	Backend         BackendConfig
	Cookie          CookieConfig
	Gateway         GatewayConfig
	RateLimit       RateLimitConfig
	CredentialStore CredentialStoreConfig
	Postgres        PostgresConfig
	Redis           RedisConfig
	Logger          LoggerConfig
	Auth            AuthConfig
	DevBackend      DevBackendConfig
	Portal          PortalConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// BackendConfig points the gateway at the booking backend.
type BackendConfig struct {
	URL            string
	TimeoutSeconds int
}

// CookieConfig describes the credential cookie set by the gateway.
type CookieConfig struct {
	Name          string
	MaxAgeMinutes int
	Secure        bool
}

// GatewayConfig holds forwarding options.
type GatewayConfig struct {
	RoutesFile string
	// ProxyHeader names the client-address header set by a reverse proxy.
	// It is honoured only for requests whose peer is in TrustedProxies.
	ProxyHeader    string
	TrustedProxies []string
}

// RateLimitConfig throttles credential-issuing endpoints per client.
type RateLimitConfig struct {
	LoginRequestsPerMinute int
	LoginBurst             int
}

// CredentialStoreConfig selects the durable credential slot driver.
type CredentialStoreConfig struct {
	Driver         string
	Slot           string
	SQLitePath     string
	PollIntervalMS int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token issuing parameters for the dev backend.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// DevBackendConfig controls the development backend.
type DevBackendConfig struct {
	Host          string
	Port          string
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// PortalConfig is what the CLI needs to reach the gateway.
type PortalConfig struct {
	URL            string
	TimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "space-booking-gateway"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Backend: BackendConfig{
			URL:            strings.TrimRight(getEnv("BACKEND_API_URL", "http://localhost:8080"), "/"),
			TimeoutSeconds: getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 15),
		},
		Cookie: CookieConfig{
			Name:          getEnv("JWT_COOKIE_NAME", "pt_jwt"),
			MaxAgeMinutes: getEnvAsInt("AUTH_COOKIE_MAX_AGE_MINUTES", 240),
			Secure:        getEnvAsBool("AUTH_COOKIE_SECURE", env == "production"),
		},
		Gateway: GatewayConfig{
			RoutesFile:     os.Getenv("GATEWAY_ROUTES_FILE"),
			ProxyHeader:    os.Getenv("GATEWAY_PROXY_HEADER"),
			TrustedProxies: getEnvAsList("GATEWAY_TRUSTED_PROXIES"),
		},
		RateLimit: RateLimitConfig{
			LoginRequestsPerMinute: getEnvAsInt("RATELIMIT_LOGIN_REQUESTS", 10),
			LoginBurst:             getEnvAsInt("RATELIMIT_LOGIN_BURST", 5),
		},
		CredentialStore: CredentialStoreConfig{
			Driver:         getEnv("CREDENTIAL_STORE_DRIVER", "sqlite"),
			Slot:           getEnv("CREDENTIAL_STORE_SLOT", "pt_jwt"),
			SQLitePath:     getEnv("CREDENTIAL_STORE_SQLITE_PATH", defaultSQLitePath()),
			PollIntervalMS: getEnvAsInt("CREDENTIAL_STORE_POLL_MS", 500),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 240),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		DevBackend: DevBackendConfig{
			Host:          getEnv("DEV_BACKEND_HOST", "127.0.0.1"),
			Port:          getEnv("DEV_BACKEND_PORT", "8080"),
			AdminUsername: getEnv("DEV_BACKEND_ADMIN_USERNAME", "admin"),
			AdminEmail:    getEnv("DEV_BACKEND_ADMIN_EMAIL", "admin@example.com"),
			AdminPassword: getEnv("DEV_BACKEND_ADMIN_PASSWORD", "admin-password"),
		},
		Portal: PortalConfig{
			URL:            strings.TrimRight(getEnv("PORTAL_URL", "http://localhost:3000"), "/"),
			TimeoutSeconds: getEnvAsInt("PORTAL_TIMEOUT_SECONDS", 20),
		},
	}

	return cfg, nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call budget for backend requests.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// MaxAge returns the cookie lifetime.
func (c CookieConfig) MaxAge() time.Duration {
	if c.MaxAgeMinutes <= 0 {
		return 4 * time.Hour
	}
	return time.Duration(c.MaxAgeMinutes) * time.Minute
}

// PollInterval returns how often polling slot drivers look for changes.
func (c CredentialStoreConfig) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Addr returns the dev backend bind address.
func (d DevBackendConfig) Addr() string {
	return fmt.Sprintf("%s:%s", d.Host, d.Port)
}

// Timeout returns the CLI's per-request budget.
func (p PortalConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func defaultSQLitePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "spacectl.db"
	}
	return dir + string(os.PathSeparator) + "spacectl" + string(os.PathSeparator) + "session.db"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
