package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/space-booking/internal/config"
	"github.com/spec-kit/space-booking/internal/credential"
	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

const (
	credentialKey = "auth_credential"
	principalKey  = "auth_principal"
)

// Credential is the caller's bearer credential as read from the cookie.
// Its claims are advisory; the backend makes every authorization decision.
type Credential struct {
	Raw    string
	Claims credential.Claims
}

// CookieAuth reads the credential cookie on gateway routes and owns its attributes.
type CookieAuth struct {
	cookie config.CookieConfig
	now    func() time.Time
}

// NewCookieAuth constructs the gateway credential middleware.
func NewCookieAuth(cookie config.CookieConfig) *CookieAuth {
	return &CookieAuth{cookie: cookie, now: time.Now}
}

// WithClock overrides the expiry clock.
func (a *CookieAuth) WithClock(now func() time.Time) *CookieAuth {
	a.now = now
	return a
}

// Require rejects requests without a usable credential. An expired or
// malformed cookie is cleared so the browser stops sending it.
func (a *CookieAuth) Require() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(a.cookie.Name)
		if raw == "" {
			return apperrors.NewUnauthorized("Unauthorized")
		}
		cred, err := a.check(raw)
		if err != nil {
			a.ClearCookie(c)
			return rejection(err)
		}
		c.Locals(credentialKey, cred)
		return c.Next()
	}
}

// Optional attaches the credential when one is present and still usable.
// A stale cookie is cleared and the request continues anonymously.
func (a *CookieAuth) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(a.cookie.Name)
		if raw == "" {
			return c.Next()
		}
		cred, err := a.check(raw)
		if err != nil {
			a.ClearCookie(c)
			return c.Next()
		}
		c.Locals(credentialKey, cred)
		return c.Next()
	}
}

// SetCookie stores raw as the credential cookie.
func (a *CookieAuth) SetCookie(c *fiber.Ctx, raw string) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cookie.Name,
		Value:    raw,
		Path:     "/",
		MaxAge:   int(a.cookie.MaxAge().Seconds()),
		HTTPOnly: true,
		Secure:   a.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires the credential cookie.
func (a *CookieAuth) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   a.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *CookieAuth) check(raw string) (*Credential, error) {
	claims, err := credential.Check(raw, a.now())
	if err != nil {
		return nil, err
	}
	return &Credential{Raw: raw, Claims: claims}, nil
}

func rejection(err error) error {
	if errors.Is(err, credential.ErrExpired) {
		return apperrors.NewCredentialRejected(apperrors.CodeCredentialExpired, "Session expired")
	}
	return apperrors.NewCredentialRejected(apperrors.CodeMalformedCredential, "Invalid credential")
}

// CredentialFromContext returns the credential attached by CookieAuth.
func CredentialFromContext(c *fiber.Ctx) (*Credential, bool) {
	cred, ok := c.Locals(credentialKey).(*Credential)
	return cred, ok && cred != nil
}

// Principal represents a caller authenticated by signature, as the dev backend sees it.
type Principal struct {
	UserID   int64
	Username string
	Role     string
}

// BearerAuth validates signed bearer tokens. Only the dev backend uses it;
// the gateway never verifies signatures.
type BearerAuth struct {
	tokens *TokenManager
}

// NewBearerAuth constructs middleware.
func NewBearerAuth(tokens *TokenManager) *BearerAuth {
	return &BearerAuth{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *BearerAuth) Handle(c *fiber.Ctx) error {
	principal, err := m.principal(c)
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Optional attaches a principal when a valid token is sent and ignores anything else.
func (m *BearerAuth) Optional(c *fiber.Ctx) error {
	if principal, err := m.principal(c); err == nil {
		c.Locals(principalKey, principal)
	}
	return c.Next()
}

func (m *BearerAuth) principal(c *fiber.Ctx) (*Principal, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return nil, apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	return &Principal{UserID: claims.UserID, Username: claims.Subject, Role: claims.Role}, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok && principal != nil
}
