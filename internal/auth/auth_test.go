package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/space-booking/internal/config"
	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

// errorApp renders DomainErrors the way the gateway does, minus logging.
func errorApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fiber.Map{"code": "HTTP", "message": fe.Message}})
			}
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code, "message": de.Message}})
		},
	})
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return body.Error.Code
}

func unsignedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice", "role": "ROLE_USER", "exp": exp.Unix()}).
		SignedString([]byte("whatever"))
	require.NoError(t, err)
	return raw
}

func cookieApp(a *CookieAuth, required bool) *fiber.App {
	app := errorApp()
	guard := a.Optional()
	if required {
		guard = a.Require()
	}
	app.Get("/x", guard, func(c *fiber.Ctx) error {
		cred, ok := CredentialFromContext(c)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(cred.Claims.Subject)
	})
	return app
}

func TestCookieAuthRequire(t *testing.T) {
	a := NewCookieAuth(config.CookieConfig{Name: "pt_jwt", MaxAgeMinutes: 240})
	app := cookieApp(a, true)

	t.Run("missing cookie", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, apperrors.CodeUnauthorized, errorCode(t, resp))
		assert.Empty(t, resp.Header.Get(fiber.HeaderSetCookie))
	})

	t.Run("expired cookie is cleared", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.AddCookie(&http.Cookie{Name: "pt_jwt", Value: unsignedToken(t, time.Now().Add(-time.Hour))})
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, resp.Header.Get(fiber.HeaderSetCookie), "pt_jwt=;")
		assert.Equal(t, apperrors.CodeCredentialExpired, errorCode(t, resp))
	})

	t.Run("malformed cookie is cleared", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.AddCookie(&http.Cookie{Name: "pt_jwt", Value: "garbage"})
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, apperrors.CodeMalformedCredential, errorCode(t, resp))
	})

	t.Run("valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.AddCookie(&http.Cookie{Name: "pt_jwt", Value: unsignedToken(t, time.Now().Add(time.Hour))})
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "alice", string(body))
	})
}

func TestCookieAuthOptional(t *testing.T) {
	a := NewCookieAuth(config.CookieConfig{Name: "pt_jwt"})
	app := cookieApp(a, false)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: "pt_jwt", Value: unsignedToken(t, time.Now().Add(-time.Hour))})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "anonymous", string(body))
	assert.Contains(t, resp.Header.Get(fiber.HeaderSetCookie), "pt_jwt=;")
}

func TestSetCookieAttributes(t *testing.T) {
	a := NewCookieAuth(config.CookieConfig{Name: "pt_jwt", MaxAgeMinutes: 240, Secure: true})
	app := fiber.New()
	app.Get("/login", func(c *fiber.Ctx) error {
		a.SetCookie(c, "tok")
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)
	header := strings.ToLower(resp.Header.Get(fiber.HeaderSetCookie))
	assert.Contains(t, header, "pt_jwt=tok")
	assert.Contains(t, header, "max-age=14400")
	assert.Contains(t, header, "path=/")
	assert.Contains(t, header, "httponly")
	assert.Contains(t, header, "secure")
	assert.Contains(t, header, "samesite=lax")
}

func TestTokenManagerRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	raw, exp, err := tm.GenerateToken(42, "alice", "ROLE_USER")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tm.ParseToken(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "ROLE_USER", claims.Role)

	_, err = NewTokenManager("other", 60).ParseToken(raw)
	assert.Error(t, err)
}

func TestTokenManagerRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	raw, _, err := tm.GenerateToken(1, "a", "ROLE_USER")
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ParseToken(raw)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short", 4)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hashed, err := HashPassword("long-enough", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hashed, "long-enough"))
	assert.Error(t, ComparePassword(hashed, "wrong-password"))
}

func TestBearerAuthAndRoles(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	bearer := NewBearerAuth(tm)

	app := errorApp()
	app.Get("/admin", bearer.Handle, RequireAdmin(), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/reserve", bearer.Handle, RequireNonAdmin(), func(c *fiber.Ctx) error { return c.SendString("ok") })

	userToken, _, err := tm.GenerateToken(1, "alice", "ROLE_USER")
	require.NoError(t, err)
	adminToken, _, err := tm.GenerateToken(2, "root", "[ROLE_ADMIN]")
	require.NoError(t, err)

	call := func(method, path, token string) int {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/admin", ""))
	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/admin", "forged"))
	assert.Equal(t, http.StatusForbidden, call(http.MethodGet, "/admin", userToken))
	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/admin", adminToken))
	assert.Equal(t, http.StatusOK, call(http.MethodPost, "/reserve", userToken))
	assert.Equal(t, http.StatusForbidden, call(http.MethodPost, "/reserve", adminToken))
}
