package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/space-booking/internal/domain"
)

// RequireAdmin ensures the verified principal holds an admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if !domain.IsAdminRole(principal.Role) {
			return fiber.NewError(http.StatusForbidden, "admin role required")
		}
		return c.Next()
	}
}

// RequireNonAdmin keeps admins away from end-user actions such as reserving.
func RequireNonAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if domain.IsAdminRole(principal.Role) {
			return fiber.NewError(http.StatusForbidden, "admins cannot make reservations")
		}
		return c.Next()
	}
}
