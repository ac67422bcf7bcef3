package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/space-booking/internal/api/dto"
	"github.com/spec-kit/space-booking/internal/auth"
	"github.com/spec-kit/space-booking/internal/gateway"
	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

// AuthHandler exposes the credential exchange endpoints.
type AuthHandler struct {
	gateway *gateway.Gateway
	cookies *auth.CookieAuth
}

// NewAuthHandler constructs handler.
func NewAuthHandler(gw *gateway.Gateway, cookies *auth.CookieAuth) *AuthHandler {
	return &AuthHandler{gateway: gw, cookies: cookies}
}

// Login handles POST /api/auth/login and sets the credential cookie on success.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	res, err := h.gateway.Login(c.UserContext(), copyBody(c), requestID(c))
	if err != nil {
		return err
	}
	h.cookies.SetCookie(c, res.Token)
	return sendJSON(c, res.Status, res.Body)
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	res, err := h.gateway.Register(c.UserContext(), copyBody(c), requestID(c))
	if err != nil {
		return err
	}
	return sendJSON(c, res.Status, res.Body)
}

// Logout handles POST /api/auth/logout. It never calls the backend.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.cookies.ClearCookie(c)
	return c.Status(http.StatusOK).JSON(dto.MessageResponse{Message: "Logged out"})
}

func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

func copyBody(c *fiber.Ctx) []byte {
	return append([]byte(nil), c.Body()...)
}

func sendJSON(c *fiber.Ctx, status int, body []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(status).Send(body)
}
