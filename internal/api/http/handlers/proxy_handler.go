package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/space-booking/internal/auth"
	"github.com/spec-kit/space-booking/internal/gateway"
)

// ProxyHandler relays table-driven routes to the backend.
type ProxyHandler struct {
	gateway *gateway.Gateway
}

// NewProxyHandler constructs handler.
func NewProxyHandler(gw *gateway.Gateway) *ProxyHandler {
	return &ProxyHandler{gateway: gw}
}

// Handle returns the fiber handler for route. The body is forwarded as raw
// bytes so multipart uploads reach the backend untouched.
func (h *ProxyHandler) Handle(route gateway.Route) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in := gateway.Inbound{
			Params:      func(name string) string { return c.Params(name) },
			RawQuery:    string(c.Request().URI().QueryString()),
			ContentType: c.Get(fiber.HeaderContentType),
			Body:        copyBody(c),
			RequestID:   requestID(c),
		}
		if cred, ok := auth.CredentialFromContext(c); ok {
			in.Credential = cred.Raw
		}

		res, err := h.gateway.Forward(c.UserContext(), route, in)
		if err != nil {
			return err
		}
		return sendJSON(c, res.Status, res.Body)
	}
}
