package dto

import (
	"strings"

	"github.com/spec-kit/space-booking/internal/domain"
	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

// LoginRequest payload for login.
type LoginRequest domain.LoginRequest

// Validate rejects payloads the backend would refuse anyway.
func (r LoginRequest) Validate() error {
	missing := map[string]any{}
	if strings.TrimSpace(r.Identifier) == "" {
		missing["identifier"] = "required"
	}
	if r.Password == "" {
		missing["password"] = "required"
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("identifier and password required", missing)
	}
	return nil
}

// RegisterRequest payload for new users.
type RegisterRequest domain.RegisterRequest

// Validate checks the fields every account needs.
func (r RegisterRequest) Validate() error {
	missing := map[string]any{}
	if strings.TrimSpace(r.Username) == "" {
		missing["username"] = "required"
	}
	if !strings.Contains(r.Email, "@") {
		missing["email"] = "invalid"
	}
	if r.Password == "" {
		missing["password"] = "required"
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("username, email, password required", missing)
	}
	return nil
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
