package domain

import "strings"

// Role names as issued by the backend.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// IsAdminRole reports whether a raw role value grants admin views. The backend
// sometimes serializes roles as "[ROLE_ADMIN]", so brackets are ignored.
func IsAdminRole(role string) bool {
	role = strings.NewReplacer("[", "", "]", "").Replace(role)
	return strings.Contains(strings.ToUpper(role), "ADMIN")
}

// LoginRequest is the credential exchange body.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is what the backend returns inside its data envelope on login.
type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}
