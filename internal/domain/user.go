package domain

// User is an account as returned by the backend's user endpoints.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// UserUpdate is the JSON carried in the "user" field of a profile update.
type UserUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}
