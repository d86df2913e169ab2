package api

// Roles accepted on signup.
const (
	RoleDeveloper = "developer"
	RoleSRE       = "sre"
)

// SignupRequest represents the request to create a new account
type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=developer sre"`
}

// LoginRequest represents the request to exchange credentials for an API key
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// APIKeyResponse is returned by signup and login
type APIKeyResponse struct {
	APIKey string `json:"api_key"`
}
