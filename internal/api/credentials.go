package api

// Credential types.
const (
	CredentialAPI = "api"
	CredentialSSH = "ssh"
)

// Credential is a stored secret reference. The secret itself is never returned.
type Credential struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}

// CreateCredentialRequest represents the request to store a new credential
type CreateCredentialRequest struct {
	Name   string `json:"name" validate:"required"`
	Type   string `json:"type" validate:"required,oneof=api ssh"`
	Secret string `json:"secret" validate:"required"`
}
