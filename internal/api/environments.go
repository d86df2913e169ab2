package api

// Environment is a container image definition blocks can run in
type Environment struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Dockerfile  string    `json:"dockerfile,omitempty"`
	ImageTag    string    `json:"image_tag,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
}

// EnvironmentWriteRequest is the body of environment create and update calls
type EnvironmentWriteRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Dockerfile  string `json:"dockerfile" validate:"required"`
}
