package api

// Runbook represents a runbook as returned by the backend
type Runbook struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Tags          []string  `json:"tags"`
	EnvironmentID string    `json:"environment_id,omitempty"`
	Blocks        []Block   `json:"blocks"`
	Version       int       `json:"version"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     Timestamp `json:"created_at"`
	UpdatedAt     Timestamp `json:"updated_at"`
}

// RunbookWriteRequest is the body of runbook create and update calls
type RunbookWriteRequest struct {
	Title         string   `json:"title" validate:"required"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	EnvironmentID string   `json:"environment_id,omitempty"`
	Blocks        []Block  `json:"blocks"`
}

// WriteRequest returns the writable part of a runbook.
func (r *Runbook) WriteRequest() RunbookWriteRequest {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	blocks := r.Blocks
	if blocks == nil {
		blocks = []Block{}
	}
	return RunbookWriteRequest{
		Title:         r.Title,
		Description:   r.Description,
		Tags:          tags,
		EnvironmentID: r.EnvironmentID,
		Blocks:        blocks,
	}
}

// ExecuteRunbookResponse is returned when a runbook execution job is enqueued
type ExecuteRunbookResponse struct {
	JobID string `json:"job_id"`
}
