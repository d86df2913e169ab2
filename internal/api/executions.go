package api

import "github.com/opsbook/opsbook/internal/constants"

// ExecuteBlockRequest runs a single block outside of any job
type ExecuteBlockRequest struct {
	Block     Block  `json:"block"`
	RunbookID string `json:"runbook_id,omitempty"`
}

// BlockExecutionResult is the synchronous outcome of a block execution.
// StatusCode is only set by api blocks.
type BlockExecutionResult struct {
	Status     constants.ExecutionStatus `json:"status"`
	Output     string                    `json:"output"`
	ExitCode   *int                      `json:"exit_code,omitempty"`
	StatusCode *int                      `json:"status_code,omitempty"`
}

// Execution represents an execution job in history listings
type Execution struct {
	ID           string                    `json:"id"`
	RunbookID    string                    `json:"runbook_id"`
	RunbookTitle string                    `json:"runbook_title"`
	VersionID    string                    `json:"version_id,omitempty"`
	Status       constants.ExecutionStatus `json:"status"`
	StartTime    Timestamp                 `json:"start_time"`
	EndTime      Timestamp                 `json:"end_time"`
}

// ExecutionStep is the recorded outcome of one block inside a job
type ExecutionStep struct {
	ID        string                    `json:"id"`
	JobID     string                    `json:"job_id,omitempty"`
	BlockID   string                    `json:"block_id"`
	BlockName string                    `json:"block_name,omitempty"`
	Status    constants.ExecutionStatus `json:"status"`
	Output    string                    `json:"output"`
	ExitCode  int                       `json:"exit_code"`
	Timestamp Timestamp                 `json:"timestamp"`
}

// ExecutionDetail is the status of a single job with its step outputs
type ExecutionDetail struct {
	JobID  string                    `json:"job_id"`
	Status constants.ExecutionStatus `json:"status"`
	Steps  []ExecutionStep           `json:"steps"`
}

// ExecutionControlRequest asks the backend to act on a running job
type ExecutionControlRequest struct {
	Action string `json:"action" validate:"required,oneof=stop"`
}
