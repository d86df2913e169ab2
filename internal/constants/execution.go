package constants

import "slices"

// ExecutionStatus is the status of a runbook job, a job step or a single block run
// as reported by the backend.
type ExecutionStatus string

const (
	// ExecutionPending indicates the job was accepted but has not been picked up yet
	ExecutionPending ExecutionStatus = "pending"
	// ExecutionQueued indicates the job is waiting in the backend queue
	ExecutionQueued ExecutionStatus = "queued"
	// ExecutionRunning indicates the job is currently executing
	ExecutionRunning ExecutionStatus = "running"
	// ExecutionSuccess indicates a step or block finished successfully
	ExecutionSuccess ExecutionStatus = "success"
	// ExecutionCompleted indicates the whole job finished successfully
	ExecutionCompleted ExecutionStatus = "completed"
	// ExecutionError indicates a step or block failed
	ExecutionError ExecutionStatus = "error"
	// ExecutionFailed indicates the whole job failed or was stopped
	ExecutionFailed ExecutionStatus = "failed"
)

// TerminalExecutionStatuses returns all statuses after which a job no longer changes
func TerminalExecutionStatuses() []ExecutionStatus {
	return []ExecutionStatus{
		ExecutionSuccess,
		ExecutionCompleted,
		ExecutionError,
		ExecutionFailed,
	}
}

// IsTerminal reports whether the status is terminal.
func (s ExecutionStatus) IsTerminal() bool {
	return slices.Contains(TerminalExecutionStatuses(), s)
}

// IsFailure reports whether the status is one of the failure statuses.
func (s ExecutionStatus) IsFailure() bool {
	return s == ExecutionError || s == ExecutionFailed
}

// StopAction is the only control action the backend accepts for running jobs.
const StopAction = "stop"

// DefaultAuditLimit is the number of audit entries requested when no limit is given.
const DefaultAuditLimit = 100

// MaxAuditLimit is the largest audit page the backend serves.
const MaxAuditLimit = 1000
