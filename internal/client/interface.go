package client

import (
	"context"

	"github.com/opsbook/opsbook/internal/api"
)

// Interface defines the API client interface for dependency injection and testing
type Interface interface {
	Signup(ctx context.Context, req api.SignupRequest) (*api.APIKeyResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.APIKeyResponse, error)
	Logout(ctx context.Context) error

	ListRunbooks(ctx context.Context) ([]api.Runbook, error)
	GetRunbook(ctx context.Context, id string) (*api.Runbook, error)
	CreateRunbook(ctx context.Context, req api.RunbookWriteRequest) (*api.Runbook, error)
	UpdateRunbook(ctx context.Context, id string, req api.RunbookWriteRequest) (*api.Runbook, error)
	DeleteRunbook(ctx context.Context, id string) error
	ExecuteRunbook(ctx context.Context, id string) (*api.ExecuteRunbookResponse, error)
	ListRunbookVersions(ctx context.Context, id string) ([]api.Runbook, error)
	RollbackRunbook(ctx context.Context, id string, version int) (*api.Runbook, error)

	ExecuteBlock(ctx context.Context, req api.ExecuteBlockRequest) (*api.BlockExecutionResult, error)

	ListExecutions(ctx context.Context) ([]api.Execution, error)
	GetExecution(ctx context.Context, id string) (*api.ExecutionDetail, error)
	ClearExecutions(ctx context.Context) error
	StopExecution(ctx context.Context, id string) (*api.MessageResponse, error)

	ListCredentials(ctx context.Context) ([]api.Credential, error)
	CreateCredential(ctx context.Context, req api.CreateCredentialRequest) (*api.Credential, error)
	DeleteCredential(ctx context.Context, id string) error

	ListEnvironments(ctx context.Context) ([]api.Environment, error)
	GetEnvironment(ctx context.Context, id string) (*api.Environment, error)
	CreateEnvironment(ctx context.Context, req api.EnvironmentWriteRequest) (*api.Environment, error)
	UpdateEnvironment(ctx context.Context, id string, req api.EnvironmentWriteRequest) (*api.Environment, error)
	DeleteEnvironment(ctx context.Context, id string) error

	ListAuditLogs(ctx context.Context, filter api.AuditFilter) ([]api.AuditLogEntry, error)
}

// Compile-time check to ensure Client implements Interface
var _ Interface = (*Client)(nil)
