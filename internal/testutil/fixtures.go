// Package testutil provides shared testing utilities and helpers.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/constants"
)

// CommandBlock returns a command block.
func CommandBlock(id, command string) api.Block {
	return api.Block{ID: id, Type: api.BlockCommand, Order: 1, Config: &api.CommandConfig{Command: command}}
}

// InstructionBlock returns an instruction block.
func InstructionBlock(id, text string) api.Block {
	return api.Block{ID: id, Type: api.BlockInstruction, Order: 1, Config: &api.InstructionConfig{Text: text}}
}

// TimerBlock returns a timer block.
func TimerBlock(id string, seconds int) api.Block {
	return api.Block{ID: id, Type: api.BlockTimer, Order: 1, Config: &api.TimerConfig{Duration: api.FlexNumber(seconds)}}
}

// ConditionBuilder provides a fluent interface for building condition blocks.
type ConditionBuilder struct {
	block api.Block
	cfg   *api.ConditionConfig
}

// NewConditionBuilder creates a command_exit_code condition expecting exit code 0.
func NewConditionBuilder(id string) *ConditionBuilder {
	cfg := &api.ConditionConfig{
		ConditionType: api.ConditionCommandExitCode,
		CheckCommand:  "exit 0",
	}
	return &ConditionBuilder{
		block: api.Block{ID: id, Type: api.BlockCondition, Name: "Check", Order: 1, Config: cfg},
		cfg:   cfg,
	}
}

// WithCheckCommand sets a command_exit_code check.
func (b *ConditionBuilder) WithCheckCommand(command string, expected int) *ConditionBuilder {
	b.cfg.ConditionType = api.ConditionCommandExitCode
	b.cfg.CheckCommand = command
	b.cfg.ExpectedExitCode = api.FlexInt(expected)
	return b
}

// WithCheckURL sets an api_status_code check.
func (b *ConditionBuilder) WithCheckURL(url string, expected int) *ConditionBuilder {
	b.cfg.ConditionType = api.ConditionAPIStatusCode
	b.cfg.CheckURL = url
	b.cfg.ExpectedStatusCode = api.FlexInt(expected)
	return b
}

// WithFilePath sets a file_exists check.
func (b *ConditionBuilder) WithFilePath(path string) *ConditionBuilder {
	b.cfg.ConditionType = api.ConditionFileExists
	b.cfg.FilePath = path
	return b
}

// WithEnvVar sets an env_var_equals check.
func (b *ConditionBuilder) WithEnvVar(name, value string) *ConditionBuilder {
	b.cfg.ConditionType = api.ConditionEnvVarEquals
	b.cfg.EnvVarName = name
	b.cfg.EnvVarValue = value
	return b
}

// Then appends blocks to the then-branch, renumbering it.
func (b *ConditionBuilder) Then(blocks ...api.Block) *ConditionBuilder {
	b.cfg.NestedBlocks = append(b.cfg.NestedBlocks, blocks...)
	api.Renumber(b.cfg.NestedBlocks)
	return b
}

// Else appends blocks to the else-branch, renumbering it.
func (b *ConditionBuilder) Else(blocks ...api.Block) *ConditionBuilder {
	b.cfg.ElseBlocks = append(b.cfg.ElseBlocks, blocks...)
	api.Renumber(b.cfg.ElseBlocks)
	return b
}

// Build returns the constructed condition block.
func (b *ConditionBuilder) Build() api.Block {
	return b.block
}

// RunbookBuilder provides a fluent interface for building test runbooks.
type RunbookBuilder struct {
	runbook *api.Runbook
}

// NewRunbookBuilder creates a new RunbookBuilder with sensible defaults.
func NewRunbookBuilder() *RunbookBuilder {
	now := api.Timestamp{Time: time.Now().UTC()}
	return &RunbookBuilder{
		runbook: &api.Runbook{
			ID:          uuid.NewString(),
			Title:       "Test runbook",
			Description: "Runbook used in tests",
			Tags:        []string{},
			Blocks:      []api.Block{},
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

// WithID sets the runbook id.
func (b *RunbookBuilder) WithID(id string) *RunbookBuilder {
	b.runbook.ID = id
	return b
}

// WithTitle sets the runbook title.
func (b *RunbookBuilder) WithTitle(title string) *RunbookBuilder {
	b.runbook.Title = title
	return b
}

// WithTags sets the runbook tags.
func (b *RunbookBuilder) WithTags(tags ...string) *RunbookBuilder {
	b.runbook.Tags = tags
	return b
}

// WithEnvironment sets the runbook environment.
func (b *RunbookBuilder) WithEnvironment(id string) *RunbookBuilder {
	b.runbook.EnvironmentID = id
	return b
}

// WithBlocks appends top-level blocks, renumbering the list.
func (b *RunbookBuilder) WithBlocks(blocks ...api.Block) *RunbookBuilder {
	b.runbook.Blocks = append(b.runbook.Blocks, blocks...)
	api.Renumber(b.runbook.Blocks)
	return b
}

// Build returns the constructed Runbook.
func (b *RunbookBuilder) Build() *api.Runbook {
	return b.runbook
}

// ExecutionBuilder provides a fluent interface for building test executions.
type ExecutionBuilder struct {
	execution *api.Execution
}

// NewExecutionBuilder creates a new ExecutionBuilder with sensible defaults.
func NewExecutionBuilder() *ExecutionBuilder {
	return &ExecutionBuilder{
		execution: &api.Execution{
			ID:           "job-test-123",
			RunbookID:    "rb-test-123",
			RunbookTitle: "Test runbook",
			Status:       constants.ExecutionPending,
			StartTime:    api.Timestamp{Time: time.Now().UTC()},
		},
	}
}

// WithID sets the execution ID.
func (b *ExecutionBuilder) WithID(id string) *ExecutionBuilder {
	b.execution.ID = id
	return b
}

// WithStatus sets the execution status.
func (b *ExecutionBuilder) WithStatus(status constants.ExecutionStatus) *ExecutionBuilder {
	b.execution.Status = status
	return b
}

// Completed marks the execution as completed.
func (b *ExecutionBuilder) Completed() *ExecutionBuilder {
	b.execution.Status = constants.ExecutionCompleted
	b.execution.EndTime = api.Timestamp{Time: time.Now().UTC()}
	return b
}

// Failed marks the execution as failed.
func (b *ExecutionBuilder) Failed() *ExecutionBuilder {
	b.execution.Status = constants.ExecutionFailed
	b.execution.EndTime = api.Timestamp{Time: time.Now().UTC()}
	return b
}

// Build returns the constructed Execution.
func (b *ExecutionBuilder) Build() *api.Execution {
	return b.execution
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}

// TestContext creates a test context with a reasonable timeout.
// Note: The cancel function is intentionally not returned since test contexts
// are expected to be short-lived and will be cleaned up when the test completes.
func TestContext() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), constants.TestContextTimeout)
	_ = cancel
	return ctx
}

// SilentLogger creates a logger that discards all output.
func SilentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError + 1,
	}))
}
