// Package runner executes runbook blocks through the backend and evaluates
// condition blocks.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/constants"
	apperrors "github.com/opsbook/opsbook/internal/errors"
)

var (
	// ErrNotExecutable is returned for blocks that are read, not run.
	ErrNotExecutable = errors.New("block is not executable")
	// ErrNotCondition is returned when Evaluate is given a non-condition block.
	ErrNotCondition = errors.New("block is not a condition")
)

// Executor runs a single block on the backend.
type Executor interface {
	ExecuteBlock(ctx context.Context, req api.ExecuteBlockRequest) (*api.BlockExecutionResult, error)
}

// Runner runs blocks of one runbook.
type Runner struct {
	executor Executor
	logger   *slog.Logger
}

// New creates a Runner backed by executor.
func New(executor Executor, log *slog.Logger) *Runner {
	return &Runner{executor: executor, logger: log}
}

// Execute runs an executable block once. Backend failures do not surface as
// errors; they come back as an error-status result carrying the failure message.
func (r *Runner) Execute(ctx context.Context, runbookID string, block api.Block) (*api.BlockExecutionResult, error) {
	if !block.Type.Executable() {
		return nil, fmt.Errorf("%w: %s blocks cannot be run", ErrNotExecutable, block.Type)
	}

	r.logger.Debug("executing block", "runbookID", runbookID, "blockID", block.ID, "type", block.Type)

	result, err := r.executor.ExecuteBlock(ctx, api.ExecuteBlockRequest{Block: block, RunbookID: runbookID})
	if err != nil {
		r.logger.Debug("block execution failed", "blockID", block.ID, "error", err)
		return &api.BlockExecutionResult{
			Status: constants.ExecutionError,
			Output: apperrors.Message(err),
		}, nil
	}
	return result, nil
}

// ConditionResult is the outcome of evaluating a condition block.
type ConditionResult struct {
	BlockID     string
	Met         bool
	ThenEnabled bool
	ElseEnabled bool
	// Text is the line shown to the user, starting with "Condition TRUE" or "Condition FALSE".
	Text string
	// Output is the probe output, or the failure message when the check could not run.
	Output string
}

// Enabled reports whether blocks in branch may be run.
func (c *ConditionResult) Enabled(branch api.Branch) bool {
	if c == nil {
		return false
	}
	if branch == api.BranchElse {
		return c.ElseEnabled
	}
	return c.ThenEnabled
}

// Evaluate runs the probe of a condition block and decides which branch is
// enabled. Nested blocks are never run here; callers run them one by one.
func (r *Runner) Evaluate(ctx context.Context, runbookID string, block api.Block) (*ConditionResult, error) {
	cond := block.Condition()
	if cond == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotCondition, block.Type)
	}

	res := &ConditionResult{BlockID: block.ID}

	probe, err := Probe(cond)
	if err != nil {
		res.Output = err.Error()
		return res.decide(false, err.Error()), nil
	}

	result, err := r.executor.ExecuteBlock(ctx, api.ExecuteBlockRequest{Block: probe, RunbookID: runbookID})
	if err != nil {
		msg := apperrors.Message(err)
		r.logger.Debug("condition check failed", "blockID", block.ID, "error", err)
		res.Output = msg
		return res.decide(false, "check failed: "+msg), nil
	}

	res.Output = result.Output
	met, description := judge(cond, result)
	r.logger.Debug("condition evaluated", "blockID", block.ID, "met", met)
	return res.decide(met, description), nil
}

func (c *ConditionResult) decide(met bool, description string) *ConditionResult {
	c.Met = met
	c.ThenEnabled = met
	c.ElseEnabled = !met
	if met {
		c.Text = fmt.Sprintf("Condition TRUE: %s. Nested blocks are enabled.", description)
	} else {
		c.Text = fmt.Sprintf("Condition FALSE: %s. Else blocks are enabled.", description)
	}
	return c
}
