package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/constants"
)

// ExecuteBlock runs a single block and returns its result
func (c *Client) ExecuteBlock(ctx context.Context, req api.ExecuteBlockRequest) (*api.BlockExecutionResult, error) {
	var resp api.BlockExecutionResult
	err := c.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   "/blocks/execute",
		Body:   req,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// ListExecutions lists execution jobs
func (c *Client) ListExecutions(ctx context.Context) ([]api.Execution, error) {
	var resp []api.Execution
	err := c.DoJSON(ctx, Request{
		Method: http.MethodGet,
		Path:   "/executions",
	}, &resp)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// GetExecution fetches the status and step outputs of a job
func (c *Client) GetExecution(ctx context.Context, id string) (*api.ExecutionDetail, error) {
	var resp api.ExecutionDetail
	err := c.DoJSON(ctx, Request{
		Method: http.MethodGet,
		Path:   "/executions/" + url.PathEscape(id),
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// ClearExecutions deletes the whole execution history
func (c *Client) ClearExecutions(ctx context.Context) error {
	return c.DoJSON(ctx, Request{
		Method: http.MethodDelete,
		Path:   "/executions/clear",
	}, nil)
}

// StopExecution asks the backend to stop a pending or running job
func (c *Client) StopExecution(ctx context.Context, id string) (*api.MessageResponse, error) {
	var resp api.MessageResponse
	err := c.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   "/executions/" + url.PathEscape(id) + "/control",
		Body:   api.ExecutionControlRequest{Action: constants.StopAction},
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}
