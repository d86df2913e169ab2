package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/opsbook/opsbook/internal/api"
)

func runbookPath(id string, rest ...string) string {
	p := "/runbooks/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// ListRunbooks lists all runbooks at their latest version
func (c *Client) ListRunbooks(ctx context.Context) ([]api.Runbook, error) {
	var resp []api.Runbook
	err := c.DoJSON(ctx, Request{
		Method: http.MethodGet,
		Path:   "/runbooks",
	}, &resp)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// GetRunbook fetches a runbook by id
func (c *Client) GetRunbook(ctx context.Context, id string) (*api.Runbook, error) {
	var resp api.Runbook
	err := c.DoJSON(ctx, Request{
		Method: http.MethodGet,
		Path:   runbookPath(id),
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// CreateRunbook creates a runbook
func (c *Client) CreateRunbook(ctx context.Context, req api.RunbookWriteRequest) (*api.Runbook, error) {
	var resp api.Runbook
	err := c.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   "/runbooks",
		Body:   req,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// UpdateRunbook replaces the writable fields of a runbook, creating a new version
func (c *Client) UpdateRunbook(ctx context.Context, id string, req api.RunbookWriteRequest) (*api.Runbook, error) {
	var resp api.Runbook
	err := c.DoJSON(ctx, Request{
		Method: http.MethodPut,
		Path:   runbookPath(id),
		Body:   req,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// DeleteRunbook deletes a runbook and all of its versions
func (c *Client) DeleteRunbook(ctx context.Context, id string) error {
	return c.DoJSON(ctx, Request{
		Method: http.MethodDelete,
		Path:   runbookPath(id),
	}, nil)
}

// ExecuteRunbook enqueues an execution job for the latest version of a runbook
func (c *Client) ExecuteRunbook(ctx context.Context, id string) (*api.ExecuteRunbookResponse, error) {
	var resp api.ExecuteRunbookResponse
	err := c.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   runbookPath(id, "execute"),
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// ListRunbookVersions lists every stored version of a runbook, oldest first
func (c *Client) ListRunbookVersions(ctx context.Context, id string) ([]api.Runbook, error) {
	var resp []api.Runbook
	err := c.DoJSON(ctx, Request{
		Method: http.MethodGet,
		Path:   runbookPath(id, "versions"),
	}, &resp)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// RollbackRunbook creates a new version with the blocks of an older one
func (c *Client) RollbackRunbook(ctx context.Context, id string, version int) (*api.Runbook, error) {
	var resp api.Runbook
	err := c.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   runbookPath(id, "versions", strconv.Itoa(version), "rollback"),
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}
