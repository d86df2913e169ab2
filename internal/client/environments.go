package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/opsbook/opsbook/internal/api"
)

func environmentPath(id string) string {
	return "/environments/" + url.PathEscape(id)
}

// ListEnvironments lists execution environments
func (c *Client) ListEnvironments(ctx context.Context) ([]api.Environment, error) {
	var resp []api.Environment
	err := c.DoJSON(ctx, Request{
		Method: http.MethodGet,
		Path:   "/environments",
	}, &resp)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// GetEnvironment fetches an environment by id
func (c *Client) GetEnvironment(ctx context.Context, id string) (*api.Environment, error) {
	var resp api.Environment
	err := c.DoJSON(ctx, Request{
		Method: http.MethodGet,
		Path:   environmentPath(id),
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// CreateEnvironment creates an environment; the backend builds its image
func (c *Client) CreateEnvironment(ctx context.Context, req api.EnvironmentWriteRequest) (*api.Environment, error) {
	var resp api.Environment
	err := c.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   "/environments",
		Body:   req,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// UpdateEnvironment replaces an environment definition
func (c *Client) UpdateEnvironment(ctx context.Context, id string, req api.EnvironmentWriteRequest) (*api.Environment, error) {
	var resp api.Environment
	err := c.DoJSON(ctx, Request{
		Method: http.MethodPut,
		Path:   environmentPath(id),
		Body:   req,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// DeleteEnvironment deletes an environment
func (c *Client) DeleteEnvironment(ctx context.Context, id string) error {
	return c.DoJSON(ctx, Request{
		Method: http.MethodDelete,
		Path:   environmentPath(id),
	}, nil)
}
