package client

import (
	"context"
	"net/http"

	"github.com/opsbook/opsbook/internal/api"
)

// Signup creates an account and returns its API key
func (c *Client) Signup(ctx context.Context, req api.SignupRequest) (*api.APIKeyResponse, error) {
	var resp api.APIKeyResponse
	err := c.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   "/users/signup",
		Body:   req,
		Public: true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// Login exchanges a username and password for an API key
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.APIKeyResponse, error) {
	var resp api.APIKeyResponse
	err := c.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   "/users/login",
		Body:   req,
		Public: true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// Logout tells the backend the current key is no longer in use
func (c *Client) Logout(ctx context.Context) error {
	return c.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   "/users/logout",
	}, nil)
}
