package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/opsbook/opsbook/internal/api"
)

// ListCredentials lists stored credentials without their secrets
func (c *Client) ListCredentials(ctx context.Context) ([]api.Credential, error) {
	var resp []api.Credential
	err := c.DoJSON(ctx, Request{
		Method: http.MethodGet,
		Path:   "/credentials",
	}, &resp)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// CreateCredential stores a new credential
func (c *Client) CreateCredential(ctx context.Context, req api.CreateCredentialRequest) (*api.Credential, error) {
	var resp api.Credential
	err := c.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   "/credentials",
		Body:   req,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// DeleteCredential deletes a credential
func (c *Client) DeleteCredential(ctx context.Context, id string) error {
	return c.DoJSON(ctx, Request{
		Method: http.MethodDelete,
		Path:   "/credentials/" + url.PathEscape(id),
	}, nil)
}
