package client

import (
	"context"
	"net/http"

	"github.com/opsbook/opsbook/internal/api"
)

// ListAuditLogs queries audit log entries, newest first
func (c *Client) ListAuditLogs(ctx context.Context, filter api.AuditFilter) ([]api.AuditLogEntry, error) {
	var resp []api.AuditLogEntry
	err := c.DoJSON(ctx, Request{
		Method: http.MethodGet,
		Path:   "/audit",
		Query:  filter.Query(),
	}, &resp)
	if err != nil {
		return nil, err
	}

	return resp, nil
}
