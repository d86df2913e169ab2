package api

import (
	"net/url"
	"strconv"

	"github.com/opsbook/opsbook/internal/constants"
)

// AuditLogEntry records one mutating action performed through the backend
type AuditLogEntry struct {
	ID        string         `json:"id"`
	Timestamp Timestamp      `json:"timestamp"`
	UserID    string         `json:"user_id"`
	Action    string         `json:"action"`
	TargetID  string         `json:"target_id"`
	Details   map[string]any `json:"details,omitempty"`
}

// AuditFilter narrows an audit log query. Zero values mean "no filter".
type AuditFilter struct {
	UserID   string `validate:"omitempty,uuid"`
	Action   string
	TargetID string `validate:"omitempty,uuid"`
	Limit    int    `validate:"gte=0,lte=1000"`
}

// Query encodes the filter as URL query parameters.
func (f AuditFilter) Query() url.Values {
	q := url.Values{}
	if f.UserID != "" {
		q.Set("user_id", f.UserID)
	}
	if f.Action != "" {
		q.Set("action", f.Action)
	}
	if f.TargetID != "" {
		q.Set("target_id", f.TargetID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = constants.DefaultAuditLimit
	}
	q.Set("limit", strconv.Itoa(limit))
	return q
}
