package cmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbook/opsbook/internal/api"
)

func TestAuditService_List(t *testing.T) {
	const userID = "0b3f6c2e-8a4f-4d5e-9c61-2f1d7e8a9b10"

	tests := []struct {
		name    string
		filter  api.AuditFilter
		wantErr string
		wantRPC bool
	}{
		{name: "no filter", filter: api.AuditFilter{Limit: 100}, wantRPC: true},
		{name: "user filter", filter: api.AuditFilter{UserID: userID, Action: "create_runbook", Limit: 10}, wantRPC: true},
		{name: "user is not a uuid", filter: api.AuditFilter{UserID: "alice"}, wantErr: "invalid audit filter"},
		{name: "limit too large", filter: api.AuditFilter{Limit: 5000}, wantErr: "limit at most 1000"},
		{name: "negative limit", filter: api.AuditFilter{Limit: -1}, wantErr: "invalid audit filter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sent *api.AuditFilter
			mockClient := &mockClientInterface{
				listAuditLogsFunc: func(_ context.Context, filter api.AuditFilter) ([]api.AuditLogEntry, error) {
					sent = &filter
					return []api.AuditLogEntry{{ID: "a1", UserID: userID, Action: "create_runbook"}}, nil
				},
			}

			err := NewAuditService(mockClient, &mockOutputInterface{}).List(context.Background(), tt.filter)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tt.wantRPC {
				require.NotNil(t, sent)
				assert.Equal(t, tt.filter, *sent)
			} else {
				assert.Nil(t, sent)
			}
		})
	}
}

func TestAuditService_ListRows(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	mockClient := &mockClientInterface{
		listAuditLogsFunc: func(_ context.Context, _ api.AuditFilter) ([]api.AuditLogEntry, error) {
			return []api.AuditLogEntry{
				{
					Timestamp: api.Timestamp{Time: at}, UserID: "u1", Action: "update_runbook", TargetID: "rb-1",
					Details: map[string]any{"version": 3, "title": "Deploy"},
				},
				{Timestamp: api.Timestamp{Time: at}, UserID: "u1", Action: "logout"},
			}, nil
		},
	}
	out := &mockOutputInterface{}

	require.NoError(t, NewAuditService(mockClient, out).List(context.Background(), api.AuditFilter{}))
	_, rows, ok := out.table()
	require.True(t, ok)
	assert.Equal(t, [][]string{
		{"2024-05-01 09:30:00", "u1", "update_runbook", "rb-1", "title=Deploy version=3"},
		{"2024-05-01 09:30:00", "u1", "logout", "-", "-"},
	}, rows)
	assert.True(t, out.hasMessage("Successf", "Listed 2 audit entries"))
}

func TestFormatDetails(t *testing.T) {
	assert.Empty(t, formatDetails(nil))
	assert.Equal(t, "a=1 b=x", formatDetails(map[string]any{"b": "x", "a": 1}))

	long := formatDetails(map[string]any{"message": strings.Repeat("x", 100)})
	assert.Len(t, []rune(long), 40)
	assert.True(t, strings.HasSuffix(long, "…"))
}
