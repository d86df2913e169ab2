package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/client"
	"github.com/opsbook/opsbook/internal/client/output"
	"github.com/opsbook/opsbook/internal/constants"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit log of changes made through the backend",
	Example: fmt.Sprintf(`  - %[1]s audit
  - %[1]s audit --action create_runbook --limit 20`, constants.ProjectName),
	Run: func(cmd *cobra.Command, _ []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewAuditService(c, NewOutputWrapper()).List(ctx, api.AuditFilter{
				UserID:   auditUser,
				Action:   auditAction,
				TargetID: auditTarget,
				Limit:    auditLimit,
			})
		})
	},
}

var (
	auditUser   string
	auditAction string
	auditTarget string
	auditLimit  int
)

func init() {
	auditCmd.Flags().StringVar(&auditUser, "user", "", "Only entries by this user ID")
	auditCmd.Flags().StringVar(&auditAction, "action", "", "Only entries with this action")
	auditCmd.Flags().StringVar(&auditTarget, "target", "", "Only entries about this target ID")
	auditCmd.Flags().IntVar(&auditLimit, "limit", constants.DefaultAuditLimit,
		fmt.Sprintf("Maximum number of entries (1-%d)", constants.MaxAuditLimit))
	rootCmd.AddCommand(auditCmd)
}

// AuditService handles audit log queries
type AuditService struct {
	client client.Interface
	output OutputInterface
}

// NewAuditService creates a new AuditService with the provided dependencies
func NewAuditService(apiClient client.Interface, outputter OutputInterface) *AuditService {
	return &AuditService{
		client: apiClient,
		output: outputter,
	}
}

// List prints the audit entries matching filter, newest first
func (s *AuditService) List(ctx context.Context, filter api.AuditFilter) error {
	if err := validate.Struct(filter); err != nil {
		return fmt.Errorf("invalid audit filter: user and target must be UUIDs and limit at most %d",
			constants.MaxAuditLimit)
	}

	entries, err := s.client.ListAuditLogs(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list audit logs: %w", err)
	}
	if len(entries) == 0 {
		s.output.Infof("No audit entries found")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Timestamp.String(),
			e.UserID,
			e.Action,
			orDash(e.TargetID),
			orDash(formatDetails(e.Details)),
		})
	}
	s.output.Blank()
	s.output.Table([]string{"Time", "User", "Action", "Target", "Details"}, rows)
	s.output.Blank()
	s.output.Successf("Listed %d audit entries", len(entries))
	return nil
}

func formatDetails(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return output.Truncate(strings.Join(parts, " "), constants.MaxCellLength)
}
