package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/client"
	"github.com/opsbook/opsbook/internal/constants"
	"github.com/opsbook/opsbook/internal/runner"
)

var runbooksCmd = &cobra.Command{
	Use:     "runbooks",
	Aliases: []string{"runbook", "rb"},
	Short:   "Manage runbooks",
}

var runbooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all runbooks",
	Run: func(cmd *cobra.Command, _ []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewRunbooksService(c, NewOutputWrapper()).List(ctx)
		})
	},
}

var runbooksShowCmd = &cobra.Command{
	Use:   "show <runbook-id>",
	Short: "Show a runbook and its blocks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewRunbooksService(c, NewOutputWrapper()).Show(ctx, args[0])
		})
	},
}

var runbooksCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create an empty runbook",
	Example: fmt.Sprintf(`  - %s runbooks create "Restart API" --description "Rolling restart" --tags prod,api`,
		constants.ProjectName),
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewRunbooksService(c, NewOutputWrapper()).Create(ctx, api.RunbookWriteRequest{
				Title:         args[0],
				Description:   runbookDescription,
				Tags:          runbookTags,
				EnvironmentID: runbookEnvironment,
			})
		})
	},
}

var runbooksDeleteCmd = &cobra.Command{
	Use:   "delete <runbook-id>",
	Short: "Delete a runbook",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewRunbooksService(c, NewOutputWrapper()).Delete(ctx, args[0], forceDelete)
		})
	},
}

var runbooksExecuteCmd = &cobra.Command{
	Use:   "execute <runbook-id>",
	Short: "Run a whole runbook as a background job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewRunbooksService(c, NewOutputWrapper()).Execute(ctx, args[0])
		})
	},
}

var runbooksVersionsCmd = &cobra.Command{
	Use:   "versions <runbook-id>",
	Short: "List the saved versions of a runbook",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewRunbooksService(c, NewOutputWrapper()).Versions(ctx, args[0])
		})
	},
}

var runbooksRollbackCmd = &cobra.Command{
	Use:   "rollback <runbook-id> <version>",
	Short: "Restore a previous version as the newest one",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			version, err := strconv.Atoi(args[1])
			if err != nil || version < 1 {
				return fmt.Errorf("invalid version %q", args[1])
			}
			return NewRunbooksService(c, NewOutputWrapper()).Rollback(ctx, args[0], version)
		})
	},
}

var (
	runbookDescription string
	runbookTags        []string
	runbookEnvironment string
	forceDelete        bool
)

func init() {
	runbooksCreateCmd.Flags().StringVar(&runbookDescription, "description", "", "Runbook description")
	runbooksCreateCmd.Flags().StringSliceVar(&runbookTags, "tags", nil, "Comma separated tags")
	runbooksCreateCmd.Flags().StringVar(&runbookEnvironment, "environment", "", "Environment ID blocks run in")
	runbooksDeleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Delete without confirmation")

	runbooksCmd.AddCommand(
		runbooksListCmd,
		runbooksShowCmd,
		runbooksCreateCmd,
		runbooksDeleteCmd,
		runbooksExecuteCmd,
		runbooksVersionsCmd,
		runbooksRollbackCmd,
	)
	rootCmd.AddCommand(runbooksCmd)
}

// RunbooksService handles runbook operations
type RunbooksService struct {
	client client.Interface
	output OutputInterface
}

// NewRunbooksService creates a new RunbooksService with the provided dependencies
func NewRunbooksService(apiClient client.Interface, outputter OutputInterface) *RunbooksService {
	return &RunbooksService{
		client: apiClient,
		output: outputter,
	}
}

// List prints every runbook as a table
func (s *RunbooksService) List(ctx context.Context) error {
	runbooks, err := s.client.ListRunbooks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runbooks: %w", err)
	}
	if len(runbooks) == 0 {
		s.output.Infof("No runbooks yet, create one with %s",
			s.output.Bold(constants.ProjectName+" runbooks create <title>"))
		return nil
	}

	rows := make([][]string, 0, len(runbooks))
	for _, rb := range runbooks {
		rows = append(rows, []string{
			rb.ID,
			rb.Title,
			orDash(strings.Join(rb.Tags, ", ")),
			strconv.Itoa(api.Count(rb.Blocks)),
			strconv.Itoa(rb.Version),
			rb.UpdatedAt.String(),
		})
	}

	s.output.Blank()
	s.output.Table([]string{"ID", "Title", "Tags", "Blocks", "Version", "Updated"}, rows)
	s.output.Blank()
	s.output.Successf("Listed %d runbook(s)", len(runbooks))
	return nil
}

// Show prints a runbook's metadata followed by all of its blocks
func (s *RunbooksService) Show(ctx context.Context, id string) error {
	rb, err := s.client.GetRunbook(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get runbook: %w", err)
	}
	s.printRunbook(rb)

	s.output.Blank()
	if len(rb.Blocks) == 0 {
		s.output.Infof("This runbook has no blocks yet")
		return nil
	}
	r := &runner.Renderer{}
	r.RenderAll(s.output.Writer(), rb.Blocks, true)
	return nil
}

func (s *RunbooksService) printRunbook(rb *api.Runbook) {
	s.output.Blank()
	s.output.KeyValue("ID", rb.ID)
	s.output.KeyValue("Title", s.output.Bold(rb.Title))
	s.output.KeyValue("Description", orDash(rb.Description))
	s.output.KeyValue("Tags", orDash(strings.Join(rb.Tags, ", ")))
	s.output.KeyValue("Environment", orDash(rb.EnvironmentID))
	s.output.KeyValue("Version", strconv.Itoa(rb.Version))
	s.output.KeyValue("Created by", orDash(rb.CreatedBy))
	s.output.KeyValue("Updated", rb.UpdatedAt.String())
}

// Create creates a runbook without blocks
func (s *RunbooksService) Create(ctx context.Context, req api.RunbookWriteRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid runbook: title is required")
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	if req.Blocks == nil {
		req.Blocks = []api.Block{}
	}

	rb, err := s.client.CreateRunbook(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create runbook: %w", err)
	}

	s.output.Successf("Runbook %s created", s.output.Bold(rb.Title))
	s.output.KeyValue("ID", rb.ID)
	s.output.Infof("Add blocks with %s", s.output.Bold(constants.ProjectName+" edit "+rb.ID+" add <type>"))
	return nil
}

// Delete removes a runbook after asking for confirmation unless force is set
func (s *RunbooksService) Delete(ctx context.Context, id string, force bool) error {
	if !force && !s.output.Confirm(fmt.Sprintf("Delete runbook %s?", id)) {
		s.output.Infof("Aborted")
		return nil
	}
	if err := s.client.DeleteRunbook(ctx, id); err != nil {
		return fmt.Errorf("failed to delete runbook: %w", err)
	}
	s.output.Successf("Runbook %s deleted", s.output.Bold(id))
	return nil
}

// Execute enqueues a job for the whole runbook
func (s *RunbooksService) Execute(ctx context.Context, id string) error {
	resp, err := s.client.ExecuteRunbook(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to execute runbook: %w", err)
	}
	s.output.Successf("Execution started")
	s.output.KeyValue("Job ID", s.output.Bold(resp.JobID))
	s.output.Infof("Follow it with %s", s.output.Bold(constants.ProjectName+" executions watch "+resp.JobID))
	return nil
}

// Versions lists the saved versions of a runbook, newest first as returned
func (s *RunbooksService) Versions(ctx context.Context, id string) error {
	versions, err := s.client.ListRunbookVersions(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list versions: %w", err)
	}
	if len(versions) == 0 {
		s.output.Infof("No versions found")
		return nil
	}

	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		rows = append(rows, []string{
			strconv.Itoa(v.Version),
			v.Title,
			strconv.Itoa(api.Count(v.Blocks)),
			orDash(v.CreatedBy),
			v.CreatedAt.String(),
		})
	}
	s.output.Blank()
	s.output.Table([]string{"Version", "Title", "Blocks", "Created by", "Created"}, rows)
	s.output.Blank()
	s.output.Successf("Listed %d version(s)", len(versions))
	return nil
}

// Rollback restores a previous version
func (s *RunbooksService) Rollback(ctx context.Context, id string, version int) error {
	rb, err := s.client.RollbackRunbook(ctx, id, version)
	if err != nil {
		return fmt.Errorf("failed to roll back runbook: %w", err)
	}
	s.output.Successf("Runbook %s rolled back to version %d (now version %d)",
		s.output.Bold(rb.Title), version, rb.Version)
	return nil
}
