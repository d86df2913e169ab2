package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/client"
	"github.com/opsbook/opsbook/internal/logger"
	"github.com/opsbook/opsbook/internal/runner"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Work with single runbook blocks",
}

var blocksRunCmd = &cobra.Command{
	Use:   "run <runbook-id> <block-id>",
	Short: "Run one block of a runbook",
	Long: `Run one block of a runbook, nested blocks included.
Conditions are evaluated and report which branch they enable; the blocks of
that branch are not run.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewBlocksService(c, NewOutputWrapper()).Run(ctx, args[0], args[1])
		})
	},
}

func init() {
	blocksCmd.AddCommand(blocksRunCmd)
	rootCmd.AddCommand(blocksCmd)
}

// BlocksService runs single blocks
type BlocksService struct {
	client client.Interface
	output OutputInterface
}

// NewBlocksService creates a new BlocksService with the provided dependencies
func NewBlocksService(apiClient client.Interface, outputter OutputInterface) *BlocksService {
	return &BlocksService{
		client: apiClient,
		output: outputter,
	}
}

// Run executes or evaluates the block id of a runbook
func (s *BlocksService) Run(ctx context.Context, runbookID, blockID string) error {
	rb, err := s.client.GetRunbook(ctx, runbookID)
	if err != nil {
		return fmt.Errorf("failed to get runbook: %w", err)
	}
	block, _, err := api.Find(rb.Blocks, blockID)
	if err != nil {
		return err
	}

	runner.Render(s.output.Writer(), *block, true)
	s.output.Blank()

	run := runner.New(s.client, logger.FromContext(ctx))

	if block.Type == api.BlockCondition {
		res, evalErr := run.Evaluate(ctx, rb.ID, *block)
		if evalErr != nil {
			return evalErr
		}
		if res.Met {
			s.output.Successf("%s", res.Text)
		} else {
			s.output.Warningf("%s", res.Text)
		}
		s.printOutput(res.Output)
		return nil
	}

	result, err := run.Execute(ctx, rb.ID, *block)
	if err != nil {
		return err
	}
	s.output.KeyValue("Status", s.output.StatusBadge(string(result.Status)))
	s.output.KeyValue("Exit code", formatExitCode(result.ExitCode))
	if result.StatusCode != nil {
		s.output.KeyValue("Status code", formatExitCode(result.StatusCode))
	}
	s.printOutput(result.Output)
	return nil
}

func (s *BlocksService) printOutput(out string) {
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return
	}
	s.output.Blank()
	s.output.Println(out)
}
