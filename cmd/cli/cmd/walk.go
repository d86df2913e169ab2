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

var runbooksWalkCmd = &cobra.Command{
	Use:   "walk <runbook-id>",
	Short: "Step through a runbook, running blocks one by one",
	Long: `Step through a runbook block by block.
Executable blocks are run after confirmation. Conditions are evaluated and
only the blocks of the branch they enable are offered. The walk stops when
you log out, here or in another terminal.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			sess, err := getSessionFromContext(cmd)
			if err != nil {
				return err
			}
			return NewWalkService(c, NewOutputWrapper(), sess).Walk(ctx, args[0], walkAssumeYes)
		})
	},
}

var walkAssumeYes bool

func init() {
	runbooksWalkCmd.Flags().BoolVarP(&walkAssumeYes, "yes", "y", false, "Run every offered block without asking")
	runbooksCmd.AddCommand(runbooksWalkCmd)
}

// WalkService steps through a runbook interactively
type WalkService struct {
	client  client.Interface
	output  OutputInterface
	session SessionObserver
}

// NewWalkService creates a new WalkService with the provided dependencies
func NewWalkService(apiClient client.Interface, outputter OutputInterface, sess SessionObserver) *WalkService {
	return &WalkService{
		client:  apiClient,
		output:  outputter,
		session: sess,
	}
}

type walk struct {
	*WalkService
	runbookID string
	assumeYes bool
	runner    *runner.Runner
	renderer  *runner.Renderer
	ran       int
	skipped   int
}

// Walk renders every block of the runbook in order and offers to run the
// executable ones. Blocks in a branch a condition did not enable are never offered.
// A logout ends the walk before the next block.
func (s *WalkService) Walk(ctx context.Context, id string, assumeYes bool) error {
	ctx, loggedOut, stop := cancelOnLogout(ctx, s.session)
	defer stop()

	rb, err := s.client.GetRunbook(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get runbook: %w", err)
	}

	s.output.Blank()
	s.output.Header(rb.Title)
	if rb.Description != "" {
		s.output.Println(s.output.Gray(rb.Description))
	}
	if len(rb.Blocks) == 0 {
		s.output.Infof("This runbook has no blocks yet")
		return nil
	}

	w := &walk{
		WalkService: s,
		runbookID:   rb.ID,
		assumeYes:   assumeYes,
		runner:      runner.New(s.client, logger.FromContext(ctx)),
		renderer:    &runner.Renderer{Evaluations: map[string]*runner.ConditionResult{}},
	}
	if err = w.blocks(ctx, rb.Blocks, 0); err != nil {
		if loggedOut() {
			s.output.Blank()
			return stoppedByLogout(s.output, "walking")
		}
		return err
	}

	s.output.Blank()
	s.output.Successf("Walked %d block(s): %d run, %d skipped", api.Count(rb.Blocks), w.ran, w.skipped)
	return nil
}

func (w *walk) confirm(prompt string) bool {
	return w.assumeYes || w.output.Confirm(prompt)
}

func (w *walk) blocks(ctx context.Context, blocks []api.Block, depth int) error {
	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.output.Blank()
		w.renderer.RenderHeader(w.output.Writer(), block, true, depth)

		switch {
		case block.Type == api.BlockCondition:
			if err := w.condition(ctx, block, depth); err != nil {
				return err
			}
		case block.Type.Executable():
			if !w.confirm(fmt.Sprintf("Run %s?", block.DisplayName())) {
				w.skipped++
				continue
			}
			if err := w.execute(ctx, block); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walk) execute(ctx context.Context, block api.Block) error {
	result, err := w.runner.Execute(ctx, w.runbookID, block)
	if err != nil {
		return err
	}
	w.ran++

	w.output.KeyValue("Status", w.output.StatusBadge(string(result.Status)))
	if result.ExitCode != nil {
		w.output.KeyValue("Exit code", formatExitCode(result.ExitCode))
	}
	if result.StatusCode != nil {
		w.output.KeyValue("Status code", formatExitCode(result.StatusCode))
	}
	if out := strings.TrimRight(result.Output, "\n"); out != "" {
		w.output.Println(out)
	}
	return nil
}

func (w *walk) condition(ctx context.Context, block api.Block, depth int) error {
	cond := block.Condition()
	if !w.confirm(fmt.Sprintf("Evaluate %s?", block.DisplayName())) {
		w.skipped += 1 + api.Count(cond.NestedBlocks) + api.Count(cond.ElseBlocks)
		return nil
	}

	res, err := w.runner.Evaluate(ctx, w.runbookID, block)
	if err != nil {
		return err
	}
	w.ran++
	w.renderer.Evaluations[block.ID] = res

	if res.Met {
		w.output.Successf("%s", res.Text)
	} else {
		w.output.Warningf("%s", res.Text)
	}

	enabled, disabled := api.BranchThen, api.BranchElse
	if !res.Met {
		enabled, disabled = disabled, enabled
	}
	w.skipped += api.Count(cond.Blocks(disabled))

	branch := cond.Blocks(enabled)
	if len(branch) == 0 {
		w.output.Infof("No blocks in the enabled branch")
		return nil
	}
	return w.blocks(ctx, branch, depth+1)
}
