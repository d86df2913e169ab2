package cmd

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/client"
	"github.com/opsbook/opsbook/internal/client/output"
	"github.com/opsbook/opsbook/internal/constants"
	"github.com/opsbook/opsbook/internal/session"
)

var executionsCmd = &cobra.Command{
	Use:     "executions",
	Aliases: []string{"execution", "exec"},
	Short:   "Inspect runbook execution jobs",
}

var executionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List execution history",
	Run: func(cmd *cobra.Command, _ []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewExecutionsService(c, NewOutputWrapper(), nil).List(ctx)
		})
	},
}

var executionsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show the status and step outputs of a job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewExecutionsService(c, NewOutputWrapper(), nil).Show(ctx, args[0])
		})
	},
}

var executionsWatchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Follow a job until it finishes",
	Long: fmt.Sprintf(`Follow a job until it finishes.
The job is polled every %s. Watching stops when the job reaches a terminal
status, when it can no longer be fetched, or when you log out.`, constants.ExecutionPollInterval),
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			sess, err := getSessionFromContext(cmd)
			if err != nil {
				return err
			}
			return NewExecutionsService(c, NewOutputWrapper(), sess).Watch(ctx, args[0])
		})
	},
}

var executionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all execution history",
	Run: func(cmd *cobra.Command, _ []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewExecutionsService(c, NewOutputWrapper(), nil).Clear(ctx, forceClear)
		})
	},
}

var executionsStopCmd = &cobra.Command{
	Use:   "stop <job-id>",
	Short: "Ask the backend to stop a running job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeWithClient(cmd, func(ctx context.Context, c client.Interface) error {
			return NewExecutionsService(c, NewOutputWrapper(), nil).Stop(ctx, args[0])
		})
	},
}

var forceClear bool

func init() {
	executionsClearCmd.Flags().BoolVarP(&forceClear, "force", "f", false, "Clear without confirmation")
	executionsCmd.AddCommand(
		executionsListCmd,
		executionsShowCmd,
		executionsWatchCmd,
		executionsClearCmd,
		executionsStopCmd,
	)
	rootCmd.AddCommand(executionsCmd)
}

// SessionObserver reports credential changes to long-running commands.
type SessionObserver interface {
	Subscribe(fn session.Listener) func()
	Watch(ctx context.Context, interval time.Duration)
}

// cancelOnLogout derives a context that is canceled when sess reports a
// logout, in this or another process. loggedOut tells a canceled context
// apart from Ctrl+C. A nil sess never cancels.
func cancelOnLogout(ctx context.Context, sess SessionObserver) (_ context.Context, loggedOut func() bool, stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var out atomic.Bool
	if sess == nil {
		return ctx, out.Load, cancel
	}

	unsubscribe := sess.Subscribe(func(key string) {
		if key == "" {
			out.Store(true)
			cancel()
		}
	})
	sess.Watch(ctx, 0)
	return ctx, out.Load, func() {
		unsubscribe()
		cancel()
	}
}

// stoppedByLogout ends a long-running command after a logout without
// reporting an error.
func stoppedByLogout(out OutputInterface, doing string) error {
	out.Warningf("Logged out, stopped %s", doing)
	out.Infof("Log in again with %s", out.Bold(constants.ProjectName+" login"))
	return nil
}

// ExecutionsService handles execution job operations
type ExecutionsService struct {
	client   client.Interface
	output   OutputInterface
	session  SessionObserver
	interval time.Duration
}

// NewExecutionsService creates a new ExecutionsService with the provided dependencies.
// sess may be nil for commands that do not run for long.
func NewExecutionsService(apiClient client.Interface, outputter OutputInterface, sess SessionObserver) *ExecutionsService {
	return &ExecutionsService{
		client:   apiClient,
		output:   outputter,
		session:  sess,
		interval: constants.ExecutionPollInterval,
	}
}

// List prints the execution history
func (s *ExecutionsService) List(ctx context.Context) error {
	executions, err := s.client.ListExecutions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list executions: %w", err)
	}
	if len(executions) == 0 {
		s.output.Infof("No executions yet")
		return nil
	}

	rows := make([][]string, 0, len(executions))
	for _, e := range executions {
		rows = append(rows, []string{
			e.ID,
			orDash(e.RunbookTitle),
			s.output.StatusBadge(string(e.Status)),
			e.StartTime.String(),
			executionDuration(e),
		})
	}

	s.output.Blank()
	s.output.Table([]string{"Job ID", "Runbook", "Status", "Started", "Duration"}, rows)
	s.output.Blank()
	s.output.Successf("Listed %d execution(s)", len(executions))
	return nil
}

func executionDuration(e api.Execution) string {
	if e.StartTime.IsZero() || e.EndTime.IsZero() {
		return "-"
	}
	return output.Duration(e.EndTime.Sub(e.StartTime.Time))
}

// Show prints a job's status and every step output
func (s *ExecutionsService) Show(ctx context.Context, id string) error {
	detail, err := s.client.GetExecution(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get execution: %w", err)
	}

	s.output.Blank()
	s.output.KeyValue("Job ID", detail.JobID)
	s.output.KeyValue("Status", s.output.StatusBadge(string(detail.Status)))
	if len(detail.Steps) == 0 {
		s.output.Blank()
		s.output.Infof("No steps recorded yet")
		return nil
	}
	for i := range detail.Steps {
		s.printStep(&detail.Steps[i])
	}
	return nil
}

func (s *ExecutionsService) printStep(step *api.ExecutionStep) {
	name := step.BlockName
	if name == "" {
		name = step.BlockID
	}
	s.output.Blank()
	s.output.Println(fmt.Sprintf("%s %s %s",
		s.output.Bold(name), s.output.StatusBadge(string(step.Status)), s.output.Gray("exit "+fmt.Sprint(step.ExitCode))))
	if out := strings.TrimRight(step.Output, "\n"); out != "" {
		s.output.Println(out)
	}
}

// Watch polls the job until it reaches a terminal status. It also stops when
// the job cannot be fetched or when the session is logged out, in this or
// another process.
func (s *ExecutionsService) Watch(ctx context.Context, id string) error {
	ctx, loggedOut, stop := cancelOnLogout(ctx, s.session)
	defer stop()

	s.output.Infof("Watching job %s, press Ctrl+C to stop", s.output.Bold(id))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	printed := 0
	var status constants.ExecutionStatus
	for {
		detail, err := s.client.GetExecution(ctx, id)
		if err != nil {
			if loggedOut() {
				return stoppedByLogout(s.output, "watching")
			}
			return fmt.Errorf("stopped watching job %s: %w", id, err)
		}

		if detail.Status != status {
			status = detail.Status
			s.output.KeyValue("Status", s.output.StatusBadge(string(status)))
		}
		for ; printed < len(detail.Steps); printed++ {
			s.printStep(&detail.Steps[printed])
		}

		if status.IsTerminal() {
			s.output.Blank()
			if status.IsFailure() {
				return fmt.Errorf("job %s finished with status %s", id, status)
			}
			s.output.Successf("Job %s finished with status %s", id, status)
			return nil
		}

		select {
		case <-ctx.Done():
			if loggedOut() {
				return stoppedByLogout(s.output, "watching")
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Clear deletes the whole execution history after confirmation unless force is set
func (s *ExecutionsService) Clear(ctx context.Context, force bool) error {
	if !force && !s.output.Confirm("Delete all execution history?") {
		s.output.Infof("Aborted")
		return nil
	}
	if err := s.client.ClearExecutions(ctx); err != nil {
		return fmt.Errorf("failed to clear executions: %w", err)
	}
	s.output.Successf("Execution history cleared")
	return nil
}

// Stop requests a running job to stop
func (s *ExecutionsService) Stop(ctx context.Context, id string) error {
	resp, err := s.client.StopExecution(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to stop execution: %w", err)
	}
	msg := resp.Message
	if msg == "" {
		msg = "Stop requested"
	}
	s.output.Successf("%s", msg)
	return nil
}
