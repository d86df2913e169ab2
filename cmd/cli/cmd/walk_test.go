package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/constants"
	"github.com/opsbook/opsbook/internal/session"
	"github.com/opsbook/opsbook/internal/testutil"
)

type blockRecorder struct {
	mu       sync.Mutex
	commands []string
	probeErr error
	// probeExit is the exit code returned for the condition probe.
	probeExit int
}

func (r *blockRecorder) execute(_ context.Context, req api.ExecuteBlockRequest) (*api.BlockExecutionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd := req.Block.Config.(*api.CommandConfig).Command
	r.commands = append(r.commands, cmd)
	if cmd == "./healthcheck" {
		if r.probeErr != nil {
			return nil, r.probeErr
		}
		return &api.BlockExecutionResult{Status: constants.ExecutionSuccess, ExitCode: testutil.IntPtr(r.probeExit)}, nil
	}
	return &api.BlockExecutionResult{
		Status:   constants.ExecutionSuccess,
		Output:   "ran " + cmd + "\n",
		ExitCode: testutil.IntPtr(0),
	}, nil
}

func walkRunbook() *api.Runbook {
	cond := testutil.NewConditionBuilder("cond").
		WithCheckCommand("./healthcheck", 0).
		Then(testutil.CommandBlock("then-1", "echo healthy")).
		Else(testutil.CommandBlock("else-1", "systemctl restart api")).
		Build()
	return testutil.NewRunbookBuilder().WithID("rb-1").WithTitle("Check API").
		WithBlocks(
			testutil.InstructionBlock("intro", "Open the dashboard"),
			testutil.CommandBlock("cmd-1", "uptime"),
			cond,
		).Build()
}

func newWalkMock(rec *blockRecorder) *mockClientInterface {
	return &mockClientInterface{
		getRunbookFunc: func(_ context.Context, _ string) (*api.Runbook, error) {
			return walkRunbook(), nil
		},
		executeBlockFunc: rec.execute,
	}
}

func TestWalkService_Walk(t *testing.T) {
	tests := []struct {
		name         string
		probeExit    int
		probeErr     error
		confirms     []bool
		assumeYes    bool
		wantCommands []string
		wantSummary  string
		wantText     string
	}{
		{
			name:         "condition met runs the then branch",
			assumeYes:    true,
			probeExit:    0,
			wantCommands: []string{"uptime", "./healthcheck", "echo healthy"},
			wantSummary:  "Walked 5 block(s): 3 run, 1 skipped",
			wantText:     "Condition TRUE",
		},
		{
			name:         "condition not met runs the else branch",
			confirms:     []bool{true, true, true},
			probeExit:    3,
			wantCommands: []string{"uptime", "./healthcheck", "systemctl restart api"},
			wantSummary:  "Walked 5 block(s): 3 run, 1 skipped",
			wantText:     "Condition FALSE",
		},
		{
			name:         "failed check enables the else branch",
			assumeYes:    true,
			probeErr:     errors.New("runner offline"),
			wantCommands: []string{"uptime", "./healthcheck", "systemctl restart api"},
			wantText:     "check failed: runner offline",
		},
		{
			name:         "declined blocks are skipped",
			confirms:     []bool{false, false},
			wantCommands: nil,
			wantSummary:  "Walked 5 block(s): 0 run, 4 skipped",
		},
		{
			name:         "declined nested block",
			confirms:     []bool{true, true, false},
			wantCommands: []string{"uptime", "./healthcheck"},
			wantSummary:  "Walked 5 block(s): 2 run, 2 skipped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &blockRecorder{probeExit: tt.probeExit, probeErr: tt.probeErr}
			out := &mockOutputInterface{confirms: tt.confirms}

			err := NewWalkService(newWalkMock(rec), out, nil).Walk(context.Background(), "rb-1", tt.assumeYes)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCommands, rec.commands)
			if tt.wantSummary != "" {
				assert.True(t, out.hasMessage("Successf", tt.wantSummary), out.messages("Successf"))
			}
			if tt.wantText != "" {
				assert.True(t, out.hasMessage("Successf", tt.wantText) || out.hasMessage("Warningf", tt.wantText))
			}
		})
	}
}

func TestWalkService_RendersAndShowsOutput(t *testing.T) {
	rec := &blockRecorder{}
	out := &mockOutputInterface{}

	require.NoError(t, NewWalkService(newWalkMock(rec), out, nil).Walk(context.Background(), "rb-1", true))

	rendered := out.out.String()
	assert.Contains(t, rendered, "1. Instruction Block (instruction)")
	assert.Contains(t, rendered, "Open the dashboard")
	assert.Contains(t, rendered, "2. Command Block (command)")
	assert.Contains(t, rendered, "ran uptime")
	assert.Contains(t, rendered, "    1. Command Block (command)", "nested blocks are indented")
	assert.NotContains(t, rendered, "systemctl restart api", "blocks of the disabled branch are not offered")

	status, ok := out.keyValue("Status")
	assert.True(t, ok)
	assert.Equal(t, string(constants.ExecutionSuccess), status)
	assert.Equal(t, 0, out.count("Confirm"), "--yes never asks")
}

func TestWalkService_EmptyRunbook(t *testing.T) {
	mockClient := &mockClientInterface{
		getRunbookFunc: func(_ context.Context, _ string) (*api.Runbook, error) {
			return testutil.NewRunbookBuilder().Build(), nil
		},
	}
	out := &mockOutputInterface{}

	require.NoError(t, NewWalkService(mockClient, out, nil).Walk(context.Background(), "rb-1", false))
	assert.True(t, out.hasMessage("Infof", "no blocks"))
}

func TestWalkService_RunbookNotFound(t *testing.T) {
	mockClient := &mockClientInterface{
		getRunbookFunc: func(_ context.Context, _ string) (*api.Runbook, error) {
			return nil, errors.New("Runbook not found")
		},
	}
	err := NewWalkService(mockClient, &mockOutputInterface{}, nil).Walk(context.Background(), "rb-x", false)
	require.EqualError(t, err, "failed to get runbook: Runbook not found")
}

func TestWalkService_WalkStopsOnLogout(t *testing.T) {
	sess := openSession(t)
	require.NoError(t, sess.Login("key-1"))

	rec := &blockRecorder{}
	mockClient := newWalkMock(rec)
	mockClient.executeBlockFunc = func(ctx context.Context, req api.ExecuteBlockRequest) (*api.BlockExecutionResult, error) {
		res, err := rec.execute(ctx, req)
		assert.NoError(t, sess.Logout())
		return res, err
	}
	out := &mockOutputInterface{}

	require.NoError(t, NewWalkService(mockClient, out, sess).Walk(context.Background(), "rb-1", true))

	assert.Equal(t, []string{"uptime"}, rec.commands)
	assert.True(t, out.hasMessage("Warningf", "Logged out, stopped walking"))
	assert.False(t, out.hasMessage("Successf", "Walked"))
}

func TestWalkService_WalkStopsOnLogoutElsewhere(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	sess, err := session.Open(path, testutil.SilentLogger())
	require.NoError(t, err)
	require.NoError(t, sess.Login("key-1"))
	other, err := session.Open(path, testutil.SilentLogger())
	require.NoError(t, err)

	rec := &blockRecorder{}
	mockClient := newWalkMock(rec)
	mockClient.executeBlockFunc = func(ctx context.Context, req api.ExecuteBlockRequest) (*api.BlockExecutionResult, error) {
		res, err := rec.execute(ctx, req)
		assert.NoError(t, other.Logout())
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
		return res, err
	}
	out := &mockOutputInterface{}

	require.NoError(t, NewWalkService(mockClient, out, sess).Walk(context.Background(), "rb-1", true))

	assert.Equal(t, []string{"uptime"}, rec.commands)
	assert.True(t, out.hasMessage("Warningf", "Logged out, stopped walking"))
	assert.False(t, sess.Authenticated())
}
