package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/testutil"
)

type mockBackend struct {
	getRunbookFunc       func(ctx context.Context, id string) (*api.Runbook, error)
	updateRunbookFunc    func(ctx context.Context, id string, req api.RunbookWriteRequest) (*api.Runbook, error)
	listCredentialsFunc  func(ctx context.Context) ([]api.Credential, error)
	listEnvironmentsFunc func(ctx context.Context) ([]api.Environment, error)
}

func (m *mockBackend) GetRunbook(ctx context.Context, id string) (*api.Runbook, error) {
	if m.getRunbookFunc != nil {
		return m.getRunbookFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockBackend) UpdateRunbook(ctx context.Context, id string, req api.RunbookWriteRequest) (*api.Runbook, error) {
	if m.updateRunbookFunc != nil {
		return m.updateRunbookFunc(ctx, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockBackend) ListCredentials(ctx context.Context) ([]api.Credential, error) {
	if m.listCredentialsFunc != nil {
		return m.listCredentialsFunc(ctx)
	}
	return []api.Credential{}, nil
}

func (m *mockBackend) ListEnvironments(ctx context.Context) ([]api.Environment, error) {
	if m.listEnvironmentsFunc != nil {
		return m.listEnvironmentsFunc(ctx)
	}
	return []api.Environment{}, nil
}

func newTestEditor(blocks ...api.Block) *Editor {
	rb := testutil.NewRunbookBuilder().WithID("rb-1").WithBlocks(blocks...).Build()
	e := New(&mockBackend{}, rb, testutil.SilentLogger())
	var n atomic.Int32
	e.newID = func() string { return fmt.Sprintf("new-%d", n.Add(1)) }
	return e
}

func threeBlocks() []api.Block {
	return []api.Block{
		testutil.CommandBlock("a", "echo a"),
		testutil.InstructionBlock("b", "read b"),
		testutil.TimerBlock("c", 3),
	}
}

func TestLoad(t *testing.T) {
	rb := testutil.NewRunbookBuilder().WithID("rb-1").WithBlocks(testutil.CommandBlock("a", "ls")).Build()
	backend := &mockBackend{
		getRunbookFunc: func(_ context.Context, id string) (*api.Runbook, error) {
			assert.Equal(t, "rb-1", id)
			return rb, nil
		},
		listCredentialsFunc: func(context.Context) ([]api.Credential, error) {
			return []api.Credential{{ID: "cred-1", Name: "prod-ssh", Type: api.CredentialSSH}}, nil
		},
		listEnvironmentsFunc: func(context.Context) ([]api.Environment, error) {
			return []api.Environment{{ID: "env-1", Name: "python"}}, nil
		},
	}

	e, err := Load(context.Background(), backend, "rb-1", testutil.SilentLogger())
	require.NoError(t, err)

	assert.Same(t, rb, e.Runbook())
	assert.Len(t, e.Credentials, 1)
	assert.Len(t, e.Environments, 1)
}

func TestLoad_Failure(t *testing.T) {
	tests := []struct {
		name    string
		backend *mockBackend
		wantMsg string
	}{
		{
			name:    "runbook missing",
			backend: &mockBackend{},
			wantMsg: "not implemented",
		},
		{
			name: "credentials fail",
			backend: &mockBackend{
				getRunbookFunc: func(context.Context, string) (*api.Runbook, error) {
					return testutil.NewRunbookBuilder().Build(), nil
				},
				listCredentialsFunc: func(context.Context) ([]api.Credential, error) {
					return nil, errors.New("boom")
				},
			},
			wantMsg: "failed to load credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.backend, "rb-1", testutil.SilentLogger())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestEditor_Add(t *testing.T) {
	e := newTestEditor(threeBlocks()...)

	block, err := e.Add(api.BlockSSH)
	require.NoError(t, err)

	assert.Equal(t, "new-1", block.ID)
	assert.Equal(t, "New ssh block", block.Name)
	assert.Equal(t, 4, block.Order)
	assert.Equal(t, &api.SSHConfig{}, block.Config)
	testutil.AssertBlockIDs(t, e.Blocks(), "a", "b", "c", "new-1")

	_, err = e.Add("teleport")
	assert.Error(t, err)
	assert.Len(t, e.Blocks(), 4)
}

func TestEditor_AddNested(t *testing.T) {
	e := newTestEditor(testutil.NewConditionBuilder("cond").Then(testutil.CommandBlock("t1", "ls")).Build())

	block, err := e.AddNested("cond", api.BranchThen, api.BlockCommand)
	require.NoError(t, err)
	assert.Equal(t, 2, block.Order)

	_, err = e.AddNested("cond", api.BranchElse, api.BlockTimer)
	require.NoError(t, err)

	cond := e.Blocks()[0].Condition()
	testutil.AssertBlockIDs(t, cond.NestedBlocks, "t1", "new-1")
	testutil.AssertBlockIDs(t, cond.ElseBlocks, "new-2")

	deeper, err := e.AddNested("new-1", api.BranchThen, api.BlockCommand)
	assert.ErrorIs(t, err, ErrNotCondition)
	assert.Empty(t, deeper.ID)

	_, err = e.AddNested("missing", api.BranchThen, api.BlockCommand)
	assert.ErrorIs(t, err, api.ErrBlockNotFound)
}

func TestEditor_AddNested_DeepCondition(t *testing.T) {
	inner := testutil.NewConditionBuilder("inner").Build()
	e := newTestEditor(testutil.NewConditionBuilder("outer").Else(inner).Build())

	_, err := e.AddNested("inner", api.BranchThen, api.BlockInstruction)
	require.NoError(t, err)

	got := e.Blocks()[0].Condition().ElseBlocks[0].Condition().NestedBlocks
	testutil.AssertBlockIDs(t, got, "new-1")
}

func TestEditor_Delete(t *testing.T) {
	e := newTestEditor(threeBlocks()...)

	require.NoError(t, e.Delete("b"))
	testutil.AssertBlockIDs(t, e.Blocks(), "a", "c")
	testutil.AssertContiguousOrder(t, e.Blocks())

	assert.ErrorIs(t, e.Delete("b"), api.ErrBlockNotFound)
}

func TestEditor_DeleteNested(t *testing.T) {
	build := func() *Editor {
		return newTestEditor(testutil.NewConditionBuilder("cond").
			Then(testutil.CommandBlock("t1", "a"), testutil.CommandBlock("t2", "b")).
			Else(testutil.CommandBlock("e1", "c"), testutil.CommandBlock("e2", "d")).
			Build())
	}

	t.Run("from the else branch", func(t *testing.T) {
		e := build()
		require.NoError(t, e.DeleteNested("cond", "e1"))

		cond := e.Blocks()[0].Condition()
		testutil.AssertBlockIDs(t, cond.NestedBlocks, "t1", "t2")
		testutil.AssertBlockIDs(t, cond.ElseBlocks, "e2")
		assert.Equal(t, 1, cond.ElseBlocks[0].Order)
	})

	t.Run("from the then branch", func(t *testing.T) {
		e := build()
		require.NoError(t, e.DeleteNested("cond", "t2"))

		cond := e.Blocks()[0].Condition()
		testutil.AssertBlockIDs(t, cond.NestedBlocks, "t1")
		testutil.AssertBlockIDs(t, cond.ElseBlocks, "e1", "e2")
	})

	t.Run("unknown child", func(t *testing.T) {
		e := build()
		assert.ErrorIs(t, e.DeleteNested("cond", "zz"), api.ErrBlockNotFound)
	})
}

func TestEditor_Move(t *testing.T) {
	e := newTestEditor(threeBlocks()...)
	before := api.CloneBlocks(e.Blocks())

	require.NoError(t, e.Move(0, 2))

	blocks := e.Blocks()
	testutil.AssertBlockIDs(t, blocks, "b", "c", "a")
	assert.Equal(t, []int{1, 2, 3}, []int{blocks[0].Order, blocks[1].Order, blocks[2].Order})

	byID := map[string]api.Block{}
	for _, b := range before {
		byID[b.ID] = b
	}
	for _, b := range blocks {
		want := byID[b.ID]
		want.Order = b.Order
		assert.Equal(t, want, b, "only the order changes")
	}
}

func TestEditor_Move_OutOfRange(t *testing.T) {
	e := newTestEditor(threeBlocks()...)

	assert.Error(t, e.Move(0, 3))
	assert.Error(t, e.Move(-1, 0))
	testutil.AssertBlockIDs(t, e.Blocks(), "a", "b", "c")
}

func TestEditor_MoveNested(t *testing.T) {
	e := newTestEditor(testutil.NewConditionBuilder("cond").
		Then(testutil.CommandBlock("t1", "a"), testutil.CommandBlock("t2", "b")).
		Build())

	require.NoError(t, e.MoveNested("cond", api.BranchThen, 1, 0))
	cond := e.Blocks()[0].Condition()
	testutil.AssertBlockIDs(t, cond.NestedBlocks, "t2", "t1")
	testutil.AssertContiguousOrder(t, cond.NestedBlocks)
}

func TestEditor_Edit(t *testing.T) {
	t.Run("top-level block", func(t *testing.T) {
		e := newTestEditor(threeBlocks()...)

		err := e.Edit(api.BlockRef{BlockID: "a"}, "List files", &api.CommandConfig{Command: "ls -la"})
		require.NoError(t, err)

		assert.Equal(t, "List files", e.Blocks()[0].Name)
		assert.Equal(t, &api.CommandConfig{Command: "ls -la"}, e.Blocks()[0].Config)
	})

	t.Run("nested block writes back into its branch", func(t *testing.T) {
		e := newTestEditor(testutil.NewConditionBuilder("cond").
			Then(testutil.CommandBlock("t1", "a")).
			Else(testutil.CommandBlock("e1", "b")).
			Build())

		ref := api.BlockRef{ParentID: "cond", Branch: api.BranchElse, BlockID: "e1"}
		require.NoError(t, e.Edit(ref, "Fallback", &api.CommandConfig{Command: "echo fallback"}))

		cond := e.Blocks()[0].Condition()
		assert.Equal(t, "Fallback", cond.ElseBlocks[0].Name)
		assert.Equal(t, &api.CommandConfig{Command: "echo fallback"}, cond.ElseBlocks[0].Config)
		assert.Equal(t, &api.CommandConfig{Command: "a"}, cond.NestedBlocks[0].Config)
	})

	t.Run("wrong branch", func(t *testing.T) {
		e := newTestEditor(testutil.NewConditionBuilder("cond").Then(testutil.CommandBlock("t1", "a")).Build())

		ref := api.BlockRef{ParentID: "cond", Branch: api.BranchElse, BlockID: "t1"}
		assert.ErrorIs(t, e.Edit(ref, "x", &api.CommandConfig{}), api.ErrBlockNotFound)
	})

	t.Run("config of another type", func(t *testing.T) {
		e := newTestEditor(threeBlocks()...)

		err := e.Edit(api.BlockRef{BlockID: "a"}, "x", &api.TimerConfig{Duration: 5})
		require.Error(t, err)
		assert.Equal(t, &api.CommandConfig{Command: "echo a"}, e.Blocks()[0].Config)
	})

	t.Run("condition keeps its branches", func(t *testing.T) {
		e := newTestEditor(testutil.NewConditionBuilder("cond").Then(testutil.CommandBlock("t1", "a")).Build())

		err := e.Edit(api.BlockRef{BlockID: "cond"}, "Is prod?", &api.ConditionConfig{
			ConditionType: api.ConditionEnvVarEquals, EnvVarName: "STAGE", EnvVarValue: "prod",
		})
		require.NoError(t, err)

		cond := e.Blocks()[0].Condition()
		assert.Equal(t, api.ConditionEnvVarEquals, cond.ConditionType)
		testutil.AssertBlockIDs(t, cond.NestedBlocks, "t1")
	})
}

func TestEditor_SaveSendsStateExactly(t *testing.T) {
	var sent api.RunbookWriteRequest
	var sentID string
	backend := &mockBackend{
		updateRunbookFunc: func(_ context.Context, id string, req api.RunbookWriteRequest) (*api.Runbook, error) {
			sentID, sent = id, req
			return &api.Runbook{ID: id, Title: req.Title, Blocks: req.Blocks, Version: 2}, nil
		},
	}
	rb := testutil.NewRunbookBuilder().WithID("rb-1").WithBlocks(threeBlocks()...).Build()
	e := New(backend, rb, testutil.SilentLogger())

	e.SetMetadata("Restart web tier", "Rolling restart", []string{"web", "prod"}, "env-1")
	require.NoError(t, e.Move(2, 0))

	saved, err := e.Save(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "rb-1", sentID)
	assert.Equal(t, api.RunbookWriteRequest{
		Title:         "Restart web tier",
		Description:   "Rolling restart",
		Tags:          []string{"web", "prod"},
		EnvironmentID: "env-1",
		Blocks:        e.Blocks(),
	}, sent)
	testutil.AssertBlockIDs(t, sent.Blocks, "c", "a", "b")
	assert.Equal(t, 2, saved.Version)
	assert.Same(t, saved, e.Runbook())
}

func TestEditor_SaveFailureKeepsState(t *testing.T) {
	backend := &mockBackend{
		updateRunbookFunc: func(context.Context, string, api.RunbookWriteRequest) (*api.Runbook, error) {
			return nil, errors.New("conflict")
		},
	}
	rb := testutil.NewRunbookBuilder().WithID("rb-1").Build()
	e := New(backend, rb, testutil.SilentLogger())
	e.SetMetadata("New title", "", nil, "")

	_, err := e.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, "New title", e.Runbook().Title)
}

func TestEditor_KeepsUnsupportedBlocks(t *testing.T) {
	var unknown api.Block
	require.NoError(t, json.Unmarshal([]byte(`{"id":"w","type":"webhook","name":"Notify","order":0,"config":{"url":"https://hooks.example.com","retries":3}}`), &unknown))

	var sent api.RunbookWriteRequest
	backend := &mockBackend{
		updateRunbookFunc: func(_ context.Context, id string, req api.RunbookWriteRequest) (*api.Runbook, error) {
			sent = req
			return &api.Runbook{ID: id, Title: req.Title, Blocks: req.Blocks}, nil
		},
	}
	rb := testutil.NewRunbookBuilder().WithID("rb-1").WithBlocks(unknown, testutil.CommandBlock("a", "echo a")).Build()
	e := New(backend, rb, testutil.SilentLogger())

	err := e.Edit(api.BlockRef{BlockID: "w"}, "Renamed", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook blocks cannot be edited")

	require.NoError(t, e.Move(1, 0))
	_, err = e.Save(context.Background())
	require.NoError(t, err)

	testutil.AssertBlockIDs(t, sent.Blocks, "a", "w")
	body, err := json.Marshal(sent.Blocks[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"https://hooks.example.com","retries":3}`, string(mustField(t, body, "config")))
	assert.Equal(t, "Notify", sent.Blocks[1].Name)
}

func mustField(t *testing.T, body []byte, key string) json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &fields))
	return fields[key]
}
