// Package editor holds the local editing state of one runbook. Mutations
// change only local state; Save sends the whole runbook back in one update.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/opsbook/opsbook/internal/api"
)

// Backend is the part of the API client the editor needs.
type Backend interface {
	GetRunbook(ctx context.Context, id string) (*api.Runbook, error)
	UpdateRunbook(ctx context.Context, id string, req api.RunbookWriteRequest) (*api.Runbook, error)
	ListCredentials(ctx context.Context) ([]api.Credential, error)
	ListEnvironments(ctx context.Context) ([]api.Environment, error)
}

// ErrNotCondition is returned when a nested operation targets a non-condition parent.
var ErrNotCondition = errors.New("parent block is not a condition")

// Editor is the editing state of a runbook plus the picker options
// (credentials and environments) a block form offers.
type Editor struct {
	backend Backend
	logger  *slog.Logger

	runbook      *api.Runbook
	Credentials  []api.Credential
	Environments []api.Environment

	newID func() string
}

// New wraps an already fetched runbook.
func New(backend Backend, runbook *api.Runbook, log *slog.Logger) *Editor {
	return &Editor{
		backend: backend,
		logger:  log,
		runbook: runbook,
		newID:   uuid.NewString,
	}
}

// Load fetches the runbook, credentials and environments concurrently.
func Load(ctx context.Context, backend Backend, id string, log *slog.Logger) (*Editor, error) {
	var (
		runbook      *api.Runbook
		credentials  []api.Credential
		environments []api.Environment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rb, err := backend.GetRunbook(gctx, id)
		if err != nil {
			return err
		}
		runbook = rb
		return nil
	})
	g.Go(func() error {
		creds, err := backend.ListCredentials(gctx)
		if err != nil {
			return fmt.Errorf("failed to load credentials: %w", err)
		}
		credentials = creds
		return nil
	})
	g.Go(func() error {
		envs, err := backend.ListEnvironments(gctx)
		if err != nil {
			return fmt.Errorf("failed to load environments: %w", err)
		}
		environments = envs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e := New(backend, runbook, log)
	e.Credentials = credentials
	e.Environments = environments
	log.Debug("editor loaded", "runbookID", id, "blocks", api.Count(runbook.Blocks),
		"credentials", len(credentials), "environments", len(environments))
	return e, nil
}

// Runbook returns the runbook being edited.
func (e *Editor) Runbook() *api.Runbook {
	return e.runbook
}

// Blocks returns the top-level blocks.
func (e *Editor) Blocks() []api.Block {
	return e.runbook.Blocks
}

func (e *Editor) newBlock(t api.BlockType, order int) (api.Block, error) {
	if !t.Valid() {
		return api.Block{}, fmt.Errorf("unknown block type %q", t)
	}
	return api.NewBlock(e.newID(), t, fmt.Sprintf("New %s block", t), order), nil
}

// Add appends a new empty block of type t to the top-level list.
func (e *Editor) Add(t api.BlockType) (api.Block, error) {
	block, err := e.newBlock(t, len(e.runbook.Blocks)+1)
	if err != nil {
		return api.Block{}, err
	}
	e.runbook.Blocks = append(e.runbook.Blocks, block)
	return block, nil
}

// AddNested appends a new empty block to a branch of the condition parentID.
func (e *Editor) AddNested(parentID string, branch api.Branch, t api.BlockType) (api.Block, error) {
	cond, err := e.condition(parentID)
	if err != nil {
		return api.Block{}, err
	}
	list := cond.Blocks(branch)
	block, err := e.newBlock(t, len(list)+1)
	if err != nil {
		return api.Block{}, err
	}
	cond.SetBlocks(branch, append(list, block))
	return block, nil
}

// Delete removes a top-level block and renumbers the rest.
func (e *Editor) Delete(id string) error {
	blocks, ok := remove(e.runbook.Blocks, id)
	if !ok {
		return fmt.Errorf("%w: %s", api.ErrBlockNotFound, id)
	}
	e.runbook.Blocks = blocks
	return nil
}

// DeleteNested removes id from whichever branch of parentID holds it.
// The other branch is left untouched.
func (e *Editor) DeleteNested(parentID, id string) error {
	cond, err := e.condition(parentID)
	if err != nil {
		return err
	}
	for _, branch := range []api.Branch{api.BranchThen, api.BranchElse} {
		if blocks, ok := remove(cond.Blocks(branch), id); ok {
			cond.SetBlocks(branch, blocks)
			return nil
		}
	}
	return fmt.Errorf("%w: %s in %s", api.ErrBlockNotFound, id, parentID)
}

// Move reorders the top-level list like a drag and drop from index from to
// index to, then rewrites every order to its 1-based position.
func (e *Editor) Move(from, to int) error {
	blocks, err := move(e.runbook.Blocks, from, to)
	if err != nil {
		return err
	}
	e.runbook.Blocks = blocks
	return nil
}

// MoveNested reorders a branch of the condition parentID.
func (e *Editor) MoveNested(parentID string, branch api.Branch, from, to int) error {
	cond, err := e.condition(parentID)
	if err != nil {
		return err
	}
	blocks, err := move(cond.Blocks(branch), from, to)
	if err != nil {
		return err
	}
	cond.SetBlocks(branch, blocks)
	return nil
}

// Edit replaces the name and config of the block addressed by ref. The config
// must belong to the block's type. A condition keeps its branches when the
// new config carries none.
func (e *Editor) Edit(ref api.BlockRef, name string, cfg api.BlockConfig) error {
	block, err := e.locate(ref)
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = api.EmptyConfig(block.Type)
	}
	if cfg == nil {
		return fmt.Errorf("block %s: %s blocks cannot be edited", block.ID, block.Type)
	}
	if cfg.BlockType() != block.Type {
		return fmt.Errorf("cannot use %s settings on %s block %s", cfg.BlockType(), block.Type, block.ID)
	}
	if next, ok := cfg.(*api.ConditionConfig); ok {
		if prev := block.Condition(); prev != nil {
			if next.NestedBlocks == nil {
				next.NestedBlocks = prev.NestedBlocks
			}
			if next.ElseBlocks == nil {
				next.ElseBlocks = prev.ElseBlocks
			}
		}
	}
	block.Name = name
	block.Config = cfg
	return nil
}

// SetMetadata replaces the runbook's descriptive fields.
func (e *Editor) SetMetadata(title, description string, tags []string, environmentID string) {
	e.runbook.Title = title
	e.runbook.Description = description
	e.runbook.Tags = tags
	e.runbook.EnvironmentID = environmentID
}

// Save sends the runbook as held in state. Last writer wins.
func (e *Editor) Save(ctx context.Context) (*api.Runbook, error) {
	req := e.runbook.WriteRequest()
	saved, err := e.backend.UpdateRunbook(ctx, e.runbook.ID, req)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("runbook saved", "runbookID", saved.ID, "version", saved.Version)
	e.runbook = saved
	return saved, nil
}

// locate resolves ref. A ref without a parent may point anywhere in the tree.
func (e *Editor) locate(ref api.BlockRef) (*api.Block, error) {
	if !ref.Nested() {
		block, _, err := api.Find(e.runbook.Blocks, ref.BlockID)
		return block, err
	}
	cond, err := e.condition(ref.ParentID)
	if err != nil {
		return nil, err
	}
	blocks := cond.Blocks(ref.Branch)
	for i := range blocks {
		if blocks[i].ID == ref.BlockID {
			return &blocks[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s of %s", api.ErrBlockNotFound, ref.BlockID, ref.Branch, ref.ParentID)
}

func (e *Editor) condition(parentID string) (*api.ConditionConfig, error) {
	parent, _, err := api.Find(e.runbook.Blocks, parentID)
	if err != nil {
		return nil, err
	}
	cond := parent.Condition()
	if cond == nil {
		return nil, fmt.Errorf("%w: %s is a %s block", ErrNotCondition, parentID, parent.Type)
	}
	return cond, nil
}

func remove(blocks []api.Block, id string) ([]api.Block, bool) {
	idx := slices.IndexFunc(blocks, func(b api.Block) bool { return b.ID == id })
	if idx < 0 {
		return blocks, false
	}
	blocks = slices.Delete(blocks, idx, idx+1)
	api.Renumber(blocks)
	return blocks, true
}

func move(blocks []api.Block, from, to int) ([]api.Block, error) {
	if from < 0 || from >= len(blocks) || to < 0 || to >= len(blocks) {
		return nil, fmt.Errorf("position out of range: move %d to %d in a list of %d", from, to, len(blocks))
	}
	block := blocks[from]
	blocks = slices.Delete(blocks, from, from+1)
	blocks = slices.Insert(blocks, to, block)
	api.Renumber(blocks)
	return blocks, nil
}
