package api

import (
	"errors"
	"fmt"
)

// BlockRef addresses a block inside a runbook tree. An empty ParentID means
// the top-level list; otherwise Branch selects the parent's list.
type BlockRef struct {
	ParentID string
	Branch   Branch
	BlockID  string
}

// Nested reports whether the reference points inside a condition.
func (r BlockRef) Nested() bool {
	return r.ParentID != ""
}

// ErrBlockNotFound is returned when a block id is not in the tree.
var ErrBlockNotFound = errors.New("block not found")

// WalkFunc is called for every block in a tree. depth is 0 for top-level
// blocks. Returning false stops the walk.
type WalkFunc func(b *Block, ref BlockRef, depth int) bool

// Walk visits blocks depth-first in list order, then-branch before else-branch.
func Walk(blocks []Block, fn WalkFunc) {
	walk(blocks, "", "", 0, fn)
}

func walk(blocks []Block, parentID string, branch Branch, depth int, fn WalkFunc) bool {
	for i := range blocks {
		b := &blocks[i]
		if !fn(b, BlockRef{ParentID: parentID, Branch: branch, BlockID: b.ID}, depth) {
			return false
		}
		if cond := b.Condition(); cond != nil {
			if !walk(cond.NestedBlocks, b.ID, BranchThen, depth+1, fn) {
				return false
			}
			if !walk(cond.ElseBlocks, b.ID, BranchElse, depth+1, fn) {
				return false
			}
		}
	}
	return true
}

// Find returns a pointer to the block with the given id and its location.
func Find(blocks []Block, id string) (*Block, BlockRef, error) {
	var (
		found *Block
		ref   BlockRef
	)
	Walk(blocks, func(b *Block, r BlockRef, _ int) bool {
		if b.ID == id {
			found = b
			ref = r
			return false
		}
		return true
	})
	if found == nil {
		return nil, BlockRef{}, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	return found, ref, nil
}

// Count returns the number of blocks in the tree, nested ones included.
func Count(blocks []Block) int {
	n := 0
	Walk(blocks, func(*Block, BlockRef, int) bool {
		n++
		return true
	})
	return n
}

// Renumber rewrites every block's Order to its 1-based position in its list.
func Renumber(blocks []Block) {
	for i := range blocks {
		blocks[i].Order = i + 1
	}
}

// ValidateTree checks that every block has a known type, a config matching
// that type and an id unique across the whole tree.
func ValidateTree(blocks []Block) error {
	seen := make(map[string]struct{})
	var err error
	Walk(blocks, func(b *Block, _ BlockRef, _ int) bool {
		switch {
		case b.ID == "":
			err = fmt.Errorf("block %q has no id", b.DisplayName())
		case !b.Type.Valid():
			err = fmt.Errorf("block %s: unknown block type %q", b.ID, b.Type)
		case b.Config != nil && b.Config.BlockType() != b.Type:
			err = fmt.Errorf("block %s: config does not match type %s", b.ID, b.Type)
		}
		if err != nil {
			return false
		}
		if _, dup := seen[b.ID]; dup {
			err = fmt.Errorf("duplicate block id %s", b.ID)
			return false
		}
		seen[b.ID] = struct{}{}
		return true
	})
	return err
}
