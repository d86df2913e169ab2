package runbooks

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/opsbook/opsbook/internal/api"
)

var validate = validator.New()

// Normalize checks a document and fills in what a hand-written file may omit:
// missing block ids get a fresh UUID and every list is numbered by position.
func Normalize(doc *Document) error {
	if err := validate.Struct(doc.WriteRequest()); err != nil {
		return errors.New("invalid runbook: title is required")
	}

	assignIDs(doc.Blocks)
	renumberTree(doc.Blocks)

	if err := api.ValidateTree(doc.Blocks); err != nil {
		return fmt.Errorf("invalid runbook: %w", err)
	}
	return nil
}

func assignIDs(blocks []api.Block) {
	api.Walk(blocks, func(b *api.Block, _ api.BlockRef, _ int) bool {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		return true
	})
}

func renumberTree(blocks []api.Block) {
	api.Renumber(blocks)
	for i := range blocks {
		if cond := blocks[i].Condition(); cond != nil {
			renumberTree(cond.NestedBlocks)
			renumberTree(cond.ElseBlocks)
		}
	}
}
