package runbooks

import (
	"context"
	"log/slog"

	"github.com/opsbook/opsbook/internal/api"
)

// Backend is the part of the API client used to apply documents.
type Backend interface {
	CreateRunbook(ctx context.Context, req api.RunbookWriteRequest) (*api.Runbook, error)
	UpdateRunbook(ctx context.Context, id string, req api.RunbookWriteRequest) (*api.Runbook, error)
}

// Result describes one applied document.
type Result struct {
	Runbook *api.Runbook
	Created bool
}

// Applier pushes runbook documents to the backend.
type Applier struct {
	backend Backend
	logger  *slog.Logger
}

// NewApplier creates an Applier.
func NewApplier(backend Backend, log *slog.Logger) *Applier {
	return &Applier{backend: backend, logger: log}
}

// Apply creates the runbook when the document has no id and updates it otherwise.
func (a *Applier) Apply(ctx context.Context, doc *Document) (*Result, error) {
	req := doc.WriteRequest()

	if doc.ID == "" {
		rb, err := a.backend.CreateRunbook(ctx, req)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("runbook created from file", "runbookID", rb.ID, "title", rb.Title)
		return &Result{Runbook: rb, Created: true}, nil
	}

	rb, err := a.backend.UpdateRunbook(ctx, doc.ID, req)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("runbook updated from file", "runbookID", rb.ID, "version", rb.Version)
	return &Result{Runbook: rb}, nil
}
