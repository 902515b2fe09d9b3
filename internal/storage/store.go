// Package storage persists report drafts.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raven-rwho/rem-expenses/internal/core"
)

var (
	ErrDraftNotFound = errors.New("draft not found")
	// ErrDraftCorrupt marks a stored draft that can no longer be decoded. It
	// matches ErrDraftNotFound so callers fall back to a fresh draft.
	ErrDraftCorrupt = fmt.Errorf("corrupt draft payload: %w", ErrDraftNotFound)
	ErrDraftExists  = errors.New("draft already exists")
)

// UpdateFunc mutates a draft inside Update. Returning an error aborts the
// update and leaves the stored draft untouched.
type UpdateFunc func(d *core.Draft) error

// DraftStore is implemented by the SQLite and memory stores.
type DraftStore interface {
	// Create stores a new draft, assigning an ID when it has none.
	Create(ctx context.Context, d core.Draft) (core.Draft, error)
	Get(ctx context.Context, id string) (core.Draft, error)
	// Update atomically loads, mutates and saves the draft.
	Update(ctx context.Context, id string, fn UpdateFunc) (core.Draft, error)
	Delete(ctx context.Context, id string) error
	// List returns the most recently updated drafts first.
	List(ctx context.Context, limit int) ([]core.Draft, error)
	// RecordExport remembers where a rendered export was archived.
	RecordExport(ctx context.Context, id, format, reference string) error
	ListExports(ctx context.Context, id string) ([]ExportRecord, error)
	Close() error
}

// ExportRecord is one archived export of a draft.
type ExportRecord struct {
	DraftID   string    `json:"draftId"`
	Format    string    `json:"format"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clock returns the current time; tests replace it.
type Clock func() time.Time

func applyUpdate(d *core.Draft, fn UpdateFunc, now time.Time) error {
	id, created := d.ID, d.CreatedAt
	if err := fn(d); err != nil {
		return err
	}
	// identity is not editable
	d.ID, d.CreatedAt = id, created
	d.UpdatedAt = now
	return nil
}
