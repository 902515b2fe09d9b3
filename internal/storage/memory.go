package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raven-rwho/rem-expenses/internal/core"
)

// MemoryStore keeps drafts in process memory. Drafts are copied on the way
// in and out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.Mutex
	drafts  map[string]core.Draft
	exports map[string][]ExportRecord
	now     Clock
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts:  make(map[string]core.Draft),
		exports: make(map[string][]ExportRecord),
		now:     time.Now,
	}
}

func (s *MemoryStore) WithClock(c Clock) *MemoryStore {
	s.now = c
	return s
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Create(_ context.Context, d core.Draft) (core.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if _, exists := s.drafts[d.ID]; exists {
		return core.Draft{}, fmt.Errorf("%w: %s", ErrDraftExists, d.ID)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	s.drafts[d.ID] = d.Clone()
	return d.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (core.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok {
		return core.Draft{}, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	return d.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn UpdateFunc) (core.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.drafts[id]
	if !ok {
		return core.Draft{}, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	d := stored.Clone()
	if err := applyUpdate(&d, fn, s.now().UTC()); err != nil {
		return core.Draft{}, err
	}
	s.drafts[id] = d.Clone()
	return d, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[id]; !ok {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	delete(s.drafts, id)
	delete(s.exports, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]core.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]core.Draft, 0, len(s.drafts))
	for _, d := range s.drafts {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) RecordExport(_ context.Context, id, format, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[id]; !ok {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	s.exports[id] = append(s.exports[id], ExportRecord{
		DraftID:   id,
		Format:    format,
		Reference: reference,
		CreatedAt: s.now().UTC(),
	})
	return nil
}

func (s *MemoryStore) ListExports(_ context.Context, id string) ([]ExportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ExportRecord{}, s.exports[id]...), nil
}
