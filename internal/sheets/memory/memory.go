package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/export"
	ports "github.com/raven-rwho/rem-expenses/internal/sheets"
)

var _ ports.ReportWriter = (*Store)(nil)

// Store keeps written report tabs in memory.
type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]string
	writes int
}

func New() *Store {
	return &Store{tabs: make(map[string][][]string)}
}

// WriteReport stores the layout under the export base name and returns a
// synthetic reference.
func (s *Store) WriteReport(_ context.Context, r core.ExpenseReport) (string, error) {
	tab := export.BaseName(r)
	rows := export.BuildSheet(r).Strings()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab] = rows
	s.writes++
	return fmt.Sprintf("mem:%s!A1:K%d", tab, len(rows)), nil
}

// Tab returns a copy of the rows written to a tab.
func (s *Store) Tab(name string) ([][]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tabs[name]
	if !ok {
		return nil, false
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, true
}

// Writes counts WriteReport calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
