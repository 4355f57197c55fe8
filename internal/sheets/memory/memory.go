// Package memory is an in-process export target. It keeps the last exported
// table and is used when no spreadsheet is configured.
package memory

import (
	"context"
	"slices"
	"sync"

	"splitbook/internal/core"
	"splitbook/internal/sheets"
)

var _ sheets.SnapshotExporter = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	rows    [][]string
	exports int
}

func New() *Store {
	return &Store{}
}

// Export replaces the stored table with the header and one row per expense.
func (s *Store) Export(_ context.Context, contacts []core.Contact, expenses []core.Expense) (int, error) {
	rows := sheets.Rows(contacts, expenses)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append([][]string{slices.Clone(sheets.Header)}, rows...)
	s.exports++
	return len(rows), nil
}

// Table returns a copy of the last exported table, header included.
func (s *Store) Table() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = slices.Clone(r)
	}
	return out
}

// Exports returns how many times Export ran.
func (s *Store) Exports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}
