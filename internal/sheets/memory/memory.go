// Package memory keeps appended sheet rows in process, for development and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spesacasa/internal/core"
	"spesacasa/internal/sheets"
)

var _ sheets.ExpenseAppender = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	loc  *time.Location
	rows map[string][][]any
}

func New(loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{loc: loc, rows: map[string][][]any{}}
}

// Append stores the rendered row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, spreadsheetID string, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if spreadsheetID == "" {
		return "", sheets.ErrInvalidSheetURL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[spreadsheetID] = append(s.rows[spreadsheetID], sheets.Row(e, s.loc))
	return fmt.Sprintf("mem:%s:%d", spreadsheetID, len(s.rows[spreadsheetID])), nil
}

// Rows returns a copy of the rows appended to one spreadsheet.
func (s *Store) Rows(spreadsheetID string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.rows[spreadsheetID]...)
}
