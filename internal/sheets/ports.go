package sheets

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"spesacasa/internal/core"
)

// ExpenseAppender pushes one expense as a row of a household spreadsheet.
type ExpenseAppender interface {
	Append(ctx context.Context, spreadsheetID string, e core.Expense) (rowRef string, err error)
}

// ErrInvalidSheetURL is returned when no spreadsheet id can be read from a
// profile's googleSheetUrl.
var ErrInvalidSheetURL = errors.New("invalid google sheet url")

var (
	urlIDPattern  = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	bareIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`)
)

// SpreadsheetIDFromURL accepts either a full docs.google.com URL or a bare
// spreadsheet id.
func SpreadsheetIDFromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidSheetURL
	}
	if m := urlIDPattern.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	if bareIDPattern.MatchString(raw) {
		return raw, nil
	}
	return "", ErrInvalidSheetURL
}
