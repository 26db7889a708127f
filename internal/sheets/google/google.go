// Package google appends household expenses to Google Sheets with a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"spesacasa/internal/core"
	"spesacasa/internal/log"
	"spesacasa/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab expenses are appended to.
const DefaultSheetName = "Spese"

var _ sheets.ExpenseAppender = (*Client)(nil)

type Client struct {
	svc       *gsheet.Service
	sheetName string
	loc       *time.Location
	log       *slog.Logger
}

// Credentials selects the service account key. JSON wins over File.
type Credentials struct {
	JSON string
	File string
}

// CredentialsFromEnv reads GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE and, as a last resort,
// GOOGLE_APPLICATION_CREDENTIALS.
func CredentialsFromEnv() Credentials {
	c := Credentials{
		JSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		File: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if c.JSON == "" && c.File == "" {
		c.File = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return c
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case c.JSON != "":
		return []byte(c.JSON), nil
	case c.File != "":
		b, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// New builds a Sheets client authenticated with the given service account.
func New(ctx context.Context, creds Credentials, sheetName string, loc *time.Location, logger *slog.Logger) (*Client, error) {
	credentialsJSON, err := creds.load()
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, sheetName, loc, logger), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, sheetName string, loc *time.Location, logger *slog.Logger) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = DefaultSheetName
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		svc:       svc,
		sheetName: sheetName,
		loc:       loc,
		log:       log.WithComponent(logger, log.ComponentSheets),
	}
}

// Append writes the expense after the last row of the sheet and returns
// the updated range.
func (c *Client) Append(ctx context.Context, spreadsheetID string, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if spreadsheetID == "" {
		return "", sheets.ErrInvalidSheetURL
	}

	rng := fmt.Sprintf("%s!A:%c", c.sheetName, 'A'+len(sheets.Columns)-1)
	vr := &gsheet.ValueRange{Values: [][]any{sheets.Row(e, c.loc)}}
	resp, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.log.InfoContext(ctx, "Expense appended",
		log.FieldSheetsRef, ref,
		log.FieldEntityID, e.ID,
		log.FieldProduct, e.Product)
	return ref, nil
}
