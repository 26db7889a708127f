// Package worker turns gateway change events into side effects outside
// the household store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spesacasa/internal/adapters"
	"spesacasa/internal/amqp"
	"spesacasa/internal/cache"
	"spesacasa/internal/core"
	"spesacasa/internal/gateway"
	"spesacasa/internal/log"
	"spesacasa/internal/sheets"
)

// SheetsWorker appends every newly created expense to the spreadsheet
// linked from its family profile.
type SheetsWorker struct {
	profiles gateway.Profiles
	sheets   sheets.ExpenseAppender
	ids      *cache.LRUCache[string]
	log      *slog.Logger
}

func NewSheetsWorker(profiles gateway.Profiles, appender sheets.ExpenseAppender, logger *slog.Logger) *SheetsWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SheetsWorker{
		profiles: profiles,
		sheets:   appender,
		ids:      cache.NewLRUCache[string](256, 10*time.Minute),
		log:      log.WithComponent(logger, log.ComponentWorker),
	}
}

// Cache exposes the tenant to spreadsheet id cache for sweeping.
func (w *SheetsWorker) Cache() cache.Cleaner { return w.ids }

// HandleChange is the amqp consumer callback. Returning an error requeues
// the message once.
func (w *SheetsWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	switch {
	case msg.Entity == adapters.EntityProfile:
		// googleSheetUrl may have changed.
		w.ids.Delete(msg.Tenant)
		return nil
	case msg.Entity != adapters.EntityExpenses || msg.Op != log.OpCreate:
		return nil
	}

	if msg.Tenant == "" {
		w.log.WarnContext(ctx, "Expense change without tenant, skipping", log.FieldEntityID, msg.ID)
		return nil
	}

	var e core.Expense
	if err := msg.Decode(&e); err != nil {
		w.log.ErrorContext(ctx, "Malformed expense payload, dropping",
			log.FieldEntityID, msg.ID,
			log.FieldError, err)
		return nil
	}

	spreadsheetID, err := w.spreadsheetID(ctx, msg.Tenant)
	if err != nil {
		return fmt.Errorf("resolve spreadsheet for %s: %w", msg.Tenant, err)
	}
	if spreadsheetID == "" {
		w.log.DebugContext(ctx, "No sheet linked, skipping", log.FieldTenant, msg.Tenant)
		return nil
	}

	ref, err := w.sheets.Append(ctx, spreadsheetID, e)
	if err != nil {
		return fmt.Errorf("append expense %s: %w", e.ID, err)
	}
	w.log.InfoContext(ctx, "Expense pushed to sheet",
		log.FieldTenant, msg.Tenant,
		log.FieldEntityID, e.ID,
		log.FieldSheetsRef, ref)
	return nil
}

// spreadsheetID returns "" when the tenant has no usable sheet link.
func (w *SheetsWorker) spreadsheetID(ctx context.Context, tenant string) (string, error) {
	if id, ok := w.ids.Get(tenant); ok {
		return id, nil
	}
	p, err := w.profiles.GetProfile(ctx, tenant)
	if err != nil {
		return "", err
	}
	id := ""
	if p != nil && p.GoogleSheetURL != "" {
		id, err = sheets.SpreadsheetIDFromURL(p.GoogleSheetURL)
		if errors.Is(err, sheets.ErrInvalidSheetURL) {
			w.log.WarnContext(ctx, "Profile has an invalid sheet url",
				log.FieldTenant, tenant,
				"url", p.GoogleSheetURL)
		}
	}
	w.ids.Set(tenant, id)
	return id, nil
}
