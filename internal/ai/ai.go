// Package ai wraps the hosted language model used for categorization,
// spending summaries and receipt scanning. Every call is best effort.
package ai

import (
	"context"
	"errors"
	"time"

	"spesacasa/internal/core"
)

// UnavailableMessage replaces the spending summary when the service fails.
const UnavailableMessage = "Analysis is not available right now. Please try again later."

var (
	// ErrUnavailable is returned by services that are not configured.
	ErrUnavailable = errors.New("ai service unavailable")
	// ErrReceiptUnavailable is the only error Safe.ParseReceipt returns.
	ErrReceiptUnavailable = errors.New("receipt scanning unavailable")
)

// Service is the remote model.
type Service interface {
	Categorize(ctx context.Context, product, store string) (string, error)
	AnalyzeSpending(ctx context.Context, expenses []core.Expense) (string, error)
	ParseReceipt(ctx context.Context, image []byte, mimeType string) (*Receipt, error)
}

// Receipt is what a scan extracts from a photo.
type Receipt struct {
	Store string        `json:"store"`
	Date  string        `json:"date"` // 2006-01-02 when readable
	Items []ReceiptItem `json:"items"`
}

type ReceiptItem struct {
	Product   string     `json:"product"`
	Quantity  float64    `json:"quantity"`
	UnitPrice core.Money `json:"unitPrice"`
	Total     core.Money `json:"total"`
	Category  string     `json:"category"`
}

// Expenses turns the scanned items into expenses in scan order. An
// unreadable date becomes now; a missing quantity becomes 1.
func (r *Receipt) Expenses(now time.Time, loc *time.Location) []core.Expense {
	if loc == nil {
		loc = time.UTC
	}
	date := now
	if d, err := core.ParseDate(r.Date); err == nil {
		// Noon keeps the day stable across nearby zones.
		date = d.Start(loc).Add(12 * time.Hour)
	}
	out := make([]core.Expense, 0, len(r.Items))
	for _, it := range r.Items {
		q := it.Quantity
		if q <= 0 {
			q = 1
		}
		e := core.Expense{
			Product:   it.Product,
			Quantity:  q,
			UnitPrice: it.UnitPrice,
			Total:     it.Total,
			Store:     r.Store,
			Date:      date,
			Category:  it.Category,
		}
		e.Normalize()
		out = append(out, e)
	}
	return out
}
