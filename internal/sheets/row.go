package sheets

import (
	"time"

	"spesacasa/internal/core"
)

// Columns is the header of the expense sheet, one entry per row cell.
var Columns = []string{"Date", "Product", "Quantity", "Unit price", "Total", "Store", "Category"}

// Row renders an expense the way it is written to the sheet. The date is
// the calendar day in loc and amounts are currency units.
func Row(e core.Expense, loc *time.Location) []any {
	if loc == nil {
		loc = time.UTC
	}
	category := e.Category
	if category == "" {
		category = core.DefaultCategory
	}
	return []any{
		e.Date.In(loc).Format("2006-01-02"),
		e.Product,
		e.Quantity,
		e.UnitPrice.Units(),
		e.Total.Units(),
		e.Store,
		category,
	}
}
