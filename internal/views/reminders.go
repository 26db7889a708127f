package views

import (
	"sort"

	"spesacasa/internal/core"
)

// Reminder pairs a recurring expense with its status for a given day.
type Reminder struct {
	Item   core.RecurringExpense `json:"item"`
	Status core.DueStatus        `json:"status"`
}

// DueRecurring returns the items whose reminder window is open on today,
// soonest due date first.
func DueRecurring(items []core.RecurringExpense, today core.Date) []Reminder {
	out := make([]Reminder, 0)
	for _, it := range items {
		if st := it.Status(today); st.IsDue() {
			out = append(out, Reminder{Item: it, Status: st})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Item.NextDueDate.Before(out[j].Item.NextDueDate)
	})
	return out
}
