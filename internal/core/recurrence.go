package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Frequency is how often a recurring expense repeats.
type Frequency string

// RecurringExpense is a bill template. Processing it emits an Expense and
// moves NextDueDate forward by one period.
type RecurringExpense struct {
	ID           string    `json:"id"`
	Product      string    `json:"product"`
	Amount       Money     `json:"amount"`
	Store        string    `json:"store"`
	Frequency    Frequency `json:"frequency"`
	NextDueDate  Date      `json:"nextDueDate"`
	ReminderDays int       `json:"reminderDays"`
}

// DueStatus is derived from the calendar, never stored.
type DueStatus int

const (
	NotDue DueStatus = iota
	DueSoon
	Overdue
)

func (s DueStatus) String() string {
	switch s {
	case DueSoon:
		return "due_soon"
	case Overdue:
		return "overdue"
	default:
		return "not_due"
	}
}

func (s DueStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// IsDue reports whether the reminder window has opened.
func (s DueStatus) IsDue() bool { return s != NotDue }

// DueStatusOf classifies a due date relative to today. The reminder window
// opens reminderDays before nextDue; past nextDue the item is overdue.
func DueStatusOf(today, nextDue Date, reminderDays int) DueStatus {
	if reminderDays < 0 {
		reminderDays = 0
	}
	switch {
	case today.After(nextDue):
		return Overdue
	case !today.Before(nextDue.AddDays(-reminderDays)):
		return DueSoon
	default:
		return NotDue
	}
}

// Status is DueStatusOf for this item.
func (r RecurringExpense) Status(today Date) DueStatus {
	return DueStatusOf(today, r.NextDueDate, r.ReminderDays)
}

// Advancer moves a due date forward by one period.
type Advancer interface {
	Next(d Date) Date
}

// AdvancerFunc adapts a function to Advancer.
type AdvancerFunc func(Date) Date

func (f AdvancerFunc) Next(d Date) Date { return f(d) }

// AddMonthsClamped adds n calendar months and clamps the day to the end of
// the target month: Jan 31 + 1 month is Feb 29 in leap years, Feb 28 otherwise.
func AddMonthsClamped(d Date, n int) Date {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

var advancers = map[Frequency]Advancer{
	Weekly:  AdvancerFunc(func(d Date) Date { return d.AddDays(7) }),
	Monthly: AdvancerFunc(func(d Date) Date { return AddMonthsClamped(d, 1) }),
	Yearly:  AdvancerFunc(func(d Date) Date { return AddMonthsClamped(d, 12) }),
}

// GetAdvancer returns the advancer registered for a frequency.
func GetAdvancer(f Frequency) (Advancer, error) {
	a, ok := advancers[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFrequency, f)
	}
	return a, nil
}

// Advance returns d moved forward by one period of f.
func Advance(d Date, f Frequency) (Date, error) {
	a, err := GetAdvancer(f)
	if err != nil {
		return Date{}, err
	}
	return a.Next(d), nil
}

func (f Frequency) Valid() bool {
	_, ok := advancers[f]
	return ok
}

func (r RecurringExpense) Validate() error {
	if strings.TrimSpace(r.Product) == "" {
		return ErrEmptyProduct
	}
	if strings.TrimSpace(r.Store) == "" {
		return ErrEmptyStore
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if err := r.NextDueDate.Validate(); err != nil {
		return err
	}
	if r.ReminderDays < 0 {
		return ErrInvalidReminder
	}
	return nil
}
