package views

import (
	"sort"
	"strconv"
	"time"

	"spesacasa/internal/core"
)

// TopCategories is the size of the analytics category breakdown.
const TopCategories = 5

// MonthTotal is the spend for one calendar month.
type MonthTotal struct {
	Year  int        `json:"year"`
	Month int        `json:"month"` // 1-12
	Label string     `json:"label"`
	Total core.Money `json:"total"`
	Count int        `json:"count"`
}

// NamedAmount is an amount aggregated under a category or store name.
type NamedAmount struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
}

// Monthly groups expenses by (year, month) in loc, newest month first.
func Monthly(expenses []core.Expense, loc *time.Location, lang string) []MonthTotal {
	if loc == nil {
		loc = time.UTC
	}
	type ym struct{ y, m int }
	groups := map[ym]*MonthTotal{}
	for _, e := range expenses {
		t := e.Date.In(loc)
		k := ym{t.Year(), int(t.Month())}
		g, ok := groups[k]
		if !ok {
			g = &MonthTotal{Year: k.y, Month: k.m, Label: MonthLabel(lang, k.m, k.y)}
			groups[k] = g
		}
		g.Total = g.Total.Add(e.Total)
		g.Count++
	}
	out := make([]MonthTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out
}

// ByCategory sums totals per category, largest first. A positive limit
// truncates the result.
func ByCategory(expenses []core.Expense, limit int) []NamedAmount {
	return groupBy(expenses, func(e core.Expense) string {
		if e.Category == "" {
			return core.DefaultCategory
		}
		return e.Category
	}, limit)
}

// ByStore sums totals per store, largest first.
func ByStore(expenses []core.Expense) []NamedAmount {
	return groupBy(expenses, func(e core.Expense) string { return e.Store }, 0)
}

func groupBy(expenses []core.Expense, key func(core.Expense) string, limit int) []NamedAmount {
	sums := map[string]core.Money{}
	for _, e := range expenses {
		k := key(e)
		sums[k] = sums[k].Add(e.Total)
	}
	out := make([]NamedAmount, 0, len(sums))
	for name, amt := range sums {
		out = append(out, NamedAmount{Name: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

var monthNames = map[string][12]string{
	"en": {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
	"it": {"Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno", "Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre"},
}

// MonthLabel renders "March 2024" in the requested language, English when
// the language is unknown.
func MonthLabel(lang string, month, year int) string {
	names, ok := monthNames[lang]
	if !ok {
		names = monthNames["en"]
	}
	if month < 1 || month > 12 {
		return ""
	}
	return names[month-1] + " " + strconv.Itoa(year)
}
