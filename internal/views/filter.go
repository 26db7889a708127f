// Package views derives read models from the household collections.
//
// Every function here is pure: inputs are never modified and results are
// freshly allocated.
package views

import (
	"slices"
	"sort"
	"strings"
	"time"

	"spesacasa/internal/core"
)

// Filter narrows the expense list. Zero fields are unconstrained.
type Filter struct {
	Store     string
	Category  string
	StartDate core.Date
	EndDate   core.Date
}

// IsEmpty reports whether no field is set.
func (f Filter) IsEmpty() bool {
	return f.Store == "" && f.Category == "" && f.StartDate.IsZero() && f.EndDate.IsZero()
}

// Matches applies the filter to one expense. Day bounds are inclusive
// and evaluated in loc.
func (f Filter) Matches(e core.Expense, loc *time.Location) bool {
	if f.Store != "" && e.Store != f.Store {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if !f.StartDate.IsZero() && e.Date.Before(f.StartDate.Start(loc)) {
		return false
	}
	if !f.EndDate.IsZero() && e.Date.After(f.EndDate.End(loc)) {
		return false
	}
	return true
}

// FilterExpenses keeps matching expenses, newest first.
func FilterExpenses(expenses []core.Expense, f Filter, loc *time.Location) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if f.Matches(e, loc) {
			out = append(out, e)
		}
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders by date descending. Equal dates keep their
// relative order, so the most recently inserted of a tie stays ahead.
func SortNewestFirst(expenses []core.Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Date.After(expenses[j].Date)
	})
}

// Total sums the expense totals.
func Total(expenses []core.Expense) core.Money {
	var sum core.Money
	for _, e := range expenses {
		sum = sum.Add(e.Total)
	}
	return sum
}

// UniqueCategories is the sorted union of category names used by expenses
// and names declared as definitions.
func UniqueCategories(expenses []core.Expense, defs []core.CategoryDefinition) []string {
	seen := make(map[string]struct{}, len(expenses)+len(defs))
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	for _, e := range expenses {
		add(e.Category)
	}
	for _, d := range defs {
		add(d.Name)
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// ProductStores maps each product to the store of its most recently dated
// expense. Keys are trimmed and case-folded.
func ProductStores(expenses []core.Expense) map[string]string {
	ordered := slices.Clone(expenses)
	SortNewestFirst(ordered)

	// Fold oldest to newest so newer entries overwrite older ones.
	out := make(map[string]string, len(ordered))
	for i := len(ordered) - 1; i >= 0; i-- {
		e := ordered[i]
		key := ProductKey(e.Product)
		if key == "" || strings.TrimSpace(e.Store) == "" {
			continue
		}
		out[key] = e.Store
	}
	return out
}

// ProductKey normalizes a product name for lookups.
func ProductKey(product string) string {
	return strings.ToLower(strings.TrimSpace(product))
}
