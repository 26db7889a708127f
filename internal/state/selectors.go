package state

import (
	"fmt"
	"maps"
	"slices"

	"spesacasa/internal/core"
	"spesacasa/internal/views"
)

// Selectors are recomputed only when one of the collections they read has
// changed since the cached result, or when called with new arguments.

const maxMemoEntries = 256

type memoEntry struct {
	versions [numCollections]uint64
	value    any
}

func memoize[T any](s *Store, key string, compute func() T, deps ...collection) T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var current [numCollections]uint64
	for _, c := range deps {
		current[c] = s.versions[c]
	}

	s.memoMu.Lock()
	if e, ok := s.memo[key]; ok && e.versions == current {
		s.memoMu.Unlock()
		return e.value.(T)
	}
	s.memoMu.Unlock()

	v := compute()

	s.memoMu.Lock()
	if len(s.memo) >= maxMemoEntries {
		clear(s.memo)
	}
	s.memo[key] = memoEntry{versions: current, value: v}
	s.memoMu.Unlock()
	return v
}

// FilteredExpenses applies f, newest first.
func (s *Store) FilteredExpenses(f views.Filter) []core.Expense {
	key := fmt.Sprintf("filter|%q|%q|%s|%s", f.Store, f.Category, f.StartDate, f.EndDate)
	return slices.Clone(memoize(s, key, func() []core.Expense {
		return views.FilterExpenses(s.expenses, f, s.loc)
	}, colExpenses))
}

// FilteredTotal sums the expenses matching f.
func (s *Store) FilteredTotal(f views.Filter) core.Money {
	return views.Total(s.FilteredExpenses(f))
}

// CategoryNames lists every category in use or defined.
func (s *Store) CategoryNames() []string {
	return slices.Clone(memoize(s, "categories", func() []string {
		return views.UniqueCategories(s.expenses, s.categories)
	}, colExpenses, colCategories))
}

// DueRecurring lists items whose reminder window is open on today.
func (s *Store) DueRecurring(today core.Date) []views.Reminder {
	return slices.Clone(memoize(s, "due|"+today.String(), func() []views.Reminder {
		return views.DueRecurring(s.recurring, today)
	}, colRecurring))
}

// ProductStores maps product names to their last known store.
func (s *Store) ProductStores() map[string]string {
	return maps.Clone(memoize(s, "product-stores", func() map[string]string {
		return views.ProductStores(s.expenses)
	}, colExpenses))
}

// SuggestStore is the last store the product was bought at, if any.
func (s *Store) SuggestStore(product string) (string, bool) {
	store, ok := s.ProductStores()[views.ProductKey(product)]
	return store, ok
}

func (s *Store) MonthlyTotals(lang string) []views.MonthTotal {
	return slices.Clone(memoize(s, "monthly|"+lang, func() []views.MonthTotal {
		return views.Monthly(s.expenses, s.loc, lang)
	}, colExpenses))
}

// TopCategories is the analytics category breakdown.
func (s *Store) TopCategories() []views.NamedAmount {
	return slices.Clone(memoize(s, "by-category", func() []views.NamedAmount {
		return views.ByCategory(s.expenses, views.TopCategories)
	}, colExpenses))
}

func (s *Store) StoreTotals() []views.NamedAmount {
	return slices.Clone(memoize(s, "by-store", func() []views.NamedAmount {
		return views.ByStore(s.expenses)
	}, colExpenses))
}

// IncomeTotal sums every income entry.
func (s *Store) IncomeTotal() core.Money {
	return memoize(s, "income-total", func() core.Money {
		var sum core.Money
		for _, in := range s.incomes {
			sum = sum.Add(in.Amount)
		}
		return sum
	}, colIncomes)
}
