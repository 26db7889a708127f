package views

import (
	"reflect"
	"testing"
	"time"

	"spesacasa/internal/core"
)

func at(y, m, d, h int) time.Time {
	return time.Date(y, time.Month(m), d, h, 0, 0, 0, time.UTC)
}

func expense(id, product, store, category string, date time.Time, cents int64) core.Expense {
	return core.Expense{ID: id, Product: product, Store: store, Category: category, Date: date, Quantity: 1, UnitPrice: core.Cents(cents), Total: core.Cents(cents)}
}

func sample() []core.Expense {
	return []core.Expense{
		expense("a", "Latte", "Coop", "Groceries", at(2024, 3, 2, 9), 150),
		expense("b", "Benzina", "Eni", "Transport", at(2024, 2, 28, 18), 5000),
		expense("c", "Pane", "Coop", "Groceries", at(2024, 3, 31, 23), 200),
		expense("d", "Latte", "Lidl", "Groceries", at(2024, 1, 15, 12), 120),
		expense("e", "Cinema", "UCI", "Fun", at(2023, 12, 24, 20), 1800),
	}
}

func ids(es []core.Expense) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func TestFilterExpenses(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter returns all newest first", Filter{}, []string{"c", "a", "b", "d", "e"}},
		{"store", Filter{Store: "Coop"}, []string{"c", "a"}},
		{"category", Filter{Category: "Groceries"}, []string{"c", "a", "d"}},
		{"store is exact", Filter{Store: "coop"}, []string{}},
		{"inclusive day range", Filter{StartDate: core.NewDate(2024, 2, 28), EndDate: core.NewDate(2024, 3, 31)}, []string{"c", "a", "b"}},
		{"start only", Filter{StartDate: core.NewDate(2024, 3, 1)}, []string{"c", "a"}},
		{"end only", Filter{EndDate: core.NewDate(2024, 1, 15)}, []string{"d", "e"}},
		{"combined", Filter{Category: "Groceries", EndDate: core.NewDate(2024, 3, 2)}, []string{"a", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FilterExpenses(sample(), tt.filter, time.UTC))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterExpenses() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterIdempotent(t *testing.T) {
	f := Filter{Category: "Groceries", StartDate: core.NewDate(2024, 1, 1)}
	once := FilterExpenses(sample(), f, time.UTC)
	twice := FilterExpenses(once, f, time.UTC)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("filter not idempotent: %v vs %v", ids(once), ids(twice))
	}
}

func TestFilterUsesLocation(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 23:30 UTC on Mar 31 is already Apr 1 in Rome.
	es := []core.Expense{expense("x", "Pizza", "Da Mario", "Dining", at(2024, 3, 31, 23).Add(30*time.Minute), 900)}
	got := FilterExpenses(es, Filter{EndDate: core.NewDate(2024, 3, 31)}, rome)
	if len(got) != 0 {
		t.Fatalf("expected expense outside the Rome day range")
	}
	got = FilterExpenses(es, Filter{StartDate: core.NewDate(2024, 4, 1), EndDate: core.NewDate(2024, 4, 1)}, rome)
	if len(got) != 1 {
		t.Fatalf("expected expense inside the Rome day range")
	}
}

func TestTotal(t *testing.T) {
	if got := Total(sample()); got.Cents != 7270 {
		t.Fatalf("Total() = %d, want 7270", got.Cents)
	}
	if got := Total(nil); got.Cents != 0 {
		t.Fatalf("Total(nil) = %d", got.Cents)
	}
}

func TestUniqueCategories(t *testing.T) {
	defs := []core.CategoryDefinition{{Name: "Home"}, {Name: "Groceries"}, {Name: " "}}
	got := UniqueCategories(sample(), defs)
	want := []string{"Fun", "Groceries", "Home", "Transport"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UniqueCategories() = %v, want %v", got, want)
	}
}

func TestProductStoresPicksLatestDate(t *testing.T) {
	es := []core.Expense{
		expense("1", "Latte", "Lidl", "", at(2024, 1, 1, 9), 100),
		expense("2", "latte ", "Esselunga", "", at(2024, 3, 1, 9), 100),
		expense("3", "Latte", "Coop", "", at(2024, 2, 1, 9), 100),
		expense("4", "Pane", "Forno", "", at(2023, 5, 1, 9), 100),
	}
	// Every rotation of the input must agree.
	for r := 0; r < len(es); r++ {
		rotated := append(append([]core.Expense{}, es[r:]...), es[:r]...)
		got := ProductStores(rotated)
		if got["latte"] != "Esselunga" {
			t.Fatalf("rotation %d: latte -> %q, want Esselunga", r, got["latte"])
		}
		if got["pane"] != "Forno" {
			t.Fatalf("rotation %d: pane -> %q, want Forno", r, got["pane"])
		}
	}
	if es[0].ID != "1" {
		t.Fatalf("input was reordered")
	}
}

func TestMonthly(t *testing.T) {
	got := Monthly(sample(), time.UTC, "it")
	want := []MonthTotal{
		{Year: 2024, Month: 3, Label: "Marzo 2024", Total: core.Cents(350), Count: 2},
		{Year: 2024, Month: 2, Label: "Febbraio 2024", Total: core.Cents(5000), Count: 1},
		{Year: 2024, Month: 1, Label: "Gennaio 2024", Total: core.Cents(120), Count: 1},
		{Year: 2023, Month: 12, Label: "Dicembre 2023", Total: core.Cents(1800), Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Monthly() = %+v\nwant %+v", got, want)
	}
	if l := MonthLabel("xx", 5, 2024); l != "May 2024" {
		t.Fatalf("fallback label = %q", l)
	}
}

func TestByCategoryAndStore(t *testing.T) {
	es := sample()
	es = append(es,
		expense("f", "Farmaco", "Farmacia", "Health", at(2024, 3, 3, 9), 700),
		expense("g", "Regalo", "Amazon", "Gifts", at(2024, 3, 3, 9), 2500),
		expense("h", "Varie", "Coop", "", at(2024, 3, 3, 9), 10),
	)
	cats := ByCategory(es, TopCategories)
	if len(cats) != TopCategories {
		t.Fatalf("expected %d categories, got %d", TopCategories, len(cats))
	}
	wantOrder := []string{"Transport", "Gifts", "Fun", "Health", "Groceries"}
	for i, c := range cats {
		if c.Name != wantOrder[i] {
			t.Fatalf("category %d = %s, want %s", i, c.Name, wantOrder[i])
		}
	}
	all := ByCategory(es, 0)
	if all[len(all)-1].Name != core.DefaultCategory {
		t.Fatalf("blank category should aggregate under %q, got %v", core.DefaultCategory, all)
	}

	stores := ByStore(es)
	if stores[0].Name != "Eni" || stores[0].Amount.Cents != 5000 {
		t.Fatalf("unexpected top store %+v", stores[0])
	}
}

func TestDueRecurring(t *testing.T) {
	today := core.NewDate(2024, 5, 10)
	items := []core.RecurringExpense{
		{ID: "later", NextDueDate: today.AddDays(2), ReminderDays: 0},
		{ID: "tomorrow", NextDueDate: today.AddDays(1), ReminderDays: 1},
		{ID: "today", NextDueDate: today, ReminderDays: 0},
		{ID: "late", NextDueDate: today.AddDays(-3), ReminderDays: 0},
	}
	got := DueRecurring(items, today)
	var gotIDs []string
	for _, r := range got {
		gotIDs = append(gotIDs, r.Item.ID)
	}
	want := []string{"late", "today", "tomorrow"}
	if !reflect.DeepEqual(gotIDs, want) {
		t.Fatalf("DueRecurring() = %v, want %v", gotIDs, want)
	}
	if got[0].Status != core.Overdue || got[1].Status != core.DueSoon {
		t.Fatalf("unexpected statuses %v %v", got[0].Status, got[1].Status)
	}
}
