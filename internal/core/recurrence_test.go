package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestAdvance(t *testing.T) {
	tests := []struct {
		name string
		from Date
		freq Frequency
		want Date
	}{
		{"weekly", NewDate(2024, 1, 1), Weekly, NewDate(2024, 1, 8)},
		{"weekly across year", NewDate(2023, 12, 29), Weekly, NewDate(2024, 1, 5)},
		{"monthly plain", NewDate(2024, 3, 15), Monthly, NewDate(2024, 4, 15)},
		{"monthly clamps to leap february", NewDate(2024, 1, 31), Monthly, NewDate(2024, 2, 29)},
		{"monthly clamps to february", NewDate(2023, 1, 31), Monthly, NewDate(2023, 2, 28)},
		{"monthly clamps to 30 day month", NewDate(2024, 3, 31), Monthly, NewDate(2024, 4, 30)},
		{"monthly december rolls year", NewDate(2024, 12, 31), Monthly, NewDate(2025, 1, 31)},
		{"yearly", NewDate(2024, 6, 15), Yearly, NewDate(2025, 6, 15)},
		{"yearly from leap day", NewDate(2024, 2, 29), Yearly, NewDate(2025, 2, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Advance(tt.from, tt.freq)
			if err != nil {
				t.Fatalf("Advance() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Advance(%s, %s) = %s, want %s", tt.from, tt.freq, got, tt.want)
			}
		})
	}

	if _, err := Advance(NewDate(2024, 1, 1), Frequency("daily")); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestDueStatusOf(t *testing.T) {
	today := NewDate(2024, 5, 10)
	tests := []struct {
		name     string
		next     Date
		reminder int
		want     DueStatus
	}{
		{"due today, no reminder", today, 0, DueSoon},
		{"due tomorrow, one day reminder", today.AddDays(1), 1, DueSoon},
		{"due in two days, no reminder", today.AddDays(2), 0, NotDue},
		{"due in three days, three day reminder", today.AddDays(3), 3, DueSoon},
		{"due in four days, three day reminder", today.AddDays(4), 3, NotDue},
		{"due yesterday", today.AddDays(-1), 0, Overdue},
		{"negative reminder treated as zero", today.AddDays(1), -5, NotDue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueStatusOf(today, tt.next, tt.reminder)
			if got != tt.want {
				t.Errorf("DueStatusOf() = %v, want %v", got, tt.want)
			}
			if got.IsDue() != (tt.want != NotDue) {
				t.Errorf("IsDue() = %v for %v", got.IsDue(), got)
			}
		})
	}
}

func TestRecurringValidate(t *testing.T) {
	good := RecurringExpense{Product: "Netflix", Store: "Online", Amount: Cents(1299), Frequency: Monthly, NextDueDate: NewDate(2024, 1, 1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := good
	bad.Frequency = "biweekly"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
	bad = good
	bad.ReminderDays = -1
	if err := bad.Validate(); !errors.Is(err, ErrInvalidReminder) {
		t.Fatalf("expected ErrInvalidReminder, got %v", err)
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 1, 8))
	if err != nil || string(b) != `"2024-01-08"` {
		t.Fatalf("marshal = %s (err=%v)", b, err)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2024-02-29"`), &d); err != nil || !d.Equal(NewDate(2024, 2, 29)) {
		t.Fatalf("unmarshal = %s (err=%v)", d, err)
	}
	if err := json.Unmarshal([]byte(`"2024-02-29T18:30:00Z"`), &d); err != nil || !d.Equal(NewDate(2024, 2, 29)) {
		t.Fatalf("unmarshal timestamp = %s (err=%v)", d, err)
	}
	if err := json.Unmarshal([]byte(`"2024-02-01T00:30:00+01:00"`), &d); err != nil || !d.Equal(NewDate(2024, 2, 1)) {
		t.Fatalf("unmarshal offset timestamp = %s (err=%v)", d, err)
	}
	if err := json.Unmarshal([]byte(`"2024-01-31T23:30:00-05:00"`), &d); err != nil || !d.Equal(NewDate(2024, 1, 31)) {
		t.Fatalf("unmarshal negative offset = %s (err=%v)", d, err)
	}
	if err := json.Unmarshal([]byte(`"29/02/2024"`), &d); err == nil {
		t.Fatalf("expected error for bad layout")
	}
}
