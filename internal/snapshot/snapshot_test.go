package snapshot

import (
	"encoding/base64"
	"errors"
	"reflect"
	"testing"
	"time"

	"spesacasa/internal/core"
)

func fixedCodec(ms int64) Codec {
	return Codec{Now: func() time.Time { return time.UnixMilli(ms) }}
}

func fullBundle() SyncData {
	return SyncData{
		Expenses: []core.Expense{
			{ID: "e1", Product: `Caffè "Espresso" 250g`, Quantity: 2, UnitPrice: core.Cents(349), Total: core.Cents(698), Store: "Coop", Date: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), Category: "Alimentari", MemberID: "m1"},
			{ID: "e2", Product: "寿司 🍣", Quantity: 1.5, UnitPrice: core.Cents(1000), Total: core.Cents(1500), Store: "Sushi\\Bar", Date: time.Date(2024, 2, 28, 20, 0, 0, 0, time.UTC), Category: ""},
		},
		Incomes:           []core.Income{{ID: "i1", Source: "Stipendio", Amount: core.Cents(250000), Date: time.Date(2024, 2, 27, 0, 0, 0, 0, time.UTC)}},
		Stores:            []core.Store{{ID: "s1", Name: "Coop"}, {ID: "s2", Name: "L'Angolo"}},
		RecurringExpenses: []core.RecurringExpense{{ID: "r1", Product: "Affitto", Amount: core.Cents(80000), Store: "Padrone", Frequency: core.Monthly, NextDueDate: core.NewDate(2024, 1, 31), ReminderDays: 3}},
		ShoppingList:      []core.ShoppingItem{{ID: "sh1", Product: "Uova", Store: "Coop", Completed: true}},
		FamilyProfile: core.FamilyProfile{ID: "fam", FamilyName: "Rossi", GoogleSheetURL: "https://docs.google.com/spreadsheets/d/abc/edit",
			Members: []core.Member{{ID: "m1", Name: "Giulia", Color: "blue", IsAdmin: true}}},
		Categories: []core.CategoryDefinition{{ID: "c1", Name: "Alimentari", Icon: core.IconCart, Color: core.ColorGreen}},
	}
}

func emptyBundle() SyncData {
	return SyncData{
		Expenses:          []core.Expense{},
		Incomes:           []core.Income{},
		Stores:            []core.Store{},
		RecurringExpenses: []core.RecurringExpense{},
		ShoppingList:      []core.ShoppingItem{},
		Categories:        []core.CategoryDefinition{},
		FamilyProfile:     core.FamilyProfile{FamilyName: "Solo", Members: []core.Member{}},
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data SyncData
	}{
		{"many entities with unicode and quotes", fullBundle()},
		{"empty collections", emptyBundle()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fixedCodec(1_700_000_000_123)
			tok, err := c.Encode(tt.data)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := c.Decode(tok)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Timestamp != 1_700_000_000_123 {
				t.Errorf("Timestamp = %d", got.Timestamp)
			}
			got.Timestamp = tt.data.Timestamp
			if !reflect.DeepEqual(got, tt.data) {
				t.Errorf("round trip mismatch\n got %+v\nwant %+v", got, tt.data)
			}
		})
	}
}

func TestEncodeRefreshesTimestamp(t *testing.T) {
	data := fullBundle()
	data.Timestamp = 42
	tok, _ := fixedCodec(99).Encode(data)
	got, err := fixedCodec(0).Decode(tok)
	if err != nil {
		t.Fatal(err)
	}
	if got.Timestamp != 99 {
		t.Fatalf("Timestamp = %d, want 99", got.Timestamp)
	}
}

func TestEncodeNilCollections(t *testing.T) {
	tok, err := Codec{}.Encode(SyncData{FamilyProfile: core.FamilyProfile{FamilyName: "X"}})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Codec{}.Decode(tok)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Expenses == nil || len(got.Expenses) != 0 {
		t.Fatalf("expected empty expenses, got %#v", got.Expenses)
	}
}

func TestDecodeErrors(t *testing.T) {
	enc := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"not json", enc("hello")},
		{"json array", enc(`[1,2,3]`)},
		{"missing expenses", enc(`{"familyProfile":{"familyName":"x"}}`)},
		{"missing profile", enc(`{"expenses":[]}`)},
		{"null profile", enc(`{"expenses":[],"familyProfile":null}`)},
		{"bad field type", enc(`{"expenses":"nope","familyProfile":{}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Codec{}.Decode(tt.token)
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Decode() error = %v, want *DecodeError", err)
			}
		})
	}
}

func TestDecodeToleratesWhitespace(t *testing.T) {
	tok, _ := Codec{}.Encode(fullBundle())
	wrapped := tok[:10] + "\n " + tok[10:] + "\n"
	if _, err := (Codec{}).Decode(wrapped); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
}
