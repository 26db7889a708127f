package memory

import (
	"context"
	"testing"
	"time"

	"spesacasa/internal/core"
)

func TestMemoryStoreAppendAndRows(t *testing.T) {
	s := New(nil)
	e := core.Expense{
		Product:  "Latte",
		Quantity: 1,
		Total:    core.Cents(150),
		Store:    "Coop",
		Date:     time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	}

	ref, err := s.Append(context.Background(), "abc", e)
	if err != nil || ref != "mem:abc:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	if ref, _ = s.Append(context.Background(), "abc", e); ref != "mem:abc:2" {
		t.Fatalf("second ref = %q", ref)
	}

	rows := s.Rows("abc")
	if len(rows) != 2 || rows[0][1] != "Latte" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if len(s.Rows("other")) != 0 {
		t.Fatalf("rows leaked across spreadsheets")
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := New(time.UTC)
	if _, err := s.Append(context.Background(), "abc", core.Expense{}); err == nil {
		t.Fatal("expected validation error")
	}
	valid := core.Expense{Product: "x", Quantity: 1, Total: core.Cents(1), Store: "y", Date: time.Now()}
	if _, err := s.Append(context.Background(), "", valid); err == nil {
		t.Fatal("expected error for empty spreadsheet id")
	}
}
