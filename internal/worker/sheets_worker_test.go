package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"spesacasa/internal/adapters"
	"spesacasa/internal/amqp"
	"spesacasa/internal/core"
	gwmemory "spesacasa/internal/gateway/memory"
	"spesacasa/internal/log"
	shmemory "spesacasa/internal/sheets/memory"
)

const sheetID = "1AbC_dEf-GhIjKlMnOpQrStUvWxYz"

func expenseMessage(t *testing.T, tenant string) *amqp.ChangeMessage {
	t.Helper()
	e := core.Expense{
		ID:        core.NewID(),
		Product:   "Latte",
		Quantity:  1,
		UnitPrice: core.Cents(150),
		Total:     core.Cents(150),
		Store:     "Coop",
		Category:  "Groceries",
		Date:      time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	msg, err := amqp.NewChangeMessage(tenant, adapters.EntityExpenses, log.OpCreate, e.ID, e)
	if err != nil {
		t.Fatalf("NewChangeMessage: %v", err)
	}
	return msg
}

func setup(t *testing.T, sheetURL string) (*SheetsWorker, *gwmemory.Gateway, *shmemory.Store) {
	t.Helper()
	gw := gwmemory.New()
	p := core.FamilyProfile{ID: "fam", FamilyName: "Rossi", GoogleSheetURL: sheetURL}
	if err := gw.CreateProfile(context.Background(), p); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	sh := shmemory.New(time.UTC)
	return NewSheetsWorker(gw, sh, nil), gw, sh
}

func TestHandleChangeAppendsCreatedExpense(t *testing.T) {
	w, _, sh := setup(t, "https://docs.google.com/spreadsheets/d/"+sheetID+"/edit")

	if err := w.HandleChange(context.Background(), expenseMessage(t, "fam")); err != nil {
		t.Fatalf("HandleChange: %v", err)
	}
	rows := sh.Rows(sheetID)
	if len(rows) != 1 || rows[0][1] != "Latte" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestHandleChangeIgnoresOtherEvents(t *testing.T) {
	w, _, sh := setup(t, sheetID)
	ctx := context.Background()

	update := expenseMessage(t, "fam")
	update.Op = log.OpUpdate
	store, _ := amqp.NewChangeMessage("fam", adapters.EntityStores, log.OpCreate, "s1", core.Store{ID: "s1", Name: "Coop"})
	noTenant := expenseMessage(t, "")
	garbage := &amqp.ChangeMessage{Tenant: "fam", Entity: adapters.EntityExpenses, Op: log.OpCreate, ID: "x", Payload: []byte(`"nope"`)}

	for _, msg := range []*amqp.ChangeMessage{update, store, noTenant, garbage} {
		if err := w.HandleChange(ctx, msg); err != nil {
			t.Fatalf("%s %s: %v", msg.Entity, msg.Op, err)
		}
	}
	if n := len(sh.Rows(sheetID)); n != 0 {
		t.Fatalf("expected no rows, got %d", n)
	}
}

func TestHandleChangeWithoutSheetLink(t *testing.T) {
	for _, url := range []string{"", "not a sheet"} {
		w, _, sh := setup(t, url)
		if err := w.HandleChange(context.Background(), expenseMessage(t, "fam")); err != nil {
			t.Fatalf("url %q: %v", url, err)
		}
		if n := len(sh.Rows(sheetID)); n != 0 {
			t.Fatalf("url %q: unexpected rows", url)
		}
	}
}

func TestProfileChangeInvalidatesCachedSheet(t *testing.T) {
	w, gw, sh := setup(t, "")
	ctx := context.Background()

	if err := w.HandleChange(ctx, expenseMessage(t, "fam")); err != nil {
		t.Fatal(err)
	}

	p := core.FamilyProfile{ID: "fam", FamilyName: "Rossi", GoogleSheetURL: sheetID}
	if err := gw.UpdateProfile(ctx, p); err != nil {
		t.Fatal(err)
	}
	profileMsg, _ := amqp.NewChangeMessage("fam", adapters.EntityProfile, log.OpUpdate, "fam", p)
	if err := w.HandleChange(ctx, profileMsg); err != nil {
		t.Fatal(err)
	}

	if err := w.HandleChange(ctx, expenseMessage(t, "fam")); err != nil {
		t.Fatal(err)
	}
	if n := len(sh.Rows(sheetID)); n != 1 {
		t.Fatalf("expected 1 row after relinking, got %d", n)
	}
}

type failingProfiles struct{}

func (failingProfiles) GetProfile(context.Context, string) (*core.FamilyProfile, error) {
	return nil, errors.New("db down")
}
func (failingProfiles) CreateProfile(context.Context, core.FamilyProfile) error { return nil }
func (failingProfiles) UpdateProfile(context.Context, core.FamilyProfile) error { return nil }

func TestHandleChangeRequeuesOnLookupFailure(t *testing.T) {
	w := NewSheetsWorker(failingProfiles{}, shmemory.New(nil), nil)
	if err := w.HandleChange(context.Background(), expenseMessage(t, "fam")); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
}
