package adapters

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"spesacasa/internal/amqp"
	"spesacasa/internal/core"
	"spesacasa/internal/gateway/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.ChangeMessage
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *amqp.ChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNotifyingGatewayPublishesAfterWrites(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	g := NewNotifyingGateway(memory.New(), pub, quiet())

	e := core.Expense{ID: "e1", Product: "Latte", Store: "Coop", Quantity: 1, Total: core.Cents(150), Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := g.Expenses().Insert(ctx, "fam", e); err != nil {
		t.Fatal(err)
	}
	if err := g.Expenses().Update(ctx, "e1", e); err != nil {
		t.Fatal(err)
	}
	if err := g.Expenses().Delete(ctx, "e1"); err != nil {
		t.Fatal(err)
	}
	if err := g.CreateProfile(ctx, core.FamilyProfile{ID: "fam", FamilyName: "Rossi"}); err != nil {
		t.Fatal(err)
	}

	if len(pub.msgs) != 4 {
		t.Fatalf("published %d messages, want 4", len(pub.msgs))
	}
	first := pub.msgs[0]
	if first.Entity != EntityExpenses || first.Op != "create" || first.Tenant != "fam" || first.ID != "e1" {
		t.Fatalf("first message = %+v", first)
	}
	var decoded core.Expense
	if err := first.Decode(&decoded); err != nil || decoded.Product != "Latte" || decoded.Total.Cents != 150 {
		t.Fatalf("payload = %+v, %v", decoded, err)
	}
	if pub.msgs[2].Op != "delete" || len(pub.msgs[2].Payload) != 0 {
		t.Fatalf("delete message = %+v", pub.msgs[2])
	}
	if pub.msgs[3].Entity != EntityProfile {
		t.Fatalf("profile message = %+v", pub.msgs[3])
	}
}

func TestNotifyingGatewaySkipsFailedWrites(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	g := NewNotifyingGateway(memory.New(), pub, quiet())

	if err := g.Stores().Delete(ctx, "missing"); err == nil {
		t.Fatal("expected not found")
	}
	if len(pub.msgs) != 0 {
		t.Fatalf("published %d messages for a failed write", len(pub.msgs))
	}
}

func TestNotifyingGatewayIgnoresPublishErrors(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	g := NewNotifyingGateway(memory.New(), pub, quiet())

	if err := g.Shopping().Insert(ctx, "fam", core.ShoppingItem{ID: "s1", Product: "Pane"}); err != nil {
		t.Fatalf("Insert() = %v, publish errors must not fail the write", err)
	}
	items, _ := g.Shopping().FetchAll(ctx, "fam")
	if len(items) != 1 {
		t.Fatal("write lost")
	}
}
