// Package adapters decorates gateways with side effects that follow a
// successful write.
package adapters

import (
	"context"
	"log/slog"

	"spesacasa/internal/amqp"
	"spesacasa/internal/core"
	"spesacasa/internal/gateway"
	"spesacasa/internal/log"
)

// Publisher is satisfied by *amqp.Client.
type Publisher interface {
	Publish(ctx context.Context, msg *amqp.ChangeMessage) error
}

// Entity names used in change messages.
const (
	EntityExpenses   = "expenses"
	EntityIncomes    = "incomes"
	EntityStores     = "stores"
	EntityCategories = "categories"
	EntityRecurring  = "recurring_expenses"
	EntityShopping   = "shopping_list"
	EntityProfile    = "family_profile"
)

// NotifyingGateway publishes a change message after every successful write
// to the wrapped gateway. Publish failures are logged; the write stands.
type NotifyingGateway struct {
	gateway.Gateway
	pub Publisher
	log *slog.Logger

	expenses   *notifyingTable[core.Expense]
	incomes    *notifyingTable[core.Income]
	stores     *notifyingTable[core.Store]
	categories *notifyingTable[core.CategoryDefinition]
	recurring  *notifyingTable[core.RecurringExpense]
	shopping   *notifyingTable[core.ShoppingItem]
}

func NewNotifyingGateway(inner gateway.Gateway, pub Publisher, logger *slog.Logger) *NotifyingGateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &NotifyingGateway{Gateway: inner, pub: pub, log: log.WithComponent(logger, log.ComponentAMQP)}
	g.expenses = wrap(g, EntityExpenses, inner.Expenses())
	g.incomes = wrap(g, EntityIncomes, inner.Incomes())
	g.stores = wrap(g, EntityStores, inner.Stores())
	g.categories = wrap(g, EntityCategories, inner.Categories())
	g.recurring = wrap(g, EntityRecurring, inner.Recurring())
	g.shopping = wrap(g, EntityShopping, inner.Shopping())
	return g
}

func (g *NotifyingGateway) Expenses() gateway.Table[core.Expense]              { return g.expenses }
func (g *NotifyingGateway) Incomes() gateway.Table[core.Income]                { return g.incomes }
func (g *NotifyingGateway) Stores() gateway.Table[core.Store]                  { return g.stores }
func (g *NotifyingGateway) Categories() gateway.Table[core.CategoryDefinition] { return g.categories }
func (g *NotifyingGateway) Recurring() gateway.Table[core.RecurringExpense]    { return g.recurring }
func (g *NotifyingGateway) Shopping() gateway.Table[core.ShoppingItem]         { return g.shopping }

func (g *NotifyingGateway) CreateProfile(ctx context.Context, p core.FamilyProfile) error {
	if err := g.Gateway.CreateProfile(ctx, p); err != nil {
		return err
	}
	g.notify(ctx, p.ID, EntityProfile, log.OpCreate, p.ID, p)
	return nil
}

func (g *NotifyingGateway) UpdateProfile(ctx context.Context, p core.FamilyProfile) error {
	if err := g.Gateway.UpdateProfile(ctx, p); err != nil {
		return err
	}
	g.notify(ctx, p.ID, EntityProfile, log.OpUpdate, p.ID, p)
	return nil
}

func (g *NotifyingGateway) notify(ctx context.Context, tenant, entity, op, id string, v any) {
	msg, err := amqp.NewChangeMessage(tenant, entity, op, id, v)
	if err == nil {
		err = g.pub.Publish(ctx, msg)
	}
	if err != nil {
		g.log.WarnContext(ctx, "Failed to publish change message",
			log.FieldEntity, entity,
			log.FieldEntityID, id,
			log.FieldOperation, op,
			log.FieldError, err)
	}
}

type notifyingTable[T interface{ EntityID() string }] struct {
	gateway.Table[T]
	g      *NotifyingGateway
	entity string
}

func wrap[T interface{ EntityID() string }](g *NotifyingGateway, entity string, inner gateway.Table[T]) *notifyingTable[T] {
	return &notifyingTable[T]{Table: inner, g: g, entity: entity}
}

func (t *notifyingTable[T]) Insert(ctx context.Context, tenantID string, v T) error {
	if err := t.Table.Insert(ctx, tenantID, v); err != nil {
		return err
	}
	t.g.notify(ctx, tenantID, t.entity, log.OpCreate, v.EntityID(), v)
	return nil
}

// Update and Delete do not know the tenant; consumers look it up by id
// when they need it.
func (t *notifyingTable[T]) Update(ctx context.Context, id string, v T) error {
	if err := t.Table.Update(ctx, id, v); err != nil {
		return err
	}
	t.g.notify(ctx, "", t.entity, log.OpUpdate, id, v)
	return nil
}

func (t *notifyingTable[T]) Delete(ctx context.Context, id string) error {
	if err := t.Table.Delete(ctx, id); err != nil {
		return err
	}
	t.g.notify(ctx, "", t.entity, log.OpDelete, id, nil)
	return nil
}
