// Package memory is an in-process gateway for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"spesacasa/internal/core"
	"spesacasa/internal/gateway"
)

// Entity is anything a Table can key.
type Entity interface {
	EntityID() string
}

type row[T Entity] struct {
	tenant string
	value  T
}

// Table keeps rows newest first.
type Table[T Entity] struct {
	mu   sync.RWMutex
	rows []row[T]
}

func (t *Table[T]) FetchAll(ctx context.Context, tenantID string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(t.rows))
	for _, r := range t.rows {
		if r.tenant == tenantID {
			out = append(out, r.value)
		}
	}
	return out, nil
}

func (t *Table[T]) Insert(ctx context.Context, tenantID string, v T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.rows {
		if r.value.EntityID() == v.EntityID() {
			return fmt.Errorf("duplicate id %s", v.EntityID())
		}
	}
	t.rows = append([]row[T]{{tenant: tenantID, value: v}}, t.rows...)
	return nil
}

func (t *Table[T]) Update(ctx context.Context, id string, v T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.rows {
		if t.rows[i].value.EntityID() == id {
			t.rows[i].value = v
			return nil
		}
	}
	return gateway.ErrNotFound
}

func (t *Table[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.rows {
		if t.rows[i].value.EntityID() == id {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			return nil
		}
	}
	return gateway.ErrNotFound
}

// Len is the row count across tenants.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Gateway is a complete in-memory backend.
type Gateway struct {
	mu       sync.RWMutex
	profiles map[string]core.FamilyProfile

	ExpenseTable   Table[core.Expense]
	IncomeTable    Table[core.Income]
	StoreTable     Table[core.Store]
	CategoryTable  Table[core.CategoryDefinition]
	RecurringTable Table[core.RecurringExpense]
	ShoppingTable  Table[core.ShoppingItem]
}

func New() *Gateway {
	return &Gateway{profiles: make(map[string]core.FamilyProfile)}
}

var _ gateway.Gateway = (*Gateway)(nil)

func (g *Gateway) Expenses() gateway.Table[core.Expense]              { return &g.ExpenseTable }
func (g *Gateway) Incomes() gateway.Table[core.Income]                { return &g.IncomeTable }
func (g *Gateway) Stores() gateway.Table[core.Store]                  { return &g.StoreTable }
func (g *Gateway) Categories() gateway.Table[core.CategoryDefinition] { return &g.CategoryTable }
func (g *Gateway) Recurring() gateway.Table[core.RecurringExpense]    { return &g.RecurringTable }
func (g *Gateway) Shopping() gateway.Table[core.ShoppingItem]         { return &g.ShoppingTable }

func (g *Gateway) GetProfile(ctx context.Context, tenantID string) (*core.FamilyProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.profiles[tenantID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (g *Gateway) CreateProfile(ctx context.Context, p core.FamilyProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.profiles[p.ID]; ok {
		return fmt.Errorf("profile %s already exists", p.ID)
	}
	g.profiles[p.ID] = p
	return nil
}

func (g *Gateway) UpdateProfile(ctx context.Context, p core.FamilyProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.profiles[p.ID]; !ok {
		return gateway.ErrNotFound
	}
	g.profiles[p.ID] = p
	return nil
}

func (g *Gateway) Close() error { return nil }
