package state

import (
	"context"
	"errors"
	"sync"

	"spesacasa/internal/core"
	"spesacasa/internal/gateway"
)

var errUnavailable = errors.New("gateway unavailable")

// stubTable blocks every call until release is closed, then fails with err.
type stubTable[T any] struct {
	release <-chan struct{}
	err     error
	items   []T
}

func (f *stubTable[T]) wait(ctx context.Context) error {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *stubTable[T]) FetchAll(ctx context.Context, _ string) ([]T, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.items, nil
}

func (f *stubTable[T]) Insert(ctx context.Context, _ string, _ T) error { return f.wait(ctx) }
func (f *stubTable[T]) Update(ctx context.Context, _ string, _ T) error { return f.wait(ctx) }
func (f *stubTable[T]) Delete(ctx context.Context, _ string) error      { return f.wait(ctx) }

type stubGateway struct {
	release <-chan struct{}
	err     error

	expenses   stubTable[core.Expense]
	incomes    stubTable[core.Income]
	stores     stubTable[core.Store]
	categories stubTable[core.CategoryDefinition]
	recurring  stubTable[core.RecurringExpense]
	shopping   stubTable[core.ShoppingItem]
}

// newStalledGateway never answers until the returned release func runs.
func newStalledGateway() (*stubGateway, func()) {
	ch := make(chan struct{})
	g := newStubGateway(ch, errUnavailable)
	var once sync.Once
	return g, func() { once.Do(func() { close(ch) }) }
}

func newFailingGateway() *stubGateway {
	return newStubGateway(nil, errUnavailable)
}

func newStubGateway(release <-chan struct{}, err error) *stubGateway {
	g := &stubGateway{release: release, err: err}
	g.expenses = stubTable[core.Expense]{release: release, err: err}
	g.incomes = stubTable[core.Income]{release: release, err: err}
	g.stores = stubTable[core.Store]{release: release, err: err}
	g.categories = stubTable[core.CategoryDefinition]{release: release, err: err}
	g.recurring = stubTable[core.RecurringExpense]{release: release, err: err}
	g.shopping = stubTable[core.ShoppingItem]{release: release, err: err}
	return g
}

func (g *stubGateway) Expenses() gateway.Table[core.Expense]              { return &g.expenses }
func (g *stubGateway) Incomes() gateway.Table[core.Income]                { return &g.incomes }
func (g *stubGateway) Stores() gateway.Table[core.Store]                  { return &g.stores }
func (g *stubGateway) Categories() gateway.Table[core.CategoryDefinition] { return &g.categories }
func (g *stubGateway) Recurring() gateway.Table[core.RecurringExpense]    { return &g.recurring }
func (g *stubGateway) Shopping() gateway.Table[core.ShoppingItem]         { return &g.shopping }
func (g *stubGateway) Close() error                                       { return nil }

func (g *stubGateway) GetProfile(ctx context.Context, _ string) (*core.FamilyProfile, error) {
	return nil, g.expenses.wait(ctx)
}

func (g *stubGateway) CreateProfile(ctx context.Context, _ core.FamilyProfile) error {
	return g.expenses.wait(ctx)
}

func (g *stubGateway) UpdateProfile(ctx context.Context, _ core.FamilyProfile) error {
	return g.expenses.wait(ctx)
}

type memCache struct {
	mu    sync.Mutex
	saved []core.FamilyProfile
}

func (c *memCache) SaveProfile(p core.FamilyProfile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved = append(c.saved, p)
	return nil
}

func (c *memCache) last() (core.FamilyProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.saved) == 0 {
		return core.FamilyProfile{}, false
	}
	return c.saved[len(c.saved)-1], true
}
