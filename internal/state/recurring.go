package state

import (
	"context"
	"strings"

	"spesacasa/internal/core"
	"spesacasa/internal/log"
)

func (s *Store) AddRecurring(r core.RecurringExpense) (core.RecurringExpense, *Task, error) {
	r.ID = core.NewID()
	r = trimRecurring(r)
	if err := r.Validate(); err != nil {
		return core.RecurringExpense{}, nil, err
	}

	s.mu.Lock()
	tenant := s.tenantID
	s.recurring = prepend(s.recurring, r)
	s.bump(colRecurring)
	created := s.ensureStoresLocked(r.Store)
	s.mu.Unlock()

	t := s.mirror(log.OpCreate, colRecurring, r.ID, func(ctx context.Context) error {
		return s.gw.Recurring().Insert(ctx, tenant, r)
	})
	return r, joinTasks(append([]*Task{t}, s.mirrorStores(tenant, created)...)...), nil
}

func (s *Store) UpdateRecurring(r core.RecurringExpense) (*Task, error) {
	r = trimRecurring(r)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if !replaceByID(s, &s.recurring, r, colRecurring) {
		return nil, ErrNotFound
	}
	return s.mirror(log.OpUpdate, colRecurring, r.ID, func(ctx context.Context) error {
		return s.gw.Recurring().Update(ctx, r.ID, r)
	}), nil
}

func (s *Store) DeleteRecurring(id string) (*Task, error) {
	if !removeByID(s, &s.recurring, id, colRecurring) {
		return nil, ErrNotFound
	}
	return s.mirror(log.OpDelete, colRecurring, id, func(ctx context.Context) error {
		return s.gw.Recurring().Delete(ctx, id)
	}), nil
}

// ProcessRecurring books one occurrence of a recurring expense: it emits an
// expense dated now for the full amount and moves the due date forward one
// period. Both writes are mirrored; the Task reports them together.
func (s *Store) ProcessRecurring(id string) (core.Expense, core.RecurringExpense, *Task, error) {
	s.mu.Lock()
	i := indexOf(s.recurring, id)
	if i < 0 {
		s.mu.Unlock()
		return core.Expense{}, core.RecurringExpense{}, nil, ErrNotFound
	}
	item := s.recurring[i]
	next, err := core.Advance(item.NextDueDate, item.Frequency)
	if err != nil {
		s.mu.Unlock()
		return core.Expense{}, core.RecurringExpense{}, nil, err
	}

	e := core.Expense{
		ID:        core.NewID(),
		Product:   item.Product,
		Quantity:  1,
		UnitPrice: item.Amount,
		Total:     item.Amount,
		Store:     item.Store,
		Date:      s.now(),
		Category:  core.DefaultCategory,
	}
	item.NextDueDate = next

	tenant := s.tenantID
	s.expenses = prepend(s.expenses, e)
	recurring := append([]core.RecurringExpense(nil), s.recurring...)
	recurring[i] = item
	s.recurring = recurring
	s.bump(colExpenses, colRecurring)
	s.mu.Unlock()

	emit := s.mirror(log.OpCreate, colExpenses, e.ID, func(ctx context.Context) error {
		return s.gw.Expenses().Insert(ctx, tenant, e)
	})
	advance := s.mirror(log.OpUpdate, colRecurring, item.ID, func(ctx context.Context) error {
		return s.gw.Recurring().Update(ctx, item.ID, item)
	})
	return e, item, joinTasks(emit, advance), nil
}

func trimRecurring(r core.RecurringExpense) core.RecurringExpense {
	r.Product = strings.TrimSpace(r.Product)
	r.Store = strings.TrimSpace(r.Store)
	return r
}
