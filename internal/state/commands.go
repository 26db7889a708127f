package state

import (
	"context"
	"slices"
	"strings"

	"spesacasa/internal/core"
	"spesacasa/internal/log"
)

// AddExpense prepends a new expense. A blank category becomes
// core.DefaultCategory and a zero date becomes now. Unknown store names are
// added to the store list.
func (s *Store) AddExpense(e core.Expense) (core.Expense, *Task, error) {
	added, t, err := s.AddExpenses([]core.Expense{e})
	if err != nil {
		return core.Expense{}, nil, err
	}
	return added[0], t, nil
}

// AddExpenses prepends a batch in the given order, ahead of existing
// entries. Nothing is added unless every item is valid.
func (s *Store) AddExpenses(batch []core.Expense) ([]core.Expense, *Task, error) {
	prepared := make([]core.Expense, len(batch))
	for i, e := range batch {
		e = s.prepareExpense(e)
		e.ID = core.NewID()
		if err := e.Validate(); err != nil {
			return nil, nil, err
		}
		prepared[i] = e
	}

	s.mu.Lock()
	tenant := s.tenantID
	s.expenses = append(slices.Clone(prepared), s.expenses...)
	s.bump(colExpenses)
	created := s.ensureStoresLocked(storeNames(prepared)...)
	s.mu.Unlock()

	tasks := make([]*Task, 0, len(prepared)+len(created))
	for _, e := range prepared {
		tasks = append(tasks, s.mirror(log.OpCreate, colExpenses, e.ID, func(ctx context.Context) error {
			return s.gw.Expenses().Insert(ctx, tenant, e)
		}))
	}
	tasks = append(tasks, s.mirrorStores(tenant, created)...)
	return prepared, joinTasks(tasks...), nil
}

// UpdateExpense merges e onto the stored expense with the same id. Blank
// text fields, a zero date and a zero quantity keep their stored values.
// The price pair is taken from e when it sets either half and kept
// otherwise, so a new total rederives the unit price.
func (s *Store) UpdateExpense(e core.Expense) (*Task, error) {
	if e.ID == "" {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	i := indexOf(s.expenses, e.ID)
	if i < 0 {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	merged := mergeExpense(s.expenses[i], e)
	merged.Normalize()
	if err := merged.Validate(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	tenant := s.tenantID
	s.expenses = slices.Clone(s.expenses)
	s.expenses[i] = merged
	s.bump(colExpenses)
	created := s.ensureStoresLocked(merged.Store)
	s.mu.Unlock()

	t := s.mirror(log.OpUpdate, colExpenses, merged.ID, func(ctx context.Context) error {
		return s.gw.Expenses().Update(ctx, merged.ID, merged)
	})
	return joinTasks(append([]*Task{t}, s.mirrorStores(tenant, created)...)...), nil
}

func mergeExpense(cur, patch core.Expense) core.Expense {
	out := cur
	if v := strings.TrimSpace(patch.Product); v != "" {
		out.Product = v
	}
	if v := strings.TrimSpace(patch.Store); v != "" {
		out.Store = v
	}
	if v := strings.TrimSpace(patch.Category); v != "" {
		out.Category = v
	}
	if v := strings.TrimSpace(patch.MemberID); v != "" {
		out.MemberID = v
	}
	if !patch.Date.IsZero() {
		out.Date = patch.Date
	}
	if patch.Quantity != 0 {
		out.Quantity = patch.Quantity
	}
	if !patch.Total.IsZero() || !patch.UnitPrice.IsZero() {
		out.Total = patch.Total
		out.UnitPrice = patch.UnitPrice
	}
	return out
}

// DeleteExpense removes an expense. Expenses are the only entity that needs
// explicit confirmation.
func (s *Store) DeleteExpense(id string, confirmed bool) (*Task, error) {
	if !confirmed {
		return nil, ErrConfirmationRequired
	}
	if !removeByID(s, &s.expenses, id, colExpenses) {
		return nil, ErrNotFound
	}
	return s.mirror(log.OpDelete, colExpenses, id, func(ctx context.Context) error {
		return s.gw.Expenses().Delete(ctx, id)
	}), nil
}

func (s *Store) prepareExpense(e core.Expense) core.Expense {
	e.Normalize()
	if e.Category == "" {
		e.Category = core.DefaultCategory
	}
	if e.Date.IsZero() {
		e.Date = s.now()
	}
	return e
}

func (s *Store) AddIncome(in core.Income) (core.Income, *Task, error) {
	in.ID = core.NewID()
	in.Source = strings.TrimSpace(in.Source)
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	if err := in.Validate(); err != nil {
		return core.Income{}, nil, err
	}

	s.mu.Lock()
	tenant := s.tenantID
	s.incomes = prepend(s.incomes, in)
	s.bump(colIncomes)
	s.mu.Unlock()

	return in, s.mirror(log.OpCreate, colIncomes, in.ID, func(ctx context.Context) error {
		return s.gw.Incomes().Insert(ctx, tenant, in)
	}), nil
}

func (s *Store) DeleteIncome(id string) (*Task, error) {
	if !removeByID(s, &s.incomes, id, colIncomes) {
		return nil, ErrNotFound
	}
	return s.mirror(log.OpDelete, colIncomes, id, func(ctx context.Context) error {
		return s.gw.Incomes().Delete(ctx, id)
	}), nil
}

// AddStore adds a store unless one with the same name (ignoring case)
// exists, in which case the existing store is returned.
func (s *Store) AddStore(name string) (core.Store, *Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Store{}, nil, core.ErrEmptyStore
	}

	s.mu.Lock()
	if i := slices.IndexFunc(s.stores, func(st core.Store) bool { return core.SameName(st.Name, name) }); i >= 0 {
		existing := s.stores[i]
		s.mu.Unlock()
		return existing, completedTask(nil), nil
	}
	tenant := s.tenantID
	created := s.ensureStoresLocked(name)
	s.mu.Unlock()

	return created[0], joinTasks(s.mirrorStores(tenant, created)...), nil
}

func (s *Store) DeleteStore(id string) (*Task, error) {
	if !removeByID(s, &s.stores, id, colStores) {
		return nil, ErrNotFound
	}
	return s.mirror(log.OpDelete, colStores, id, func(ctx context.Context) error {
		return s.gw.Stores().Delete(ctx, id)
	}), nil
}

// ensureStoresLocked adds any names not yet in the store list and returns
// the stores it created.
func (s *Store) ensureStoresLocked(names ...string) []core.Store {
	var created []core.Store
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		exists := slices.ContainsFunc(s.stores, func(st core.Store) bool { return core.SameName(st.Name, name) })
		if exists {
			continue
		}
		st := core.Store{ID: core.NewID(), Name: name}
		s.stores = prepend(s.stores, st)
		created = append(created, st)
	}
	if len(created) > 0 {
		s.bump(colStores)
	}
	return created
}

func (s *Store) mirrorStores(tenant string, created []core.Store) []*Task {
	tasks := make([]*Task, 0, len(created))
	for _, st := range created {
		tasks = append(tasks, s.mirror(log.OpCreate, colStores, st.ID, func(ctx context.Context) error {
			return s.gw.Stores().Insert(ctx, tenant, st)
		}))
	}
	return tasks
}

func storeNames(expenses []core.Expense) []string {
	names := make([]string, len(expenses))
	for i, e := range expenses {
		names[i] = e.Store
	}
	return names
}

func (s *Store) AddCategory(def core.CategoryDefinition) (core.CategoryDefinition, *Task, error) {
	def.ID = core.NewID()
	def.Name = strings.TrimSpace(def.Name)
	if err := def.Validate(); err != nil {
		return core.CategoryDefinition{}, nil, err
	}

	s.mu.Lock()
	tenant := s.tenantID
	s.categories = prepend(s.categories, def)
	s.bump(colCategories)
	s.mu.Unlock()

	return def, s.mirror(log.OpCreate, colCategories, def.ID, func(ctx context.Context) error {
		return s.gw.Categories().Insert(ctx, tenant, def)
	}), nil
}

func (s *Store) UpdateCategory(def core.CategoryDefinition) (*Task, error) {
	def.Name = strings.TrimSpace(def.Name)
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if !replaceByID(s, &s.categories, def, colCategories) {
		return nil, ErrNotFound
	}
	return s.mirror(log.OpUpdate, colCategories, def.ID, func(ctx context.Context) error {
		return s.gw.Categories().Update(ctx, def.ID, def)
	}), nil
}

func (s *Store) DeleteCategory(id string) (*Task, error) {
	if !removeByID(s, &s.categories, id, colCategories) {
		return nil, ErrNotFound
	}
	return s.mirror(log.OpDelete, colCategories, id, func(ctx context.Context) error {
		return s.gw.Categories().Delete(ctx, id)
	}), nil
}

func (s *Store) AddShoppingItem(product, store string) (core.ShoppingItem, *Task, error) {
	item := core.ShoppingItem{ID: core.NewID(), Product: strings.TrimSpace(product), Store: strings.TrimSpace(store)}
	if err := item.Validate(); err != nil {
		return core.ShoppingItem{}, nil, err
	}

	s.mu.Lock()
	tenant := s.tenantID
	s.shopping = prepend(s.shopping, item)
	s.bump(colShopping)
	created := s.ensureStoresLocked(item.Store)
	s.mu.Unlock()

	t := s.mirror(log.OpCreate, colShopping, item.ID, func(ctx context.Context) error {
		return s.gw.Shopping().Insert(ctx, tenant, item)
	})
	return item, joinTasks(append([]*Task{t}, s.mirrorStores(tenant, created)...)...), nil
}

// ToggleShoppingItem flips the completed flag.
func (s *Store) ToggleShoppingItem(id string) (core.ShoppingItem, *Task, error) {
	s.mu.Lock()
	i := indexOf(s.shopping, id)
	if i < 0 {
		s.mu.Unlock()
		return core.ShoppingItem{}, nil, ErrNotFound
	}
	s.shopping = slices.Clone(s.shopping)
	s.shopping[i].Completed = !s.shopping[i].Completed
	item := s.shopping[i]
	s.bump(colShopping)
	s.mu.Unlock()

	return item, s.mirror(log.OpUpdate, colShopping, id, func(ctx context.Context) error {
		return s.gw.Shopping().Update(ctx, id, item)
	}), nil
}

func (s *Store) DeleteShoppingItem(id string) (*Task, error) {
	if !removeByID(s, &s.shopping, id, colShopping) {
		return nil, ErrNotFound
	}
	return s.mirror(log.OpDelete, colShopping, id, func(ctx context.Context) error {
		return s.gw.Shopping().Delete(ctx, id)
	}), nil
}

// ClearCompletedShopping drops every completed item and returns how many
// were removed.
func (s *Store) ClearCompletedShopping() (int, *Task) {
	s.mu.Lock()
	var removed []string
	kept := make([]core.ShoppingItem, 0, len(s.shopping))
	for _, it := range s.shopping {
		if it.Completed {
			removed = append(removed, it.ID)
			continue
		}
		kept = append(kept, it)
	}
	if len(removed) > 0 {
		s.shopping = kept
		s.bump(colShopping)
	}
	s.mu.Unlock()

	tasks := make([]*Task, 0, len(removed))
	for _, id := range removed {
		tasks = append(tasks, s.mirror(log.OpDelete, colShopping, id, func(ctx context.Context) error {
			return s.gw.Shopping().Delete(ctx, id)
		}))
	}
	return len(removed), joinTasks(tasks...)
}

// SetGoogleSheetURL records the spreadsheet expenses are pushed to.
func (s *Store) SetGoogleSheetURL(url string) (*Task, error) {
	s.mu.Lock()
	if s.profile == nil {
		s.mu.Unlock()
		return nil, ErrNoProfile
	}
	p := *s.profile
	p.GoogleSheetURL = strings.TrimSpace(url)
	s.adoptProfileLocked(p)
	s.mu.Unlock()

	return s.mirror(log.OpUpdate, colProfile, p.ID, func(ctx context.Context) error {
		return s.gw.UpdateProfile(ctx, p)
	}), nil
}

func prepend[T any](items []T, v T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, v)
	return append(out, items...)
}

// removeByID and replaceByID swap in a fresh slice so copies handed to
// readers and memoized selectors never alias the new state.
func removeByID[T interface{ EntityID() string }](s *Store, items *[]T, id string, c collection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(*items, id)
	if i < 0 {
		return false
	}
	*items = slices.Delete(slices.Clone(*items), i, i+1)
	s.bump(c)
	return true
}

func replaceByID[T interface{ EntityID() string }](s *Store, items *[]T, v T, c collection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(*items, v.EntityID())
	if i < 0 {
		return false
	}
	next := slices.Clone(*items)
	next[i] = v
	*items = next
	s.bump(c)
	return true
}
