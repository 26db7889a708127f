// Package state holds the in-memory household for the active tenant.
//
// Local collections are authoritative for the session. Every command changes
// them synchronously and mirrors the change to the gateway in the background;
// remote failures are logged and never rolled back.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"spesacasa/internal/core"
	"spesacasa/internal/gateway"
	"spesacasa/internal/log"
	"spesacasa/internal/views"
)

// LocalProfileID is assigned to imported profiles that carry no id.
const LocalProfileID = "local-family"

// OpReset is the Change op emitted by Reset.
const OpReset = "reset"

var (
	ErrNotFound             = errors.New("not found")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrNoProfile            = errors.New("no family profile")
)

type collection int

const (
	colExpenses collection = iota
	colIncomes
	colStores
	colCategories
	colRecurring
	colShopping
	colProfile
	numCollections
)

var collectionNames = [numCollections]string{
	colExpenses:   "expenses",
	colIncomes:    "incomes",
	colStores:     "stores",
	colCategories: "categories",
	colRecurring:  "recurring_expenses",
	colShopping:   "shopping_list",
	colProfile:    "family_profile",
}

func (c collection) String() string { return collectionNames[c] }

// ProfileCache persists the active profile on the device.
type ProfileCache interface {
	SaveProfile(p core.FamilyProfile) error
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone used for calendar days.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

func WithProfileCache(c ProfileCache) Option {
	return func(s *Store) { s.cache = c }
}

// Change describes a local mutation. Collection is empty when every
// collection was replaced.
type Change struct {
	Collection string `json:"collection,omitempty"`
	Op         string `json:"op"`
	ID         string `json:"id,omitempty"`
}

// WithChangeListener registers fn to run after every local mutation,
// outside the store lock. fn must not block.
func WithChangeListener(fn func(Change)) Option {
	return func(s *Store) { s.onChange = fn }
}

// Store is the household state tree.
type Store struct {
	gw        gateway.Gateway
	log       *slog.Logger
	mirrorLog *slog.Logger
	now       func() time.Time
	loc       *time.Location
	cache     ProfileCache
	onChange  func(Change)

	mu         sync.RWMutex
	tenantID   string
	profile    *core.FamilyProfile
	expenses   []core.Expense
	incomes    []core.Income
	stores     []core.Store
	categories []core.CategoryDefinition
	recurring  []core.RecurringExpense
	shopping   []core.ShoppingItem
	versions   [numCollections]uint64

	memoMu sync.Mutex
	memo   map[string]memoEntry

	inflight  sync.WaitGroup
	writeMu   sync.Mutex
	lastWrite *Task
}

// New returns an empty Store mirroring to gw.
func New(gw gateway.Gateway, opts ...Option) *Store {
	s := &Store{
		gw:   gw,
		log:  slog.Default(),
		now:  time.Now,
		loc:  time.Local,
		memo: make(map[string]memoEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mirrorLog = s.log.With(log.FieldComponent, log.ComponentMirror)
	s.log = s.log.With(log.FieldComponent, log.ComponentState)
	return s
}

// HydrationError lists the collections that could not be fetched. The
// others were loaded normally.
type HydrationError struct {
	Failed map[string]error
}

func (e *HydrationError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for n := range e.Failed {
		names = append(names, n)
	}
	sort.Strings(names)
	return fmt.Sprintf("hydrate: %d collection(s) failed: %s", len(names), strings.Join(names, ", "))
}

// Hydrate replaces every collection with the tenant's remote copy. Fetches
// run concurrently and fail independently; a failed collection is left empty
// (or on defaults for stores and categories).
func (s *Store) Hydrate(ctx context.Context, tenantID string) error {
	failures := map[string]error{}
	var (
		g      errgroup.Group
		failMu sync.Mutex

		expenses   []core.Expense
		incomes    []core.Income
		stores     []core.Store
		categories []core.CategoryDefinition
		recurring  []core.RecurringExpense
		shopping   []core.ShoppingItem
	)
	fail := func(c collection, err error) {
		s.log.WarnContext(ctx, "Collection fetch failed",
			log.FieldOperation, log.OpHydrate,
			log.FieldEntity, c.String(),
			log.FieldTenant, tenantID,
			log.FieldError, err)
		failMu.Lock()
		failures[c.String()] = err
		failMu.Unlock()
	}

	fetchInto(ctx, &g, s.gw.Expenses(), tenantID, colExpenses, &expenses, fail)
	fetchInto(ctx, &g, s.gw.Incomes(), tenantID, colIncomes, &incomes, fail)
	fetchInto(ctx, &g, s.gw.Stores(), tenantID, colStores, &stores, fail)
	fetchInto(ctx, &g, s.gw.Categories(), tenantID, colCategories, &categories, fail)
	fetchInto(ctx, &g, s.gw.Recurring(), tenantID, colRecurring, &recurring, fail)
	fetchInto(ctx, &g, s.gw.Shopping(), tenantID, colShopping, &shopping, fail)
	_ = g.Wait()

	if len(stores) == 0 {
		stores = core.DefaultStores()
	}
	if len(categories) == 0 {
		categories = core.DefaultCategories()
	}
	views.SortNewestFirst(expenses)

	s.mu.Lock()
	s.tenantID = tenantID
	s.expenses = orEmpty(expenses)
	s.incomes = orEmpty(incomes)
	s.stores = stores
	s.categories = categories
	s.recurring = orEmpty(recurring)
	s.shopping = orEmpty(shopping)
	s.bumpAll()
	s.mu.Unlock()
	s.notify(Change{Op: log.OpHydrate})

	s.log.InfoContext(ctx, "Hydrated household",
		log.FieldTenant, tenantID,
		"expenses", len(expenses),
		"failed", len(failures))

	if len(failures) > 0 {
		return &HydrationError{Failed: failures}
	}
	return nil
}

func fetchInto[T any](ctx context.Context, g *errgroup.Group, tbl gateway.Table[T], tenantID string, c collection, dst *[]T, fail func(collection, error)) {
	g.Go(func() error {
		items, err := tbl.FetchAll(ctx, tenantID)
		if err != nil {
			fail(c, err)
			return nil
		}
		*dst = items
		return nil
	})
}

// Reset forgets the tenant and all of its collections. Device-local offer
// preferences are not held here and survive.
func (s *Store) Reset() {
	defer s.notify(Change{Op: OpReset})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenantID = ""
	s.profile = nil
	s.expenses = []core.Expense{}
	s.incomes = []core.Income{}
	s.stores = []core.Store{}
	s.categories = []core.CategoryDefinition{}
	s.recurring = []core.RecurringExpense{}
	s.shopping = []core.ShoppingItem{}
	s.bumpAll()
}

// EnsureProfile makes sure the tenant record exists remotely and adopts it.
// A profile without id gets a fresh one. When the gateway cannot be reached
// the local profile is adopted anyway.
func (s *Store) EnsureProfile(ctx context.Context, p core.FamilyProfile) (core.FamilyProfile, error) {
	if p.ID == "" {
		p.ID = core.NewID()
	}
	if p.Members == nil {
		p.Members = []core.Member{}
	}
	if err := p.Validate(); err != nil {
		return core.FamilyProfile{}, err
	}

	remote, err := s.gw.GetProfile(ctx, p.ID)
	switch {
	case err != nil:
		s.log.WarnContext(ctx, "Profile lookup failed, using local copy",
			log.FieldTenant, p.ID, log.FieldError, err)
	case remote == nil:
		if err := s.gw.CreateProfile(ctx, p); err != nil {
			s.log.WarnContext(ctx, "Profile create failed",
				log.FieldTenant, p.ID, log.FieldError, err)
		}
	default:
		p = *remote
		if p.Members == nil {
			p.Members = []core.Member{}
		}
	}

	s.mu.Lock()
	s.adoptProfileLocked(p)
	s.mu.Unlock()
	return p, nil
}

func (s *Store) adoptProfileLocked(p core.FamilyProfile) {
	s.profile = &p
	s.tenantID = p.ID
	s.bump(colProfile)
	if s.cache != nil {
		if err := s.cache.SaveProfile(p); err != nil {
			s.log.Warn("Profile cache write failed", log.FieldError, err)
		}
	}
}

// Flush waits for in-flight mirror writes.
func (s *Store) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Today is the current calendar day in the store's location.
func (s *Store) Today() core.Date {
	return core.DateOf(s.now(), s.loc)
}

// Location is the zone used for calendar days.
func (s *Store) Location() *time.Location { return s.loc }

func (s *Store) TenantID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tenantID
}

// Profile returns a copy of the active profile.
func (s *Store) Profile() (core.FamilyProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return core.FamilyProfile{}, false
	}
	p := *s.profile
	p.Members = slices.Clone(p.Members)
	return p, true
}

func (s *Store) Expenses() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.expenses)
}

func (s *Store) Incomes() []core.Income {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.incomes)
}

func (s *Store) Stores() []core.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.stores)
}

func (s *Store) Categories() []core.CategoryDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories)
}

func (s *Store) Recurring() []core.RecurringExpense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.recurring)
}

func (s *Store) ShoppingList() []core.ShoppingItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.shopping)
}

// Expense looks up one expense by id.
func (s *Store) Expense(id string) (core.Expense, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.expenses, id)
	if i < 0 {
		return core.Expense{}, false
	}
	return s.expenses[i], true
}

func (s *Store) bump(cols ...collection) {
	for _, c := range cols {
		s.versions[c]++
	}
}

func (s *Store) bumpAll() {
	for c := collection(0); c < numCollections; c++ {
		s.versions[c]++
	}
}

// mirror runs a remote write detached from the caller. Writes reach the
// gateway one at a time in the order they were issued, so a delete never
// overtakes the insert it follows. Failures are logged and reported only
// through the returned Task; they do not hold back later writes.
func (s *Store) mirror(op string, c collection, id string, write func(ctx context.Context) error) *Task {
	s.notify(Change{Collection: c.String(), Op: op, ID: id})
	t := newTask()
	s.writeMu.Lock()
	prev := s.lastWrite
	s.lastWrite = t
	s.writeMu.Unlock()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if prev != nil {
			<-prev.done
		}
		err := write(context.Background())
		if err != nil {
			s.mirrorLog.Warn("Mirror write failed",
				log.FieldOperation, op,
				log.FieldEntity, c.String(),
				log.FieldEntityID, id,
				log.FieldError, err)
			err = fmt.Errorf("%s %s %s: %w", op, c, id, err)
		}
		t.finish(err)
	}()
	return t
}

func (s *Store) notify(c Change) {
	if s.onChange != nil {
		s.onChange(c)
	}
}

func indexOf[T interface{ EntityID() string }](items []T, id string) int {
	return slices.IndexFunc(items, func(v T) bool { return v.EntityID() == id })
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
