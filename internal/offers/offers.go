// Package offers looks up current store flyers for the household once per
// rolling day and on demand. Everything here stays on the device.
package offers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"spesacasa/internal/core"
	"spesacasa/internal/log"
)

// Window is the minimum spacing between scheduled lookups.
const Window = 24 * time.Hour

var (
	ErrUnavailable   = errors.New("offer lookup unavailable")
	ErrNoPreferences = errors.New("offer preferences need a city and at least one store")
	ErrRunning       = errors.New("offer checker is already running")
)

type Offer struct {
	StoreName  string   `json:"storeName"`
	FlyerLink  string   `json:"flyerLink"`
	ValidUntil string   `json:"validUntil,omitempty"`
	TopOffers  []string `json:"topOffers"`
}

// Finder is the remote lookup.
type Finder interface {
	FindOffers(ctx context.Context, city string, stores []string) ([]Offer, error)
}

// PreferenceStore persists OfferPreferences outside the household state.
type PreferenceStore interface {
	LoadPreferences() (core.OfferPreferences, bool, error)
	SavePreferences(p core.OfferPreferences) error
}

type Option func(*Checker)

func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) { c.log = l }
}

// Checker owns the preferences and the latest lookup result.
type Checker struct {
	finder Finder
	store  PreferenceStore
	now    func() time.Time
	log    *slog.Logger

	mu        sync.Mutex
	prefs     core.OfferPreferences
	latest    []Offer
	checkedAt time.Time
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}

	// serializes lookups
	checkMu sync.Mutex
}

// NewChecker loads saved preferences. A nil finder makes every lookup fail
// with ErrUnavailable.
func NewChecker(finder Finder, store PreferenceStore, opts ...Option) (*Checker, error) {
	c := &Checker{finder: finder, store: store, now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.log = log.WithComponent(c.log, log.ComponentOffers)
	if store != nil {
		p, ok, err := store.LoadPreferences()
		if err != nil {
			return nil, fmt.Errorf("load offer preferences: %w", err)
		}
		if ok {
			c.prefs = p
		}
	}
	c.prefs.SelectedStores = normalizeStores(c.prefs.SelectedStores)
	return c, nil
}

func (c *Checker) Preferences() core.OfferPreferences {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.prefs
	p.SelectedStores = slices.Clone(p.SelectedStores)
	return p
}

// UpdatePreferences saves user-editable fields. The last check date is
// owned by the checker and is kept.
func (c *Checker) UpdatePreferences(p core.OfferPreferences) (core.OfferPreferences, error) {
	c.mu.Lock()
	p.City = strings.TrimSpace(p.City)
	p.SelectedStores = normalizeStores(p.SelectedStores)
	p.LastCheckDate = c.prefs.LastCheckDate
	c.prefs = p
	c.mu.Unlock()
	return p, c.save(p)
}

// Latest returns the last successful lookup and when it ran.
func (c *Checker) Latest() ([]Offer, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.latest), c.checkedAt
}

// Due reports whether a scheduled lookup should run now.
func (c *Checker) Due() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.prefs.HasEnabledNotifications || !configured(c.prefs) {
		return false
	}
	last := time.UnixMilli(c.prefs.LastCheckDate)
	return c.prefs.LastCheckDate == 0 || c.now().Sub(last) >= Window
}

// CheckNow runs a lookup regardless of the window.
func (c *Checker) CheckNow(ctx context.Context) ([]Offer, error) {
	c.checkMu.Lock()
	defer c.checkMu.Unlock()

	p := c.Preferences()
	if !configured(p) {
		return nil, ErrNoPreferences
	}
	if c.finder == nil {
		return nil, ErrUnavailable
	}
	found, err := c.finder.FindOffers(ctx, p.City, p.SelectedStores)
	if err != nil {
		c.log.WarnContext(ctx, "Offer lookup failed", log.FieldError, err, "city", p.City)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if found == nil {
		found = []Offer{}
	}

	now := c.now()
	c.mu.Lock()
	c.latest = slices.Clone(found)
	c.checkedAt = now
	c.prefs.LastCheckDate = now.UnixMilli()
	p = c.prefs
	c.mu.Unlock()

	if err := c.save(p); err != nil {
		c.log.WarnContext(ctx, "Failed to persist offer preferences", log.FieldError, err)
	}
	c.log.InfoContext(ctx, "Offers refreshed", "count", len(found), "city", p.City)
	return found, nil
}

// Start checks on every tick, running a lookup only when Due.
func (c *Checker) Start(ctx context.Context, interval time.Duration) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrRunning
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.mu.Unlock()

	go c.runLoop(ctx, interval)
	c.log.InfoContext(ctx, "Offer checker started", "interval", interval)
	return nil
}

// Stop waits for the loop to exit or ctx to end.
func (c *Checker) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	stop, done := c.stopCh, c.doneCh
	c.mu.Unlock()

	close(stop)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Checker) runLoop(ctx context.Context, interval time.Duration) {
	defer close(c.doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.tick(ctx)
	for {
		select {
		case <-ticker.C:
			c.tick(ctx)
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Checker) tick(ctx context.Context) {
	if !c.Due() {
		return
	}
	// Errors are logged by CheckNow and the next tick retries.
	_, _ = c.CheckNow(ctx)
}

func (c *Checker) save(p core.OfferPreferences) error {
	if c.store == nil {
		return nil
	}
	return c.store.SavePreferences(p)
}

func configured(p core.OfferPreferences) bool {
	return p.City != "" && len(p.SelectedStores) > 0
}

func normalizeStores(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || slices.ContainsFunc(out, func(o string) bool { return core.SameName(o, s) }) {
			continue
		}
		out = append(out, s)
	}
	return out
}
