package offers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"spesacasa/internal/core"
)

type fakeFinder struct {
	offers []Offer
	err    error
	calls  atomic.Int32
}

func (f *fakeFinder) FindOffers(_ context.Context, city string, stores []string) ([]Offer, error) {
	f.calls.Add(1)
	return f.offers, f.err
}

type memPrefs struct {
	mu    sync.Mutex
	p     core.OfferPreferences
	ok    bool
	saves int
}

func (m *memPrefs) LoadPreferences() (core.OfferPreferences, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p, m.ok, nil
}

func (m *memPrefs) SavePreferences(p core.OfferPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p, m.ok = p, true
	m.saves++
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func enabledPrefs() core.OfferPreferences {
	return core.OfferPreferences{City: "Milano", SelectedStores: []string{"Coop", "coop ", "Lidl"}, HasEnabledNotifications: true}
}

func TestCheckerRollingWindow(t *testing.T) {
	clk := &clock{now: time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)}
	finder := &fakeFinder{offers: []Offer{{StoreName: "Coop", FlyerLink: "https://coop.example/flyer", TopOffers: []string{"Pasta 0.79"}}}}
	store := &memPrefs{p: enabledPrefs(), ok: true}
	c, err := NewChecker(finder, store, WithClock(clk.Now))
	if err != nil {
		t.Fatal(err)
	}

	if got := c.Preferences().SelectedStores; len(got) != 2 {
		t.Fatalf("stores not deduplicated: %v", got)
	}
	if !c.Due() {
		t.Fatal("never-checked preferences should be due")
	}
	c.tick(context.Background())
	if c.Due() || store.p.LastCheckDate != clk.Now().UnixMilli() {
		t.Fatalf("last check date not stored: %+v", store.p)
	}

	clk.Advance(23 * time.Hour)
	c.tick(context.Background())
	if n := finder.calls.Load(); n != 1 {
		t.Fatalf("lookup ran inside the window: %d calls", n)
	}

	clk.Advance(time.Hour)
	c.tick(context.Background())
	if n := finder.calls.Load(); n != 2 {
		t.Fatalf("lookup should run after 24h: %d calls", n)
	}

	offers, at := c.Latest()
	if len(offers) != 1 || !at.Equal(clk.Now()) {
		t.Fatalf("Latest() = %v at %v", offers, at)
	}
}

func TestCheckerDisabledNotifications(t *testing.T) {
	p := enabledPrefs()
	p.HasEnabledNotifications = false
	finder := &fakeFinder{}
	c, _ := NewChecker(finder, &memPrefs{p: p, ok: true})
	if c.Due() {
		t.Fatal("disabled preferences should never be due")
	}
	if _, err := c.CheckNow(context.Background()); err != nil {
		t.Fatalf("on-demand check should still run: %v", err)
	}
}

func TestCheckNowErrors(t *testing.T) {
	c, _ := NewChecker(&fakeFinder{}, nil)
	if _, err := c.CheckNow(context.Background()); !errors.Is(err, ErrNoPreferences) {
		t.Fatalf("expected ErrNoPreferences, got %v", err)
	}

	c, _ = NewChecker(nil, &memPrefs{p: enabledPrefs(), ok: true})
	if _, err := c.CheckNow(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	store := &memPrefs{p: enabledPrefs(), ok: true}
	c, _ = NewChecker(&fakeFinder{err: errors.New("boom")}, store)
	if _, err := c.CheckNow(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if store.p.LastCheckDate != 0 {
		t.Fatal("failed lookup must not move the window")
	}
}

func TestUpdatePreferencesKeepsLastCheck(t *testing.T) {
	store := &memPrefs{p: core.OfferPreferences{LastCheckDate: 42}, ok: true}
	c, _ := NewChecker(nil, store)
	got, err := c.UpdatePreferences(core.OfferPreferences{City: " Roma ", SelectedStores: []string{"Conad"}, LastCheckDate: 999})
	if err != nil {
		t.Fatal(err)
	}
	if got.City != "Roma" || got.LastCheckDate != 42 || store.p.LastCheckDate != 42 {
		t.Fatalf("unexpected preferences %+v / %+v", got, store.p)
	}
}

func TestStartStop(t *testing.T) {
	finder := &fakeFinder{offers: []Offer{}}
	c, _ := NewChecker(finder, &memPrefs{p: enabledPrefs(), ok: true})
	ctx := context.Background()
	if err := c.Start(ctx, time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(ctx, time.Hour); !errors.Is(err, ErrRunning) {
		t.Fatalf("second Start = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for finder.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("initial check did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := c.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
}
