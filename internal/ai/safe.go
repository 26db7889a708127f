package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"spesacasa/internal/cache"
	"spesacasa/internal/core"
	"spesacasa/internal/log"
)

// DefaultCacheTTL bounds how long a categorization is reused.
const DefaultCacheTTL = 24 * time.Hour

// Safe never surfaces a remote failure: categorization falls back to
// core.DefaultCategory, analysis to UnavailableMessage and receipt scans to
// ErrReceiptUnavailable. A nil service behaves as permanently unavailable.
type Safe struct {
	svc     Service
	cache   *cache.LRUCache[string]
	timeout time.Duration
	log     *slog.Logger
}

type SafeOption func(*Safe)

// WithCache reuses categorizations per product and store.
func WithCache(c *cache.LRUCache[string]) SafeOption {
	return func(s *Safe) { s.cache = c }
}

// WithTimeout bounds every remote call.
func WithTimeout(d time.Duration) SafeOption {
	return func(s *Safe) { s.timeout = d }
}

func WithLogger(l *slog.Logger) SafeOption {
	return func(s *Safe) { s.log = l }
}

func NewSafe(svc Service, opts ...SafeOption) *Safe {
	s := &Safe{svc: svc, timeout: 20 * time.Second, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = log.WithComponent(s.log, log.ComponentAI)
	return s
}

// Available reports whether a remote service is configured.
func (s *Safe) Available() bool { return s.svc != nil }

// Cache exposes the categorization cache for sweeping, nil when unset.
func (s *Safe) Cache() cache.Cleaner {
	if s.cache == nil {
		return nil
	}
	return s.cache
}

func (s *Safe) Categorize(ctx context.Context, product, store string) string {
	if s.svc == nil || strings.TrimSpace(product) == "" {
		return core.DefaultCategory
	}
	key := strings.ToLower(strings.TrimSpace(product)) + "|" + strings.ToLower(strings.TrimSpace(store))
	if s.cache != nil {
		if c, ok := s.cache.Get(key); ok {
			return c
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	category, err := s.svc.Categorize(ctx, product, store)
	category = strings.TrimSpace(category)
	if err != nil || category == "" {
		s.warn(ctx, "categorize", err)
		return core.DefaultCategory
	}
	if s.cache != nil {
		s.cache.Set(key, category)
	}
	return category
}

func (s *Safe) AnalyzeSpending(ctx context.Context, expenses []core.Expense) string {
	if s.svc == nil || len(expenses) == 0 {
		return UnavailableMessage
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, err := s.svc.AnalyzeSpending(ctx, expenses)
	if err != nil || strings.TrimSpace(text) == "" {
		s.warn(ctx, "analyze", err)
		return UnavailableMessage
	}
	return text
}

// ParseReceipt returns a receipt with at least one item or an error
// wrapping ErrReceiptUnavailable.
func (s *Safe) ParseReceipt(ctx context.Context, image []byte, mimeType string) (*Receipt, error) {
	if s.svc == nil {
		return nil, ErrReceiptUnavailable
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrReceiptUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	r, err := s.svc.ParseReceipt(ctx, image, mimeType)
	if err != nil {
		s.warn(ctx, "receipt", err)
		return nil, fmt.Errorf("%w: %v", ErrReceiptUnavailable, err)
	}
	if r == nil || len(r.Items) == 0 {
		return nil, fmt.Errorf("%w: no items recognized", ErrReceiptUnavailable)
	}
	return r, nil
}

func (s *Safe) warn(ctx context.Context, op string, err error) {
	if err == nil {
		err = errors.New("empty response")
	}
	s.log.WarnContext(ctx, "AI call failed, using fallback",
		log.FieldOperation, op,
		log.FieldError, err)
}
