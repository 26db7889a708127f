// Package http exposes the household state over a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"spesacasa/internal/ai"
	"spesacasa/internal/events"
	"spesacasa/internal/log"
	"spesacasa/internal/middleware/ratelimit"
	"spesacasa/internal/offers"
	"spesacasa/internal/snapshot"
	"spesacasa/internal/state"
)

// Deps are the collaborators the handlers call. State is required; a nil
// AI, Offers, Events or Limiter disables the matching feature.
type Deps struct {
	State   *state.Store
	AI      *ai.Safe
	Offers  *offers.Checker
	Events  *events.Hub
	Limiter *ratelimit.Limiter
	Codec   snapshot.Codec
	Locale  string

	// AllowedOrigins are extra websocket origin patterns besides the host.
	AllowedOrigins []string
	Logger         *slog.Logger
}

type Server struct {
	http.Server
	state   *state.Store
	ai      *ai.Safe
	offers  *offers.Checker
	hub     *events.Hub
	limiter *ratelimit.Limiter
	codec   snapshot.Codec
	locale  string
	log     *slog.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.AI == nil {
		d.AI = ai.NewSafe(nil)
	}
	if d.Locale == "" {
		d.Locale = "it"
	}
	s := &Server{
		state:   d.State,
		ai:      d.AI,
		offers:  d.Offers,
		hub:     d.Events,
		limiter: d.Limiter,
		codec:   d.Codec,
		locale:  d.Locale,
		log:     log.WithComponent(d.Logger, log.ComponentHTTP),
	}

	r := mux.NewRouter()
	r.Use(s.withRequestLogging, withSecurityHeaders)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	s.registerRoutes(api, d.AllowedOrigins)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes(api *mux.Router, allowedOrigins []string) {
	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.Handle("/expenses", s.limited(s.handleCreateExpense)).Methods(http.MethodPost)
	api.Handle("/expenses/receipt", s.limited(s.handleScanReceipt)).Methods(http.MethodPost)
	api.HandleFunc("/expenses.csv", s.handleExportCSV).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id}", s.handleGetExpense).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id}", s.handleUpdateExpense).Methods(http.MethodPut)
	api.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)

	api.HandleFunc("/incomes", s.handleListIncomes).Methods(http.MethodGet)
	api.HandleFunc("/incomes", s.handleCreateIncome).Methods(http.MethodPost)
	api.HandleFunc("/incomes/{id}", s.handleDeleteIncome).Methods(http.MethodDelete)

	api.HandleFunc("/stores", s.handleListStores).Methods(http.MethodGet)
	api.HandleFunc("/stores", s.handleCreateStore).Methods(http.MethodPost)
	api.HandleFunc("/stores/{id}", s.handleDeleteStore).Methods(http.MethodDelete)

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id}", s.handleUpdateCategory).Methods(http.MethodPut)
	api.HandleFunc("/categories/{id}", s.handleDeleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/recurring", s.handleListRecurring).Methods(http.MethodGet)
	api.HandleFunc("/recurring", s.handleCreateRecurring).Methods(http.MethodPost)
	api.HandleFunc("/recurring/due", s.handleDueRecurring).Methods(http.MethodGet)
	api.HandleFunc("/recurring/{id}", s.handleUpdateRecurring).Methods(http.MethodPut)
	api.HandleFunc("/recurring/{id}", s.handleDeleteRecurring).Methods(http.MethodDelete)
	api.HandleFunc("/recurring/{id}/process", s.handleProcessRecurring).Methods(http.MethodPost)

	api.HandleFunc("/shopping", s.handleListShopping).Methods(http.MethodGet)
	api.HandleFunc("/shopping", s.handleCreateShopping).Methods(http.MethodPost)
	api.HandleFunc("/shopping/completed", s.handleClearCompleted).Methods(http.MethodDelete)
	api.HandleFunc("/shopping/{id}/toggle", s.handleToggleShopping).Methods(http.MethodPost)
	api.HandleFunc("/shopping/{id}", s.handleDeleteShopping).Methods(http.MethodDelete)

	api.HandleFunc("/analytics/monthly", s.handleMonthly).Methods(http.MethodGet)
	api.HandleFunc("/analytics/categories", s.handleTopCategories).Methods(http.MethodGet)
	api.HandleFunc("/analytics/stores", s.handleStoreTotals).Methods(http.MethodGet)
	api.Handle("/analytics/summary", s.limited(s.handleSummary)).Methods(http.MethodGet)
	api.HandleFunc("/suggestions/stores", s.handleStoreSuggestions).Methods(http.MethodGet)

	api.HandleFunc("/snapshot", s.handleExportSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/snapshot", s.handleImportSnapshot).Methods(http.MethodPost)

	api.HandleFunc("/profile", s.handleGetProfile).Methods(http.MethodGet)
	api.HandleFunc("/profile/sheet", s.handleSetSheet).Methods(http.MethodPut)

	api.HandleFunc("/offers", s.handleListOffers).Methods(http.MethodGet)
	api.HandleFunc("/offers/preferences", s.handleGetOfferPreferences).Methods(http.MethodGet)
	api.HandleFunc("/offers/preferences", s.handleUpdateOfferPreferences).Methods(http.MethodPut)
	api.Handle("/offers/check", s.limited(s.handleCheckOffers)).Methods(http.MethodPost)

	if s.hub != nil {
		api.HandleFunc("/events", events.Handler(s.hub, allowedOrigins...)).Methods(http.MethodGet)
	}
}

// limited applies the per-IP limiter to routes that reach the AI service.
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	if s.limiter == nil {
		return h
	}
	return s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.log.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, extractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	})(h)
}

// Shutdown stops the limiter and drains the server. Safe to call twice.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once a profile has been loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.state.Profile(); !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no profile"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
