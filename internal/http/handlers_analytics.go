package http

import (
	"net/http"
	"strings"

	"spesacasa/internal/core"
	"spesacasa/internal/views"
)

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	lang := strings.TrimSpace(r.URL.Query().Get("lang"))
	if lang == "" {
		lang = s.locale
	}
	writeJSON(w, http.StatusOK, s.state.MonthlyTotals(lang))
}

func (s *Server) handleTopCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.TopCategories())
}

func (s *Server) handleStoreTotals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.StoreTotals())
}

type summary struct {
	Expenses   core.Money          `json:"expenses"`
	Incomes    core.Money          `json:"incomes"`
	Balance    core.Money          `json:"balance"`
	Categories []views.NamedAmount `json:"categories"`
	Analysis   string              `json:"analysis"`
}

// handleSummary adds the AI narrative to the totals. The narrative falls
// back to a fixed message when the service cannot answer.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		s.fail(w, r, "summary", err)
		return
	}
	es := s.state.FilteredExpenses(f)
	spent := views.Total(es)
	earned := s.state.IncomeTotal()
	writeJSON(w, http.StatusOK, summary{
		Expenses:   spent,
		Incomes:    earned,
		Balance:    core.Cents(earned.Cents - spent.Cents),
		Categories: views.ByCategory(es, views.TopCategories),
		Analysis:   s.ai.AnalyzeSpending(r.Context(), es),
	})
}

type storeSuggestion struct {
	Product string `json:"product"`
	Store   string `json:"store"`
	Found   bool   `json:"found"`
}

// handleStoreSuggestions answers one product, or the whole map when no
// product is given.
func (s *Server) handleStoreSuggestions(w http.ResponseWriter, r *http.Request) {
	product := strings.TrimSpace(r.URL.Query().Get("product"))
	if product == "" {
		writeJSON(w, http.StatusOK, s.state.ProductStores())
		return
	}
	store, ok := s.state.SuggestStore(product)
	writeJSON(w, http.StatusOK, storeSuggestion{Product: product, Store: store, Found: ok})
}
