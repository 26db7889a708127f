package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"spesacasa/internal/core"
	"spesacasa/internal/log"
	"spesacasa/internal/sheets"
)

type incomeRequest struct {
	Source string     `json:"source"`
	Amount core.Money `json:"amount"`
	Date   string     `json:"date"`
}

type incomeList struct {
	Incomes []core.Income `json:"incomes"`
	Total   core.Money    `json:"total"`
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, incomeList{Incomes: s.state.Incomes(), Total: s.state.IncomeTotal()})
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	when, err := parseWhen(req.Date, s.state.Location())
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	in, _, err := s.state.AddIncome(core.Income{Source: sanitizeInput(req.Source), Amount: req.Amount, Date: when})
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if _, err := s.state.DeleteIncome(mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type nameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Stores())
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	st, _, err := s.state.AddStore(sanitizeInput(req.Name))
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	if _, err := s.state.DeleteStore(mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryList struct {
	Definitions []core.CategoryDefinition `json:"definitions"`
	// Names merges defined categories with those used by expenses.
	Names []string `json:"names"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categoryList{Definitions: s.state.Categories(), Names: s.state.CategoryNames()})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var def core.CategoryDefinition
	if err := decodeJSON(w, r, &def); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	def.Name = sanitizeInput(def.Name)
	added, _, err := s.state.AddCategory(def)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var def core.CategoryDefinition
	if err := decodeJSON(w, r, &def); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	def.ID = mux.Vars(r)["id"]
	def.Name = sanitizeInput(def.Name)
	if _, err := s.state.UpdateCategory(def); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if _, err := s.state.DeleteCategory(mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type shoppingRequest struct {
	Product string `json:"product"`
	Store   string `json:"store"`
}

func (s *Server) handleListShopping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.ShoppingList())
}

// handleCreateShopping suggests the usual store when none is given.
func (s *Server) handleCreateShopping(w http.ResponseWriter, r *http.Request) {
	var req shoppingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	product, store := sanitizeInput(req.Product), sanitizeInput(req.Store)
	if store == "" {
		store, _ = s.state.SuggestStore(product)
	}
	item, _, err := s.state.AddShoppingItem(product, store)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleToggleShopping(w http.ResponseWriter, r *http.Request) {
	item, _, err := s.state.ToggleShoppingItem(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteShopping(w http.ResponseWriter, r *http.Request) {
	if _, err := s.state.DeleteShoppingItem(mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	n, _ := s.state.ClearCompletedShopping()
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.state.Profile()
	if !ok {
		writeError(w, http.StatusNotFound, "no family profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type sheetRequest struct {
	GoogleSheetURL string `json:"googleSheetUrl"`
}

// handleSetSheet stores the spreadsheet link. An empty link unlinks it; a
// non-empty one must carry a spreadsheet id.
func (s *Server) handleSetSheet(w http.ResponseWriter, r *http.Request) {
	var req sheetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	if req.GoogleSheetURL != "" {
		if _, err := sheets.SpreadsheetIDFromURL(req.GoogleSheetURL); err != nil {
			s.fail(w, r, log.OpUpdate, badRequest("%v", err))
			return
		}
	}
	if _, err := s.state.SetGoogleSheetURL(req.GoogleSheetURL); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	p, _ := s.state.Profile()
	writeJSON(w, http.StatusOK, p)
}
