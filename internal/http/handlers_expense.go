package http

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"spesacasa/internal/core"
	"spesacasa/internal/log"
	"spesacasa/internal/sheets"
	"spesacasa/internal/views"
)

const maxReceiptBytes = 10 << 20

type expenseRequest struct {
	Product   string     `json:"product"`
	Quantity  float64    `json:"quantity"`
	UnitPrice core.Money `json:"unitPrice"`
	Total     core.Money `json:"total"`
	Store     string     `json:"store"`
	Date      string     `json:"date"`
	Category  string     `json:"category"`
	MemberID  string     `json:"memberId"`
}

func (req expenseRequest) expense(loc *time.Location) (core.Expense, error) {
	when, err := parseWhen(req.Date, loc)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Product:   sanitizeInput(req.Product),
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Total:     req.Total,
		Store:     sanitizeInput(req.Store),
		Date:      when,
		Category:  sanitizeInput(req.Category),
		MemberID:  strings.TrimSpace(req.MemberID),
	}, nil
}

type expenseList struct {
	Expenses []core.Expense `json:"expenses"`
	Total    core.Money     `json:"total"`
	Count    int            `json:"count"`
}

func filterFromQuery(r *http.Request) (views.Filter, error) {
	q := r.URL.Query()
	from, err := parseDay(q.Get("from"))
	if err != nil {
		return views.Filter{}, err
	}
	to, err := parseDay(q.Get("to"))
	if err != nil {
		return views.Filter{}, err
	}
	return views.Filter{
		Store:     strings.TrimSpace(q.Get("store")),
		Category:  strings.TrimSpace(q.Get("category")),
		StartDate: from,
		EndDate:   to,
	}, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	es := s.state.FilteredExpenses(f)
	writeJSON(w, http.StatusOK, expenseList{Expenses: es, Total: s.state.FilteredTotal(f), Count: len(es)})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, ok := s.state.Expense(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleCreateExpense fills a blank store from purchase history and a
// blank category from the AI service.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	e, err := req.expense(s.state.Location())
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	if e.Store == "" {
		if store, ok := s.state.SuggestStore(e.Product); ok {
			e.Store = store
		}
	}
	if e.Category == "" && e.Product != "" && s.ai.Available() {
		e.Category = s.ai.Categorize(r.Context(), e.Product, e.Store)
	}

	added, _, err := s.state.AddExpense(e)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.log.InfoContext(r.Context(), "Expense created",
		log.FieldRequestID, RequestID(r.Context()),
		log.FieldEntityID, added.ID,
		log.FieldProduct, added.Product,
		log.FieldStore, added.Store,
		log.FieldAmount, added.Total.Cents,
		log.FieldCategory, added.Category)
	writeJSON(w, http.StatusCreated, added)
}

type receiptResponse struct {
	Store    string         `json:"store"`
	Expenses []core.Expense `json:"expenses"`
}

// handleScanReceipt reads a multipart "receipt" image and adds every line
// item as one batch.
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBytes)
	file, header, err := r.FormFile("receipt")
	if err != nil {
		s.fail(w, r, log.OpCreate, badRequest("missing receipt image: %v", err))
		return
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, log.OpCreate, badRequest("read receipt: %v", err))
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		s.fail(w, r, log.OpCreate, badRequest("receipt must be an image, got %s", mimeType))
		return
	}

	receipt, err := s.ai.ParseReceipt(r.Context(), image, mimeType)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	batch := receipt.Expenses(time.Now(), s.state.Location())
	if len(batch) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no items found on the receipt")
		return
	}
	added, _, err := s.state.AddExpenses(batch)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.log.InfoContext(r.Context(), "Receipt imported",
		log.FieldRequestID, RequestID(r.Context()),
		log.FieldStore, receipt.Store,
		"items", len(added))
	writeJSON(w, http.StatusCreated, receiptResponse{Store: receipt.Store, Expenses: added})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	e, err := req.expense(s.state.Location())
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	e.ID = mux.Vars(r)["id"]
	if _, err := s.state.UpdateExpense(e); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	updated, _ := s.state.Expense(e.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if _, err := s.state.DeleteExpense(mux.Vars(r)["id"], confirmed(r)); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportCSV writes the filtered expenses with display category
// labels, so blank and unknown categories read the way the UI shows them.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	loc := s.state.Location()
	defs := s.state.Categories()
	es := s.state.FilteredExpenses(f)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="spese-`+time.Now().In(loc).Format("2006-01-02")+`.csv"`)
	cw := csv.NewWriter(w)
	if err := cw.Write(sheets.Columns); err != nil {
		s.log.ErrorContext(r.Context(), "CSV header write failed", log.FieldError, err)
		return
	}
	for _, e := range es {
		record := []string{
			e.Date.In(loc).Format("2006-01-02"),
			e.Product,
			strconv.FormatFloat(e.Quantity, 'f', -1, 64),
			e.UnitPrice.String(),
			e.Total.String(),
			e.Store,
			core.LookupCategory(defs, e.Category).Label(),
		}
		if err := cw.Write(record); err != nil {
			s.log.ErrorContext(r.Context(), "CSV row write failed", log.FieldError, err)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		s.log.ErrorContext(r.Context(), "CSV export failed", log.FieldError, err)
	}
}
