package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"spesacasa/internal/core"
	"spesacasa/internal/log"
)

type recurringRequest struct {
	Product      string         `json:"product"`
	Amount       core.Money     `json:"amount"`
	Store        string         `json:"store"`
	Frequency    core.Frequency `json:"frequency"`
	NextDueDate  core.Date      `json:"nextDueDate"`
	ReminderDays int            `json:"reminderDays"`
}

func (req recurringRequest) recurring() core.RecurringExpense {
	return core.RecurringExpense{
		Product:      sanitizeInput(req.Product),
		Amount:       req.Amount,
		Store:        sanitizeInput(req.Store),
		Frequency:    req.Frequency,
		NextDueDate:  req.NextDueDate,
		ReminderDays: req.ReminderDays,
	}
}

type recurringView struct {
	core.RecurringExpense
	Status core.DueStatus `json:"status"`
}

// handleListRecurring attaches today's due status to every item.
func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	today := s.state.Today()
	items := s.state.Recurring()
	out := make([]recurringView, len(items))
	for i, it := range items {
		out[i] = recurringView{RecurringExpense: it, Status: it.Status(today)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	added, _, err := s.state.AddRecurring(req.recurring())
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	item := req.recurring()
	item.ID = mux.Vars(r)["id"]
	if _, err := s.state.UpdateRecurring(item); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if _, err := s.state.DeleteRecurring(mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDueRecurring(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.DueRecurring(s.state.Today()))
}

type processResponse struct {
	Expense   core.Expense          `json:"expense"`
	Recurring core.RecurringExpense `json:"recurring"`
}

// handleProcessRecurring records the bill as paid today and advances it.
func (s *Server) handleProcessRecurring(w http.ResponseWriter, r *http.Request) {
	e, next, _, err := s.state.ProcessRecurring(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, log.OpProcess, err)
		return
	}
	s.log.InfoContext(r.Context(), "Recurring expense processed",
		log.FieldRequestID, RequestID(r.Context()),
		log.FieldEntityID, next.ID,
		log.FieldProduct, e.Product,
		log.FieldAmount, e.Total.Cents,
		"next_due_date", next.NextDueDate.String())
	writeJSON(w, http.StatusOK, processResponse{Expense: e, Recurring: next})
}
