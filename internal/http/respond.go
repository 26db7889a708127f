package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spesacasa/internal/ai"
	"spesacasa/internal/core"
	"spesacasa/internal/log"
	"spesacasa/internal/offers"
	"spesacasa/internal/snapshot"
	"spesacasa/internal/state"
)

const maxJSONBody = 1 << 20

var validationErrors = []error{
	core.ErrEmptyProduct,
	core.ErrEmptyStore,
	core.ErrEmptySource,
	core.ErrEmptyName,
	core.ErrEmptyFamilyName,
	core.ErrInvalidQuantity,
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrInvalidFrequency,
	core.ErrInvalidReminder,
	core.ErrProductTooLong,
	core.ErrInvalidIcon,
	core.ErrInvalidColor,
	errBadRequest,
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps the error taxonomy to response codes.
func statusFor(err error) int {
	var decodeErr *snapshot.DecodeError
	switch {
	case errors.Is(err, state.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, state.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, state.ErrNoProfile), errors.Is(err, offers.ErrNoPreferences):
		return http.StatusConflict
	case errors.Is(err, ai.ErrReceiptUnavailable), errors.Is(err, ai.ErrUnavailable), errors.Is(err, offers.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// fail writes err with its mapped status. Server errors are logged and
// their detail withheld.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.log.ErrorContext(r.Context(), "Request failed",
			log.FieldRequestID, RequestID(r.Context()),
			log.FieldOperation, op,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		msg = "internal error"
	}
	writeError(w, status, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// confirmed reads the confirm query flag destructive routes require.
func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseWhen accepts a calendar day or an RFC 3339 timestamp. A bare day is
// placed at noon in loc. Empty input yields the zero time.
func parseWhen(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return time.Time{}, core.ErrInvalidDate
	}
	return d.Start(loc).Add(12 * time.Hour), nil
}

// parseDay reads an optional YYYY-MM-DD query value.
func parseDay(raw string) (core.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, badRequest("invalid date %q", raw)
	}
	return d, nil
}
