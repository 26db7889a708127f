package http

import (
	"net/http"
	"time"

	"spesacasa/internal/core"
	"spesacasa/internal/log"
	"spesacasa/internal/offers"
)

type offerList struct {
	Offers    []offers.Offer `json:"offers"`
	CheckedAt *time.Time     `json:"checkedAt,omitempty"`
	Due       bool           `json:"due"`
}

// requireOffers answers 503 when the offer checker is not configured.
func (s *Server) requireOffers(w http.ResponseWriter) bool {
	if s.offers == nil {
		writeError(w, http.StatusServiceUnavailable, offers.ErrUnavailable.Error())
		return false
	}
	return true
}

func (s *Server) handleListOffers(w http.ResponseWriter, r *http.Request) {
	if !s.requireOffers(w) {
		return
	}
	latest, at := s.offers.Latest()
	out := offerList{Offers: latest, Due: s.offers.Due()}
	if out.Offers == nil {
		out.Offers = []offers.Offer{}
	}
	if !at.IsZero() {
		out.CheckedAt = &at
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetOfferPreferences(w http.ResponseWriter, r *http.Request) {
	if !s.requireOffers(w) {
		return
	}
	writeJSON(w, http.StatusOK, s.offers.Preferences())
}

func (s *Server) handleUpdateOfferPreferences(w http.ResponseWriter, r *http.Request) {
	if !s.requireOffers(w) {
		return
	}
	var p core.OfferPreferences
	if err := decodeJSON(w, r, &p); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	saved, err := s.offers.UpdatePreferences(p)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleCheckOffers(w http.ResponseWriter, r *http.Request) {
	if !s.requireOffers(w) {
		return
	}
	found, err := s.offers.CheckNow(r.Context())
	if err != nil {
		s.fail(w, r, "check_offers", err)
		return
	}
	_, at := s.offers.Latest()
	writeJSON(w, http.StatusOK, offerList{Offers: found, CheckedAt: &at})
}
