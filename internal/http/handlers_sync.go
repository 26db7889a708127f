package http

import (
	"net/http"
	"strings"
	"time"

	"spesacasa/internal/core"
	"spesacasa/internal/log"
)

type snapshotToken struct {
	Token string `json:"token"`
}

type importRequest struct {
	Token   string `json:"token"`
	Confirm bool   `json:"confirm"`
}

func (s *Server) handleExportSnapshot(w http.ResponseWriter, r *http.Request) {
	token, err := s.codec.Encode(s.state.ExportSnapshot())
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToken{Token: token})
}

// handleImportSnapshot replaces the household with a token's contents.
// Confirmation may come in the body or as ?confirm=true.
func (s *Server) handleImportSnapshot(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	data, err := s.codec.Decode(strings.TrimSpace(req.Token))
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	p, err := s.state.ImportSnapshot(data, req.Confirm || confirmed(r))
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	s.log.InfoContext(r.Context(), "Snapshot imported",
		log.FieldRequestID, RequestID(r.Context()),
		log.FieldTenant, p.ID,
		"expenses", len(data.Expenses),
		"exported_at", time.UnixMilli(data.Timestamp).Format(time.RFC3339))
	writeJSON(w, http.StatusOK, struct {
		Profile  core.FamilyProfile `json:"profile"`
		Expenses int                `json:"expenses"`
	}{p, len(data.Expenses)})
}
