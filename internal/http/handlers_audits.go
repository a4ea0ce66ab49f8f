package http

import (
	"fmt"
	"net/http"
	"time"

	"tempo/internal/core"
	"tempo/internal/services"

	"github.com/shopspring/decimal"
)

type auditRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type auditResponse struct {
	ID            int64     `json:"id"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	Status        string    `json:"status"`
	DurationDays  int       `json:"duration_days"`
	ExpectedHours int       `json:"expected_hours"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAuditResponse(a core.Audit) auditResponse {
	return auditResponse{
		ID:            a.ID,
		StartDate:     a.StartDate.Format("2006-01-02"),
		EndDate:       a.EndDate.Format("2006-01-02"),
		Status:        string(a.Status),
		DurationDays:  a.DurationDays(),
		ExpectedHours: a.ExpectedHours(),
		CreatedAt:     a.CreatedAt,
	}
}

func parseAuditDate(raw, name string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid %s %q, want YYYY-MM-DD", core.ErrInvalidInput, name, raw)
	}
	return d, nil
}

func (s *Server) handleCreateAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := DecodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	start, err := parseAuditDate(req.StartDate, "start_date")
	if err != nil {
		respondError(w, r, err)
		return
	}
	end, err := parseAuditDate(req.EndDate, "end_date")
	if err != nil {
		respondError(w, r, err)
		return
	}

	id, err := s.audits.Create(r.Context(), core.Audit{
		StartDate: start,
		EndDate:   end,
		Status:    core.AuditActive,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	audit, err := s.audits.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAuditResponse(audit))
}

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	audits, err := s.audits.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]auditResponse, 0, len(audits))
	for _, a := range audits {
		out = append(out, toAuditResponse(a))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleActiveAudit(w http.ResponseWriter, r *http.Request) {
	audit, err := s.audits.GetActive(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toAuditResponse(audit))
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	audit, err := s.audits.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	progress, err := s.audits.Progress(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, auditDetailResponse{
		auditResponse: toAuditResponse(audit),
		Progress:      toAuditProgressResponse(progress),
	})
}

func (s *Server) handleCompleteAudit(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.audits.Complete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	audit, err := s.audits.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toAuditResponse(audit))
}

func (s *Server) handleAbandonAudit(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.audits.Abandon(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	audit, err := s.audits.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toAuditResponse(audit))
}

type auditProgressResponse struct {
	AuditID       int64           `json:"audit_id"`
	LoggedHours   int             `json:"logged_hours"`
	ExpectedHours int             `json:"expected_hours"`
	Percentage    decimal.Decimal `json:"percentage"`
	ByQuadrant    map[int]int     `json:"by_quadrant"`
}

type auditDetailResponse struct {
	auditResponse
	Progress auditProgressResponse `json:"progress"`
}

func toAuditProgressResponse(p services.AuditProgress) auditProgressResponse {
	return auditProgressResponse{
		AuditID:       p.AuditID,
		LoggedHours:   p.LoggedHours,
		ExpectedHours: p.ExpectedHours,
		Percentage:    p.Percentage,
		ByQuadrant:    p.ByQuadrant,
	}
}

func (s *Server) handleAuditProgress(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	p, err := s.audits.Progress(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toAuditProgressResponse(p))
}

type entryRequest struct {
	Date      string `json:"date"`
	Hour      int    `json:"hour"`
	Activity  string `json:"activity"`
	Important bool   `json:"important"`
	Urgent    bool   `json:"urgent"`
}

type entryResponse struct {
	ID        int64  `json:"id"`
	AuditID   int64  `json:"audit_id"`
	Date      string `json:"date"`
	Hour      int    `json:"hour"`
	Activity  string `json:"activity"`
	Important bool   `json:"important"`
	Urgent    bool   `json:"urgent"`
	Quadrant  int    `json:"quadrant"`
}

func toEntryResponse(e core.TimeEntry) entryResponse {
	return entryResponse{
		ID:        e.ID,
		AuditID:   e.AuditID,
		Date:      e.Date.Format("2006-01-02"),
		Hour:      e.Hour,
		Activity:  e.Activity,
		Important: e.Important,
		Urgent:    e.Urgent,
		Quadrant:  e.Quadrant(),
	}
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	auditID, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req entryRequest
	if err := DecodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	date, err := parseAuditDate(req.Date, "date")
	if err != nil {
		respondError(w, r, err)
		return
	}

	entry := core.TimeEntry{
		AuditID:   auditID,
		Date:      date,
		Hour:      req.Hour,
		Activity:  req.Activity,
		Important: req.Important,
		Urgent:    req.Urgent,
	}
	id, err := s.audits.AddEntry(r.Context(), entry)
	if err != nil {
		respondError(w, r, err)
		return
	}
	entry.ID = id
	respondJSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	auditID, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	entries, err := s.audits.ListEntries(r.Context(), auditID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req entryRequest
	if err := DecodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	// Date and hour are fixed slot coordinates; only the content changes.
	err = s.audits.UpdateEntry(r.Context(), core.TimeEntry{
		ID:        id,
		Activity:  req.Activity,
		Important: req.Important,
		Urgent:    req.Urgent,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.audits.DeleteEntry(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type exportResponse struct {
	AuditID int64  `json:"audit_id"`
	Ref     string `json:"ref"`
}

func (s *Server) handleExportAudit(w http.ResponseWriter, r *http.Request) {
	if !s.exporter.Enabled() {
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: "export not configured"})
		return
	}
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	ref, err := s.exporter.ExportAudit(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, exportResponse{AuditID: id, Ref: ref})
}
