package http

import (
	"fmt"
	"net/http"
	"time"

	"tempo/internal/core"
)

type syncRequest struct {
	Since string `json:"since,omitempty"`
}

type syncResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// handleSync enqueues a track sync run and answers 202; the worker picks the
// request up from the queue.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: "sync not configured"})
		return
	}

	var req syncRequest
	if r.ContentLength > 0 {
		if err := DecodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
	}

	var since time.Time
	if req.Since != "" {
		var err error
		since, err = time.ParseInLocation("2006-01-02", req.Since, time.UTC)
		if err != nil {
			respondError(w, r, fmt.Errorf("%w: invalid since %q, want YYYY-MM-DD", core.ErrInvalidInput, req.Since))
			return
		}
	}

	runID, err := s.publisher.PublishTrackSync(r.Context(), since)
	if err != nil {
		respondError(w, r, fmt.Errorf("enqueue sync: %w", err))
		return
	}

	s.InvalidateAnalyticsCaches()
	respondJSON(w, http.StatusAccepted, syncResponse{RunID: runID, Status: "queued"})
}
