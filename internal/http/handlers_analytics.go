package http

import (
	"net/http"
	"time"

	"tempo/internal/core"
	"tempo/internal/services"
)

func analyticsCacheKey(parts ...string) string {
	key := parts[0]
	for _, p := range parts[1:] {
		key += "|" + p
	}
	return key
}

// analyticsWindow reads the query range: an explicit from/to date pair when
// either parameter is present, otherwise the named period (default month).
// The second return value keys the response cache.
func analyticsWindow(r *http.Request) (services.Window, string, error) {
	q := r.URL.Query()
	if q.Get("from") == "" && q.Get("to") == "" {
		period := QueryString(r, "period", services.PeriodMonth)
		return services.PeriodWindow(period), period, nil
	}

	now := time.Now().UTC()
	from, err := QueryDate(r, "from", now.AddDate(0, 0, -30))
	if err != nil {
		return services.Window{}, "", err
	}
	to, err := QueryDate(r, "to", now)
	if err != nil {
		return services.Window{}, "", err
	}
	// An explicit "to" date means the whole day inclusive.
	if q.Get("to") != "" {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	key := from.Format("2006-01-02") + ".." + to.Format("2006-01-02")
	return services.RangeWindow(from, to), key, nil
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	win, winKey, err := analyticsWindow(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	group := core.Grouping(QueryString(r, "group", string(core.GroupByDay)))

	key := analyticsCacheKey("timeline", winKey, string(group))
	if buckets, ok := s.timelineCache.Get(key); ok {
		respondJSON(w, http.StatusOK, buckets)
		return
	}

	buckets, err := s.analytics.Timeline(r.Context(), win, group)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.timelineCache.Set(key, buckets)
	respondJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	win, winKey, err := analyticsWindow(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	key := analyticsCacheKey("projects", winKey)
	if shares, ok := s.projectsCache.Get(key); ok {
		respondJSON(w, http.StatusOK, shares)
		return
	}

	shares, err := s.analytics.Projects(r.Context(), win)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.projectsCache.Set(key, shares)
	respondJSON(w, http.StatusOK, shares)
}

func (s *Server) handleHours(w http.ResponseWriter, r *http.Request) {
	win, winKey, err := analyticsWindow(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	key := analyticsCacheKey("hours", winKey)
	if buckets, ok := s.hourlyCache.Get(key); ok {
		respondJSON(w, http.StatusOK, buckets)
		return
	}

	buckets, err := s.analytics.Hourly(r.Context(), win)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.hourlyCache.Set(key, buckets)
	respondJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	period := QueryString(r, "period", services.PeriodWeek)
	metric := core.TrendMetric(QueryString(r, "metric", string(core.MetricHours)))

	trend, err := s.analytics.Trend(r.Context(), period, metric)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, trend)
}

type trackResponse struct {
	ID              int64     `json:"id"`
	ExternalID      string    `json:"external_id"`
	Start           time.Time `json:"start"`
	DurationSeconds int64     `json:"duration_seconds"`
	Description     string    `json:"description"`
	ProjectName     string    `json:"project_name"`
	Running         bool      `json:"running"`
	SyncedAt        time.Time `json:"synced_at"`
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	from, err := QueryDate(r, "from", now.AddDate(0, 0, -30))
	if err != nil {
		respondError(w, r, err)
		return
	}
	to, err := QueryDate(r, "to", now)
	if err != nil {
		respondError(w, r, err)
		return
	}
	// An explicit "to" date means the whole day inclusive.
	if r.URL.Query().Get("to") != "" {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	tracks, err := s.analytics.TracksInRange(r.Context(), from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]trackResponse, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, trackResponse{
			ID:              t.ID,
			ExternalID:      t.ExternalID,
			Start:           t.Start,
			DurationSeconds: t.DurationSeconds,
			Description:     t.Description,
			ProjectName:     t.ProjectName,
			Running:         t.Running(),
			SyncedAt:        t.SyncedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}
