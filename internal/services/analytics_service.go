package services

import (
	"context"
	"fmt"
	"time"

	"tempo/internal/core"
	"tempo/internal/storage"
)

// Period names accepted by the analytics endpoints.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodAll   = "all"
)

// AnalyticsService aggregates synced tracker sessions into timeline, hourly
// pattern, project share and trend views.
type AnalyticsService struct {
	storage *storage.SQLiteRepository
	now     func() time.Time // overridable in tests
}

func NewAnalyticsService(storage *storage.SQLiteRepository) *AnalyticsService {
	return &AnalyticsService{storage: storage, now: time.Now}
}

// Window selects the track range of an analytics query: an explicit
// [From, To] range when Explicit is set, otherwise the named Period anchored
// at query time.
type Window struct {
	Period   string
	From, To time.Time
	Explicit bool
}

func PeriodWindow(period string) Window {
	return Window{Period: period}
}

func RangeWindow(from, to time.Time) Window {
	return Window{From: from, To: to, Explicit: true}
}

func (s *AnalyticsService) resolveWindow(win Window) (time.Time, time.Time, error) {
	if win.Explicit {
		from, to := core.ClampRange(win.From, win.To)
		return from, to, nil
	}
	return ResolvePeriod(win.Period, s.now())
}

// ResolvePeriod maps a named period onto a concrete [start, end] window
// anchored at now. "all" opens the window at the Unix epoch.
func ResolvePeriod(period string, now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	switch period {
	case PeriodToday:
		return core.Midnight(now), now, nil
	case PeriodWeek:
		monday := core.Midnight(now).AddDate(0, 0, -((int(now.Weekday()) + 6) % 7))
		return monday, now, nil
	case PeriodMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first, now, nil
	case PeriodAll:
		return time.Unix(0, 0).UTC(), now, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown period %q", core.ErrInvalidInput, period)
}

func (s *AnalyticsService) Timeline(ctx context.Context, win Window, group core.Grouping) ([]core.TimeBucket, error) {
	if !group.Valid() {
		return nil, fmt.Errorf("%w: unknown grouping %q", core.ErrInvalidInput, group)
	}
	start, end, err := s.resolveWindow(win)
	if err != nil {
		return nil, err
	}
	tracks, err := s.storage.ListTracks(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	return core.AggregateTimeline(tracks, start, end, group), nil
}

func (s *AnalyticsService) Projects(ctx context.Context, win Window) ([]core.ProjectShare, error) {
	start, end, err := s.resolveWindow(win)
	if err != nil {
		return nil, err
	}
	tracks, err := s.storage.ListTracks(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	return core.AggregateByProject(tracks, start, end), nil
}

func (s *AnalyticsService) Hourly(ctx context.Context, win Window) ([]core.HourBucket, error) {
	start, end, err := s.resolveWindow(win)
	if err != nil {
		return nil, err
	}
	tracks, err := s.storage.ListTracks(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	return core.AggregateByHour(tracks, start, end), nil
}

// Trend compares the period against the preceding window of equal length.
// "all" has no preceding window and is rejected.
func (s *AnalyticsService) Trend(ctx context.Context, period string, metric core.TrendMetric) (core.Trend, error) {
	if period == PeriodAll {
		return core.Trend{}, fmt.Errorf("%w: trend is undefined for period %q", core.ErrInvalidInput, period)
	}
	if !metric.Valid() {
		return core.Trend{}, fmt.Errorf("%w: unknown metric %q", core.ErrInvalidInput, metric)
	}
	start, end, err := ResolvePeriod(period, s.now())
	if err != nil {
		return core.Trend{}, err
	}

	// The preceding window is loaded together with the current one.
	prevStart := start.Add(-end.Sub(start))
	tracks, err := s.storage.ListTracks(ctx, prevStart, end)
	if err != nil {
		return core.Trend{}, fmt.Errorf("load tracks: %w", err)
	}
	return core.CalculateTrend(tracks, start, end, metric), nil
}

// TracksInRange lists finished and running sessions whose start falls in the
// range. An inverted range is clamped to the 30 days before its end.
func (s *AnalyticsService) TracksInRange(ctx context.Context, from, to time.Time) ([]core.Track, error) {
	from, to = core.ClampRange(from, to)
	return s.storage.ListTracks(ctx, from, to)
}
