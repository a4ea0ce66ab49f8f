package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	GroupByDay   Grouping = "day"
	GroupByWeek  Grouping = "week"
	GroupByMonth Grouping = "month"
)

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

const (
	MetricHours    TrendMetric = "hours"
	MetricSessions TrendMetric = "sessions"
)

type (
	Grouping string

	TrendDirection string

	TrendMetric string

	// TimeBucket is one aggregation bucket of the timeline view, keyed by
	// calendar unit (date, ISO week or year-month).
	TimeBucket struct {
		Key          string
		TotalHours   decimal.Decimal
		SessionCount int
	}

	// HourBucket is one hour-of-day slot of the pattern view.
	HourBucket struct {
		Hour         int
		TotalHours   decimal.Decimal
		SessionCount int
	}

	// ProjectShare aggregates per project with its percentage of the total.
	ProjectShare struct {
		ProjectName  string
		TotalHours   decimal.Decimal
		SessionCount int
		Percentage   decimal.Decimal
	}

	// Trend compares the current window against the immediately preceding
	// window of equal length.
	Trend struct {
		Metric        TrendMetric
		Current       decimal.Decimal
		Previous      decimal.Decimal
		ChangePercent decimal.Decimal
		Direction     TrendDirection
	}
)

func (g Grouping) Valid() bool {
	switch g {
	case GroupByDay, GroupByWeek, GroupByMonth:
		return true
	}
	return false
}

func (m TrendMetric) Valid() bool {
	return m == MetricHours || m == MetricSessions
}

// ClampRange normalizes an inverted range: when start is after end, start is
// pulled back to 30 days before end. Both bounds are returned unchanged
// otherwise.
func ClampRange(start, end time.Time) (time.Time, time.Time) {
	if start.After(end) {
		return end.AddDate(0, 0, -30), end
	}
	return start, end
}

// BucketKey returns the calendar key a timestamp falls into for a grouping.
func BucketKey(t time.Time, group Grouping) string {
	t = t.UTC()
	switch group {
	case GroupByWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case GroupByMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// inRange keeps finished tracks whose start falls in [start, end].
func inRange(t Track, start, end time.Time) bool {
	if t.Running() {
		return false
	}
	return !t.Start.Before(start) && !t.Start.After(end)
}

// AggregateTimeline buckets tracks by calendar unit and sums durations per
// bucket. Buckets are returned in ascending key order; keys sort
// lexicographically for all three groupings.
func AggregateTimeline(tracks []Track, start, end time.Time, group Grouping) []TimeBucket {
	start, end = ClampRange(start, end)

	seconds := make(map[string]int64)
	counts := make(map[string]int)
	for _, t := range tracks {
		if !inRange(t, start, end) {
			continue
		}
		key := BucketKey(t.Start, group)
		seconds[key] += t.DurationSeconds
		counts[key]++
	}

	keys := make([]string, 0, len(seconds))
	for k := range seconds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buckets := make([]TimeBucket, 0, len(keys))
	for _, k := range keys {
		buckets = append(buckets, TimeBucket{
			Key:          k,
			TotalHours:   HoursFromSeconds(seconds[k]),
			SessionCount: counts[k],
		})
	}
	return buckets
}

// AggregateByHour buckets tracks by hour of day (0-23). Only hours with at
// least one session appear.
func AggregateByHour(tracks []Track, start, end time.Time) []HourBucket {
	start, end = ClampRange(start, end)

	var seconds [24]int64
	var counts [24]int
	for _, t := range tracks {
		if !inRange(t, start, end) {
			continue
		}
		h := t.Start.UTC().Hour()
		seconds[h] += t.DurationSeconds
		counts[h]++
	}

	var buckets []HourBucket
	for h := 0; h < 24; h++ {
		if counts[h] == 0 {
			continue
		}
		buckets = append(buckets, HourBucket{
			Hour:         h,
			TotalHours:   HoursFromSeconds(seconds[h]),
			SessionCount: counts[h],
		})
	}
	return buckets
}

// AggregateByProject sums durations per project and computes each project's
// percentage share of the window total. Tracks without a project are grouped
// under "(none)". Results are ordered by descending hours, ties by name.
func AggregateByProject(tracks []Track, start, end time.Time) []ProjectShare {
	start, end = ClampRange(start, end)

	seconds := make(map[string]int64)
	counts := make(map[string]int)
	var totalSeconds int64
	for _, t := range tracks {
		if !inRange(t, start, end) {
			continue
		}
		name := t.ProjectName
		if name == "" {
			name = "(none)"
		}
		seconds[name] += t.DurationSeconds
		counts[name]++
		totalSeconds += t.DurationSeconds
	}

	hundred := decimal.NewFromInt(100)
	total := decimal.NewFromInt(totalSeconds)

	shares := make([]ProjectShare, 0, len(seconds))
	for name, sec := range seconds {
		pct := decimal.Zero
		if totalSeconds > 0 {
			pct = decimal.NewFromInt(sec).Div(total).Mul(hundred).Round(1)
		}
		shares = append(shares, ProjectShare{
			ProjectName:  name,
			TotalHours:   HoursFromSeconds(sec),
			SessionCount: counts[name],
			Percentage:   pct,
		})
	}

	sort.Slice(shares, func(i, j int) bool {
		if !shares[i].TotalHours.Equal(shares[j].TotalHours) {
			return shares[i].TotalHours.GreaterThan(shares[j].TotalHours)
		}
		return shares[i].ProjectName < shares[j].ProjectName
	})
	return shares
}

// CalculateTrend compares the metric over [start, end] against the window of
// equal length immediately before it. Change is 0 when the previous window is
// empty, whatever the current value; direction compares the two values
// strictly.
func CalculateTrend(tracks []Track, start, end time.Time, metric TrendMetric) Trend {
	start, end = ClampRange(start, end)
	windowLen := end.Sub(start)
	prevStart := start.Add(-windowLen)
	prevEnd := start.Add(-time.Nanosecond)

	current := windowMetric(tracks, start, end, metric)
	previous := windowMetric(tracks, prevStart, prevEnd, metric)

	change := decimal.Zero
	if !previous.IsZero() {
		change = current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(1)
	}

	direction := TrendStable
	switch {
	case current.GreaterThan(previous):
		direction = TrendUp
	case current.LessThan(previous):
		direction = TrendDown
	}

	return Trend{
		Metric:        metric,
		Current:       current,
		Previous:      previous,
		ChangePercent: change,
		Direction:     direction,
	}
}

func windowMetric(tracks []Track, start, end time.Time, metric TrendMetric) decimal.Decimal {
	var seconds int64
	var sessions int64
	for _, t := range tracks {
		if !inRange(t, start, end) {
			continue
		}
		seconds += t.DurationSeconds
		sessions++
	}
	if metric == MetricSessions {
		return decimal.NewFromInt(sessions)
	}
	return HoursFromSeconds(seconds)
}
