// Package core holds the domain model and the two calculation engines:
// goal progress and track analytics. Everything here is a pure function over
// already-fetched data; nothing talks to storage or the network.
package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusAhead     ProgressStatus = "ahead"
	StatusOnTrack   ProgressStatus = "on-track"
	StatusBehind    ProgressStatus = "behind"
	StatusNeglected ProgressStatus = "neglected"
	StatusCritical  ProgressStatus = "critical"
)

type (
	ProgressStatus string

	// GoalProgress is the read-only projection produced by the progress
	// calculator. ProgressPercentage is clamped to [0,100] for display;
	// Status is classified on the unclamped ratio.
	GoalProgress struct {
		GoalID             int64
		ActualHours        decimal.Decimal
		ProgressPercentage decimal.Decimal
		Status             ProgressStatus
		RemainingHours     decimal.Decimal
		MatchedTracks      int
	}
)

// WindowResolver computes the open progress window [start, now] for one
// target period. Each period has its own resolver, looked up by type.
type WindowResolver interface {
	WindowStart(now time.Time) time.Time
}

// DailyWindow starts at midnight of the current day.
type DailyWindow struct{}

func (DailyWindow) WindowStart(now time.Time) time.Time {
	return Midnight(now)
}

// WeeklyWindow starts at the most recent Monday, 00:00.
type WeeklyWindow struct{}

func (WeeklyWindow) WindowStart(now time.Time) time.Time {
	day := Midnight(now)
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return day.AddDate(0, 0, -offset)
}

// MonthlyWindow starts at the first day of the current month.
type MonthlyWindow struct{}

func (MonthlyWindow) WindowStart(now time.Time) time.Time {
	y, m, _ := now.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

var windowResolvers = map[TargetPeriod]WindowResolver{
	PeriodDaily:   DailyWindow{},
	PeriodWeekly:  WeeklyWindow{},
	PeriodMonthly: MonthlyWindow{},
}

// ResolveWindow returns the resolver for the given period. Unrecognized
// periods fall back to monthly; upstream data contains legacy period values
// and the documented behavior is to treat them as monthly rather than fail.
func ResolveWindow(period TargetPeriod) WindowResolver {
	if r, ok := windowResolvers[period]; ok {
		return r
	}
	return MonthlyWindow{}
}

// MatchesTags reports whether the track description contains any of the tags,
// case-insensitively. Matching is substring-based on free text: a description
// "Leetcode daily" matches the tag "leetcode". Short tags can over-match;
// that is the established semantics, kept as-is.
func MatchesTags(description string, tags []string) bool {
	desc := strings.ToLower(description)
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if strings.Contains(desc, strings.ToLower(tag)) {
			return true
		}
	}
	return false
}

// CalculateProgress computes goal progress from the full track set at the
// given instant. Running tracks and tracks outside the period window are
// skipped before tag matching.
func CalculateProgress(goal Goal, tracks []Track, now time.Time) GoalProgress {
	start := ResolveWindow(goal.TargetPeriod).WindowStart(now)

	var matchedSeconds int64
	matched := 0
	for _, t := range tracks {
		if t.Running() {
			continue
		}
		if t.Start.Before(start) || t.Start.After(now) {
			continue
		}
		if !MatchesTags(t.Description, goal.Tags) {
			continue
		}
		matchedSeconds += t.DurationSeconds
		matched++
	}

	actual := HoursFromSeconds(matchedSeconds)

	hundred := decimal.NewFromInt(100)
	raw := actual.Div(goal.TargetHours).Mul(hundred).Round(1)

	display := raw
	if display.GreaterThan(hundred) {
		display = hundred
	}

	remaining := goal.TargetHours.Sub(actual).Round(2)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return GoalProgress{
		GoalID:             goal.ID,
		ActualHours:        actual,
		ProgressPercentage: display,
		Status:             classifyProgress(raw),
		RemainingHours:     remaining,
		MatchedTracks:      matched,
	}
}

// classifyProgress buckets the unclamped percentage. Boundaries are inclusive
// on the lower edge: exactly 80 is on-track, exactly 50 is behind, exactly 20
// is neglected.
func classifyProgress(pct decimal.Decimal) ProgressStatus {
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromInt(100)):
		return StatusAhead
	case pct.GreaterThanOrEqual(decimal.NewFromInt(80)):
		return StatusOnTrack
	case pct.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return StatusBehind
	case pct.GreaterThanOrEqual(decimal.NewFromInt(20)):
		return StatusNeglected
	default:
		return StatusCritical
	}
}
