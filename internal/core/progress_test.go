package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func hours(h float64) int64 {
	return int64(h * 3600)
}

func track(start time.Time, seconds int64, desc string) Track {
	return Track{Start: start, DurationSeconds: seconds, Description: desc}
}

func TestResolveWindow_WindowStart(t *testing.T) {
	// 2025-01-15 is a Wednesday.
	now := time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		period TargetPeriod
		want   time.Time
	}{
		{
			name:   "daily starts at midnight today",
			period: PeriodDaily,
			want:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "weekly starts most recent Monday",
			period: PeriodWeekly,
			want:   time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "monthly starts first of month",
			period: PeriodMonthly,
			want:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "unrecognized period falls back to monthly",
			period: TargetPeriod("quarterly"),
			want:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveWindow(tt.period).WindowStart(now)
			if !got.Equal(tt.want) {
				t.Errorf("WindowStart() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeeklyWindow_OnMonday(t *testing.T) {
	// On a Monday the window starts that same day, not a week earlier.
	monday := time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC)
	got := (WeeklyWindow{}).WindowStart(monday)
	want := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("WindowStart(monday) = %v, want %v", got, want)
	}
}

func TestMatchesTags(t *testing.T) {
	tests := []struct {
		name        string
		description string
		tags        []string
		want        bool
	}{
		{"case-insensitive substring", "Leetcode daily", []string{"leetcode"}, true},
		{"tag inside longer description", "DSA-Practice session", []string{"DSA"}, true},
		{"uppercase tag matches lowercase text", "morning reading", []string{"READING"}, true},
		{"any of multiple tags", "gym workout", []string{"piano", "gym"}, true},
		{"no match", "cooking dinner", []string{"leetcode", "gym"}, false},
		{"empty tag never matches", "anything", []string{""}, false},
		{"no tags", "anything", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesTags(tt.description, tt.tags); got != tt.want {
				t.Errorf("MatchesTags(%q, %v) = %v, want %v", tt.description, tt.tags, got, tt.want)
			}
		})
	}
}

func TestCalculateProgress_WeeklyExample(t *testing.T) {
	// Goal of 10h weekly tagged "DSA"; 6h of "DSA-Practice" this week.
	now := time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC)
	goal := Goal{
		ID:           7,
		TargetHours:  decimal.NewFromInt(10),
		TargetPeriod: PeriodWeekly,
		Tags:         []string{"DSA"},
	}
	tracks := []Track{
		track(time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC), hours(4), "DSA-Practice"),
		track(time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC), hours(2), "DSA-Practice"),
		// Last week, must be ignored.
		track(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), hours(3), "DSA-Practice"),
		// This week but unrelated.
		track(time.Date(2025, 1, 14, 20, 0, 0, 0, time.UTC), hours(1), "guitar"),
		// Still running, must be ignored.
		track(time.Date(2025, 1, 15, 17, 0, 0, 0, time.UTC), -1, "DSA-Practice"),
	}

	got := CalculateProgress(goal, tracks, now)

	if got.GoalID != 7 {
		t.Errorf("GoalID = %d, want 7", got.GoalID)
	}
	if !got.ActualHours.Equal(decimal.NewFromInt(6)) {
		t.Errorf("ActualHours = %s, want 6", got.ActualHours)
	}
	if !got.ProgressPercentage.Equal(decimal.NewFromInt(60)) {
		t.Errorf("ProgressPercentage = %s, want 60", got.ProgressPercentage)
	}
	if got.Status != StatusBehind {
		t.Errorf("Status = %s, want %s", got.Status, StatusBehind)
	}
	if !got.RemainingHours.Equal(decimal.NewFromInt(4)) {
		t.Errorf("RemainingHours = %s, want 4", got.RemainingHours)
	}
	if got.MatchedTracks != 2 {
		t.Errorf("MatchedTracks = %d, want 2", got.MatchedTracks)
	}
}

func TestCalculateProgress_StatusBoundaries(t *testing.T) {
	// Target of 100h makes actual hours equal the percentage.
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	goal := Goal{
		TargetHours:  decimal.NewFromInt(100),
		TargetPeriod: PeriodMonthly,
		Tags:         []string{"work"},
	}

	tests := []struct {
		name       string
		trackHours float64
		want       ProgressStatus
	}{
		{"exactly 100 is ahead", 100, StatusAhead},
		{"exactly 80 is on-track", 80, StatusOnTrack},
		{"79.9 is behind", 79.9, StatusBehind},
		{"exactly 50 is behind", 50, StatusBehind},
		{"49.9 is neglected", 49.9, StatusNeglected},
		{"exactly 20 is neglected", 20, StatusNeglected},
		{"19.9 is critical", 19.9, StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracks := []Track{track(time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC), hours(tt.trackHours), "work")}
			got := CalculateProgress(goal, tracks, now)
			if got.Status != tt.want {
				t.Errorf("Status = %s, want %s", got.Status, tt.want)
			}
		})
	}
}

func TestCalculateProgress_OverTarget(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	goal := Goal{
		TargetHours:  decimal.NewFromInt(10),
		TargetPeriod: PeriodMonthly,
		Tags:         []string{"work"},
	}
	tracks := []Track{track(time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC), hours(15), "work")}

	got := CalculateProgress(goal, tracks, now)

	// Displayed percentage is clamped; the raw ratio still classifies as ahead.
	if !got.ProgressPercentage.Equal(decimal.NewFromInt(100)) {
		t.Errorf("ProgressPercentage = %s, want 100 (clamped)", got.ProgressPercentage)
	}
	if got.Status != StatusAhead {
		t.Errorf("Status = %s, want %s", got.Status, StatusAhead)
	}
	if !got.RemainingHours.IsZero() {
		t.Errorf("RemainingHours = %s, want 0", got.RemainingHours)
	}
}

func TestCalculateProgress_NoMatches(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	goal := Goal{
		TargetHours:  decimal.NewFromFloat(7.5),
		TargetPeriod: PeriodMonthly,
		Tags:         []string{"piano"},
	}

	got := CalculateProgress(goal, nil, now)

	if !got.ActualHours.IsZero() {
		t.Errorf("ActualHours = %s, want 0", got.ActualHours)
	}
	if got.Status != StatusCritical {
		t.Errorf("Status = %s, want %s", got.Status, StatusCritical)
	}
	if !got.RemainingHours.Equal(decimal.NewFromFloat(7.5)) {
		t.Errorf("RemainingHours = %s, want 7.5", got.RemainingHours)
	}
	if got.MatchedTracks != 0 {
		t.Errorf("MatchedTracks = %d, want 0", got.MatchedTracks)
	}
}
