package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBucketKey(t *testing.T) {
	ts := time.Date(2025, 1, 29, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		name  string
		group Grouping
		want  string
	}{
		{"day key is calendar date", GroupByDay, "2025-01-29"},
		{"week key is ISO week", GroupByWeek, "2025-W05"},
		{"month key is year-month", GroupByMonth, "2025-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BucketKey(ts, tt.group); got != tt.want {
				t.Errorf("BucketKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBucketKey_ISOWeekYearBoundary(t *testing.T) {
	// 2024-12-30 belongs to ISO week 1 of 2025.
	got := BucketKey(time.Date(2024, 12, 30, 10, 0, 0, 0, time.UTC), GroupByWeek)
	if got != "2025-W01" {
		t.Errorf("BucketKey() = %q, want %q", got, "2025-W01")
	}
}

func TestClampRange(t *testing.T) {
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("valid range untouched", func(t *testing.T) {
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		gotStart, gotEnd := ClampRange(start, end)
		if !gotStart.Equal(start) || !gotEnd.Equal(end) {
			t.Errorf("ClampRange() = (%v, %v), want unchanged", gotStart, gotEnd)
		}
	})

	t.Run("inverted range clamps start to end minus 30 days", func(t *testing.T) {
		start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		gotStart, gotEnd := ClampRange(start, end)
		if !gotStart.Equal(end.AddDate(0, 0, -30)) {
			t.Errorf("start = %v, want %v", gotStart, end.AddDate(0, 0, -30))
		}
		if !gotEnd.Equal(end) {
			t.Errorf("end = %v, want %v", gotEnd, end)
		}
	})
}

func TestAggregateTimeline_ByDay(t *testing.T) {
	// Three 1-hour records on three different days give three buckets of
	// {totalHours: 1, sessionCount: 1}.
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 3, 23, 59, 59, 0, time.UTC)
	tracks := []Track{
		track(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), 3600, "a"),
		track(time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC), 3600, "b"),
		track(time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC), 3600, "c"),
		// Outside the range.
		track(time.Date(2025, 1, 4, 9, 0, 0, 0, time.UTC), 3600, "d"),
		// Running.
		track(time.Date(2025, 1, 2, 22, 0, 0, 0, time.UTC), -1, "e"),
	}

	buckets := AggregateTimeline(tracks, start, end, GroupByDay)

	if len(buckets) != 3 {
		t.Fatalf("got %d buckets, want 3", len(buckets))
	}
	wantKeys := []string{"2025-01-01", "2025-01-02", "2025-01-03"}
	for i, b := range buckets {
		if b.Key != wantKeys[i] {
			t.Errorf("bucket %d key = %q, want %q", i, b.Key, wantKeys[i])
		}
		if !b.TotalHours.Equal(decimal.NewFromInt(1)) {
			t.Errorf("bucket %q hours = %s, want 1", b.Key, b.TotalHours)
		}
		if b.SessionCount != 1 {
			t.Errorf("bucket %q sessions = %d, want 1", b.Key, b.SessionCount)
		}
	}
}

func TestAggregateTimeline_Idempotent(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	tracks := []Track{
		track(time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC), 5400, "a"),
		track(time.Date(2025, 1, 5, 14, 0, 0, 0, time.UTC), 1800, "b"),
	}

	first := AggregateTimeline(tracks, start, end, GroupByDay)
	second := AggregateTimeline(tracks, start, end, GroupByDay)

	if len(first) != len(second) {
		t.Fatalf("bucket counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key != second[i].Key || !first[i].TotalHours.Equal(second[i].TotalHours) || first[i].SessionCount != second[i].SessionCount {
			t.Errorf("bucket %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestAggregateByHour(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	tracks := []Track{
		track(time.Date(2025, 1, 5, 9, 15, 0, 0, time.UTC), 1800, "a"),
		track(time.Date(2025, 1, 6, 9, 40, 0, 0, time.UTC), 1800, "b"),
		track(time.Date(2025, 1, 7, 21, 0, 0, 0, time.UTC), 3600, "c"),
	}

	buckets := AggregateByHour(tracks, start, end)

	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if buckets[0].Hour != 9 || buckets[0].SessionCount != 2 || !buckets[0].TotalHours.Equal(decimal.NewFromInt(1)) {
		t.Errorf("hour 9 bucket = %+v", buckets[0])
	}
	if buckets[1].Hour != 21 || buckets[1].SessionCount != 1 {
		t.Errorf("hour 21 bucket = %+v", buckets[1])
	}
}

func TestAggregateByProject(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	tracks := []Track{
		{Start: time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC), DurationSeconds: 3 * 3600, ProjectName: "deep-work"},
		{Start: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), DurationSeconds: 3600, ProjectName: "deep-work"},
		{Start: time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), DurationSeconds: 3600, ProjectName: ""},
	}

	shares := AggregateByProject(tracks, start, end)

	if len(shares) != 2 {
		t.Fatalf("got %d shares, want 2", len(shares))
	}
	if shares[0].ProjectName != "deep-work" {
		t.Errorf("top project = %q, want deep-work", shares[0].ProjectName)
	}
	if !shares[0].Percentage.Equal(decimal.NewFromInt(80)) {
		t.Errorf("deep-work share = %s, want 80", shares[0].Percentage)
	}
	if shares[1].ProjectName != "(none)" {
		t.Errorf("second project = %q, want (none)", shares[1].ProjectName)
	}
	if !shares[1].Percentage.Equal(decimal.NewFromInt(20)) {
		t.Errorf("(none) share = %s, want 20", shares[1].Percentage)
	}
}

func TestCalculateTrend(t *testing.T) {
	// Current window: Jan 8-14. Previous window: Jan 1-7.
	start := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 14, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name          string
		tracks        []Track
		metric        TrendMetric
		wantDirection TrendDirection
		wantChange    decimal.Decimal
	}{
		{
			name: "hours doubled",
			tracks: []Track{
				track(time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC), 3600, "prev"),
				track(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), 7200, "cur"),
			},
			metric:        MetricHours,
			wantDirection: TrendUp,
			wantChange:    decimal.NewFromInt(100),
		},
		{
			name: "hours halved",
			tracks: []Track{
				track(time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC), 7200, "prev"),
				track(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), 3600, "cur"),
			},
			metric:        MetricHours,
			wantDirection: TrendDown,
			wantChange:    decimal.NewFromInt(-50),
		},
		{
			name: "equal windows are stable",
			tracks: []Track{
				track(time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC), 3600, "prev"),
				track(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), 3600, "cur"),
			},
			metric:        MetricHours,
			wantDirection: TrendStable,
			wantChange:    decimal.Zero,
		},
		{
			name: "empty previous window reports zero change",
			tracks: []Track{
				track(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), 7200, "cur"),
			},
			metric:        MetricHours,
			wantDirection: TrendUp,
			wantChange:    decimal.Zero,
		},
		{
			name: "session count metric",
			tracks: []Track{
				track(time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC), 3600, "prev"),
				track(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), 1800, "cur"),
				track(time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC), 1800, "cur"),
			},
			metric:        MetricSessions,
			wantDirection: TrendUp,
			wantChange:    decimal.NewFromInt(100),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateTrend(tt.tracks, start, end, tt.metric)
			if got.Direction != tt.wantDirection {
				t.Errorf("Direction = %s, want %s", got.Direction, tt.wantDirection)
			}
			if !got.ChangePercent.Equal(tt.wantChange) {
				t.Errorf("ChangePercent = %s, want %s", got.ChangePercent, tt.wantChange)
			}
		})
	}
}
