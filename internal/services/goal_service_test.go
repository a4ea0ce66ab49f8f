package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tempo/internal/core"
	"tempo/internal/storage"

	"github.com/shopspring/decimal"
)

func seedHierarchy(t *testing.T, repo *storage.SQLiteRepository) int64 {
	t.Helper()
	ctx := context.Background()
	areaID, err := repo.CreateArea(ctx, core.Area{Name: "Learning"})
	if err != nil {
		t.Fatalf("CreateArea: %v", err)
	}
	catID, err := repo.CreateCategory(ctx, core.Category{AreaID: areaID, Name: "Programming"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	return catID
}

func TestCreateGoal_Invalid(t *testing.T) {
	svc := NewGoalService(newTestStorage(t))
	catID := seedHierarchy(t, svc.storage)

	tests := []struct {
		name   string
		mutate func(*core.Goal)
	}{
		{"empty name", func(g *core.Goal) { g.Name = "" }},
		{"no tags", func(g *core.Goal) { g.Tags = nil }},
		{"zero target", func(g *core.Goal) { g.TargetHours = decimal.Zero }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := core.Goal{
				CategoryID:   catID,
				Name:         "LeetCode",
				TargetHours:  decimal.NewFromInt(10),
				TargetPeriod: core.PeriodWeekly,
				Tags:         []string{"dsa"},
				Active:       true,
			}
			tt.mutate(&g)
			if _, err := svc.CreateGoal(context.Background(), g); !errors.Is(err, core.ErrInvalidInput) {
				t.Fatalf("want ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestGoalProgress_WeeklyWindow(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewGoalService(repo)
	ctx := context.Background()

	// Thursday afternoon; the weekly window opened Monday June 2.
	now := time.Date(2025, time.June, 5, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	catID := seedHierarchy(t, repo)
	goalID, err := svc.CreateGoal(ctx, core.Goal{
		CategoryID:   catID,
		Name:         "LeetCode",
		TargetHours:  decimal.NewFromInt(10),
		TargetPeriod: core.PeriodWeekly,
		Tags:         []string{"dsa"},
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	// 4h Tuesday and 2h Wednesday match; Sunday before the window and the
	// unrelated project do not.
	seedTrack(t, repo, "g-1", time.Date(2025, time.June, 3, 9, 0, 0, 0, time.UTC), 4*3600, "DSA practice")
	seedTrack(t, repo, "g-2", time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC), 2*3600, "dsa drills")
	seedTrack(t, repo, "g-3", time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC), 5*3600, "DSA practice")
	seedTrack(t, repo, "g-4", time.Date(2025, time.June, 4, 14, 0, 0, 0, time.UTC), 3600, "Cooking")

	p, err := svc.Progress(ctx, goalID)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if got := p.ActualHours.String(); got != "6" {
		t.Errorf("actual hours = %s, want 6", got)
	}
	if got := p.ProgressPercentage.String(); got != "60" {
		t.Errorf("percentage = %s, want 60", got)
	}
	if p.Status != core.StatusBehind {
		t.Errorf("status = %s, want behind", p.Status)
	}
	if got := p.RemainingHours.String(); got != "4" {
		t.Errorf("remaining = %s, want 4", got)
	}
	if p.MatchedTracks != 2 {
		t.Errorf("matched tracks = %d, want 2", p.MatchedTracks)
	}
}

func TestGoalProgress_NotFound(t *testing.T) {
	svc := NewGoalService(newTestStorage(t))
	if _, err := svc.Progress(context.Background(), 404); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
