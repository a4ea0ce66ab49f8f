package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tempo/internal/core"
	"tempo/internal/storage"
)

// GoalService manages the Area > Category > Goal hierarchy and computes goal
// progress against the synced track set.
type GoalService struct {
	storage *storage.SQLiteRepository
	now     func() time.Time // overridable in tests
}

func NewGoalService(storage *storage.SQLiteRepository) *GoalService {
	return &GoalService{storage: storage, now: time.Now}
}

func (s *GoalService) CreateArea(ctx context.Context, a core.Area) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return s.storage.CreateArea(ctx, a)
}

func (s *GoalService) ListAreas(ctx context.Context) ([]core.Area, error) {
	return s.storage.ListAreas(ctx)
}

func (s *GoalService) UpdateArea(ctx context.Context, a core.Area) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return s.storage.UpdateArea(ctx, a)
}

func (s *GoalService) DeleteArea(ctx context.Context, id int64) error {
	return s.storage.DeleteArea(ctx, id)
}

func (s *GoalService) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return s.storage.CreateCategory(ctx, c)
}

func (s *GoalService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.storage.ListCategories(ctx)
}

func (s *GoalService) UpdateCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return s.storage.UpdateCategory(ctx, c)
}

func (s *GoalService) DeleteCategory(ctx context.Context, id int64) error {
	return s.storage.DeleteCategory(ctx, id)
}

func (s *GoalService) CreateGoal(ctx context.Context, g core.Goal) (int64, error) {
	if err := g.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return s.storage.CreateGoal(ctx, g)
}

func (s *GoalService) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	return s.storage.GetGoal(ctx, id)
}

func (s *GoalService) ListGoals(ctx context.Context, activeOnly bool) ([]core.Goal, error) {
	return s.storage.ListGoals(ctx, activeOnly)
}

func (s *GoalService) UpdateGoal(ctx context.Context, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return s.storage.UpdateGoal(ctx, g)
}

func (s *GoalService) DeleteGoal(ctx context.Context, id int64) error {
	return s.storage.DeleteGoal(ctx, id)
}

// Progress computes the current progress of one goal. Only tracks inside the
// goal's period window are fetched; the calculation itself is pure.
func (s *GoalService) Progress(ctx context.Context, goalID int64) (core.GoalProgress, error) {
	goal, err := s.storage.GetGoal(ctx, goalID)
	if err != nil {
		return core.GoalProgress{}, fmt.Errorf("load goal: %w", err)
	}

	now := s.now().UTC()
	start := core.ResolveWindow(goal.TargetPeriod).WindowStart(now)

	tracks, err := s.storage.ListTracks(ctx, start, now)
	if err != nil {
		return core.GoalProgress{}, fmt.Errorf("load tracks: %w", err)
	}

	progress := core.CalculateProgress(goal, tracks, now)
	slog.DebugContext(ctx, "Goal progress computed",
		"goal_id", goalID, "matched", progress.MatchedTracks, "status", string(progress.Status))
	return progress, nil
}

// ProgressAll computes progress for every active goal, for the dashboard view.
func (s *GoalService) ProgressAll(ctx context.Context) ([]core.GoalProgress, error) {
	goals, err := s.storage.ListGoals(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}

	now := s.now().UTC()
	results := make([]core.GoalProgress, 0, len(goals))
	for _, goal := range goals {
		start := core.ResolveWindow(goal.TargetPeriod).WindowStart(now)
		tracks, err := s.storage.ListTracks(ctx, start, now)
		if err != nil {
			return nil, fmt.Errorf("load tracks for goal %d: %w", goal.ID, err)
		}
		results = append(results, core.CalculateProgress(goal, tracks, now))
	}
	return results, nil
}
