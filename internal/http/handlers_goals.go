package http

import (
	"net/http"
	"time"

	"tempo/internal/core"

	"github.com/shopspring/decimal"
)

type areaRequest struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type areaResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

func toAreaResponse(a core.Area) areaResponse {
	return areaResponse{ID: a.ID, Name: a.Name, Position: a.Position}
}

func (s *Server) handleCreateArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := DecodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	id, err := s.goals.CreateArea(r.Context(), core.Area{Name: req.Name, Position: req.Position})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, areaResponse{ID: id, Name: req.Name, Position: req.Position})
}

func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := s.goals.ListAreas(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]areaResponse, 0, len(areas))
	for _, a := range areas {
		out = append(out, toAreaResponse(a))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateArea(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req areaRequest
	if err := DecodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.goals.UpdateArea(r.Context(), core.Area{ID: id, Name: req.Name, Position: req.Position}); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, areaResponse{ID: id, Name: req.Name, Position: req.Position})
}

func (s *Server) handleDeleteArea(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.goals.DeleteArea(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type categoryRequest struct {
	AreaID int64  `json:"area_id"`
	Name   string `json:"name"`
}

type categoryResponse struct {
	ID     int64  `json:"id"`
	AreaID int64  `json:"area_id"`
	Name   string `json:"name"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	id, err := s.goals.CreateCategory(r.Context(), core.Category{AreaID: req.AreaID, Name: req.Name})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, categoryResponse{ID: id, AreaID: req.AreaID, Name: req.Name})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.goals.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{ID: c.ID, AreaID: c.AreaID, Name: c.Name})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req categoryRequest
	if err := DecodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.goals.UpdateCategory(r.Context(), core.Category{ID: id, AreaID: req.AreaID, Name: req.Name}); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categoryResponse{ID: id, AreaID: req.AreaID, Name: req.Name})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.goals.DeleteCategory(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type goalRequest struct {
	CategoryID    int64            `json:"category_id"`
	Name          string           `json:"name"`
	TargetHours   decimal.Decimal  `json:"target_hours"`
	TargetPeriod  string           `json:"target_period"`
	MinDailyHours *decimal.Decimal `json:"min_daily_hours,omitempty"`
	Tags          []string         `json:"tags"`
	Active        *bool            `json:"active,omitempty"`
}

type goalResponse struct {
	ID            int64            `json:"id"`
	CategoryID    int64            `json:"category_id"`
	Name          string           `json:"name"`
	TargetHours   decimal.Decimal  `json:"target_hours"`
	TargetPeriod  string           `json:"target_period"`
	MinDailyHours *decimal.Decimal `json:"min_daily_hours,omitempty"`
	Tags          []string         `json:"tags"`
	Active        bool             `json:"active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func toGoalResponse(g core.Goal) goalResponse {
	return goalResponse{
		ID:            g.ID,
		CategoryID:    g.CategoryID,
		Name:          g.Name,
		TargetHours:   g.TargetHours,
		TargetPeriod:  string(g.TargetPeriod),
		MinDailyHours: g.MinDailyHours,
		Tags:          g.Tags,
		Active:        g.Active,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}

func (req goalRequest) toGoal(id int64) core.Goal {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return core.Goal{
		ID:            id,
		CategoryID:    req.CategoryID,
		Name:          req.Name,
		TargetHours:   req.TargetHours,
		TargetPeriod:  core.TargetPeriod(req.TargetPeriod),
		MinDailyHours: req.MinDailyHours,
		Tags:          req.Tags,
		Active:        active,
	}
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := DecodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	id, err := s.goals.CreateGoal(r.Context(), req.toGoal(0))
	if err != nil {
		respondError(w, r, err)
		return
	}
	goal, err := s.goals.GetGoal(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toGoalResponse(goal))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	activeOnly := QueryString(r, "active", "") == "true"
	goals, err := s.goals.ListGoals(r.Context(), activeOnly)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	goal, err := s.goals.GetGoal(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toGoalResponse(goal))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req goalRequest
	if err := DecodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.goals.UpdateGoal(r.Context(), req.toGoal(id)); err != nil {
		respondError(w, r, err)
		return
	}
	goal, err := s.goals.GetGoal(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toGoalResponse(goal))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.goals.DeleteGoal(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type progressResponse struct {
	GoalID         int64           `json:"goal_id"`
	ActualHours    decimal.Decimal `json:"actual_hours"`
	Percentage     decimal.Decimal `json:"percentage"`
	Status         string          `json:"status"`
	RemainingHours decimal.Decimal `json:"remaining_hours"`
	MatchedTracks  int             `json:"matched_tracks"`
}

func toProgressResponse(p core.GoalProgress) progressResponse {
	return progressResponse{
		GoalID:         p.GoalID,
		ActualHours:    p.ActualHours,
		Percentage:     p.ProgressPercentage,
		Status:         string(p.Status),
		RemainingHours: p.RemainingHours,
		MatchedTracks:  p.MatchedTracks,
	}
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	p, err := s.goals.Progress(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProgressResponse(p))
}

func (s *Server) handleAllGoalProgress(w http.ResponseWriter, r *http.Request) {
	all, err := s.goals.ProgressAll(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]progressResponse, 0, len(all))
	for _, p := range all {
		out = append(out, toProgressResponse(p))
	}
	respondJSON(w, http.StatusOK, out)
}
