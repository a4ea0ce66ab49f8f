package services

import (
	"context"
	"fmt"
	"log/slog"

	"tempo/internal/core"
	"tempo/internal/storage"

	"github.com/shopspring/decimal"
)

// AuditService owns the audit lifecycle and the hour-slot entries logged
// inside an audit. State rules: one active audit system-wide, completed and
// abandoned audits are frozen, completion requires 70% of expected hours.
type AuditService struct {
	storage *storage.SQLiteRepository
}

// AuditProgress is the derived completion view of one audit. Percentage is
// clamped to [0,100] for display.
type AuditProgress struct {
	AuditID       int64
	LoggedHours   int
	ExpectedHours int
	Percentage    decimal.Decimal
	ByQuadrant    map[int]int
}

func NewAuditService(storage *storage.SQLiteRepository) *AuditService {
	return &AuditService{storage: storage}
}

func (s *AuditService) Create(ctx context.Context, a core.Audit) (int64, error) {
	a.StartDate = core.Midnight(a.StartDate)
	a.EndDate = core.Midnight(a.EndDate)
	if err := a.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return s.storage.CreateAudit(ctx, a)
}

func (s *AuditService) Get(ctx context.Context, id int64) (core.Audit, error) {
	return s.storage.GetAudit(ctx, id)
}

func (s *AuditService) GetActive(ctx context.Context) (core.Audit, error) {
	return s.storage.GetActiveAudit(ctx)
}

func (s *AuditService) List(ctx context.Context) ([]core.Audit, error) {
	return s.storage.ListAudits(ctx)
}

// Complete transitions an active audit to completed. The transition is
// rejected when less than CompletionRatio of the expected hour slots have
// been logged.
func (s *AuditService) Complete(ctx context.Context, id int64) error {
	audit, err := s.storage.GetAudit(ctx, id)
	if err != nil {
		return err
	}
	if audit.Status != core.AuditActive {
		return fmt.Errorf("audit %d is %s: %w", id, audit.Status, core.ErrAuditFrozen)
	}

	logged, err := s.storage.CountEntries(ctx, id)
	if err != nil {
		return fmt.Errorf("count logged hours: %w", err)
	}

	expected := audit.ExpectedHours()
	required := core.CompletionRatio.Mul(decimal.NewFromInt(int64(expected)))
	if decimal.NewFromInt(int64(logged)).LessThan(required) {
		return fmt.Errorf("%w: %d of %s required hours logged (expected %d)",
			core.ErrInvalidInput, logged, required.Ceil(), expected)
	}

	if err := s.storage.UpdateAuditStatus(ctx, id, core.AuditCompleted); err != nil {
		return fmt.Errorf("complete audit: %w", err)
	}
	slog.InfoContext(ctx, "Audit completed", "audit_id", id, "logged_hours", logged, "expected_hours", expected)
	return nil
}

// Abandon transitions an active audit to abandoned.
func (s *AuditService) Abandon(ctx context.Context, id int64) error {
	audit, err := s.storage.GetAudit(ctx, id)
	if err != nil {
		return err
	}
	if audit.Status != core.AuditActive {
		return fmt.Errorf("audit %d is %s: %w", id, audit.Status, core.ErrAuditFrozen)
	}

	if err := s.storage.UpdateAuditStatus(ctx, id, core.AuditAbandoned); err != nil {
		return fmt.Errorf("abandon audit: %w", err)
	}
	slog.InfoContext(ctx, "Audit abandoned", "audit_id", id)
	return nil
}

// Progress returns logged versus expected hours and the quadrant breakdown.
func (s *AuditService) Progress(ctx context.Context, id int64) (AuditProgress, error) {
	audit, err := s.storage.GetAudit(ctx, id)
	if err != nil {
		return AuditProgress{}, err
	}

	entries, err := s.storage.ListEntries(ctx, id)
	if err != nil {
		return AuditProgress{}, fmt.Errorf("load entries: %w", err)
	}

	byQuadrant := map[int]int{1: 0, 2: 0, 3: 0, 4: 0}
	for _, e := range entries {
		byQuadrant[e.Quadrant()]++
	}

	expected := audit.ExpectedHours()
	hundred := decimal.NewFromInt(100)
	pct := decimal.Zero
	if expected > 0 {
		pct = decimal.NewFromInt(int64(len(entries))).
			Div(decimal.NewFromInt(int64(expected))).
			Mul(hundred).Round(1)
	}
	if pct.GreaterThan(hundred) {
		pct = hundred
	}

	return AuditProgress{
		AuditID:       id,
		LoggedHours:   len(entries),
		ExpectedHours: expected,
		Percentage:    pct,
		ByQuadrant:    byQuadrant,
	}, nil
}

// AddEntry logs one hour slot into an active audit.
func (s *AuditService) AddEntry(ctx context.Context, e core.TimeEntry) (int64, error) {
	audit, err := s.storage.GetAudit(ctx, e.AuditID)
	if err != nil {
		return 0, err
	}
	if audit.Status != core.AuditActive {
		return 0, fmt.Errorf("audit %d is %s: %w", audit.ID, audit.Status, core.ErrAuditFrozen)
	}
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	e.Date = core.Midnight(e.Date)
	if !audit.Contains(e.Date) {
		return 0, fmt.Errorf("%w: %v", core.ErrInvalidInput, core.ErrOutOfPeriod)
	}

	return s.storage.CreateEntry(ctx, e)
}

func (s *AuditService) ListEntries(ctx context.Context, auditID int64) ([]core.TimeEntry, error) {
	if _, err := s.storage.GetAudit(ctx, auditID); err != nil {
		return nil, err
	}
	return s.storage.ListEntries(ctx, auditID)
}

// UpdateEntry rewrites the activity and flags of a logged slot. The slot's
// date and hour are fixed; only active audits accept updates.
func (s *AuditService) UpdateEntry(ctx context.Context, e core.TimeEntry) error {
	existing, err := s.storage.GetEntry(ctx, e.ID)
	if err != nil {
		return err
	}
	audit, err := s.storage.GetAudit(ctx, existing.AuditID)
	if err != nil {
		return err
	}
	if audit.Status != core.AuditActive {
		return fmt.Errorf("audit %d is %s: %w", audit.ID, audit.Status, core.ErrAuditFrozen)
	}
	e.Hour = existing.Hour
	e.Date = existing.Date
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}

	return s.storage.UpdateEntry(ctx, e)
}

func (s *AuditService) DeleteEntry(ctx context.Context, id int64) error {
	existing, err := s.storage.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	audit, err := s.storage.GetAudit(ctx, existing.AuditID)
	if err != nil {
		return err
	}
	if audit.Status != core.AuditActive {
		return fmt.Errorf("audit %d is %s: %w", audit.ID, audit.Status, core.ErrAuditFrozen)
	}

	return s.storage.DeleteEntry(ctx, id)
}
