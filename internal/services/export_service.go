package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"tempo/internal/core"
	"tempo/internal/export"
	"tempo/internal/storage"
)

// ExportService builds audit reports and hands them to the configured
// destination. A nil writer means exporting is disabled.
type ExportService struct {
	storage *storage.SQLiteRepository
	writer  export.ReportWriter
}

func NewExportService(storage *storage.SQLiteRepository, writer export.ReportWriter) *ExportService {
	return &ExportService{storage: storage, writer: writer}
}

func (s *ExportService) Enabled() bool {
	return s.writer != nil
}

// ExportAudit summarizes the audit per day and appends it to the destination.
func (s *ExportService) ExportAudit(ctx context.Context, auditID int64) (string, error) {
	if s.writer == nil {
		return "", fmt.Errorf("%w: export destination not configured", core.ErrInvalidInput)
	}

	audit, err := s.storage.GetAudit(ctx, auditID)
	if err != nil {
		return "", err
	}
	entries, err := s.storage.ListEntries(ctx, auditID)
	if err != nil {
		return "", fmt.Errorf("load entries: %w", err)
	}

	report := buildReport(audit, entries)
	ref, err := s.writer.AppendReport(ctx, report)
	if err != nil {
		return "", fmt.Errorf("append report: %w", err)
	}

	slog.InfoContext(ctx, "Audit exported", "audit_id", auditID, "ref", ref)
	return ref, nil
}

func buildReport(audit core.Audit, entries []core.TimeEntry) export.AuditReport {
	byDay := make(map[time.Time]*export.DayRow)
	for _, e := range entries {
		d := core.Midnight(e.Date)
		row, ok := byDay[d]
		if !ok {
			row = &export.DayRow{Date: d}
			byDay[d] = row
		}
		row.LoggedHours++
		row.Quadrants[e.Quadrant()-1]++
	}

	days := make([]export.DayRow, 0, len(byDay))
	for _, row := range byDay {
		days = append(days, *row)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	return export.AuditReport{
		AuditID:       audit.ID,
		StartDate:     audit.StartDate,
		EndDate:       audit.EndDate,
		Status:        string(audit.Status),
		LoggedHours:   len(entries),
		ExpectedHours: audit.ExpectedHours(),
		Days:          days,
	}
}
