package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tempo/internal/core"
	"tempo/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tempo_test.db"), 1)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func createActiveAudit(t *testing.T, svc *AuditService, start, end time.Time) int64 {
	t.Helper()
	id, err := svc.Create(context.Background(), core.Audit{
		StartDate: start,
		EndDate:   end,
		Status:    core.AuditActive,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

func TestAuditCreate_InvalidRange(t *testing.T) {
	svc := NewAuditService(newTestStorage(t))

	_, err := svc.Create(context.Background(), core.Audit{
		StartDate: day(2025, time.January, 31),
		EndDate:   day(2025, time.January, 1),
		Status:    core.AuditActive,
	})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestAuditComplete_BelowThreshold(t *testing.T) {
	svc := NewAuditService(newTestStorage(t))
	ctx := context.Background()

	// Two days, 48 expected hours, threshold of 70% needs 34.
	id := createActiveAudit(t, svc, day(2025, time.March, 1), day(2025, time.March, 2))
	for h := 0; h < 10; h++ {
		_, err := svc.AddEntry(ctx, core.TimeEntry{
			AuditID:  id,
			Date:     day(2025, time.March, 1),
			Hour:     h,
			Activity: "reading",
		})
		if err != nil {
			t.Fatalf("AddEntry hour %d: %v", h, err)
		}
	}

	err := svc.Complete(ctx, id)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}

	audit, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if audit.Status != core.AuditActive {
		t.Fatalf("status = %s, want active after rejected completion", audit.Status)
	}
}

func TestAuditComplete_AtThreshold(t *testing.T) {
	svc := NewAuditService(newTestStorage(t))
	ctx := context.Background()

	// One day, 24 expected hours, 70% rounds up to 17 required.
	id := createActiveAudit(t, svc, day(2025, time.March, 1), day(2025, time.March, 1))
	for h := 0; h < 17; h++ {
		if _, err := svc.AddEntry(ctx, core.TimeEntry{
			AuditID:  id,
			Date:     day(2025, time.March, 1),
			Hour:     h,
			Activity: "deep work",
		}); err != nil {
			t.Fatalf("AddEntry hour %d: %v", h, err)
		}
	}

	if err := svc.Complete(ctx, id); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	audit, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if audit.Status != core.AuditCompleted {
		t.Fatalf("status = %s, want completed", audit.Status)
	}
}

func TestAuditAbandon_FreezesEntries(t *testing.T) {
	svc := NewAuditService(newTestStorage(t))
	ctx := context.Background()

	id := createActiveAudit(t, svc, day(2025, time.March, 1), day(2025, time.March, 31))
	entryID, err := svc.AddEntry(ctx, core.TimeEntry{
		AuditID:  id,
		Date:     day(2025, time.March, 2),
		Hour:     9,
		Activity: "email",
	})
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	if err := svc.Abandon(ctx, id); err != nil {
		t.Fatalf("Abandon: %v", err)
	}

	_, err = svc.AddEntry(ctx, core.TimeEntry{
		AuditID:  id,
		Date:     day(2025, time.March, 3),
		Hour:     10,
		Activity: "email",
	})
	if !errors.Is(err, core.ErrAuditFrozen) {
		t.Fatalf("AddEntry after abandon: want ErrAuditFrozen, got %v", err)
	}
	if err := svc.DeleteEntry(ctx, entryID); !errors.Is(err, core.ErrAuditFrozen) {
		t.Fatalf("DeleteEntry after abandon: want ErrAuditFrozen, got %v", err)
	}
	if err := svc.Abandon(ctx, id); !errors.Is(err, core.ErrAuditFrozen) {
		t.Fatalf("second Abandon: want ErrAuditFrozen, got %v", err)
	}
}

func TestAddEntry_OutsidePeriod(t *testing.T) {
	svc := NewAuditService(newTestStorage(t))
	ctx := context.Background()

	id := createActiveAudit(t, svc, day(2025, time.March, 1), day(2025, time.March, 31))
	_, err := svc.AddEntry(ctx, core.TimeEntry{
		AuditID:  id,
		Date:     day(2025, time.April, 1),
		Hour:     8,
		Activity: "gym",
	})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestAddEntry_DuplicateSlot(t *testing.T) {
	svc := NewAuditService(newTestStorage(t))
	ctx := context.Background()

	id := createActiveAudit(t, svc, day(2025, time.March, 1), day(2025, time.March, 31))
	entry := core.TimeEntry{AuditID: id, Date: day(2025, time.March, 5), Hour: 14, Activity: "gym"}
	if _, err := svc.AddEntry(ctx, entry); err != nil {
		t.Fatalf("first AddEntry: %v", err)
	}
	if _, err := svc.AddEntry(ctx, entry); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate slot: want ErrConflict, got %v", err)
	}
}

func TestAuditProgress_Quadrants(t *testing.T) {
	svc := NewAuditService(newTestStorage(t))
	ctx := context.Background()

	// One day audit, 24 expected hours.
	id := createActiveAudit(t, svc, day(2025, time.March, 1), day(2025, time.March, 1))
	slots := []struct {
		hour              int
		important, urgent bool
	}{
		{8, true, true},    // Q1
		{9, true, false},   // Q2
		{10, true, false},  // Q2
		{11, false, true},  // Q3
		{12, false, false}, // Q4
		{13, false, false}, // Q4
	}
	for _, s := range slots {
		if _, err := svc.AddEntry(ctx, core.TimeEntry{
			AuditID:   id,
			Date:      day(2025, time.March, 1),
			Hour:      s.hour,
			Activity:  "work",
			Important: s.important,
			Urgent:    s.urgent,
		}); err != nil {
			t.Fatalf("AddEntry hour %d: %v", s.hour, err)
		}
	}

	p, err := svc.Progress(ctx, id)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if p.LoggedHours != 6 || p.ExpectedHours != 24 {
		t.Fatalf("logged/expected = %d/%d, want 6/24", p.LoggedHours, p.ExpectedHours)
	}
	if got := p.Percentage.String(); got != "25" {
		t.Fatalf("percentage = %s, want 25", got)
	}
	want := map[int]int{1: 1, 2: 2, 3: 1, 4: 2}
	for q, n := range want {
		if p.ByQuadrant[q] != n {
			t.Fatalf("quadrant %d = %d, want %d", q, p.ByQuadrant[q], n)
		}
	}
}

func TestUpdateEntry_KeepsSlot(t *testing.T) {
	svc := NewAuditService(newTestStorage(t))
	ctx := context.Background()

	id := createActiveAudit(t, svc, day(2025, time.March, 1), day(2025, time.March, 31))
	entryID, err := svc.AddEntry(ctx, core.TimeEntry{
		AuditID:  id,
		Date:     day(2025, time.March, 5),
		Hour:     14,
		Activity: "gym",
	})
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	err = svc.UpdateEntry(ctx, core.TimeEntry{
		ID:        entryID,
		Activity:  "mobility work",
		Important: true,
	})
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}

	entries, err := svc.ListEntries(ctx, id)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	got := entries[0]
	if got.Activity != "mobility work" || !got.Important {
		t.Fatalf("entry not updated: %+v", got)
	}
	if got.Hour != 14 || !got.Date.Equal(day(2025, time.March, 5)) {
		t.Fatalf("slot changed on update: %+v", got)
	}
}
