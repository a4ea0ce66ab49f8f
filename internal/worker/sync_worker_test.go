package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tempo/internal/amqp"
	"tempo/internal/core"
	"tempo/internal/storage"
	"tempo/internal/tracker/memory"
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

func TestHandleSyncRequest_InsertsAndFinalizes(t *testing.T) {
	repo := newTestStorage(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	src := memory.New(
		core.Track{ExternalID: "s-1", Start: start, DurationSeconds: 3600, ProjectName: "DSA"},
		core.Track{ExternalID: "s-2", Start: start.Add(2 * time.Hour), DurationSeconds: 0, ProjectName: "DSA"},
	)
	w := NewSyncWorker(repo, src, time.Minute)

	if err := w.HandleSyncRequest(ctx, amqp.NewTrackSyncRequest(time.Time{})); err != nil {
		t.Fatalf("HandleSyncRequest: %v", err)
	}

	tracks, err := repo.ListTracks(ctx, start.Add(-time.Hour), start.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("len(tracks) = %d, want 2", len(tracks))
	}

	// The running session is re-fetched finalized on the next request; the
	// cursor overlap keeps it inside the window.
	src.Add(core.Track{ExternalID: "s-2", Start: start.Add(2 * time.Hour), DurationSeconds: 1800, ProjectName: "DSA"})
	if err := w.HandleSyncRequest(ctx, amqp.NewTrackSyncRequest(time.Time{})); err != nil {
		t.Fatalf("second HandleSyncRequest: %v", err)
	}

	tracks, err = repo.ListTracks(ctx, start.Add(-time.Hour), start.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("len(tracks) after resync = %d, want 2", len(tracks))
	}
	for _, tr := range tracks {
		if tr.ExternalID == "s-2" && tr.DurationSeconds != 1800 {
			t.Errorf("s-2 duration = %d, want finalized 1800", tr.DurationSeconds)
		}
	}
}

type captureResults struct {
	msgs []*amqp.TrackSyncCompleted
}

func (c *captureResults) PublishTrackSyncCompleted(_ context.Context, msg *amqp.TrackSyncCompleted) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestHandleSyncRequest_PublishesResult(t *testing.T) {
	repo := newTestStorage(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	src := memory.New(
		core.Track{ExternalID: "s-1", Start: start, DurationSeconds: 3600, ProjectName: "DSA"},
	)
	w := NewSyncWorker(repo, src, time.Minute)
	results := &captureResults{}
	w.SetResultPublisher(results)

	req := amqp.NewTrackSyncRequest(time.Time{})
	if err := w.HandleSyncRequest(ctx, req); err != nil {
		t.Fatalf("HandleSyncRequest: %v", err)
	}

	if len(results.msgs) != 1 {
		t.Fatalf("published %d results, want 1", len(results.msgs))
	}
	got := results.msgs[0]
	if got.RunID != req.RunID {
		t.Errorf("result RunID = %q, want %q", got.RunID, req.RunID)
	}
	if got.Inserted != 1 || got.Updated != 0 {
		t.Errorf("result counts = %d/%d, want 1/0", got.Inserted, got.Updated)
	}
}

func TestCursor_OverlapsLatestStart(t *testing.T) {
	repo := newTestStorage(t)
	ctx := context.Background()

	latest := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	if _, err := repo.UpsertTrack(ctx, core.Track{
		ExternalID: "s-1", Start: latest, DurationSeconds: 3600,
	}); err != nil {
		t.Fatalf("UpsertTrack: %v", err)
	}

	w := NewSyncWorker(repo, memory.New(), time.Minute)
	got, err := w.cursor(ctx)
	if err != nil {
		t.Fatalf("cursor: %v", err)
	}
	if want := latest.Add(-cursorOverlap); !got.Equal(want) {
		t.Fatalf("cursor = %v, want %v", got, want)
	}
}

func TestCursor_EmptyStore(t *testing.T) {
	w := NewSyncWorker(newTestStorage(t), memory.New(), time.Minute)
	got, err := w.cursor(context.Background())
	if err != nil {
		t.Fatalf("cursor: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("cursor = %v, want zero time on empty store", got)
	}
}
