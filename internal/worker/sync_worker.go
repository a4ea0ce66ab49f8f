package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tempo/internal/amqp"
	"tempo/internal/storage"
	"tempo/internal/tracker"
)

// Overlap subtracted from the stored cursor so sessions that were still
// running on the previous pull are re-fetched with their final duration.
const cursorOverlap = 24 * time.Hour

// ResultPublisher reports sync run outcomes. Optional.
type ResultPublisher interface {
	PublishTrackSyncCompleted(ctx context.Context, msg *amqp.TrackSyncCompleted) error
}

// SyncWorker pulls sessions from the external tracker into SQLite. It runs on
// demand (AMQP sync requests) and on a fixed interval.
type SyncWorker struct {
	storage  *storage.SQLiteRepository
	source   tracker.Source
	interval time.Duration
	results  ResultPublisher
}

func NewSyncWorker(storage *storage.SQLiteRepository, source tracker.Source, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		storage:  storage,
		source:   source,
		interval: interval,
	}
}

// SetResultPublisher enables completion messages after each handled request.
func (w *SyncWorker) SetResultPublisher(p ResultPublisher) {
	w.results = p
}

// HandleSyncRequest processes a single sync request from AMQP.
func (w *SyncWorker) HandleSyncRequest(ctx context.Context, msg *amqp.TrackSyncRequest) error {
	slog.InfoContext(ctx, "Processing sync request", "run_id", msg.RunID)

	since := msg.Since
	if since.IsZero() {
		cursor, err := w.cursor(ctx)
		if err != nil {
			return err
		}
		since = cursor
	}

	inserted, updated, err := w.pull(ctx, since)
	if err != nil {
		return fmt.Errorf("pull tracks: %w", err)
	}

	slog.InfoContext(ctx, "Sync request completed",
		"run_id", msg.RunID, "inserted", inserted, "updated", updated)

	if w.results != nil {
		completed := &amqp.TrackSyncCompleted{
			RunID:     msg.RunID,
			Inserted:  inserted,
			Updated:   updated,
			Timestamp: time.Now(),
		}
		// Announce-only: a failed result publish does not fail the run.
		if err := w.results.PublishTrackSyncCompleted(ctx, completed); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync result", "error", err, "run_id", msg.RunID)
		}
	}
	return nil
}

// SyncNow performs a single cursor-based pull.
func (w *SyncWorker) SyncNow(ctx context.Context) error {
	since, err := w.cursor(ctx)
	if err != nil {
		return err
	}
	inserted, updated, err := w.pull(ctx, since)
	if err != nil {
		return fmt.Errorf("pull tracks: %w", err)
	}
	slog.InfoContext(ctx, "Sync completed", "inserted", inserted, "updated", updated)
	return nil
}

// RunPeriodic pulls on the configured interval until the context is done. A
// failed pull is logged and retried on the next tick.
func (w *SyncWorker) RunPeriodic(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Periodic sync started", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Periodic sync stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.SyncNow(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}

// cursor derives the lower bound of the next pull from the latest stored
// session, backed off by the overlap window.
func (w *SyncWorker) cursor(ctx context.Context) (time.Time, error) {
	latest, err := w.storage.LatestTrackStart(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest track start: %w", err)
	}
	if latest.IsZero() {
		return time.Time{}, nil
	}
	return latest.Add(-cursorOverlap), nil
}

func (w *SyncWorker) pull(ctx context.Context, since time.Time) (inserted, updated int, err error) {
	tracks, err := w.source.FetchSince(ctx, since)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch sessions: %w", err)
	}

	for _, t := range tracks {
		fresh, err := w.storage.UpsertTrack(ctx, t)
		if err != nil {
			return inserted, updated, fmt.Errorf("upsert track %s: %w", t.ExternalID, err)
		}
		if fresh {
			inserted++
		} else {
			updated++
		}
	}
	return inserted, updated, nil
}
