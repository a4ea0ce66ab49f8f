package tracker

import (
	"context"
	"time"

	"tempo/internal/core"
)

// Source is the inbound port for the external time tracker.
type Source interface {
	// FetchSince returns every session started at or after since, oldest
	// first. Running sessions are included with a non-positive duration.
	FetchSince(ctx context.Context, since time.Time) ([]core.Track, error)
}
