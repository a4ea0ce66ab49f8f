package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tempo/internal/core"
)

// Source is an in-memory tracker fake for tests and local development.
type Source struct {
	mu    sync.Mutex
	items []core.Track
}

func New(tracks ...core.Track) *Source {
	s := &Source{}
	s.items = append(s.items, tracks...)
	return s
}

// Add records sessions to be returned by later fetches.
func (s *Source) Add(tracks ...core.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, tracks...)
}

// FetchSince returns sessions started at or after since, oldest first.
func (s *Source) FetchSince(_ context.Context, since time.Time) ([]core.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Track
	for _, t := range s.items {
		if t.Start.Before(since) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
