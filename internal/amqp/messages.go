package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TrackSyncRequest asks the worker to pull new sessions from the tracker API.
// It carries only a run ID and an optional lower bound; the worker fetches
// everything else itself.
type TrackSyncRequest struct {
	RunID     string    `json:"run_id"`
	Since     time.Time `json:"since,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTrackSyncRequest creates a sync request with a fresh run ID.
func NewTrackSyncRequest(since time.Time) *TrackSyncRequest {
	return &TrackSyncRequest{
		RunID:     uuid.NewString(),
		Since:     since,
		Timestamp: time.Now(),
	}
}

func (m *TrackSyncRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TrackSyncRequestFromJSON(data []byte) (*TrackSyncRequest, error) {
	var msg TrackSyncRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// TrackSyncCompleted reports the outcome of a sync run. Published by the
// worker after each pull so other consumers can react to fresh tracks.
type TrackSyncCompleted struct {
	RunID     string    `json:"run_id"`
	Inserted  int       `json:"inserted"`
	Updated   int       `json:"updated"`
	Timestamp time.Time `json:"timestamp"`
}

func (m *TrackSyncCompleted) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TrackSyncCompletedFromJSON(data []byte) (*TrackSyncCompleted, error) {
	var msg TrackSyncCompleted
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
