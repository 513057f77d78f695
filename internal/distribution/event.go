package distribution

import (
	"encoding/json"
	"time"

	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
)

// Topic addresses one distribution stream: a single AUV on a single stream
// kind. Topics are disjoint across AUVs, so publishers on different vehicles
// never contend on delivery ordering.
type Topic struct {
	AUVID string
	Kind  telemetry.StreamKind
}

// Event is the immutable payload fanned out to subscribers after a point is
// accepted. It is shared by value; subscribers never observe mutation.
type Event struct {
	Type      telemetry.StreamKind `json:"type"`
	AUVID     string               `json:"auv_id"`
	Timestamp string               `json:"timestamp"`
	Data      json.RawMessage      `json:"data"`
}

// NewEvent builds an event for an ingested point. The timestamp is fixed to
// RFC3339 so every subscriber sees the same textual form.
func NewEvent(kind telemetry.StreamKind, auvID string, ts time.Time, point any) (Event, error) {
	data, err := json.Marshal(point)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      kind,
		AUVID:     auvID,
		Timestamp: ts.UTC().Format(time.RFC3339),
		Data:      data,
	}, nil
}

// Topic returns the topic this event is published on.
func (e Event) Topic() Topic {
	return Topic{AUVID: e.AUVID, Kind: e.Type}
}
