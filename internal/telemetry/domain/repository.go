package telemetry

import (
	"context"
	"time"
)

// QueryFilter narrows a historical query. Zero values mean "no filter".
// Limit is clamped by callers to [1, MaxQueryLimit].
type QueryFilter struct {
	AUVID  string
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}

const (
	// DefaultQueryLimit applies when a caller does not set a limit.
	DefaultQueryLimit = 100
	// MaxQueryLimit bounds a single historical query.
	MaxQueryLimit = 1000
)

// Normalize applies the default and maximum limit bounds.
func (f QueryFilter) Normalize() QueryFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultQueryLimit
	}
	if f.Limit > MaxQueryLimit {
		f.Limit = MaxQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// VehicleStateRepository persists and reads vehicle-state points.
// Query returns stored points ordered newest-first. QueryRange returns every
// point in [start, end] (optionally one AUV) for aggregation, unbounded and
// in no guaranteed order. Latest returns ErrNotFound when the AUV has no
// recorded point.
type VehicleStateRepository interface {
	Append(ctx context.Context, p VehicleStatePoint) (StoredVehicleState, error)
	Query(ctx context.Context, f QueryFilter) ([]StoredVehicleState, error)
	QueryRange(ctx context.Context, auvID string, start, end time.Time) ([]StoredVehicleState, error)
	Latest(ctx context.Context, auvID string) (StoredVehicleState, error)
	CountSince(ctx context.Context, auvID string, since time.Time) (int64, error)
	// ListAUVIDs returns the distinct AUV ids with at least one recorded
	// point, sorted ascending.
	ListAUVIDs(ctx context.Context) ([]string, error)
}

// EnvironmentalRepository persists and reads environmental points.
type EnvironmentalRepository interface {
	Append(ctx context.Context, p EnvironmentalPoint) (StoredEnvironmental, error)
	Query(ctx context.Context, f QueryFilter) ([]StoredEnvironmental, error)
	QueryRange(ctx context.Context, auvID string, start, end time.Time) ([]StoredEnvironmental, error)
	Latest(ctx context.Context, auvID string) (StoredEnvironmental, error)
	CountSince(ctx context.Context, auvID string, since time.Time) (int64, error)
}
