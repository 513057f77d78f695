package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
)

// Repository is an in-memory telemetry store, primarily for tests. It
// implements both point-kind repositories with the same ordering semantics
// as the Postgres implementation.
type Repository struct {
	mu            sync.Mutex
	nextVehicleID int64
	nextEnvID     int64
	vehicles      []telemetry.StoredVehicleState
	environmental []telemetry.StoredEnvironmental
	clock         func() time.Time
}

// NewRepository constructs an empty store.
func NewRepository() *Repository {
	return &Repository{clock: func() time.Time { return time.Now().UTC() }}
}

// Vehicles exposes the vehicle-state half of the store.
func (r *Repository) Vehicles() telemetry.VehicleStateRepository { return vehicleRepo{r} }

// Environmental exposes the environmental half of the store.
func (r *Repository) Environmental() telemetry.EnvironmentalRepository { return envRepo{r} }

type vehicleRepo struct{ *Repository }

func (r vehicleRepo) Append(_ context.Context, p telemetry.VehicleStatePoint) (telemetry.StoredVehicleState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextVehicleID++
	stored := telemetry.StoredVehicleState{
		VehicleStatePoint: p,
		ID:                r.nextVehicleID,
		CreatedAt:         r.clock(),
	}
	r.vehicles = append(r.vehicles, stored)
	return stored, nil
}

func (r vehicleRepo) Query(_ context.Context, f telemetry.QueryFilter) ([]telemetry.StoredVehicleState, error) {
	f = f.Normalize()
	r.mu.Lock()
	matched := make([]telemetry.StoredVehicleState, 0)
	for _, p := range r.vehicles {
		if matchesFilter(p.AUVID, p.Timestamp, f) {
			matched = append(matched, p)
		}
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	return page(matched, f.Offset, f.Limit), nil
}

func (r vehicleRepo) QueryRange(_ context.Context, auvID string, start, end time.Time) ([]telemetry.StoredVehicleState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]telemetry.StoredVehicleState, 0)
	for _, p := range r.vehicles {
		if inRange(p.AUVID, p.Timestamp, auvID, start, end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r vehicleRepo) Latest(_ context.Context, auvID string) (telemetry.StoredVehicleState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *telemetry.StoredVehicleState
	for i := range r.vehicles {
		p := &r.vehicles[i]
		if p.AUVID != auvID {
			continue
		}
		if latest == nil || p.Timestamp.After(latest.Timestamp) {
			latest = p
		}
	}
	if latest == nil {
		return telemetry.StoredVehicleState{}, telemetry.ErrNotFound
	}
	return *latest, nil
}

func (r vehicleRepo) CountSince(_ context.Context, auvID string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, p := range r.vehicles {
		if p.AUVID == auvID && !p.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r vehicleRepo) ListAUVIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	seen := make(map[string]struct{})
	for _, p := range r.vehicles {
		seen[p.AUVID] = struct{}{}
	}
	r.mu.Unlock()

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type envRepo struct{ *Repository }

func (r envRepo) Append(_ context.Context, p telemetry.EnvironmentalPoint) (telemetry.StoredEnvironmental, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextEnvID++
	stored := telemetry.StoredEnvironmental{
		EnvironmentalPoint: p,
		ID:                 r.nextEnvID,
		CreatedAt:          r.clock(),
	}
	r.environmental = append(r.environmental, stored)
	return stored, nil
}

func (r envRepo) Query(_ context.Context, f telemetry.QueryFilter) ([]telemetry.StoredEnvironmental, error) {
	f = f.Normalize()
	r.mu.Lock()
	matched := make([]telemetry.StoredEnvironmental, 0)
	for _, p := range r.environmental {
		if matchesFilter(p.AUVID, p.Timestamp, f) {
			matched = append(matched, p)
		}
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	return page(matched, f.Offset, f.Limit), nil
}

func (r envRepo) QueryRange(_ context.Context, auvID string, start, end time.Time) ([]telemetry.StoredEnvironmental, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]telemetry.StoredEnvironmental, 0)
	for _, p := range r.environmental {
		if inRange(p.AUVID, p.Timestamp, auvID, start, end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r envRepo) Latest(_ context.Context, auvID string) (telemetry.StoredEnvironmental, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *telemetry.StoredEnvironmental
	for i := range r.environmental {
		p := &r.environmental[i]
		if p.AUVID != auvID {
			continue
		}
		if latest == nil || p.Timestamp.After(latest.Timestamp) {
			latest = p
		}
	}
	if latest == nil {
		return telemetry.StoredEnvironmental{}, telemetry.ErrNotFound
	}
	return *latest, nil
}

func (r envRepo) CountSince(_ context.Context, auvID string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, p := range r.environmental {
		if p.AUVID == auvID && !p.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func matchesFilter(auvID string, ts time.Time, f telemetry.QueryFilter) bool {
	if f.AUVID != "" && auvID != f.AUVID {
		return false
	}
	if !f.Start.IsZero() && ts.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && ts.After(f.End) {
		return false
	}
	return true
}

func inRange(auvID string, ts time.Time, wantAUV string, start, end time.Time) bool {
	if wantAUV != "" && auvID != wantAUV {
		return false
	}
	return !ts.Before(start) && !ts.After(end)
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}
