package application

import (
	"context"
	"errors"
	"time"

	analytics "github.com/tritonminingco/deepsea-data-ingestion-api/internal/analytics/domain"
	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
)

// Request describes one aggregation query. AUVID empty means all AUVs.
type Request struct {
	AUVID    string
	Start    time.Time
	End      time.Time
	Interval analytics.Interval
	Metrics  []string
}

// Validate checks required request fields.
func (r Request) Validate() error {
	if r.Start.IsZero() {
		return &telemetry.ValidationError{Field: "start_time", Reason: "start_time is required"}
	}
	if r.End.IsZero() {
		return &telemetry.ValidationError{Field: "end_time", Reason: "end_time is required"}
	}
	if r.End.Before(r.Start) {
		return &telemetry.ValidationError{Field: "end_time", Reason: "end_time must not precede start_time"}
	}
	if len(r.Metrics) == 0 {
		return &telemetry.ValidationError{Field: "metrics", Reason: "at least one metric is required"}
	}
	return nil
}

// Service computes time-windowed statistics over stored telemetry. It reads
// from the store on demand, holds no locks and shares no mutable state, so
// concurrent queries never interact.
type Service struct {
	vehicles      telemetry.VehicleStateRepository
	environmental telemetry.EnvironmentalRepository
}

// NewService constructs an aggregation service.
func NewService(vehicles telemetry.VehicleStateRepository, environmental telemetry.EnvironmentalRepository) (*Service, error) {
	if vehicles == nil || environmental == nil {
		return nil, errors.New("analytics: nil repository")
	}
	return &Service{vehicles: vehicles, environmental: environmental}, nil
}

// AggregateVehicleState buckets vehicle-state points over [start, end].
func (s *Service) AggregateVehicleState(ctx context.Context, req Request) ([]analytics.Bucket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	stored, err := s.vehicles.QueryRange(ctx, req.AUVID, req.Start, req.End)
	if err != nil {
		return nil, &telemetry.StoreError{Op: "query vehicle-state range", Err: err}
	}
	points := make([]telemetry.VehicleStatePoint, len(stored))
	for i, p := range stored {
		points[i] = p.VehicleStatePoint
	}
	return analytics.Aggregate(
		points,
		req.Interval,
		req.Metrics,
		telemetry.VehicleStateMetrics,
		func(p telemetry.VehicleStatePoint) string { return p.AUVID },
		func(p telemetry.VehicleStatePoint) time.Time { return p.Timestamp },
	), nil
}

// AggregateEnvironmental buckets environmental points over [start, end].
func (s *Service) AggregateEnvironmental(ctx context.Context, req Request) ([]analytics.Bucket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	stored, err := s.environmental.QueryRange(ctx, req.AUVID, req.Start, req.End)
	if err != nil {
		return nil, &telemetry.StoreError{Op: "query environmental range", Err: err}
	}
	points := make([]telemetry.EnvironmentalPoint, len(stored))
	for i, p := range stored {
		points[i] = p.EnvironmentalPoint
	}
	return analytics.Aggregate(
		points,
		req.Interval,
		req.Metrics,
		telemetry.EnvironmentalMetrics,
		func(p telemetry.EnvironmentalPoint) string { return p.AUVID },
		func(p telemetry.EnvironmentalPoint) time.Time { return p.Timestamp },
	), nil
}
