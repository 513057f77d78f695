package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/distribution"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/observability/metrics"
	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
)

// EventPublisher fans out a distribution event. Publish must never block on
// slow subscribers; the broker guarantees that.
type EventPublisher interface {
	Publish(topic distribution.Topic, event distribution.Event)
}

// IngestionService is the write path for telemetry points: validate, persist,
// then announce. The publish happens only after the store write returned
// success, and its outcome never affects the ingestion result. There is no
// transaction spanning both steps, so a live subscriber may see an event
// slightly before the point is visible to a historical query; that race is
// accepted.
type IngestionService struct {
	vehicles      telemetry.VehicleStateRepository
	environmental telemetry.EnvironmentalRepository
	publisher     EventPublisher
	logger        *log.Logger
}

// NewIngestionService constructs the gateway.
func NewIngestionService(
	vehicles telemetry.VehicleStateRepository,
	environmental telemetry.EnvironmentalRepository,
	publisher EventPublisher,
	logger *log.Logger,
) (*IngestionService, error) {
	if vehicles == nil || environmental == nil {
		return nil, errors.New("ingestion: nil repository")
	}
	if publisher == nil {
		return nil, errors.New("ingestion: nil publisher")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestionService{
		vehicles:      vehicles,
		environmental: environmental,
		publisher:     publisher,
		logger:        logger,
	}, nil
}

// IngestVehicleState validates and persists a vehicle-state point, then
// publishes it on the (auv_id, vehicle_state) topic.
func (s *IngestionService) IngestVehicleState(ctx context.Context, p telemetry.VehicleStatePoint) (telemetry.StoredVehicleState, error) {
	started := time.Now()
	if err := p.Validate(); err != nil {
		metrics.ObserveIngest(string(telemetry.StreamVehicleState), metrics.ResultError, time.Since(started))
		metrics.IncIngestError("validation")
		return telemetry.StoredVehicleState{}, err
	}

	stored, err := s.vehicles.Append(ctx, p)
	if err != nil {
		metrics.ObserveIngest(string(telemetry.StreamVehicleState), metrics.ResultError, time.Since(started))
		metrics.IncIngestError("store")
		return telemetry.StoredVehicleState{}, &telemetry.StoreError{Op: "append vehicle-state", Err: err}
	}

	s.publish(telemetry.StreamVehicleState, stored.AUVID, stored.Timestamp, stored)
	metrics.ObserveIngest(string(telemetry.StreamVehicleState), metrics.ResultSuccess, time.Since(started))
	return stored, nil
}

// IngestEnvironmental validates and persists an environmental point, then
// publishes it on the (auv_id, environmental) topic.
func (s *IngestionService) IngestEnvironmental(ctx context.Context, p telemetry.EnvironmentalPoint) (telemetry.StoredEnvironmental, error) {
	started := time.Now()
	if err := p.Validate(); err != nil {
		metrics.ObserveIngest(string(telemetry.StreamEnvironmental), metrics.ResultError, time.Since(started))
		metrics.IncIngestError("validation")
		return telemetry.StoredEnvironmental{}, err
	}

	stored, err := s.environmental.Append(ctx, p)
	if err != nil {
		metrics.ObserveIngest(string(telemetry.StreamEnvironmental), metrics.ResultError, time.Since(started))
		metrics.IncIngestError("store")
		return telemetry.StoredEnvironmental{}, &telemetry.StoreError{Op: "append environmental", Err: err}
	}

	s.publish(telemetry.StreamEnvironmental, stored.AUVID, stored.Timestamp, stored)
	metrics.ObserveIngest(string(telemetry.StreamEnvironmental), metrics.ResultSuccess, time.Since(started))
	return stored, nil
}

// publish is fire-and-forget: an encoding failure is logged and swallowed so
// the caller's ingestion result is never affected.
func (s *IngestionService) publish(kind telemetry.StreamKind, auvID string, ts time.Time, point any) {
	evt, err := distribution.NewEvent(kind, auvID, ts, point)
	if err != nil {
		s.logger.Printf("ingestion: encode distribution event: %v", err)
		return
	}
	s.publisher.Publish(evt.Topic(), evt)
	metrics.IncEventPublished(string(kind))
}
