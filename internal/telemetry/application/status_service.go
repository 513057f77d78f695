package application

import (
	"context"
	"errors"
	"time"

	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
)

// Clock abstracts time for status classification.
type Clock interface {
	Now() time.Time
}

// expectedPointsPerDay assumes a one-minute reporting cadence when scoring
// data completeness.
const expectedPointsPerDay = 24 * 60

// StatusReport is the derived health view of one AUV.
type StatusReport struct {
	AUVID                  string           `json:"auv_id"`
	Status                 telemetry.Status `json:"status"`
	LastUpdate             time.Time        `json:"last_update"`
	TimeSinceUpdateSeconds float64          `json:"time_since_update_seconds"`
	BatteryLevel           *float64         `json:"battery_level"`
	SystemStatus           string           `json:"system_status"`
	Position               Position         `json:"position"`
}

// Position is the last reported location of an AUV.
type Position struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Depth     *float64 `json:"depth"`
}

// LatestReport carries the most recent point of each stream kind.
type LatestReport struct {
	AUVID         string                         `json:"auv_id"`
	VehicleState  *telemetry.StoredVehicleState  `json:"auv_data"`
	Environmental *telemetry.StoredEnvironmental `json:"environmental_data"`
	Timestamp     time.Time                      `json:"timestamp"`
}

// StreamQuality scores one stream's record count against the expected
// one-minute cadence.
type StreamQuality struct {
	TotalRecords           int64   `json:"total_records"`
	ExpectedRecords        int64   `json:"expected_records"`
	CompletenessPercentage float64 `json:"completeness_percentage"`
}

// QualityReport is the 24-hour data completeness view of one AUV.
type QualityReport struct {
	AUVID               string        `json:"auv_id"`
	TimePeriod          string        `json:"time_period"`
	VehicleState        StreamQuality `json:"auv_data"`
	Environmental       StreamQuality `json:"environmental_data"`
	OverallQualityScore float64       `json:"overall_quality_score"`
}

// StatusService answers derived per-AUV queries. Status is recomputed from
// the latest stored point on every call; nothing is cached or transitioned.
type StatusService struct {
	vehicles      telemetry.VehicleStateRepository
	environmental telemetry.EnvironmentalRepository
	clock         Clock
}

// NewStatusService constructs a status service.
func NewStatusService(
	vehicles telemetry.VehicleStateRepository,
	environmental telemetry.EnvironmentalRepository,
	clock Clock,
) (*StatusService, error) {
	if vehicles == nil || environmental == nil {
		return nil, errors.New("status: nil repository")
	}
	if clock == nil {
		return nil, errors.New("status: nil clock")
	}
	return &StatusService{vehicles: vehicles, environmental: environmental, clock: clock}, nil
}

// Status classifies an AUV by its most recent vehicle-state point. An AUV
// with no recorded point at all yields ErrNotFound.
func (s *StatusService) Status(ctx context.Context, auvID string) (StatusReport, error) {
	latest, err := s.vehicles.Latest(ctx, auvID)
	if err != nil {
		return StatusReport{}, err
	}

	now := s.clock.Now()
	return StatusReport{
		AUVID:                  auvID,
		Status:                 telemetry.ClassifyStatus(now, latest.Timestamp),
		LastUpdate:             latest.Timestamp,
		TimeSinceUpdateSeconds: now.Sub(latest.Timestamp).Seconds(),
		BatteryLevel:           latest.BatteryLevel,
		SystemStatus:           latest.SystemStatus,
		Position: Position{
			Latitude:  latest.Latitude,
			Longitude: latest.Longitude,
			Depth:     latest.Depth,
		},
	}, nil
}

// Latest returns the newest point of each stream kind. A stream with no
// points is reported as nil rather than failing the whole query.
func (s *StatusService) Latest(ctx context.Context, auvID string) (LatestReport, error) {
	report := LatestReport{AUVID: auvID, Timestamp: s.clock.Now()}

	vehicle, err := s.vehicles.Latest(ctx, auvID)
	switch {
	case err == nil:
		report.VehicleState = &vehicle
	case !errors.Is(err, telemetry.ErrNotFound):
		return LatestReport{}, err
	}

	env, err := s.environmental.Latest(ctx, auvID)
	switch {
	case err == nil:
		report.Environmental = &env
	case !errors.Is(err, telemetry.ErrNotFound):
		return LatestReport{}, err
	}

	return report, nil
}

// Quality scores the last 24 hours of both streams against a one-minute
// reporting cadence.
func (s *StatusService) Quality(ctx context.Context, auvID string) (QualityReport, error) {
	since := s.clock.Now().Add(-24 * time.Hour)

	vehicleCount, err := s.vehicles.CountSince(ctx, auvID, since)
	if err != nil {
		return QualityReport{}, err
	}
	envCount, err := s.environmental.CountSince(ctx, auvID, since)
	if err != nil {
		return QualityReport{}, err
	}

	vehicleQuality := streamQuality(vehicleCount)
	envQuality := streamQuality(envCount)
	return QualityReport{
		AUVID:               auvID,
		TimePeriod:          "last_24_hours",
		VehicleState:        vehicleQuality,
		Environmental:       envQuality,
		OverallQualityScore: (vehicleQuality.CompletenessPercentage + envQuality.CompletenessPercentage) / 2,
	}, nil
}

func streamQuality(count int64) StreamQuality {
	return StreamQuality{
		TotalRecords:           count,
		ExpectedRecords:        expectedPointsPerDay,
		CompletenessPercentage: float64(count) / expectedPointsPerDay * 100,
	}
}
