package telemetry

import (
	"encoding/json"
	"time"
)

// StreamKind identifies which of the two telemetry streams a point belongs to.
type StreamKind string

const (
	StreamVehicleState  StreamKind = "vehicle_state"
	StreamEnvironmental StreamKind = "environmental"
)

// IsValid checks if the kind is one of the supported streams.
func (k StreamKind) IsValid() bool {
	switch k {
	case StreamVehicleState, StreamEnvironmental:
		return true
	default:
		return false
	}
}

// VehicleStatePoint is one vehicle-state telemetry sample reported by an AUV.
// Timestamp is required; all measurement fields are optional.
type VehicleStatePoint struct {
	AUVID     string    `json:"auv_id"`
	Timestamp time.Time `json:"timestamp"`

	// Position and navigation
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Depth     *float64 `json:"depth,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`

	// System status
	BatteryLevel *float64 `json:"battery_level,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Pressure     *float64 `json:"pressure,omitempty"`
	SystemStatus string   `json:"system_status,omitempty"`

	// Mission context
	MissionID    string `json:"mission_id,omitempty"`
	MissionPhase string `json:"mission_phase,omitempty"`

	// Free-form extension metrics
	TelemetryData map[string]any `json:"telemetry_data,omitempty"`
}

// EnvironmentalPoint is one environmental sample reported by an AUV.
type EnvironmentalPoint struct {
	AUVID     string    `json:"auv_id"`
	Timestamp time.Time `json:"timestamp"`

	WaterTemperature *float64 `json:"water_temperature,omitempty"`
	Salinity         *float64 `json:"salinity,omitempty"`
	PHLevel          *float64 `json:"ph_level,omitempty"`
	DissolvedOxygen  *float64 `json:"dissolved_oxygen,omitempty"`
	Turbidity        *float64 `json:"turbidity,omitempty"`
	CurrentSpeed     *float64 `json:"current_speed,omitempty"`
	CurrentDirection *float64 `json:"current_direction,omitempty"`

	SensorData map[string]any `json:"sensor_data,omitempty"`

	DataQualityScore *float64 `json:"data_quality_score,omitempty"`
	SensorStatus     string   `json:"sensor_status,omitempty"`
}

// StoredVehicleState is a vehicle-state point after the store assigned
// identity and creation time.
type StoredVehicleState struct {
	VehicleStatePoint
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// StoredEnvironmental is an environmental point after the store assigned
// identity and creation time.
type StoredEnvironmental struct {
	EnvironmentalPoint
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate enforces ingestion invariants for a vehicle-state point.
func (p VehicleStatePoint) Validate() error {
	if p.AUVID == "" {
		return &ValidationError{Field: "auv_id", Reason: "auv_id is required"}
	}
	if p.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "timestamp is required"}
	}
	if p.BatteryLevel != nil && (*p.BatteryLevel < 0 || *p.BatteryLevel > 100) {
		return &ValidationError{Field: "battery_level", Reason: "battery_level must be in [0,100]"}
	}
	return nil
}

// Validate enforces ingestion invariants for an environmental point.
func (p EnvironmentalPoint) Validate() error {
	if p.AUVID == "" {
		return &ValidationError{Field: "auv_id", Reason: "auv_id is required"}
	}
	if p.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "timestamp is required"}
	}
	if p.DataQualityScore != nil && (*p.DataQualityScore < 0 || *p.DataQualityScore > 100) {
		return &ValidationError{Field: "data_quality_score", Reason: "data_quality_score must be in [0,100]"}
	}
	return nil
}

// EncodeExtension marshals a free-form extension map for storage. A nil map
// becomes a SQL NULL (nil bytes).
func EncodeExtension(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// DecodeExtension unmarshals a stored extension column.
func DecodeExtension(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
