package telemetry

// MetricAccessor reads one named numeric metric from a point. It returns nil
// when the value is missing on that sample.
type MetricAccessor[P any] func(p P) *float64

// VehicleStateMetrics enumerates the aggregatable numeric fields of a
// vehicle-state point. Metric names requested outside this registry are
// silently omitted from aggregation results.
var VehicleStateMetrics = map[string]MetricAccessor[VehicleStatePoint]{
	"latitude":      func(p VehicleStatePoint) *float64 { return p.Latitude },
	"longitude":     func(p VehicleStatePoint) *float64 { return p.Longitude },
	"depth":         func(p VehicleStatePoint) *float64 { return p.Depth },
	"altitude":      func(p VehicleStatePoint) *float64 { return p.Altitude },
	"heading":       func(p VehicleStatePoint) *float64 { return p.Heading },
	"speed":         func(p VehicleStatePoint) *float64 { return p.Speed },
	"battery_level": func(p VehicleStatePoint) *float64 { return p.BatteryLevel },
	"temperature":   func(p VehicleStatePoint) *float64 { return p.Temperature },
	"pressure":      func(p VehicleStatePoint) *float64 { return p.Pressure },
}

// EnvironmentalMetrics enumerates the aggregatable numeric fields of an
// environmental point.
var EnvironmentalMetrics = map[string]MetricAccessor[EnvironmentalPoint]{
	"water_temperature":  func(p EnvironmentalPoint) *float64 { return p.WaterTemperature },
	"salinity":           func(p EnvironmentalPoint) *float64 { return p.Salinity },
	"ph_level":           func(p EnvironmentalPoint) *float64 { return p.PHLevel },
	"dissolved_oxygen":   func(p EnvironmentalPoint) *float64 { return p.DissolvedOxygen },
	"turbidity":          func(p EnvironmentalPoint) *float64 { return p.Turbidity },
	"current_speed":      func(p EnvironmentalPoint) *float64 { return p.CurrentSpeed },
	"current_direction":  func(p EnvironmentalPoint) *float64 { return p.CurrentDirection },
	"data_quality_score": func(p EnvironmentalPoint) *float64 { return p.DataQualityScore },
}
