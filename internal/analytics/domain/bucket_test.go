package analytics

import (
	"testing"
	"time"

	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
)

func vehiclePoint(auvID string, ts time.Time, battery *float64) telemetry.VehicleStatePoint {
	return telemetry.VehicleStatePoint{AUVID: auvID, Timestamp: ts, BatteryLevel: battery}
}

func f(v float64) *float64 { return &v }

func aggregateVehicle(points []telemetry.VehicleStatePoint, interval Interval, metrics []string) []Bucket {
	return Aggregate(
		points,
		interval,
		metrics,
		telemetry.VehicleStateMetrics,
		func(p telemetry.VehicleStatePoint) string { return p.AUVID },
		func(p telemetry.VehicleStatePoint) time.Time { return p.Timestamp },
	)
}

func TestAggregate_EmptyInputYieldsEmptySlice(t *testing.T) {
	buckets := aggregateVehicle(nil, Interval1h, []string{"battery_level"})
	if len(buckets) != 0 {
		t.Fatalf("expected empty result, got %d buckets", len(buckets))
	}
}

func TestAggregate_SinglePointStats(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	buckets := aggregateVehicle(
		[]telemetry.VehicleStatePoint{vehiclePoint("AUV-009", t0, f(42.0))},
		Interval1h,
		[]string{"battery_level"},
	)
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	b := buckets[0]
	if !b.IntervalStart.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected interval start %s", b.IntervalStart)
	}
	stats, ok := b.Metrics["battery_level"]
	if !ok {
		t.Fatal("battery_level missing from bucket")
	}
	if stats.Min != 42.0 || stats.Max != 42.0 || stats.Avg != 42.0 || stats.Count != 1 {
		t.Fatalf("expected min=max=avg=42.0 count=1, got %+v", stats)
	}
}

func TestAggregate_IntervalEndMatchesWidth(t *testing.T) {
	ts := time.Date(2026, 3, 1, 13, 47, 0, 0, time.UTC)
	points := []telemetry.VehicleStatePoint{vehiclePoint("AUV-001", ts, f(50))}
	for _, interval := range []Interval{Interval1m, Interval5m, Interval15m, Interval1h, Interval1d} {
		buckets := aggregateVehicle(points, interval, []string{"battery_level"})
		if len(buckets) != 1 {
			t.Fatalf("%s: expected 1 bucket, got %d", interval, len(buckets))
		}
		got := buckets[0].IntervalEnd.Sub(buckets[0].IntervalStart)
		if got != interval.Duration() {
			t.Errorf("%s: interval_end-interval_start = %s, want %s", interval, got, interval.Duration())
		}
	}
}

func TestAggregate_GroupsByBucketAndAUV(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	points := []telemetry.VehicleStatePoint{
		vehiclePoint("AUV-002", base.Add(2*time.Minute), f(80)),
		vehiclePoint("AUV-001", base.Add(3*time.Minute), f(60)),
		vehiclePoint("AUV-001", base.Add(4*time.Minute), f(70)),
		vehiclePoint("AUV-001", base.Add(90*time.Minute), f(40)),
	}
	buckets := aggregateVehicle(points, Interval1h, []string{"battery_level"})
	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(buckets))
	}

	// Ordered by interval_start ascending, ties broken by AUV id.
	if buckets[0].AUVID != "AUV-001" || buckets[1].AUVID != "AUV-002" {
		t.Fatalf("unexpected tie-break order: %s, %s", buckets[0].AUVID, buckets[1].AUVID)
	}
	if !buckets[2].IntervalStart.After(buckets[1].IntervalStart) {
		t.Fatal("buckets not ordered by interval start")
	}

	first := buckets[0].Metrics["battery_level"]
	if first.Min != 60 || first.Max != 70 || first.Avg != 65 || first.Count != 2 {
		t.Fatalf("unexpected stats for AUV-001 first hour: %+v", first)
	}
}

func TestAggregate_UnknownMetricOmitted(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	buckets := aggregateVehicle(
		[]telemetry.VehicleStatePoint{vehiclePoint("AUV-001", t0, f(42))},
		Interval1h,
		[]string{"battery_level", "salinity"},
	)
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	if _, ok := buckets[0].Metrics["salinity"]; ok {
		t.Fatal("salinity is not a vehicle-state metric and must be omitted")
	}
	if _, ok := buckets[0].Metrics["battery_level"]; !ok {
		t.Fatal("battery_level missing")
	}
}

func TestAggregate_MissingValuesExcludedFromCount(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	points := []telemetry.VehicleStatePoint{
		vehiclePoint("AUV-001", t0, f(30)),
		vehiclePoint("AUV-001", t0.Add(time.Minute), nil),
		vehiclePoint("AUV-001", t0.Add(2*time.Minute), f(50)),
	}
	buckets := aggregateVehicle(points, Interval1h, []string{"battery_level"})
	stats := buckets[0].Metrics["battery_level"]
	if stats.Count != 2 {
		t.Fatalf("missing values must not count, got count=%d", stats.Count)
	}
	if stats.Avg != 40 {
		t.Fatalf("expected avg 40, got %v", stats.Avg)
	}
}

func TestAggregate_EnvironmentalMetrics(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 7, 0, 0, time.UTC)
	points := []telemetry.EnvironmentalPoint{
		{AUVID: "AUV-001", Timestamp: t0, Salinity: f(35.1)},
		{AUVID: "AUV-001", Timestamp: t0.Add(4 * time.Minute), Salinity: f(35.3)},
	}
	buckets := Aggregate(
		points,
		Interval5m,
		[]string{"salinity"},
		telemetry.EnvironmentalMetrics,
		func(p telemetry.EnvironmentalPoint) string { return p.AUVID },
		func(p telemetry.EnvironmentalPoint) time.Time { return p.Timestamp },
	)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 five-minute buckets, got %d", len(buckets))
	}
	if !buckets[0].IntervalStart.Equal(time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)) {
		t.Fatalf("unexpected bucket start %s", buckets[0].IntervalStart)
	}
}
