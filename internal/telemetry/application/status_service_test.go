package application

import (
	"context"
	"errors"
	"testing"
	"time"

	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/infrastructure/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func appendVehicle(t *testing.T, store *memory.Repository, auvID string, ts time.Time) {
	t.Helper()
	if _, err := store.Vehicles().Append(context.Background(), telemetry.VehicleStatePoint{
		AUVID: auvID, Timestamp: ts,
	}); err != nil {
		t.Fatalf("append vehicle point: %v", err)
	}
}

func TestStatus_ClassificationBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		age  time.Duration
		want telemetry.Status
	}{
		{"just under active threshold", 299 * time.Second, telemetry.StatusActive},
		{"exactly at active threshold", 300 * time.Second, telemetry.StatusWarning},
		{"just under warning threshold", 3599 * time.Second, telemetry.StatusWarning},
		{"exactly at warning threshold", 3600 * time.Second, telemetry.StatusInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewRepository()
			appendVehicle(t, store, "AUV-001", now.Add(-tc.age))

			service, err := NewStatusService(store.Vehicles(), store.Environmental(), fixedClock{now})
			if err != nil {
				t.Fatalf("new status service: %v", err)
			}
			report, err := service.Status(context.Background(), "AUV-001")
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			if report.Status != tc.want {
				t.Fatalf("age %s: expected %s, got %s", tc.age, tc.want, report.Status)
			}
			if report.TimeSinceUpdateSeconds != tc.age.Seconds() {
				t.Fatalf("expected %.0f seconds since update, got %.0f", tc.age.Seconds(), report.TimeSinceUpdateSeconds)
			}
		})
	}
}

func TestStatus_UnknownAUV(t *testing.T) {
	store := memory.NewRepository()
	service, err := NewStatusService(store.Vehicles(), store.Environmental(), fixedClock{time.Now()})
	if err != nil {
		t.Fatalf("new status service: %v", err)
	}
	if _, err := service.Status(context.Background(), "AUV-404"); !errors.Is(err, telemetry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLatest_MissingStreamIsNil(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewRepository()
	appendVehicle(t, store, "AUV-002", now.Add(-time.Minute))

	service, err := NewStatusService(store.Vehicles(), store.Environmental(), fixedClock{now})
	if err != nil {
		t.Fatalf("new status service: %v", err)
	}
	report, err := service.Latest(context.Background(), "AUV-002")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if report.VehicleState == nil {
		t.Fatal("expected vehicle-state point in report")
	}
	if report.Environmental != nil {
		t.Fatalf("expected nil environmental stream, got %+v", report.Environmental)
	}
	if !report.Timestamp.Equal(now) {
		t.Fatalf("report timestamp should come from the clock, got %s", report.Timestamp)
	}
}

func TestLatest_PicksNewestPoint(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewRepository()
	appendVehicle(t, store, "AUV-003", now.Add(-3*time.Minute))
	appendVehicle(t, store, "AUV-003", now.Add(-time.Minute))
	appendVehicle(t, store, "AUV-003", now.Add(-2*time.Minute))

	service, err := NewStatusService(store.Vehicles(), store.Environmental(), fixedClock{now})
	if err != nil {
		t.Fatalf("new status service: %v", err)
	}
	report, err := service.Latest(context.Background(), "AUV-003")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	want := now.Add(-time.Minute)
	if report.VehicleState == nil || !report.VehicleState.Timestamp.Equal(want) {
		t.Fatalf("expected newest point at %s, got %+v", want, report.VehicleState)
	}
}

func TestQuality_CompletenessScore(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewRepository()
	// 720 vehicle points inside the window, plus one just outside it.
	for i := 0; i < 720; i++ {
		appendVehicle(t, store, "AUV-004", now.Add(-time.Duration(i)*time.Minute))
	}
	appendVehicle(t, store, "AUV-004", now.Add(-25*time.Hour))

	service, err := NewStatusService(store.Vehicles(), store.Environmental(), fixedClock{now})
	if err != nil {
		t.Fatalf("new status service: %v", err)
	}
	report, err := service.Quality(context.Background(), "AUV-004")
	if err != nil {
		t.Fatalf("quality: %v", err)
	}
	if report.VehicleState.TotalRecords != 720 {
		t.Fatalf("expected 720 records in window, got %d", report.VehicleState.TotalRecords)
	}
	if report.VehicleState.ExpectedRecords != 1440 {
		t.Fatalf("expected 1440 expected records, got %d", report.VehicleState.ExpectedRecords)
	}
	if report.VehicleState.CompletenessPercentage != 50 {
		t.Fatalf("expected 50%% completeness, got %.2f", report.VehicleState.CompletenessPercentage)
	}
	if report.Environmental.TotalRecords != 0 {
		t.Fatalf("expected empty environmental stream, got %d", report.Environmental.TotalRecords)
	}
	if report.OverallQualityScore != 25 {
		t.Fatalf("expected overall score 25, got %.2f", report.OverallQualityScore)
	}
}
