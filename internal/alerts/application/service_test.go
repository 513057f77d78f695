package application

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"
	"time"

	alerts "github.com/tritonminingco/deepsea-data-ingestion-api/internal/alerts/domain"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/alerts/infrastructure/memory"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/audit"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *log.Logger { return log.New(discard{}, "", 0) }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type capturingNotifier struct {
	events []LifecycleEvent
}

func (n *capturingNotifier) Notify(_ context.Context, event LifecycleEvent) {
	n.events = append(n.events, event)
}

type capturingAuditor struct {
	entries []audit.Entry
}

func (a *capturingAuditor) Log(_ context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func validAlert(ts time.Time) alerts.Alert {
	return alerts.Alert{
		AUVID:       "AUV-001",
		Type:        alerts.TypeEnvironmental,
		Severity:    alerts.SeverityHigh,
		Title:       "Turbidity spike",
		Description: "Turbidity above operating threshold near collector head",
		Timestamp:   ts,
	}
}

func newService(t *testing.T, opts ...ServiceOption) (*Service, *memory.Repository) {
	t.Helper()
	store := memory.NewRepository()
	service, err := NewService(store, testLogger(), opts...)
	if err != nil {
		t.Fatalf("new alert service: %v", err)
	}
	return service, store
}

func TestCreate_DefaultsToActiveAndNotifies(t *testing.T) {
	notifier := &capturingNotifier{}
	service, _ := newService(t, WithNotifier(notifier))
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	created, err := service.Create(context.Background(), validAlert(ts))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("created alert missing id")
	}
	if created.Status != alerts.StatusActive {
		t.Fatalf("expected ACTIVE default, got %s", created.Status)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != EventNew {
		t.Fatalf("expected one new_alert event, got %+v", notifier.events)
	}
}

func TestCreate_Validation(t *testing.T) {
	service, _ := newService(t)
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		mutate func(*alerts.Alert)
	}{
		{"missing auv_id", func(a *alerts.Alert) { a.AUVID = "" }},
		{"unknown type", func(a *alerts.Alert) { a.Type = "WEATHER" }},
		{"unknown severity", func(a *alerts.Alert) { a.Severity = "EXTREME" }},
		{"missing title", func(a *alerts.Alert) { a.Title = "" }},
		{"missing description", func(a *alerts.Alert) { a.Description = "" }},
		{"missing timestamp", func(a *alerts.Alert) { a.Timestamp = time.Time{} }},
	}
	for _, tc := range cases {
		a := validAlert(ts)
		tc.mutate(&a)
		if _, err := service.Create(context.Background(), a); !alerts.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestAcknowledge_TransitionAndDoubleAck(t *testing.T) {
	now := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	notifier := &capturingNotifier{}
	auditor := &capturingAuditor{}
	service, _ := newService(t, WithNotifier(notifier), WithAuditLogger(auditor), WithClock(fixedClock{now}))

	created, err := service.Create(context.Background(), validAlert(now.Add(-time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	actor := Actor{Name: "operator-7", IP: "203.0.113.9", UserAgent: "surface-console/2.1"}
	acked, err := service.Acknowledge(context.Background(), created.ID, actor)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if acked.Status != alerts.StatusAcknowledged || acked.AcknowledgedBy != "operator-7" {
		t.Fatalf("unexpected acknowledged alert: %+v", acked)
	}
	if acked.AcknowledgedAt == nil || !acked.AcknowledgedAt.Equal(now) {
		t.Fatalf("acknowledged_at not stamped from clock: %v", acked.AcknowledgedAt)
	}

	if _, err := service.Acknowledge(context.Background(), created.ID, Actor{Name: "operator-8"}); !errors.Is(err, alerts.ErrAlreadyAcknowledged) {
		t.Fatalf("expected ErrAlreadyAcknowledged, got %v", err)
	}

	if len(auditor.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(auditor.entries))
	}
	entry := auditor.entries[0]
	if entry.Action != "alert.acknowledge" || entry.Actor != "operator-7" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if entry.IP != "203.0.113.9" || entry.UserAgent != "surface-console/2.1" {
		t.Fatalf("audit entry lost request provenance: ip=%q agent=%q", entry.IP, entry.UserAgent)
	}
	var meta map[string]any
	if err := json.Unmarshal(entry.Metadata, &meta); err != nil {
		t.Fatalf("decode audit metadata: %v", err)
	}
	if meta["auv_id"] != "AUV-001" {
		t.Fatalf("audit metadata lost auv_id: %v", meta)
	}
}

func TestResolve_TransitionAndDoubleResolve(t *testing.T) {
	now := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	notifier := &capturingNotifier{}
	service, _ := newService(t, WithNotifier(notifier), WithClock(fixedClock{now}))

	created, err := service.Create(context.Background(), validAlert(now.Add(-time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved, err := service.Resolve(context.Background(), created.ID, Actor{Name: "operator-7"}, "sensor recalibrated")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != alerts.StatusResolved || resolved.ResolutionNotes != "sensor recalibrated" {
		t.Fatalf("unexpected resolved alert: %+v", resolved)
	}
	if resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(now) {
		t.Fatalf("resolved_at not stamped from clock: %v", resolved.ResolvedAt)
	}

	if _, err := service.Resolve(context.Background(), created.ID, Actor{Name: "operator-8"}, ""); !errors.Is(err, alerts.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}

	types := []string{}
	for _, evt := range notifier.events {
		types = append(types, evt.Type)
	}
	if len(types) != 2 || types[0] != EventNew || types[1] != EventResolved {
		t.Fatalf("unexpected event sequence %v", types)
	}
}

func TestApply_StatusChangeStampsAndNotifies(t *testing.T) {
	now := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	notifier := &capturingNotifier{}
	service, _ := newService(t, WithNotifier(notifier), WithClock(fixedClock{now}))

	created, err := service.Create(context.Background(), validAlert(now.Add(-time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	status := alerts.StatusAcknowledged
	title := "Turbidity spike (reviewed)"
	updated, err := service.Apply(context.Background(), created.ID, Update{Status: &status, Title: &title})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if updated.Status != alerts.StatusAcknowledged || updated.Title != title {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.AcknowledgedAt == nil {
		t.Fatal("status change to ACKNOWLEDGED must stamp acknowledged_at")
	}

	// Same status again: no further lifecycle event.
	if _, err := service.Apply(context.Background(), created.ID, Update{Status: &status}); err != nil {
		t.Fatalf("apply same status: %v", err)
	}
	count := 0
	for _, evt := range notifier.events {
		if evt.Type == EventStatusChange {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one status_change event, got %d", count)
	}
}

func TestFeedPage_PaginationAndSummary(t *testing.T) {
	now := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	service, _ := newService(t)

	for i := 0; i < 5; i++ {
		a := validAlert(now.Add(-time.Duration(i) * time.Minute))
		if i%2 == 0 {
			a.Severity = alerts.SeverityCritical
		}
		if _, err := service.Create(context.Background(), a); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	feed, err := service.FeedPage(context.Background(), alerts.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if feed.TotalCount != 5 || len(feed.Alerts) != 2 || !feed.HasMore {
		t.Fatalf("unexpected feed page: total=%d page=%d has_more=%v", feed.TotalCount, len(feed.Alerts), feed.HasMore)
	}
	if !feed.Alerts[0].Timestamp.After(feed.Alerts[1].Timestamp) {
		t.Fatal("feed must be newest-first")
	}
	if feed.Summary.TotalAlerts != 5 || feed.Summary.ActiveAlerts != 5 || feed.Summary.CriticalAlerts != 3 {
		t.Fatalf("unexpected summary: %+v", feed.Summary)
	}
	if feed.Summary.AlertsByType[string(alerts.TypeEnvironmental)] != 5 {
		t.Fatalf("unexpected by-type counts: %v", feed.Summary.AlertsByType)
	}

	last, err := service.FeedPage(context.Background(), alerts.Filter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("last page: %v", err)
	}
	if len(last.Alerts) != 1 || last.HasMore {
		t.Fatalf("unexpected last page: page=%d has_more=%v", len(last.Alerts), last.HasMore)
	}
}

func TestDelete_Unknown(t *testing.T) {
	service, _ := newService(t)
	if err := service.Delete(context.Background(), 42); !errors.Is(err, alerts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
