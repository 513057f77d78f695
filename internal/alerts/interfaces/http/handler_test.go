package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/alerts/application"
	alerts "github.com/tritonminingco/deepsea-data-ingestion-api/internal/alerts/domain"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/alerts/infrastructure/memory"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/audit"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *log.Logger { return log.New(discard{}, "", 0) }

func newTestHandler(t *testing.T, opts ...application.ServiceOption) (*Handler, *application.Service) {
	t.Helper()
	service, err := application.NewService(memory.NewRepository(), testLogger(), opts...)
	if err != nil {
		t.Fatalf("new alert service: %v", err)
	}
	handler, err := NewHandler(service, testLogger())
	if err != nil {
		t.Fatalf("new alert handler: %v", err)
	}
	return handler, service
}

func createAlert(t *testing.T, handler *Handler, body string) alerts.Alert {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create alert: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var a alerts.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode created alert: %v", err)
	}
	return a
}

const sampleAlert = `{
	"auv_id": "AUV-001",
	"alert_type": "ENVIRONMENTAL",
	"severity": "HIGH",
	"title": "Turbidity spike",
	"description": "Turbidity above operating threshold",
	"timestamp": "2026-03-01T10:00:00Z"
}`

func TestCreateAndGetAlert(t *testing.T) {
	handler, _ := newTestHandler(t)
	created := createAlert(t, handler, sampleAlert)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/alerts/%d", created.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got alerts.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode alert: %v", err)
	}
	if got.ID != created.ID || got.Status != alerts.StatusActive {
		t.Fatalf("unexpected alert: %+v", got)
	}
}

func TestCreateAlert_Rejections(t *testing.T) {
	handler, _ := newTestHandler(t)

	cases := []string{
		`{not json`,
		`{"auv_id":"","alert_type":"ENVIRONMENTAL","severity":"HIGH","title":"x","description":"y","timestamp":"2026-03-01T10:00:00Z"}`,
		`{"auv_id":"AUV-001","alert_type":"WEATHER","severity":"HIGH","title":"x","description":"y","timestamp":"2026-03-01T10:00:00Z"}`,
	}
	for i, body := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("case %d: expected 400, got %d", i, rec.Code)
		}
	}
}

func TestListAlerts_FilterByStatus(t *testing.T) {
	handler, service := newTestHandler(t)
	a1 := createAlert(t, handler, sampleAlert)
	createAlert(t, handler, strings.Replace(sampleAlert, "AUV-001", "AUV-002", 1))

	if _, err := service.Acknowledge(context.Background(), a1.ID, application.Actor{Name: "operator-7"}); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/?status=ACTIVE", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []alerts.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].AUVID != "AUV-002" {
		t.Fatalf("unexpected filtered list: %+v", list)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/?status=SLEEPING", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestAcknowledgeEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)
	created := createAlert(t, handler, sampleAlert)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/alerts/%d/acknowledge?acknowledged_by=operator-7", created.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Second acknowledge is a client error.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/alerts/%d/acknowledge?acknowledged_by=operator-8", created.ID), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on double acknowledge, got %d", rec.Code)
	}

	// Missing actor.
	other := createAlert(t, handler, sampleAlert)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/alerts/%d/acknowledge", other.ID), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without acknowledged_by, got %d", rec.Code)
	}
}

type capturingAuditor struct {
	entries []audit.Entry
}

func (a *capturingAuditor) Log(_ context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func TestAcknowledgeEndpoint_AuditsRequestProvenance(t *testing.T) {
	auditor := &capturingAuditor{}
	handler, _ := newTestHandler(t, application.WithAuditLogger(auditor))
	created := createAlert(t, handler, sampleAlert)

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/alerts/%d/acknowledge?acknowledged_by=operator-7", created.ID), nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", "surface-console/2.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(auditor.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(auditor.entries))
	}
	entry := auditor.entries[0]
	if entry.Actor != "operator-7" || entry.Action != "alert.acknowledge" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if entry.IP != "203.0.113.9" {
		t.Fatalf("expected forwarded client ip, got %q", entry.IP)
	}
	if entry.UserAgent != "surface-console/2.1" {
		t.Fatalf("expected user agent recorded, got %q", entry.UserAgent)
	}
}

func TestResolveEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)
	created := createAlert(t, handler, sampleAlert)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/alerts/%d/resolve?resolved_by=operator-7&resolution_notes=recalibrated", created.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resolved alerts.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("decode resolved: %v", err)
	}
	if resolved.Status != alerts.StatusResolved || resolved.ResolutionNotes != "recalibrated" {
		t.Fatalf("unexpected resolved alert: %+v", resolved)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/alerts/%d/resolve?resolved_by=operator-8", created.ID), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on double resolve, got %d", rec.Code)
	}
}

func TestUpdateAndDeleteEndpoints(t *testing.T) {
	handler, _ := newTestHandler(t)
	created := createAlert(t, handler, sampleAlert)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut,
		fmt.Sprintf("/api/v1/alerts/%d", created.ID),
		strings.NewReader(`{"severity":"CRITICAL","message":"escalated"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated alerts.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.Severity != alerts.SeverityCritical || updated.Message != "escalated" {
		t.Fatalf("update not applied: %+v", updated)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/alerts/%d", created.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/alerts/%d", created.ID), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestFeedAndSummaryEndpoints(t *testing.T) {
	handler, _ := newTestHandler(t)
	createAlert(t, handler, sampleAlert)
	createAlert(t, handler, strings.Replace(sampleAlert, `"HIGH"`, `"CRITICAL"`, 1))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/feed/?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("feed: expected 200, got %d", rec.Code)
	}
	var feed application.Feed
	if err := json.Unmarshal(rec.Body.Bytes(), &feed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if feed.TotalCount != 2 || len(feed.Alerts) != 1 || !feed.HasMore {
		t.Fatalf("unexpected feed: %+v", feed)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/summary/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", rec.Code)
	}
	var summary alerts.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalAlerts != 2 || summary.CriticalAlerts != 1 || summary.HighSeverityAlerts != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestSSEBroker_UnsubscribeIsIdempotent(t *testing.T) {
	broker := NewSSEBroker()
	ch := broker.Subscribe()

	broker.Unsubscribe(ch)
	broker.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after unsubscribe")
	}

	// A later broadcast must not reach the retired channel.
	broker.Notify(context.Background(), application.LifecycleEvent{Type: application.EventNew})
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("retired channel received a broadcast")
		}
	default:
	}
}

func TestStream_DeliversLifecycleEvents(t *testing.T) {
	broker := NewSSEBroker()
	handler, _ := newTestHandler(t, application.WithNotifier(broker))

	server := httptest.NewServer(NewStreamHandler(broker))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/alerts/stream")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}

	reader := bufio.NewReader(resp.Body)
	// Consume the ready handshake.
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read handshake: %v", err)
		}
		if strings.TrimSpace(line) == "" {
			break
		}
	}

	deadline := time.After(2 * time.Second)
	done := make(chan string, 1)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if strings.HasPrefix(line, "data: ") {
				done <- strings.TrimSpace(strings.TrimPrefix(line, "data: "))
				return
			}
		}
	}()

	createAlert(t, handler, sampleAlert)

	select {
	case payload := <-done:
		var event application.LifecycleEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			t.Fatalf("decode stream payload: %v", err)
		}
		if event.Type != application.EventNew || event.Alert.AUVID != "AUV-001" {
			t.Fatalf("unexpected stream event: %+v", event)
		}
	case <-deadline:
		t.Fatal("no lifecycle event on stream")
	}
}
