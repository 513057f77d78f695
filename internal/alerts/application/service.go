package application

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	alerts "github.com/tritonminingco/deepsea-data-ingestion-api/internal/alerts/domain"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/audit"
	"github.com/tritonminingco/deepsea-data-ingestion-api/internal/observability/metrics"
)

// Notifier publishes alert lifecycle events to live subscribers.
type Notifier interface {
	Notify(ctx context.Context, event LifecycleEvent)
}

// LifecycleEvent represents one alert lifecycle update.
type LifecycleEvent struct {
	Type  string       `json:"type"`
	Alert alerts.Alert `json:"alert"`
}

// Lifecycle event types.
const (
	EventNew          = "new_alert"
	EventStatusChange = "alert_status_change"
	EventAcknowledged = "alert_acknowledged"
	EventResolved     = "alert_resolved"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Actor identifies who performed a lifecycle transition, with the request
// provenance recorded in the audit log.
type Actor struct {
	Name      string
	IP        string
	UserAgent string
}

// Update carries the mutable alert fields; nil means "leave unchanged".
type Update struct {
	Severity        *alerts.Severity
	Status          *alerts.LifecycleStatus
	Title           *string
	Description     *string
	Message         *string
	ResolutionNotes *string
}

// Feed bundles a page of alerts with summary statistics.
type Feed struct {
	Alerts     []alerts.Alert `json:"alerts"`
	Summary    alerts.Summary `json:"summary"`
	TotalCount int64          `json:"total_count"`
	HasMore    bool           `json:"has_more"`
}

// Service handles alert bookkeeping and lifecycle transitions.
type Service struct {
	repo     alerts.Repository
	notifier Notifier
	auditor  audit.Logger
	clock    Clock
	logger   *log.Logger
}

// ServiceOption customizes the alert service.
type ServiceOption func(*Service)

// WithNotifier assigns a notifier.
func WithNotifier(notifier Notifier) ServiceOption {
	return func(s *Service) { s.notifier = notifier }
}

// WithAuditLogger assigns an audit sink for lifecycle transitions.
func WithAuditLogger(auditor audit.Logger) ServiceOption {
	return func(s *Service) { s.auditor = auditor }
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

// NewService constructs an alert service.
func NewService(repo alerts.Repository, logger *log.Logger, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("alerts: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{repo: repo, clock: systemClock{}, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create validates and stores a new alert, then announces it.
func (s *Service) Create(ctx context.Context, a alerts.Alert) (alerts.Alert, error) {
	if a.Status == "" {
		a.Status = alerts.StatusActive
	}
	if err := a.Validate(); err != nil {
		return alerts.Alert{}, err
	}
	if !a.Status.IsValid() {
		return alerts.Alert{}, &alerts.ValidationError{Field: "status", Reason: "unknown status"}
	}

	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return alerts.Alert{}, err
	}
	s.notify(ctx, EventNew, created)
	metrics.IncAlertEvent(EventNew)
	return created, nil
}

// Get returns one alert.
func (s *Service) Get(ctx context.Context, id int64) (alerts.Alert, error) {
	return s.repo.Get(ctx, id)
}

// List returns alerts matching the filter, newest first.
func (s *Service) List(ctx context.Context, f alerts.Filter) ([]alerts.Alert, error) {
	return s.repo.List(ctx, f.Normalize())
}

// Apply updates the mutable fields of an alert. A status change to
// ACKNOWLEDGED or RESOLVED stamps the corresponding transition time if it
// was not stamped before.
func (s *Service) Apply(ctx context.Context, id int64, u Update) (alerts.Alert, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return alerts.Alert{}, err
	}

	oldStatus := current.Status
	if u.Severity != nil {
		if !u.Severity.IsValid() {
			return alerts.Alert{}, &alerts.ValidationError{Field: "severity", Reason: "unknown severity"}
		}
		current.Severity = *u.Severity
	}
	if u.Status != nil {
		if !u.Status.IsValid() {
			return alerts.Alert{}, &alerts.ValidationError{Field: "status", Reason: "unknown status"}
		}
		current.Status = *u.Status
		now := s.clock.Now()
		if *u.Status == alerts.StatusAcknowledged && current.AcknowledgedAt == nil {
			current.AcknowledgedAt = &now
		}
		if *u.Status == alerts.StatusResolved && current.ResolvedAt == nil {
			current.ResolvedAt = &now
		}
	}
	if u.Title != nil {
		current.Title = *u.Title
	}
	if u.Description != nil {
		current.Description = *u.Description
	}
	if u.Message != nil {
		current.Message = *u.Message
	}
	if u.ResolutionNotes != nil {
		current.ResolutionNotes = *u.ResolutionNotes
	}

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return alerts.Alert{}, err
	}
	if u.Status != nil && *u.Status != oldStatus {
		s.notify(ctx, EventStatusChange, updated)
		metrics.IncAlertEvent(EventStatusChange)
	}
	return updated, nil
}

// Delete removes an alert.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Acknowledge transitions an alert to ACKNOWLEDGED. Acknowledging twice is
// an error.
func (s *Service) Acknowledge(ctx context.Context, id int64, actor Actor) (alerts.Alert, error) {
	if actor.Name == "" {
		return alerts.Alert{}, &alerts.ValidationError{Field: "acknowledged_by", Reason: "acknowledged_by is required"}
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return alerts.Alert{}, err
	}
	if current.Status == alerts.StatusAcknowledged {
		return alerts.Alert{}, alerts.ErrAlreadyAcknowledged
	}

	now := s.clock.Now()
	current.Status = alerts.StatusAcknowledged
	current.AcknowledgedBy = actor.Name
	current.AcknowledgedAt = &now

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return alerts.Alert{}, err
	}
	s.notify(ctx, EventAcknowledged, updated)
	metrics.IncAlertEvent(EventAcknowledged)
	s.audit(ctx, actor, "alert.acknowledge", updated)
	return updated, nil
}

// Resolve transitions an alert to RESOLVED. Resolving twice is an error.
func (s *Service) Resolve(ctx context.Context, id int64, actor Actor, notes string) (alerts.Alert, error) {
	if actor.Name == "" {
		return alerts.Alert{}, &alerts.ValidationError{Field: "resolved_by", Reason: "resolved_by is required"}
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return alerts.Alert{}, err
	}
	if current.Status == alerts.StatusResolved {
		return alerts.Alert{}, alerts.ErrAlreadyResolved
	}

	now := s.clock.Now()
	current.Status = alerts.StatusResolved
	current.ResolvedBy = actor.Name
	current.ResolvedAt = &now
	if notes != "" {
		current.ResolutionNotes = notes
	}

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return alerts.Alert{}, err
	}
	s.notify(ctx, EventResolved, updated)
	metrics.IncAlertEvent(EventResolved)
	s.audit(ctx, actor, "alert.resolve", updated)
	return updated, nil
}

// Summary computes alert counts over one filter.
func (s *Service) Summary(ctx context.Context, f alerts.Filter) (alerts.Summary, error) {
	return s.repo.Summarize(ctx, f)
}

// FeedPage returns a page of alerts with summary and pagination hints.
func (s *Service) FeedPage(ctx context.Context, f alerts.Filter) (Feed, error) {
	f = f.Normalize()

	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return Feed{}, err
	}
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return Feed{}, err
	}
	summary, err := s.repo.Summarize(ctx, f)
	if err != nil {
		return Feed{}, err
	}
	return Feed{
		Alerts:     list,
		Summary:    summary,
		TotalCount: total,
		HasMore:    int64(f.Offset+f.Limit) < total,
	}, nil
}

func (s *Service) notify(ctx context.Context, eventType string, a alerts.Alert) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, LifecycleEvent{Type: eventType, Alert: a})
}

func (s *Service) audit(ctx context.Context, actor Actor, action string, a alerts.Alert) {
	if s.auditor == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{"auv_id": a.AUVID, "status": a.Status})
	if err := s.auditor.Log(ctx, audit.Entry{
		Actor:        actor.Name,
		Action:       action,
		ResourceType: "alert",
		ResourceID:   formatID(a.ID),
		Metadata:     meta,
		IP:           actor.IP,
		UserAgent:    actor.UserAgent,
	}); err != nil {
		s.logger.Printf("alerts: audit %s: %v", action, err)
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
