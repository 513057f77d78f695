package alerts

import (
	"context"
	"time"
)

// Severity grades an alert.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists every severity in ascending order.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// IsValid checks the severity value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// Type categorizes the alert source domain.
type Type string

const (
	TypeEnvironmental Type = "ENVIRONMENTAL"
	TypeOperational   Type = "OPERATIONAL"
	TypeCompliance    Type = "COMPLIANCE"
	TypeSystem        Type = "SYSTEM"
	TypeSafety        Type = "SAFETY"
)

// Types lists every alert type.
func Types() []Type {
	return []Type{TypeEnvironmental, TypeOperational, TypeCompliance, TypeSystem, TypeSafety}
}

// IsValid checks the type value.
func (t Type) IsValid() bool {
	switch t {
	case TypeEnvironmental, TypeOperational, TypeCompliance, TypeSystem, TypeSafety:
		return true
	default:
		return false
	}
}

// LifecycleStatus tracks where an alert stands in its lifecycle.
type LifecycleStatus string

const (
	StatusActive       LifecycleStatus = "ACTIVE"
	StatusAcknowledged LifecycleStatus = "ACKNOWLEDGED"
	StatusResolved     LifecycleStatus = "RESOLVED"
	StatusDismissed    LifecycleStatus = "DISMISSED"
)

// IsValid checks the status value.
func (s LifecycleStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusAcknowledged, StatusResolved, StatusDismissed:
		return true
	default:
		return false
	}
}

// Alert is one operator-facing alert raised against an AUV.
type Alert struct {
	ID     int64  `json:"id"`
	AUVID  string `json:"auv_id"`

	Type     Type            `json:"alert_type"`
	Severity Severity        `json:"severity"`
	Status   LifecycleStatus `json:"status"`

	Title       string `json:"title"`
	Description string `json:"description"`
	Message     string `json:"message,omitempty"`

	Source    string    `json:"source,omitempty"`
	Location  string    `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	AcknowledgedBy  string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedBy      string     `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`

	Data map[string]any `json:"alert_data,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Validate enforces creation invariants.
func (a Alert) Validate() error {
	if a.AUVID == "" {
		return &ValidationError{Field: "auv_id", Reason: "auv_id is required"}
	}
	if !a.Type.IsValid() {
		return &ValidationError{Field: "alert_type", Reason: "unknown alert type"}
	}
	if !a.Severity.IsValid() {
		return &ValidationError{Field: "severity", Reason: "unknown severity"}
	}
	if a.Title == "" {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if a.Description == "" {
		return &ValidationError{Field: "description", Reason: "description is required"}
	}
	if a.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "timestamp is required"}
	}
	return nil
}

// Filter narrows alert queries. Zero values mean "no filter".
type Filter struct {
	AUVID    string
	Type     Type
	Severity Severity
	Status   LifecycleStatus
	Start    time.Time
	End      time.Time
	Search   string
	Limit    int
	Offset   int
}

const (
	// DefaultListLimit applies when a caller does not set a limit.
	DefaultListLimit = 100
	// MaxListLimit bounds a single listing.
	MaxListLimit = 1000
)

// Normalize applies the default and maximum limit bounds.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Summary aggregates alert counts over one filter.
type Summary struct {
	TotalAlerts        int64            `json:"total_alerts"`
	ActiveAlerts       int64            `json:"active_alerts"`
	AcknowledgedAlerts int64            `json:"acknowledged_alerts"`
	ResolvedAlerts     int64            `json:"resolved_alerts"`
	CriticalAlerts     int64            `json:"critical_alerts"`
	HighSeverityAlerts int64            `json:"high_severity_alerts"`
	AlertsByType       map[string]int64 `json:"alerts_by_type"`
	AlertsBySeverity   map[string]int64 `json:"alerts_by_severity"`
}

// Repository persists alerts. List returns alerts newest-first by timestamp.
// Get, Update and Delete return ErrNotFound for an unknown id.
type Repository interface {
	Create(ctx context.Context, a Alert) (Alert, error)
	Get(ctx context.Context, id int64) (Alert, error)
	Update(ctx context.Context, a Alert) (Alert, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f Filter) ([]Alert, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Summarize(ctx context.Context, f Filter) (Summary, error)
}
