// Package memory provides an in-memory alert store for tests and local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	alerts "github.com/tritonminingco/deepsea-data-ingestion-api/internal/alerts/domain"
)

// Repository is a mutex-guarded in-memory alert store.
type Repository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]alerts.Alert
	clock  func() time.Time
}

// NewRepository constructs an empty store.
func NewRepository() *Repository {
	return &Repository{
		byID:  make(map[int64]alerts.Alert),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new alert.
func (r *Repository) Create(_ context.Context, a alerts.Alert) (alerts.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = r.clock()
	r.byID[a.ID] = a
	return a, nil
}

// Get returns one alert by id.
func (r *Repository) Get(_ context.Context, id int64) (alerts.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return alerts.Alert{}, alerts.ErrNotFound
	}
	return a, nil
}

// Update replaces a stored alert.
func (r *Repository) Update(_ context.Context, a alerts.Alert) (alerts.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; !ok {
		return alerts.Alert{}, alerts.ErrNotFound
	}
	now := r.clock()
	a.UpdatedAt = &now
	r.byID[a.ID] = a
	return a, nil
}

// Delete removes an alert.
func (r *Repository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return alerts.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// List returns matching alerts, newest first.
func (r *Repository) List(_ context.Context, f alerts.Filter) ([]alerts.Alert, error) {
	f = f.Normalize()
	matched := r.matching(f)
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })

	if f.Offset >= len(matched) {
		return []alerts.Alert{}, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

// Count returns the number of matching alerts regardless of pagination.
func (r *Repository) Count(_ context.Context, f alerts.Filter) (int64, error) {
	return int64(len(r.matching(f))), nil
}

// Summarize computes counts over the matching alerts.
func (r *Repository) Summarize(_ context.Context, f alerts.Filter) (alerts.Summary, error) {
	matched := r.matching(f)

	summary := alerts.Summary{
		AlertsByType:     make(map[string]int64),
		AlertsBySeverity: make(map[string]int64),
	}
	for _, t := range alerts.Types() {
		summary.AlertsByType[string(t)] = 0
	}
	for _, s := range alerts.Severities() {
		summary.AlertsBySeverity[string(s)] = 0
	}

	for _, a := range matched {
		summary.TotalAlerts++
		switch a.Status {
		case alerts.StatusActive:
			summary.ActiveAlerts++
		case alerts.StatusAcknowledged:
			summary.AcknowledgedAlerts++
		case alerts.StatusResolved:
			summary.ResolvedAlerts++
		}
		switch a.Severity {
		case alerts.SeverityCritical:
			summary.CriticalAlerts++
		case alerts.SeverityHigh:
			summary.HighSeverityAlerts++
		}
		summary.AlertsByType[string(a.Type)]++
		summary.AlertsBySeverity[string(a.Severity)]++
	}
	return summary, nil
}

func (r *Repository) matching(f alerts.Filter) []alerts.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]alerts.Alert, 0, len(r.byID))
	for _, a := range r.byID {
		if matchesFilter(a, f) {
			matched = append(matched, a)
		}
	}
	return matched
}

func matchesFilter(a alerts.Alert, f alerts.Filter) bool {
	if f.AUVID != "" && a.AUVID != f.AUVID {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if !f.Start.IsZero() && a.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && a.Timestamp.After(f.End) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(a.Title), needle) &&
			!strings.Contains(strings.ToLower(a.Description), needle) &&
			!strings.Contains(strings.ToLower(a.Message), needle) {
			return false
		}
	}
	return true
}
