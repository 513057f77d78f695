package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	alerts "github.com/tritonminingco/deepsea-data-ingestion-api/internal/alerts/domain"
)

const defaultAlertTable = "alerts"

// Repository is a Postgres implementation of the alert store.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository constructs a repository with default table name.
func NewRepository(db *sql.DB, opts ...RepositoryOption) *Repository {
	repo := &Repository{db: db, table: defaultAlertTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*Repository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *Repository) {
		if table != "" {
			repo.table = table
		}
	}
}

const alertColumns = `id, auv_id, alert_type, severity, status, title, description, message,
	source, location, ts, acknowledged_by, acknowledged_at, resolved_by, resolved_at,
	resolution_notes, alert_data, created_at, updated_at`

// Create inserts one alert and returns it with the assigned identity.
func (r *Repository) Create(ctx context.Context, a alerts.Alert) (alerts.Alert, error) {
	if r == nil || r.db == nil {
		return alerts.Alert{}, errors.New("alert repo: nil db")
	}

	data, err := encodeData(a.Data)
	if err != nil {
		return alerts.Alert{}, fmt.Errorf("alert repo: encode alert_data: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	auv_id, alert_type, severity, status, title, description, message,
	source, location, ts, alert_data
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)
RETURNING id, created_at`, r.table)

	err = r.db.QueryRowContext(
		ctx,
		query,
		a.AUVID,
		string(a.Type),
		string(a.Severity),
		string(a.Status),
		a.Title,
		a.Description,
		nullString(a.Message),
		nullString(a.Source),
		nullString(a.Location),
		a.Timestamp,
		data,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return alerts.Alert{}, err
	}
	return a, nil
}

// Get returns one alert by id.
func (r *Repository) Get(ctx context.Context, id int64) (alerts.Alert, error) {
	if r == nil || r.db == nil {
		return alerts.Alert{}, errors.New("alert repo: nil db")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, alertColumns, r.table)
	a, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return alerts.Alert{}, alerts.ErrNotFound
	}
	return a, err
}

// Update replaces the mutable columns of a stored alert.
func (r *Repository) Update(ctx context.Context, a alerts.Alert) (alerts.Alert, error) {
	if r == nil || r.db == nil {
		return alerts.Alert{}, errors.New("alert repo: nil db")
	}

	query := fmt.Sprintf(`
UPDATE %s SET
	severity = $2,
	status = $3,
	title = $4,
	description = $5,
	message = $6,
	acknowledged_by = $7,
	acknowledged_at = $8,
	resolved_by = $9,
	resolved_at = $10,
	resolution_notes = $11,
	updated_at = NOW()
WHERE id = $1
RETURNING updated_at`, r.table)

	var updatedAt time.Time
	err := r.db.QueryRowContext(
		ctx,
		query,
		a.ID,
		string(a.Severity),
		string(a.Status),
		a.Title,
		a.Description,
		nullString(a.Message),
		nullString(a.AcknowledgedBy),
		nullTime(a.AcknowledgedAt),
		nullString(a.ResolvedBy),
		nullTime(a.ResolvedAt),
		nullString(a.ResolutionNotes),
	).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return alerts.Alert{}, alerts.ErrNotFound
	}
	if err != nil {
		return alerts.Alert{}, err
	}
	a.UpdatedAt = &updatedAt
	return a, nil
}

// Delete removes an alert.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return alerts.ErrNotFound
	}
	return nil
}

// List returns matching alerts, newest first.
func (r *Repository) List(ctx context.Context, f alerts.Filter) ([]alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	f = f.Normalize()

	where, args := buildFilter(f)
	query := fmt.Sprintf(`
SELECT %s
FROM %s
%s
ORDER BY ts DESC
LIMIT $%d OFFSET $%d`, alertColumns, r.table, where, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]alerts.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Count returns the number of matching alerts regardless of pagination.
func (r *Repository) Count(ctx context.Context, f alerts.Filter) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("alert repo: nil db")
	}

	where, args := buildFilter(f)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, r.table, where)
	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Summarize computes counts over the matching alerts in one pass.
func (r *Repository) Summarize(ctx context.Context, f alerts.Filter) (alerts.Summary, error) {
	if r == nil || r.db == nil {
		return alerts.Summary{}, errors.New("alert repo: nil db")
	}

	where, args := buildFilter(f)
	query := fmt.Sprintf(`
SELECT status, severity, alert_type, COUNT(*)
FROM %s
%s
GROUP BY status, severity, alert_type`, r.table, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return alerts.Summary{}, err
	}
	defer rows.Close()

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

	for rows.Next() {
		var status, severity, alertType string
		var count int64
		if err := rows.Scan(&status, &severity, &alertType, &count); err != nil {
			return alerts.Summary{}, err
		}
		summary.TotalAlerts += count
		switch alerts.LifecycleStatus(status) {
		case alerts.StatusActive:
			summary.ActiveAlerts += count
		case alerts.StatusAcknowledged:
			summary.AcknowledgedAlerts += count
		case alerts.StatusResolved:
			summary.ResolvedAlerts += count
		}
		switch alerts.Severity(severity) {
		case alerts.SeverityCritical:
			summary.CriticalAlerts += count
		case alerts.SeverityHigh:
			summary.HighSeverityAlerts += count
		}
		summary.AlertsByType[alertType] += count
		summary.AlertsBySeverity[severity] += count
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (alerts.Alert, error) {
	var (
		a              alerts.Alert
		alertType      string
		severity       string
		status         string
		message        sql.NullString
		source         sql.NullString
		location       sql.NullString
		ackBy          sql.NullString
		ackAt          sql.NullTime
		resolvedBy     sql.NullString
		resolvedAt     sql.NullTime
		resolutionNote sql.NullString
		data           []byte
		updatedAt      sql.NullTime
	)
	err := row.Scan(
		&a.ID,
		&a.AUVID,
		&alertType,
		&severity,
		&status,
		&a.Title,
		&a.Description,
		&message,
		&source,
		&location,
		&a.Timestamp,
		&ackBy,
		&ackAt,
		&resolvedBy,
		&resolvedAt,
		&resolutionNote,
		&data,
		&a.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return alerts.Alert{}, err
	}

	a.Type = alerts.Type(alertType)
	a.Severity = alerts.Severity(severity)
	a.Status = alerts.LifecycleStatus(status)
	a.Message = message.String
	a.Source = source.String
	a.Location = location.String
	a.AcknowledgedBy = ackBy.String
	a.AcknowledgedAt = timePtr(ackAt)
	a.ResolvedBy = resolvedBy.String
	a.ResolvedAt = timePtr(resolvedAt)
	a.ResolutionNotes = resolutionNote.String
	a.UpdatedAt = timePtr(updatedAt)

	if len(data) > 0 {
		if err := json.Unmarshal(data, &a.Data); err != nil {
			return alerts.Alert{}, fmt.Errorf("alert repo: decode alert_data: %w", err)
		}
	}
	return a, nil
}

func buildFilter(f alerts.Filter) (string, []any) {
	conds := make([]string, 0, 7)
	args := make([]any, 0, 7)
	if f.AUVID != "" {
		args = append(args, f.AUVID)
		conds = append(conds, fmt.Sprintf("auv_id = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		conds = append(conds, fmt.Sprintf("alert_type = $%d", len(args)))
	}
	if f.Severity != "" {
		args = append(args, string(f.Severity))
		conds = append(conds, fmt.Sprintf("severity = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if !f.Start.IsZero() {
		args = append(args, f.Start)
		conds = append(conds, fmt.Sprintf("ts >= $%d", len(args)))
	}
	if !f.End.IsZero() {
		args = append(args, f.End)
		conds = append(conds, fmt.Sprintf("ts <= $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d OR message ILIKE $%d)", n, n, n))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func encodeData(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
