package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	telemetry "github.com/tritonminingco/deepsea-data-ingestion-api/internal/telemetry/domain"
)

const defaultEnvironmentalTable = "telemetry_data"

// EnvironmentalRepository is a Postgres implementation for environmental points.
type EnvironmentalRepository struct {
	db    *sql.DB
	table string
}

// NewEnvironmentalRepository constructs a repository with default table name.
func NewEnvironmentalRepository(db *sql.DB, opts ...EnvironmentalOption) *EnvironmentalRepository {
	repo := &EnvironmentalRepository{db: db, table: defaultEnvironmentalTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// EnvironmentalOption configures the repository.
type EnvironmentalOption func(*EnvironmentalRepository)

// WithEnvironmentalTable overrides the default table name.
func WithEnvironmentalTable(table string) EnvironmentalOption {
	return func(repo *EnvironmentalRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const environmentalColumns = `id, auv_id, ts, water_temperature, salinity, ph_level,
	dissolved_oxygen, turbidity, current_speed, current_direction,
	sensor_data, data_quality_score, sensor_status, created_at`

// Append inserts one environmental point and returns it with the assigned
// identity and creation time.
func (r *EnvironmentalRepository) Append(ctx context.Context, p telemetry.EnvironmentalPoint) (telemetry.StoredEnvironmental, error) {
	if r == nil || r.db == nil {
		return telemetry.StoredEnvironmental{}, errors.New("environmental repo: nil db")
	}

	extension, err := telemetry.EncodeExtension(p.SensorData)
	if err != nil {
		return telemetry.StoredEnvironmental{}, fmt.Errorf("environmental repo: encode sensor_data: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	auv_id, ts, water_temperature, salinity, ph_level,
	dissolved_oxygen, turbidity, current_speed, current_direction,
	sensor_data, data_quality_score, sensor_status
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
)
RETURNING id, created_at`, r.table)

	stored := telemetry.StoredEnvironmental{EnvironmentalPoint: p}
	err = r.db.QueryRowContext(
		ctx,
		query,
		p.AUVID,
		p.Timestamp,
		nullFloat(p.WaterTemperature),
		nullFloat(p.Salinity),
		nullFloat(p.PHLevel),
		nullFloat(p.DissolvedOxygen),
		nullFloat(p.Turbidity),
		nullFloat(p.CurrentSpeed),
		nullFloat(p.CurrentDirection),
		nullBytes(extension),
		nullFloat(p.DataQualityScore),
		nullString(p.SensorStatus),
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return telemetry.StoredEnvironmental{}, err
	}
	return stored, nil
}

// Query returns stored points matching the filter, newest first.
func (r *EnvironmentalRepository) Query(ctx context.Context, f telemetry.QueryFilter) ([]telemetry.StoredEnvironmental, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("environmental repo: nil db")
	}
	f = f.Normalize()

	where, args := buildFilter(f)
	query := fmt.Sprintf(`
SELECT %s
FROM %s
%s
ORDER BY ts DESC
LIMIT $%d OFFSET $%d`, environmentalColumns, r.table, where, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]telemetry.StoredEnvironmental, 0)
	for rows.Next() {
		p, err := scanEnvironmental(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// QueryRange returns every point of the window [start, end], optionally
// narrowed to one AUV.
func (r *EnvironmentalRepository) QueryRange(ctx context.Context, auvID string, start, end time.Time) ([]telemetry.StoredEnvironmental, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("environmental repo: nil db")
	}

	conds := []string{"ts >= $1", "ts <= $2"}
	args := []any{start, end}
	if auvID != "" {
		conds = append(conds, "auv_id = $3")
		args = append(args, auvID)
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE %s
ORDER BY ts ASC`, environmentalColumns, r.table, strings.Join(conds, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]telemetry.StoredEnvironmental, 0)
	for rows.Next() {
		p, err := scanEnvironmental(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Latest returns the newest point of one AUV.
func (r *EnvironmentalRepository) Latest(ctx context.Context, auvID string) (telemetry.StoredEnvironmental, error) {
	if r == nil || r.db == nil {
		return telemetry.StoredEnvironmental{}, errors.New("environmental repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE auv_id = $1
ORDER BY ts DESC
LIMIT 1`, environmentalColumns, r.table)

	p, err := scanEnvironmental(r.db.QueryRowContext(ctx, query, auvID))
	if errors.Is(err, sql.ErrNoRows) {
		return telemetry.StoredEnvironmental{}, telemetry.ErrNotFound
	}
	if err != nil {
		return telemetry.StoredEnvironmental{}, err
	}
	return p, nil
}

// CountSince counts points of one AUV at or after the given instant.
func (r *EnvironmentalRepository) CountSince(ctx context.Context, auvID string, since time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("environmental repo: nil db")
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE auv_id = $1 AND ts >= $2`, r.table)
	var count int64
	if err := r.db.QueryRowContext(ctx, query, auvID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanEnvironmental(row rowScanner) (telemetry.StoredEnvironmental, error) {
	var (
		p         telemetry.StoredEnvironmental
		waterTemp sql.NullFloat64
		salinity  sql.NullFloat64
		ph        sql.NullFloat64
		oxygen    sql.NullFloat64
		turbidity sql.NullFloat64
		curSpeed  sql.NullFloat64
		curDir    sql.NullFloat64
		extension []byte
		quality   sql.NullFloat64
		status    sql.NullString
	)
	err := row.Scan(
		&p.ID,
		&p.AUVID,
		&p.Timestamp,
		&waterTemp,
		&salinity,
		&ph,
		&oxygen,
		&turbidity,
		&curSpeed,
		&curDir,
		&extension,
		&quality,
		&status,
		&p.CreatedAt,
	)
	if err != nil {
		return telemetry.StoredEnvironmental{}, err
	}

	p.WaterTemperature = floatPtr(waterTemp)
	p.Salinity = floatPtr(salinity)
	p.PHLevel = floatPtr(ph)
	p.DissolvedOxygen = floatPtr(oxygen)
	p.Turbidity = floatPtr(turbidity)
	p.CurrentSpeed = floatPtr(curSpeed)
	p.CurrentDirection = floatPtr(curDir)
	p.DataQualityScore = floatPtr(quality)
	p.SensorStatus = status.String

	p.SensorData, err = telemetry.DecodeExtension(extension)
	if err != nil {
		return telemetry.StoredEnvironmental{}, fmt.Errorf("environmental repo: decode sensor_data: %w", err)
	}
	return p, nil
}
