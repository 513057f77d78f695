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

const defaultVehicleTable = "auv_data"

// VehicleStateRepository is a Postgres implementation for vehicle-state points.
type VehicleStateRepository struct {
	db    *sql.DB
	table string
}

// NewVehicleStateRepository constructs a repository with default table name.
func NewVehicleStateRepository(db *sql.DB, opts ...VehicleOption) *VehicleStateRepository {
	repo := &VehicleStateRepository{db: db, table: defaultVehicleTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// VehicleOption configures the repository.
type VehicleOption func(*VehicleStateRepository)

// WithVehicleTable overrides the default table name.
func WithVehicleTable(table string) VehicleOption {
	return func(repo *VehicleStateRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const vehicleColumns = `id, auv_id, ts, latitude, longitude, depth, altitude, heading, speed,
	battery_level, temperature, pressure, system_status, mission_id, mission_phase,
	telemetry_data, created_at`

// Append inserts one vehicle-state point and returns it with the assigned
// identity and creation time.
func (r *VehicleStateRepository) Append(ctx context.Context, p telemetry.VehicleStatePoint) (telemetry.StoredVehicleState, error) {
	if r == nil || r.db == nil {
		return telemetry.StoredVehicleState{}, errors.New("vehicle repo: nil db")
	}

	extension, err := telemetry.EncodeExtension(p.TelemetryData)
	if err != nil {
		return telemetry.StoredVehicleState{}, fmt.Errorf("vehicle repo: encode telemetry_data: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	auv_id, ts, latitude, longitude, depth, altitude, heading, speed,
	battery_level, temperature, pressure, system_status, mission_id, mission_phase,
	telemetry_data
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
)
RETURNING id, created_at`, r.table)

	stored := telemetry.StoredVehicleState{VehicleStatePoint: p}
	err = r.db.QueryRowContext(
		ctx,
		query,
		p.AUVID,
		p.Timestamp,
		nullFloat(p.Latitude),
		nullFloat(p.Longitude),
		nullFloat(p.Depth),
		nullFloat(p.Altitude),
		nullFloat(p.Heading),
		nullFloat(p.Speed),
		nullFloat(p.BatteryLevel),
		nullFloat(p.Temperature),
		nullFloat(p.Pressure),
		nullString(p.SystemStatus),
		nullString(p.MissionID),
		nullString(p.MissionPhase),
		nullBytes(extension),
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return telemetry.StoredVehicleState{}, err
	}
	return stored, nil
}

// Query returns stored points matching the filter, newest first.
func (r *VehicleStateRepository) Query(ctx context.Context, f telemetry.QueryFilter) ([]telemetry.StoredVehicleState, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("vehicle repo: nil db")
	}
	f = f.Normalize()

	where, args := buildFilter(f)
	query := fmt.Sprintf(`
SELECT %s
FROM %s
%s
ORDER BY ts DESC
LIMIT $%d OFFSET $%d`, vehicleColumns, r.table, where, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]telemetry.StoredVehicleState, 0)
	for rows.Next() {
		p, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// QueryRange returns every point of the window [start, end], optionally
// narrowed to one AUV. The result is unbounded; callers aggregate it.
func (r *VehicleStateRepository) QueryRange(ctx context.Context, auvID string, start, end time.Time) ([]telemetry.StoredVehicleState, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("vehicle repo: nil db")
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
ORDER BY ts ASC`, vehicleColumns, r.table, strings.Join(conds, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]telemetry.StoredVehicleState, 0)
	for rows.Next() {
		p, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Latest returns the newest point of one AUV.
func (r *VehicleStateRepository) Latest(ctx context.Context, auvID string) (telemetry.StoredVehicleState, error) {
	if r == nil || r.db == nil {
		return telemetry.StoredVehicleState{}, errors.New("vehicle repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE auv_id = $1
ORDER BY ts DESC
LIMIT 1`, vehicleColumns, r.table)

	p, err := scanVehicle(r.db.QueryRowContext(ctx, query, auvID))
	if errors.Is(err, sql.ErrNoRows) {
		return telemetry.StoredVehicleState{}, telemetry.ErrNotFound
	}
	if err != nil {
		return telemetry.StoredVehicleState{}, err
	}
	return p, nil
}

// CountSince counts points of one AUV at or after the given instant.
func (r *VehicleStateRepository) CountSince(ctx context.Context, auvID string, since time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("vehicle repo: nil db")
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE auv_id = $1 AND ts >= $2`, r.table)
	var count int64
	if err := r.db.QueryRowContext(ctx, query, auvID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListAUVIDs returns every AUV id with at least one recorded point.
func (r *VehicleStateRepository) ListAUVIDs(ctx context.Context) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("vehicle repo: nil db")
	}

	query := fmt.Sprintf(`SELECT DISTINCT auv_id FROM %s ORDER BY auv_id ASC`, r.table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (telemetry.StoredVehicleState, error) {
	var (
		p         telemetry.StoredVehicleState
		latitude  sql.NullFloat64
		longitude sql.NullFloat64
		depth     sql.NullFloat64
		altitude  sql.NullFloat64
		heading   sql.NullFloat64
		speed     sql.NullFloat64
		battery   sql.NullFloat64
		temp      sql.NullFloat64
		pressure  sql.NullFloat64
		status    sql.NullString
		mission   sql.NullString
		phase     sql.NullString
		extension []byte
	)
	err := row.Scan(
		&p.ID,
		&p.AUVID,
		&p.Timestamp,
		&latitude,
		&longitude,
		&depth,
		&altitude,
		&heading,
		&speed,
		&battery,
		&temp,
		&pressure,
		&status,
		&mission,
		&phase,
		&extension,
		&p.CreatedAt,
	)
	if err != nil {
		return telemetry.StoredVehicleState{}, err
	}

	p.Latitude = floatPtr(latitude)
	p.Longitude = floatPtr(longitude)
	p.Depth = floatPtr(depth)
	p.Altitude = floatPtr(altitude)
	p.Heading = floatPtr(heading)
	p.Speed = floatPtr(speed)
	p.BatteryLevel = floatPtr(battery)
	p.Temperature = floatPtr(temp)
	p.Pressure = floatPtr(pressure)
	p.SystemStatus = status.String
	p.MissionID = mission.String
	p.MissionPhase = phase.String

	p.TelemetryData, err = telemetry.DecodeExtension(extension)
	if err != nil {
		return telemetry.StoredVehicleState{}, fmt.Errorf("vehicle repo: decode telemetry_data: %w", err)
	}
	return p, nil
}

func buildFilter(f telemetry.QueryFilter) (string, []any) {
	conds := make([]string, 0, 3)
	args := make([]any, 0, 3)
	if f.AUVID != "" {
		args = append(args, f.AUVID)
		conds = append(conds, fmt.Sprintf("auv_id = $%d", len(args)))
	}
	if !f.Start.IsZero() {
		args = append(args, f.Start)
		conds = append(conds, fmt.Sprintf("ts >= $%d", len(args)))
	}
	if !f.End.IsZero() {
		args = append(args, f.End)
		conds = append(conds, fmt.Sprintf("ts <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
