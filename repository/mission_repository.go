package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"droneMissionControl/models"
)

type MissionRepository struct {
	db *sql.DB
}

func NewMissionRepository(db *sql.DB) *MissionRepository {
	return &MissionRepository{db: db}
}

const missionColumns = `id, name, operator, origin, state, estimated_date, start_date, end_date, created_at, updated_at`

// Create inserts a mission together with its assignments in one
// transaction, so a mission never becomes visible without its vehicles.
func (r *MissionRepository) Create(ctx context.Context, m *models.Mission, assignments []models.DroneMissionAssignment) (*models.Mission, error) {
	if m == nil {
		return nil, errors.New("mission is nil")
	}
	if m.StartDate.IsZero() {
		return nil, &models.ValidationError{Field: "startDate", Reason: "required"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO missions (`+missionColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.Name, m.Operator, string(m.Origin), string(m.State),
		fmtNullTime(m.EstimatedDate), fmtTime(m.StartDate), fmtNullTime(m.EndDate),
		fmtTime(m.CreatedAt), fmtTime(m.UpdatedAt))
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	for _, a := range assignments {
		route, err := json.Marshal(a.Route)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO mission_assignments (mission_id, vehicle_id, route) VALUES (?,?,?)`,
			m.ID, a.VehicleID, string(route)); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	m.MarkPersisted()
	return m, nil
}

// Save inserts or updates depending on the mission's is-new flag.
func (r *MissionRepository) Save(ctx context.Context, m *models.Mission) error {
	if m == nil {
		return errors.New("mission is nil")
	}
	if m.IsNew() {
		_, err := r.Create(ctx, m, nil)
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE missions SET name = ?, operator = ?, origin = ?, state = ?, estimated_date = ?, start_date = ?, end_date = ?, updated_at = ? WHERE id = ?`,
		m.Name, m.Operator, string(m.Origin), string(m.State),
		fmtNullTime(m.EstimatedDate), fmtTime(m.StartDate), fmtNullTime(m.EndDate),
		fmtTime(m.UpdatedAt), m.ID)
	return err
}

func (r *MissionRepository) GetByID(ctx context.Context, id string) (*models.Mission, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id = ?`, id)
	m, err := scanMission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *MissionRepository) List(ctx context.Context, limit, offset int) ([]models.Mission, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+missionColumns+` FROM missions ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMissionRows(rows)
}

func (r *MissionRepository) ListByState(ctx context.Context, state models.MissionState) ([]models.Mission, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE state = ? ORDER BY created_at DESC, id DESC`, string(state))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMissionRows(rows)
}

func (r *MissionRepository) ListByOrigin(ctx context.Context, origin models.MissionOrigin) ([]models.Mission, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE origin = ? ORDER BY created_at DESC, id DESC`, string(origin))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMissionRows(rows)
}

func (r *MissionRepository) ListAssignments(ctx context.Context, missionID string) ([]models.DroneMissionAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, mission_id, vehicle_id, route FROM mission_assignments WHERE mission_id = ? ORDER BY id ASC`, missionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.DroneMissionAssignment
	for rows.Next() {
		var a models.DroneMissionAssignment
		var route string
		if err := rows.Scan(&a.ID, &a.MissionID, &a.VehicleID, &route); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(route), &a.Route); err != nil {
			return nil, fmt.Errorf("decode route for assignment %d: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FindActiveByVehicle returns the most recent non-terminal mission that has
// an assignment for the vehicle, or (nil, nil) when the vehicle is idle.
func (r *MissionRepository) FindActiveByVehicle(ctx context.Context, vehicleID string) (*models.Mission, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `
SELECT m.id, m.name, m.operator, m.origin, m.state, m.estimated_date, m.start_date, m.end_date, m.created_at, m.updated_at
FROM missions m
JOIN mission_assignments a ON a.mission_id = m.id
WHERE a.vehicle_id = ?
  AND m.state NOT IN (?,?,?,?)
ORDER BY m.created_at DESC, m.id DESC
LIMIT 1`,
		vehicleID,
		string(models.MissionStateFinalized), string(models.MissionStateAborted),
		string(models.MissionStateFailed), string(models.MissionStateArchived))
	m, err := scanMission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// TransitionState is the optimistic read-modify-write guard: the row moves
// only if it still holds the expected state, so of two concurrent
// conflicting transitions at most one succeeds.
func (r *MissionRepository) TransitionState(ctx context.Context, id string, from, to models.MissionState, endDate *time.Time, updatedAt time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE missions SET state = ?, end_date = ?, updated_at = ? WHERE id = ? AND state = ?`,
		string(to), fmtNullTime(endDate), fmtTime(updatedAt), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMission(row rowScanner) (*models.Mission, error) {
	var m models.Mission
	var origin, state, startDate, createdAt, updatedAt string
	var estimated, endDate sql.NullString
	if err := row.Scan(&m.ID, &m.Name, &m.Operator, &origin, &state, &estimated, &startDate, &endDate, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	m.Origin = models.MissionOrigin(origin)
	m.State = models.MissionState(state)
	var err error
	if m.StartDate, err = parseTime(startDate); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if m.EstimatedDate, err = parseNullTime(estimated); err != nil {
		return nil, err
	}
	if m.EndDate, err = parseNullTime(endDate); err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMissionRows(rows *sql.Rows) ([]models.Mission, error) {
	var out []models.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func fmtNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
