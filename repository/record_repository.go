package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"droneMissionControl/models"
)

// RecordRepository stores the append-only approval and finalization facts.
type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// CreateApproval inserts the approval record. The mission_id primary key
// makes a second approval for the same mission a constraint violation.
func (r *RecordRepository) CreateApproval(ctx context.Context, a *models.MissionApproval) error {
	if a == nil {
		return errors.New("approval is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO mission_approvals (mission_id, commander_name, approved_at) VALUES (?,?,?)`,
		a.MissionID, a.CommanderName, fmtTime(a.ApprovedAt))
	return err
}

func (r *RecordRepository) GetApproval(ctx context.Context, missionID string) (*models.MissionApproval, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var a models.MissionApproval
	var at string
	err := r.db.QueryRowContext(ctx, `SELECT mission_id, commander_name, approved_at FROM mission_approvals WHERE mission_id = ?`, missionID).
		Scan(&a.MissionID, &a.CommanderName, &at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if a.ApprovedAt, err = parseTime(at); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateFinalization inserts the finalization record; its existence is the
// canonical "already finalized" test.
func (r *RecordRepository) CreateFinalization(ctx context.Context, f *models.MissionFinalization) error {
	if f == nil {
		return errors.New("finalization is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO mission_finalizations (mission_id, commander_name, finalized_at) VALUES (?,?,?)`,
		f.MissionID, f.CommanderName, fmtTime(f.FinalizedAt))
	return err
}

func (r *RecordRepository) GetFinalization(ctx context.Context, missionID string) (*models.MissionFinalization, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var f models.MissionFinalization
	var at string
	err := r.db.QueryRowContext(ctx, `SELECT mission_id, commander_name, finalized_at FROM mission_finalizations WHERE mission_id = ?`, missionID).
		Scan(&f.MissionID, &f.CommanderName, &at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if f.FinalizedAt, err = parseTime(at); err != nil {
		return nil, err
	}
	return &f, nil
}
