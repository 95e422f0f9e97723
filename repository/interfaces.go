package repository

import (
	"context"
	"time"

	"droneMissionControl/models"
)

// MissionRepositoryI defines operations on Mission aggregates and their
// assignments. Absence is reported as (nil, nil), not as an error.
type MissionRepositoryI interface {
	Create(ctx context.Context, m *models.Mission, assignments []models.DroneMissionAssignment) (*models.Mission, error)
	Save(ctx context.Context, m *models.Mission) error
	GetByID(ctx context.Context, id string) (*models.Mission, error)
	List(ctx context.Context, limit, offset int) ([]models.Mission, error)
	ListByState(ctx context.Context, state models.MissionState) ([]models.Mission, error)
	ListByOrigin(ctx context.Context, origin models.MissionOrigin) ([]models.Mission, error)
	ListAssignments(ctx context.Context, missionID string) ([]models.DroneMissionAssignment, error)
	FindActiveByVehicle(ctx context.Context, vehicleID string) (*models.Mission, error)
	// TransitionState performs the optimistic conditional update
	// (state moves only if the row still holds the expected state) and
	// reports whether the row moved.
	TransitionState(ctx context.Context, id string, from, to models.MissionState, endDate *time.Time, updatedAt time.Time) (bool, error)
}

// RecordRepositoryI defines the append-only approval and finalization
// records. The mission id is the primary key, so each record exists at
// most once per mission.
type RecordRepositoryI interface {
	CreateApproval(ctx context.Context, a *models.MissionApproval) error
	GetApproval(ctx context.Context, missionID string) (*models.MissionApproval, error)
	CreateFinalization(ctx context.Context, f *models.MissionFinalization) error
	GetFinalization(ctx context.Context, missionID string) (*models.MissionFinalization, error)
}

// TelemetryRepositoryI defines durable telemetry recording.
type TelemetryRepositoryI interface {
	Insert(ctx context.Context, ev *models.TelemetryEvent) (*models.TelemetryEvent, error)
	ListByVehicle(ctx context.Context, vehicleID string, limit int) ([]models.TelemetryEvent, error)
}
