// Package mission coordinates the mission lifecycle across the aggregate,
// the durable store, and the command dispatcher. Every operation persists
// the new state and its companion record before any publish, so a crash
// between persistence and publish leaves a re-dispatchable mission rather
// than a lost command.
package mission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"droneMissionControl/models"
	"droneMissionControl/repository"
)

// ErrMissionNotFound reports absence of the targeted mission.
var ErrMissionNotFound = errors.New("mission not found")

// ErrMissionFinished reports that the mission is in a terminal state and
// may not be targeted by new commands.
var ErrMissionFinished = errors.New("mission is finished")

// CommandDispatcher is the outbound side of the orchestrator.
type CommandDispatcher interface {
	PublishCommand(ctx context.Context, cmd *models.ExecutionCommand) error
	PublishMissionCommand(ctx context.Context, cmd *models.MissionExecutionCommand) error
}

type Service struct {
	missions   repository.MissionRepositoryI
	records    repository.RecordRepositoryI
	dispatcher CommandDispatcher
	now        func() time.Time
}

func NewService(missions repository.MissionRepositoryI, records repository.RecordRepositoryI, dispatcher CommandDispatcher) *Service {
	return &Service{missions: missions, records: records, dispatcher: dispatcher, now: time.Now}
}

// CreateMission persists a new mission together with its assignments.
// The commander becomes the operator reference when none is set.
func (s *Service) CreateMission(ctx context.Context, m *models.Mission, commanderName string, assignments []models.DroneMissionAssignment) (*models.Mission, error) {
	if m == nil {
		return nil, errors.New("mission is nil")
	}
	if m.Operator == "" {
		m.Operator = commanderName
	}
	for i := range assignments {
		assignments[i].MissionID = m.ID
	}
	return s.missions.Create(ctx, m, assignments)
}

// CreateAutomaticMission opens an IN_PROGRESS mission for a vehicle that
// started reporting telemetry without an active mission.
func (s *Service) CreateAutomaticMission(ctx context.Context, vehicleID string) (*models.Mission, error) {
	m := models.NewAutomaticMission(vehicleID, s.now())
	return s.missions.Create(ctx, m, []models.DroneMissionAssignment{{MissionID: m.ID, VehicleID: vehicleID, Route: []models.Waypoint{}}})
}

// GetMission returns the mission or ErrMissionNotFound.
func (s *Service) GetMission(ctx context.Context, missionID string) (*models.Mission, error) {
	m, err := s.missions.GetByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMissionNotFound
	}
	return m, nil
}

// FindActiveByVehicle reports the vehicle's current unfinished mission,
// (nil, nil) when the vehicle is idle.
func (s *Service) FindActiveByVehicle(ctx context.Context, vehicleID string) (*models.Mission, error) {
	return s.missions.FindActiveByVehicle(ctx, vehicleID)
}

// ApproveMission moves PENDING_APPROVAL to APPROVED and records the
// approval. Of two concurrent approvals at most one wins the conditional
// state update, so exactly one approval record is ever created.
func (s *Service) ApproveMission(ctx context.Context, missionID, commanderName string) (*models.Mission, error) {
	m, err := s.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	next, err := m.Approve(now)
	if err != nil {
		return nil, err
	}
	if err := s.commitTransition(ctx, m, next); err != nil {
		return nil, err
	}
	approval := &models.MissionApproval{MissionID: missionID, CommanderName: commanderName, ApprovedAt: now}
	if err := s.records.CreateApproval(ctx, approval); err != nil {
		return nil, fmt.Errorf("record approval: %w", err)
	}
	return next, nil
}

// StartMission dispatches an approved mission: guards on non-empty
// assignments, persists IN_PROGRESS, then publishes the mission-level
// execution command. A publish failure leaves the persisted state in
// place for redispatch.
func (s *Service) StartMission(ctx context.Context, missionID string) (*models.Mission, error) {
	m, err := s.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.missions.ListAssignments(ctx, missionID)
	if err != nil {
		return nil, err
	}
	cmd, err := models.NewMissionExecutionCommand(missionID, assignments)
	if err != nil {
		return nil, err
	}
	next, err := m.Dispatch(s.now())
	if err != nil {
		return nil, err
	}
	if err := s.commitTransition(ctx, m, next); err != nil {
		return nil, err
	}
	if err := s.dispatcher.PublishMissionCommand(ctx, cmd); err != nil {
		return nil, err
	}
	return next, nil
}

// FinalizeMission moves IN_PROGRESS to FINALIZED and records the
// finalization. The existing finalization record is the canonical
// "already finalized" guard.
func (s *Service) FinalizeMission(ctx context.Context, missionID, commanderName string) (*models.Mission, error) {
	m, err := s.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	existing, err := s.records.GetFinalization(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &models.InvalidStateTransitionError{Current: m.State, Attempted: models.MissionStateFinalized}
	}
	now := s.now()
	next, err := m.Finalize(now)
	if err != nil {
		return nil, err
	}
	if err := s.commitTransition(ctx, m, next); err != nil {
		return nil, err
	}
	record := &models.MissionFinalization{MissionID: missionID, CommanderName: commanderName, FinalizedAt: now}
	if err := s.records.CreateFinalization(ctx, record); err != nil {
		return nil, fmt.Errorf("record finalization: %w", err)
	}
	return next, nil
}

// AbortMission terminates any non-terminal mission.
func (s *Service) AbortMission(ctx context.Context, missionID string) (*models.Mission, error) {
	return s.terminate(ctx, missionID, (*models.Mission).Abort)
}

// FailMission terminates any non-terminal mission.
func (s *Service) FailMission(ctx context.Context, missionID string) (*models.Mission, error) {
	return s.terminate(ctx, missionID, (*models.Mission).Fail)
}

// ArchiveMission moves a terminal mission to ARCHIVED.
func (s *Service) ArchiveMission(ctx context.Context, missionID string) (*models.Mission, error) {
	return s.terminate(ctx, missionID, (*models.Mission).Archive)
}

func (s *Service) terminate(ctx context.Context, missionID string, transition func(*models.Mission, time.Time) (*models.Mission, error)) (*models.Mission, error) {
	m, err := s.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	next, err := transition(m, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.commitTransition(ctx, m, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ExecuteCommand publishes one execution command per assigned vehicle.
// Finished missions may not be targeted.
func (s *Service) ExecuteCommand(ctx context.Context, missionID, commandCode string) error {
	m, err := s.GetMission(ctx, missionID)
	if err != nil {
		return err
	}
	if m.Finished() {
		return ErrMissionFinished
	}
	assignments, err := s.missions.ListAssignments(ctx, missionID)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		cmd, err := models.NewExecutionCommand(a.VehicleID, missionID, commandCode, nil)
		if err != nil {
			return err
		}
		if err := s.dispatcher.PublishCommand(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// RedispatchInProgress republishes the mission command for every
// IN_PROGRESS mission with assignments. Run at boot to recover missions
// persisted before a crash prevented their publish.
func (s *Service) RedispatchInProgress(ctx context.Context) error {
	missions, err := s.missions.ListByState(ctx, models.MissionStateInProgress)
	if err != nil {
		return err
	}
	for i := range missions {
		m := &missions[i]
		assignments, err := s.missions.ListAssignments(ctx, m.ID)
		if err != nil {
			return err
		}
		if len(assignments) == 0 {
			continue
		}
		cmd, err := models.NewMissionExecutionCommand(m.ID, assignments)
		if err != nil {
			return err
		}
		if err := s.dispatcher.PublishMissionCommand(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// commitTransition performs the optimistic conditional update. Losing the
// race reports the live state against the attempted one.
func (s *Service) commitTransition(ctx context.Context, from, to *models.Mission) error {
	moved, err := s.missions.TransitionState(ctx, from.ID, from.State, to.State, to.EndDate, to.UpdatedAt)
	if err != nil {
		return err
	}
	if !moved {
		current, err := s.missions.GetByID(ctx, from.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrMissionNotFound
		}
		return &models.InvalidStateTransitionError{Current: current.State, Attempted: to.State}
	}
	return nil
}
