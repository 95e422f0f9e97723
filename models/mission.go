package models

import (
	"time"

	"github.com/google/uuid"
)

// MissionState represents the lifecycle state of a mission.
type MissionState string

const (
	MissionStatePendingApproval MissionState = "PENDING_APPROVAL"
	MissionStateApproved        MissionState = "APPROVED"
	MissionStateInProgress      MissionState = "IN_PROGRESS"
	MissionStateFinalized       MissionState = "FINALIZED"
	MissionStateAborted         MissionState = "ABORTED"
	MissionStateFailed          MissionState = "FAILED"
	MissionStateArchived        MissionState = "ARCHIVED"
)

// MissionOrigin distinguishes operator-created missions from missions the
// system opens automatically when an untracked vehicle starts reporting.
type MissionOrigin string

const (
	MissionOriginManual    MissionOrigin = "MANUAL"
	MissionOriginAutomatic MissionOrigin = "AUTOMATIC"
)

// Mission is the aggregate root of the lifecycle state machine.
// Fields are immutable after construction; state changes go through the
// named transition methods below, which return an updated copy with a
// refreshed UpdatedAt. EndDate is set only when the state is terminal.
type Mission struct {
	ID            string        `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	Operator      string        `db:"operator" json:"operator"`
	Origin        MissionOrigin `db:"origin" json:"origin"`
	State         MissionState  `db:"state" json:"state"`
	EstimatedDate *time.Time    `db:"estimated_date" json:"estimated_date,omitempty"`
	StartDate     time.Time     `db:"start_date" json:"start_date"`
	EndDate       *time.Time    `db:"end_date" json:"end_date,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`

	// isNew selects insert vs update on persistence. It is transient and
	// never stored.
	isNew bool
}

// NewMission constructs a manual mission awaiting approval.
func NewMission(name, operator string, startDate time.Time, now time.Time) *Mission {
	return &Mission{
		ID:        uuid.NewString(),
		Name:      name,
		Operator:  operator,
		Origin:    MissionOriginManual,
		State:     MissionStatePendingApproval,
		StartDate: startDate,
		CreatedAt: now,
		UpdatedAt: now,
		isNew:     true,
	}
}

// NewAutomaticMission constructs a mission that is already in progress,
// opened by the ingestion pipeline for a vehicle without an active mission.
func NewAutomaticMission(vehicleID string, now time.Time) *Mission {
	return &Mission{
		ID:        uuid.NewString(),
		Name:      "auto-" + vehicleID,
		Operator:  "system",
		Origin:    MissionOriginAutomatic,
		State:     MissionStateInProgress,
		StartDate: now,
		CreatedAt: now,
		UpdatedAt: now,
		isNew:     true,
	}
}

// IsNew reports whether the mission has not been persisted yet.
func (m *Mission) IsNew() bool { return m.isNew }

// MarkPersisted clears the transient is-new flag after a successful insert.
func (m *Mission) MarkPersisted() { m.isNew = false }

// Finished reports whether the mission is in a terminal state. Finished
// missions must not be targeted by new execution commands.
func (m *Mission) Finished() bool {
	switch m.State {
	case MissionStateFinalized, MissionStateAborted, MissionStateFailed, MissionStateArchived:
		return true
	}
	return false
}

// withState returns a copy in the given state with UpdatedAt refreshed.
func (m *Mission) withState(state MissionState, now time.Time) *Mission {
	c := *m
	c.State = state
	c.UpdatedAt = now
	return &c
}

// withEnd is withState plus the terminal EndDate stamp.
func (m *Mission) withEnd(state MissionState, now time.Time) *Mission {
	c := m.withState(state, now)
	end := now
	c.EndDate = &end
	return c
}

// Approve moves PENDING_APPROVAL to APPROVED. The caller records the
// companion MissionApproval.
func (m *Mission) Approve(now time.Time) (*Mission, error) {
	if m.State != MissionStatePendingApproval {
		return nil, &InvalidStateTransitionError{Current: m.State, Attempted: MissionStateApproved}
	}
	return m.withState(MissionStateApproved, now), nil
}

// Dispatch moves APPROVED to IN_PROGRESS. The caller is responsible for the
// non-empty-assignments guard and for publishing the execution command.
func (m *Mission) Dispatch(now time.Time) (*Mission, error) {
	if m.State != MissionStateApproved {
		return nil, &InvalidStateTransitionError{Current: m.State, Attempted: MissionStateInProgress}
	}
	return m.withState(MissionStateInProgress, now), nil
}

// Finalize moves IN_PROGRESS to FINALIZED. The caller checks that no
// MissionFinalization exists yet and records the new one.
func (m *Mission) Finalize(now time.Time) (*Mission, error) {
	if m.State != MissionStateInProgress {
		return nil, &InvalidStateTransitionError{Current: m.State, Attempted: MissionStateFinalized}
	}
	return m.withEnd(MissionStateFinalized, now), nil
}

// Abort terminates any non-terminal mission.
func (m *Mission) Abort(now time.Time) (*Mission, error) {
	if m.Finished() {
		return nil, &InvalidStateTransitionError{Current: m.State, Attempted: MissionStateAborted}
	}
	return m.withEnd(MissionStateAborted, now), nil
}

// Fail terminates any non-terminal mission.
func (m *Mission) Fail(now time.Time) (*Mission, error) {
	if m.Finished() {
		return nil, &InvalidStateTransitionError{Current: m.State, Attempted: MissionStateFailed}
	}
	return m.withEnd(MissionStateFailed, now), nil
}

// Archive moves a terminal mission to ARCHIVED. Archiving keeps the
// EndDate of the terminal transition that preceded it.
func (m *Mission) Archive(now time.Time) (*Mission, error) {
	if !m.Finished() || m.State == MissionStateArchived {
		return nil, &InvalidStateTransitionError{Current: m.State, Attempted: MissionStateArchived}
	}
	c := m.withState(MissionStateArchived, now)
	if c.EndDate == nil {
		end := now
		c.EndDate = &end
	}
	return c, nil
}

// WithName returns a renamed copy with UpdatedAt refreshed.
func (m *Mission) WithName(name string, now time.Time) *Mission {
	c := *m
	c.Name = name
	c.UpdatedAt = now
	return &c
}
