package models

import "time"

// MissionApproval is the append-only record of a mission entering APPROVED.
// At most one exists per mission.
type MissionApproval struct {
	MissionID     string    `db:"mission_id" json:"mission_id"`
	CommanderName string    `db:"commander_name" json:"commander_name"`
	ApprovedAt    time.Time `db:"approved_at" json:"approved_at"`
}

// MissionFinalization is the append-only record of a mission entering
// FINALIZED. Its existence is the canonical "already finalized" test.
type MissionFinalization struct {
	MissionID     string    `db:"mission_id" json:"mission_id"`
	CommanderName string    `db:"commander_name" json:"commander_name"`
	FinalizedAt   time.Time `db:"finalized_at" json:"finalized_at"`
}
