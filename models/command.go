package models

import "strings"

// DefaultCommandPriority is the normal-priority value assigned when a
// command is built without an explicit priority.
const DefaultCommandPriority = 1

// ExecutionCommand is the single-vehicle outbound message.
type ExecutionCommand struct {
	VehicleID   string `json:"vehicleId"`
	MissionID   string `json:"missionId"`
	CommandCode string `json:"commandCode"`
	Priority    int    `json:"priority"`
}

// NewExecutionCommand validates and normalizes a command. A nil priority
// defaults to DefaultCommandPriority; negative priorities clamp to 0.
func NewExecutionCommand(vehicleID, missionID, commandCode string, priority *int) (*ExecutionCommand, error) {
	if strings.TrimSpace(vehicleID) == "" {
		return nil, &ValidationError{Field: "vehicleId", Reason: "required and must be non-blank"}
	}
	if strings.TrimSpace(missionID) == "" {
		return nil, &ValidationError{Field: "missionId", Reason: "required and must be non-blank"}
	}
	if strings.TrimSpace(commandCode) == "" {
		return nil, &ValidationError{Field: "commandCode", Reason: "required and must be non-blank"}
	}
	p := DefaultCommandPriority
	if priority != nil {
		p = *priority
		if p < 0 {
			p = 0
		}
	}
	return &ExecutionCommand{VehicleID: vehicleID, MissionID: missionID, CommandCode: commandCode, Priority: p}, nil
}

// CommandVehicle is one vehicle entry of a mission-level command, carrying
// its full waypoint sequence.
type CommandVehicle struct {
	VehicleID string     `json:"vehicleId"`
	Waypoints []Waypoint `json:"waypoints"`
}

// MissionExecutionCommand is the mission-level outbound message: one
// message per mission carrying every assigned vehicle and its route.
type MissionExecutionCommand struct {
	MissionID string           `json:"missionId"`
	Vehicles  []CommandVehicle `json:"vehicles"`
}

// NewMissionExecutionCommand builds the aggregate command from a mission's
// assignments. At least one assignment is required.
func NewMissionExecutionCommand(missionID string, assignments []DroneMissionAssignment) (*MissionExecutionCommand, error) {
	if strings.TrimSpace(missionID) == "" {
		return nil, &ValidationError{Field: "missionId", Reason: "required and must be non-blank"}
	}
	if len(assignments) == 0 {
		return nil, &ValidationError{Field: "vehicles", Reason: "mission has no assigned vehicles"}
	}
	vehicles := make([]CommandVehicle, 0, len(assignments))
	for _, a := range assignments {
		if strings.TrimSpace(a.VehicleID) == "" {
			return nil, &ValidationError{Field: "vehicleId", Reason: "required and must be non-blank"}
		}
		vehicles = append(vehicles, CommandVehicle{VehicleID: a.VehicleID, Waypoints: a.Route})
	}
	return &MissionExecutionCommand{MissionID: missionID, Vehicles: vehicles}, nil
}

// PrimaryVehicleID is the bus partition key for the aggregate command: the
// first assigned vehicle, so all commands for that vehicle stay ordered.
func (c *MissionExecutionCommand) PrimaryVehicleID() string {
	if len(c.Vehicles) == 0 {
		return ""
	}
	return c.Vehicles[0].VehicleID
}
