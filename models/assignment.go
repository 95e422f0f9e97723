package models

// Waypoint is one point of a supplied route. Route generation is out of
// scope; waypoints arrive precomputed.
type Waypoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// DroneMissionAssignment binds one vehicle and its route to a mission.
// A mission may carry several assignments and commands all of its vehicles
// at once. Assignment lifecycle is bounded by the owning mission.
type DroneMissionAssignment struct {
	ID        int64      `db:"id" json:"id"`
	MissionID string     `db:"mission_id" json:"mission_id"`
	VehicleID string     `db:"vehicle_id" json:"vehicle_id"`
	Route     []Waypoint `db:"route" json:"route"`
}
