package models

import (
	"encoding/json"
	"strings"
	"time"
)

// TelemetryEvent is one validated vehicle telemetry reading.
// Optional numeric fields use pointers to distinguish absent from zero.
type TelemetryEvent struct {
	ID               int64          `db:"id" json:"id"`
	VehicleID        string         `db:"vehicle_id" json:"vehicle_id"`
	Latitude         float64        `db:"latitude" json:"latitude"`
	Longitude        float64        `db:"longitude" json:"longitude"`
	Altitude         float64        `db:"altitude" json:"altitude"`
	Speed            *float64       `db:"speed" json:"speed,omitempty"`
	Heading          *float64       `db:"heading" json:"heading,omitempty"`
	BatteryLevel     *float64       `db:"battery_level" json:"battery_level,omitempty"`
	SatelliteCount   *int           `db:"satellite_count" json:"satellite_count,omitempty"`
	Timestamp        time.Time      `db:"recorded_at" json:"timestamp"`
	AdditionalFields map[string]any `db:"additional_fields" json:"additional_fields"`
}

// telemetryWire mirrors the inbound JSON shape. Required fields are
// pointers so absence is detectable.
type telemetryWire struct {
	VehicleID        string          `json:"vehicleId"`
	Latitude         *float64        `json:"latitude"`
	Longitude        *float64        `json:"longitude"`
	Altitude         *float64        `json:"altitude"`
	Speed            *float64        `json:"speed"`
	Heading          *float64        `json:"heading"`
	BatteryLevel     *float64        `json:"batteryLevel"`
	SatelliteCount   *int            `json:"satelliteCount"`
	Timestamp        string          `json:"timestamp"`
	AdditionalFields json.RawMessage `json:"additionalFields"`
}

// ParseTelemetryEvent validates a raw telemetry payload. Malformed input
// yields a ValidationError and is never coerced into stored telemetry.
// Defaults: altitude 0, timestamp = ingestion time (now) when absent or
// unparseable, negative satelliteCount discarded, additionalFields empty
// when absent or not a JSON object. Complex additional values degrade to
// their JSON text.
func ParseTelemetryEvent(raw []byte, now time.Time) (*TelemetryEvent, error) {
	var w telemetryWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &ValidationError{Field: "payload", Reason: "not a valid telemetry JSON object: " + err.Error()}
	}
	if strings.TrimSpace(w.VehicleID) == "" {
		return nil, &ValidationError{Field: "vehicleId", Reason: "required and must be non-blank"}
	}
	if w.Latitude == nil {
		return nil, &ValidationError{Field: "latitude", Reason: "required"}
	}
	if *w.Latitude < -90 || *w.Latitude > 90 {
		return nil, &ValidationError{Field: "latitude", Reason: "out of range [-90,90]"}
	}
	if w.Longitude == nil {
		return nil, &ValidationError{Field: "longitude", Reason: "required"}
	}
	if *w.Longitude < -180 || *w.Longitude > 180 {
		return nil, &ValidationError{Field: "longitude", Reason: "out of range [-180,180]"}
	}

	ev := &TelemetryEvent{
		VehicleID:        w.VehicleID,
		Latitude:         *w.Latitude,
		Longitude:        *w.Longitude,
		Speed:            w.Speed,
		Heading:          w.Heading,
		BatteryLevel:     w.BatteryLevel,
		Timestamp:        now,
		AdditionalFields: map[string]any{},
	}
	if w.Altitude != nil {
		ev.Altitude = *w.Altitude
	}
	if w.SatelliteCount != nil && *w.SatelliteCount >= 0 {
		ev.SatelliteCount = w.SatelliteCount
	}
	if w.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, w.Timestamp); err == nil {
			ev.Timestamp = ts
		}
	}
	if len(w.AdditionalFields) > 0 {
		var extra map[string]any
		// A non-object additionalFields value degrades to an empty map.
		if err := json.Unmarshal(w.AdditionalFields, &extra); err == nil {
			for k, v := range extra {
				ev.AdditionalFields[k] = flattenAdditionalValue(v)
			}
		}
	}
	return ev, nil
}

// flattenAdditionalValue keeps scalar values as-is and degrades nested
// objects and arrays to their JSON text.
func flattenAdditionalValue(v any) any {
	switch v.(type) {
	case nil, bool, float64, string, json.Number:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
