package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"droneMissionControl/models"
)

type TelemetryRepository struct {
	db *sql.DB
}

func NewTelemetryRepository(db *sql.DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

// Insert durably records one telemetry event. Store failures surface as
// StorageError so the ingestion coordinator can apply its retry policy.
func (r *TelemetryRepository) Insert(ctx context.Context, ev *models.TelemetryEvent) (*models.TelemetryEvent, error) {
	if ev == nil {
		return nil, errors.New("telemetry event is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	extra, err := json.Marshal(ev.AdditionalFields)
	if err != nil {
		return nil, &models.StorageError{Err: err}
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO telemetry_events
 (vehicle_id, latitude, longitude, altitude, speed, heading, battery_level, satellite_count, recorded_at, additional_fields)
 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		ev.VehicleID, ev.Latitude, ev.Longitude, ev.Altitude,
		nullFloat(ev.Speed), nullFloat(ev.Heading), nullFloat(ev.BatteryLevel), nullInt(ev.SatelliteCount),
		fmtTime(ev.Timestamp), string(extra))
	if err != nil {
		return nil, &models.StorageError{Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, &models.StorageError{Err: err}
	}
	ev.ID = id
	return ev, nil
}

func (r *TelemetryRepository) ListByVehicle(ctx context.Context, vehicleID string, limit int) ([]models.TelemetryEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, vehicle_id, latitude, longitude, altitude, speed, heading, battery_level, satellite_count, recorded_at, additional_fields
 FROM telemetry_events WHERE vehicle_id = ? ORDER BY recorded_at DESC, id DESC LIMIT ?`, vehicleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TelemetryEvent
	for rows.Next() {
		var ev models.TelemetryEvent
		var speed, heading, battery sql.NullFloat64
		var sats sql.NullInt64
		var recordedAt, extra string
		if err := rows.Scan(&ev.ID, &ev.VehicleID, &ev.Latitude, &ev.Longitude, &ev.Altitude,
			&speed, &heading, &battery, &sats, &recordedAt, &extra); err != nil {
			return nil, err
		}
		if speed.Valid {
			v := speed.Float64
			ev.Speed = &v
		}
		if heading.Valid {
			v := heading.Float64
			ev.Heading = &v
		}
		if battery.Valid {
			v := battery.Float64
			ev.BatteryLevel = &v
		}
		if sats.Valid {
			v := int(sats.Int64)
			ev.SatelliteCount = &v
		}
		if ev.Timestamp, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(extra), &ev.AdditionalFields); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
