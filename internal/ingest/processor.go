// Package ingest is the telemetry ingestion pipeline: parsing, durable
// recording with a processing-timeout bound, automatic mission creation
// for untracked vehicles, and the bounded-retry/dead-letter coordinator
// that turns processing outcomes into ack / no-ack / DLQ decisions.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"droneMissionControl/models"
	"droneMissionControl/repository"
)

// MissionOpener is the slice of the mission orchestrator the pipeline
// needs: looking up a vehicle's active mission and opening an automatic
// one when none exists.
type MissionOpener interface {
	FindActiveByVehicle(ctx context.Context, vehicleID string) (*models.Mission, error)
	CreateAutomaticMission(ctx context.Context, vehicleID string) (*models.Mission, error)
}

// Processor persists validated telemetry under a processing deadline and
// drives automatic mission creation.
type Processor struct {
	telemetry repository.TelemetryRepositoryI
	missions  MissionOpener
	timeout   time.Duration
}

func NewProcessor(telemetry repository.TelemetryRepositoryI, missions MissionOpener, timeout time.Duration) *Processor {
	return &Processor{telemetry: telemetry, missions: missions, timeout: timeout}
}

// Process durably records one event. Exceeding the configured bound
// cancels the in-flight work and reports TimeoutError; store failures
// surface as StorageError. Both are retryable by the coordinator.
//
// A vehicle reporting telemetry with no unfinished mission gets an
// AUTOMATIC mission opened inside the same processing step, so mission
// creation shares the retry and at-least-once guarantees of the write.
func (p *Processor) Process(ctx context.Context, ev *models.TelemetryEvent) (*models.TelemetryEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	stored, err := p.telemetry.Insert(ctx, ev)
	if err != nil {
		return nil, p.classify(ctx, fmt.Errorf("record telemetry for %s: %w", ev.VehicleID, err))
	}
	active, err := p.missions.FindActiveByVehicle(ctx, ev.VehicleID)
	if err != nil {
		return nil, p.classify(ctx, fmt.Errorf("look up active mission for %s: %w", ev.VehicleID, err))
	}
	if active == nil {
		if _, err := p.missions.CreateAutomaticMission(ctx, ev.VehicleID); err != nil {
			return nil, p.classify(ctx, fmt.Errorf("open automatic mission for %s: %w", ev.VehicleID, err))
		}
	}
	return stored, nil
}

// classify maps a deadline hit to TimeoutError so callers can tell a
// cancelled computation from an ordinary store failure.
func (p *Processor) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &models.TimeoutError{Err: err}
	}
	return err
}
