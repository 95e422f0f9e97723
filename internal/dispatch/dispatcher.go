// Package dispatch serializes execution commands and publishes them to the
// bus. The vehicle id is the partition key, so each vehicle's consumer
// observes its commands in send order. The dispatcher never retries;
// retry policy belongs to the caller.
package dispatch

import (
	"context"
	"encoding/json"

	"droneMissionControl/models"
)

// Publisher is the bus write side the dispatcher depends on. Publish must
// return only after the bus acknowledges persistence of the message.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

type Dispatcher struct {
	pub Publisher
}

func NewDispatcher(pub Publisher) *Dispatcher {
	return &Dispatcher{pub: pub}
}

// PublishCommand publishes a single-vehicle execution command, keyed by
// its target vehicle.
func (d *Dispatcher) PublishCommand(ctx context.Context, cmd *models.ExecutionCommand) error {
	return d.publish(ctx, cmd.VehicleID, cmd)
}

// PublishMissionCommand publishes the mission-level command: one message
// per mission carrying all assigned vehicles, keyed by the primary vehicle.
func (d *Dispatcher) PublishMissionCommand(ctx context.Context, cmd *models.MissionExecutionCommand) error {
	return d.publish(ctx, cmd.PrimaryVehicleID(), cmd)
}

func (d *Dispatcher) publish(ctx context.Context, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return &models.SerializationError{Err: err}
	}
	if err := d.pub.Publish(ctx, []byte(key), b); err != nil {
		return &models.PublishError{Err: err}
	}
	return nil
}
