package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"droneMissionControl/models"
)

type recordedMessage struct {
	key   string
	value []byte
}

type fakePublisher struct {
	messages []recordedMessage
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, key, value []byte) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, recordedMessage{key: string(key), value: value})
	return nil
}

func TestPublishCommand_KeyedByVehicle(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub)

	cmd, err := models.NewExecutionCommand("DRONE-7", "mission-1", "EXECUTE", nil)
	if err != nil {
		t.Fatalf("NewExecutionCommand: %v", err)
	}
	if err := d.PublishCommand(context.Background(), cmd); err != nil {
		t.Fatalf("PublishCommand: %v", err)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.messages))
	}
	if pub.messages[0].key != "DRONE-7" {
		t.Errorf("expected key DRONE-7, got %q", pub.messages[0].key)
	}

	var got models.ExecutionCommand
	if err := json.Unmarshal(pub.messages[0].value, &got); err != nil {
		t.Fatalf("published payload is not valid JSON: %v", err)
	}
	if got != *cmd {
		t.Errorf("published command %+v, want %+v", got, *cmd)
	}
}

func TestPublishMissionCommand_KeyedByPrimaryVehicle(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub)

	cmd, err := models.NewMissionExecutionCommand("mission-1", []models.DroneMissionAssignment{
		{MissionID: "mission-1", VehicleID: "DRONE-1", Route: []models.Waypoint{{Latitude: 1, Longitude: 2, Altitude: 30}}},
		{MissionID: "mission-1", VehicleID: "DRONE-2"},
	})
	if err != nil {
		t.Fatalf("NewMissionExecutionCommand: %v", err)
	}
	if err := d.PublishMissionCommand(context.Background(), cmd); err != nil {
		t.Fatalf("PublishMissionCommand: %v", err)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.messages))
	}
	if pub.messages[0].key != "DRONE-1" {
		t.Errorf("expected key DRONE-1, got %q", pub.messages[0].key)
	}

	var got models.MissionExecutionCommand
	if err := json.Unmarshal(pub.messages[0].value, &got); err != nil {
		t.Fatalf("published payload is not valid JSON: %v", err)
	}
	if got.MissionID != "mission-1" || len(got.Vehicles) != 2 {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestPublish_WrapsBrokerError(t *testing.T) {
	broken := errors.New("broker unavailable")
	d := NewDispatcher(&fakePublisher{err: broken})

	cmd, err := models.NewExecutionCommand("DRONE-7", "mission-1", "EXECUTE", nil)
	if err != nil {
		t.Fatalf("NewExecutionCommand: %v", err)
	}

	err = d.PublishCommand(context.Background(), cmd)
	var pubErr *models.PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublishError, got %v", err)
	}
	if !errors.Is(err, broken) {
		t.Errorf("expected wrapped broker error, got %v", err)
	}
}
