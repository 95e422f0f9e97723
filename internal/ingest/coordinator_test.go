package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"droneMissionControl/models"
)

// flakyProcessor fails a configured number of times before succeeding.
type flakyProcessor struct {
	failures int
	calls    int
}

func (p *flakyProcessor) Process(_ context.Context, ev *models.TelemetryEvent) (*models.TelemetryEvent, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, &models.StorageError{Err: errors.New("disk on fire")}
	}
	return ev, nil
}

// recordingDLQ captures dead-letter publishes.
type recordingDLQ struct {
	records [][]byte
	keys    []string
	fail    error
}

func (d *recordingDLQ) PublishDLQ(_ context.Context, key, value []byte) error {
	if d.fail != nil {
		return d.fail
	}
	d.keys = append(d.keys, string(key))
	d.records = append(d.records, value)
	return nil
}

const validPayload = `{"vehicleId":"V1","latitude":10,"longitude":20}`

func TestCoordinator_SuccessAcks(t *testing.T) {
	proc := &flakyProcessor{failures: 0}
	dlq := &recordingDLQ{}
	c := NewCoordinator(proc, dlq, 3, 100*time.Millisecond)

	out := c.Handle(context.Background(), "t-0-1", []byte(validPayload))
	if out.Decision != DecisionAck {
		t.Fatalf("expected ack, got %v", out.Decision)
	}
	if len(dlq.records) != 0 {
		t.Fatalf("success must not dead-letter")
	}
	if len(c.attempts) != 0 {
		t.Fatalf("counter should be cleared on success")
	}
}

func TestCoordinator_RetriesThenRecovers(t *testing.T) {
	proc := &flakyProcessor{failures: 2}
	dlq := &recordingDLQ{}
	c := NewCoordinator(proc, dlq, 3, 100*time.Millisecond)
	ctx := context.Background()

	out := c.Handle(ctx, "t-0-5", []byte(validPayload))
	if out.Decision != DecisionRetry || out.Backoff != 100*time.Millisecond {
		t.Fatalf("first failure: want retry with base backoff, got %+v", out)
	}
	out = c.Handle(ctx, "t-0-5", []byte(validPayload))
	if out.Decision != DecisionRetry || out.Backoff != 200*time.Millisecond {
		t.Fatalf("second failure: backoff should double, got %+v", out)
	}
	out = c.Handle(ctx, "t-0-5", []byte(validPayload))
	if out.Decision != DecisionAck {
		t.Fatalf("third attempt succeeds and acks, got %+v", out)
	}
	if len(dlq.records) != 0 {
		t.Fatalf("recovered message must not dead-letter")
	}
	if len(c.attempts) != 0 {
		t.Fatalf("counter should be cleared after success")
	}
}

func TestCoordinator_ExhaustedRetriesDeadLetterOnce(t *testing.T) {
	proc := &flakyProcessor{failures: 100}
	dlq := &recordingDLQ{}
	c := NewCoordinator(proc, dlq, 3, 50*time.Millisecond)
	ctx := context.Background()

	var decisions []Decision
	for i := 0; i < 3; i++ {
		decisions = append(decisions, c.Handle(ctx, "t-1-9", []byte(validPayload)).Decision)
	}
	want := []Decision{DecisionRetry, DecisionRetry, DecisionDeadLetter}
	for i := range want {
		if decisions[i] != want[i] {
			t.Fatalf("attempt %d: want %v got %v (all: %v)", i+1, want[i], decisions[i], decisions)
		}
	}
	if len(dlq.records) != 1 {
		t.Fatalf("expected exactly one DLQ record, got %d", len(dlq.records))
	}
	if dlq.keys[0] != "V1" {
		t.Fatalf("DLQ record should be keyed by vehicle, got %q", dlq.keys[0])
	}
	var rec struct {
		Error     string          `json:"error"`
		Original  json.RawMessage `json:"original"`
		VehicleID string          `json:"vehicleId"`
		Attempts  int             `json:"attempts"`
	}
	if err := json.Unmarshal(dlq.records[0], &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Attempts != 3 || rec.VehicleID != "V1" || rec.Error == "" {
		t.Fatalf("record mismatch: %+v", rec)
	}
	if string(rec.Original) != validPayload {
		t.Fatalf("original payload should be carried untouched: %s", rec.Original)
	}
	if len(c.attempts) != 0 {
		t.Fatalf("counter should be cleared after dead-lettering")
	}
}

func TestCoordinator_ParseFailureBypassesRetry(t *testing.T) {
	proc := &flakyProcessor{}
	dlq := &recordingDLQ{}
	c := NewCoordinator(proc, dlq, 3, 50*time.Millisecond)

	out := c.Handle(context.Background(), "t-2-0", []byte(`{"vehicleId":"V1","latitude":91,"longitude":0}`))
	if out.Decision != DecisionDeadLetter {
		t.Fatalf("malformed content dead-letters immediately, got %v", out.Decision)
	}
	if proc.calls != 0 {
		t.Fatalf("parse failures must not reach the processor")
	}
	if len(dlq.records) != 1 || dlq.keys[0] != "invalid" {
		t.Fatalf("expected one DLQ record keyed invalid, got %v", dlq.keys)
	}
}

func TestCoordinator_NonJSONPayloadKeepsEnvelopeWellFormed(t *testing.T) {
	dlq := &recordingDLQ{}
	c := NewCoordinator(&flakyProcessor{}, dlq, 3, 50*time.Millisecond)

	out := c.Handle(context.Background(), "t-2-1", []byte("not json at all"))
	if out.Decision != DecisionDeadLetter {
		t.Fatalf("expected dead-letter, got %v", out.Decision)
	}
	if !json.Valid(dlq.records[0]) {
		t.Fatalf("DLQ envelope must be valid JSON: %s", dlq.records[0])
	}
	var rec struct {
		OriginalText string `json:"originalText"`
	}
	if err := json.Unmarshal(dlq.records[0], &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.OriginalText != "not json at all" {
		t.Fatalf("original text not carried: %+v", rec)
	}
}

func TestCoordinator_DLQPublishFailureLeavesUnacknowledged(t *testing.T) {
	proc := &flakyProcessor{failures: 100}
	dlq := &recordingDLQ{fail: errors.New("dlq topic down")}
	c := NewCoordinator(proc, dlq, 1, 50*time.Millisecond)

	out := c.Handle(context.Background(), "t-3-0", []byte(validPayload))
	if out.Decision != DecisionRetry {
		t.Fatalf("a failed DLQ write must not ack the message, got %v", out.Decision)
	}
}

func TestCoordinator_CountersAreKeyedPerMessageAndVehicle(t *testing.T) {
	proc := &flakyProcessor{failures: 100}
	dlq := &recordingDLQ{}
	c := NewCoordinator(proc, dlq, 3, 50*time.Millisecond)
	ctx := context.Background()

	c.Handle(ctx, "t-0-1", []byte(validPayload))
	c.Handle(ctx, "t-0-2", []byte(validPayload))
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.attempts) != 2 {
		t.Fatalf("distinct messages must track distinct counters, got %v", c.attempts)
	}
	if c.attempts["t-0-1|V1"] != 1 || c.attempts["t-0-2|V1"] != 1 {
		t.Fatalf("unexpected counter state: %v", c.attempts)
	}
}
