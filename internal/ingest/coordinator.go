package ingest

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"droneMissionControl/models"
)

// Decision is the coordinator's verdict on one inbound message.
type Decision int

const (
	// DecisionAck acknowledges the message; processing durably completed.
	DecisionAck Decision = iota
	// DecisionRetry leaves the message unacknowledged so the transport's
	// redelivery re-presents it after the computed backoff.
	DecisionRetry
	// DecisionDeadLetter records the message on the DLQ and acknowledges
	// it to stop further redelivery.
	DecisionDeadLetter
)

// Outcome carries the decision and, for retries, the backoff delay.
type Outcome struct {
	Decision Decision
	Backoff  time.Duration
}

// DeadLetterSink is the DLQ topic the coordinator writes terminal
// failures to.
type DeadLetterSink interface {
	PublishDLQ(ctx context.Context, key, value []byte) error
}

// eventProcessor is the retried unit of work.
type eventProcessor interface {
	Process(ctx context.Context, ev *models.TelemetryEvent) (*models.TelemetryEvent, error)
}

// Coordinator wraps per-message processing with bounded exponential
// backoff and terminal dead-lettering. Attempt counters are keyed by
// (messageKey, vehicleId), guarded by a mutex, and process-local: a
// consumer restart resets them, so the bound holds per process, not
// across restarts.
type Coordinator struct {
	processor   eventProcessor
	dlq         DeadLetterSink
	maxRetries  int
	baseBackoff time.Duration
	now         func() time.Time

	mu       sync.Mutex
	attempts map[string]int
}

func NewCoordinator(processor eventProcessor, dlq DeadLetterSink, maxRetries int, baseBackoff time.Duration) *Coordinator {
	return &Coordinator{
		processor:   processor,
		dlq:         dlq,
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
		now:         time.Now,
		attempts:    map[string]int{},
	}
}

// Handle parses and processes one raw message identified by messageKey.
// Parse failures bypass retry entirely: redelivery cannot fix malformed
// content, so they dead-letter immediately.
func (c *Coordinator) Handle(ctx context.Context, messageKey string, raw []byte) Outcome {
	ev, err := models.ParseTelemetryEvent(raw, c.now())
	if err != nil {
		return c.deadLetter(ctx, "invalid", raw, 0, err)
	}

	key := messageKey + "|" + ev.VehicleID
	if _, perr := c.processor.Process(ctx, ev); perr != nil {
		c.mu.Lock()
		c.attempts[key]++
		attempts := c.attempts[key]
		c.mu.Unlock()

		if attempts < c.maxRetries {
			backoff := c.baseBackoff << (attempts - 1)
			log.Printf("ingest retry %d/%d for %s (vehicle=%s) in %s: %v", attempts, c.maxRetries, messageKey, ev.VehicleID, backoff, perr)
			return Outcome{Decision: DecisionRetry, Backoff: backoff}
		}
		c.clear(key)
		return c.deadLetter(ctx, ev.VehicleID, raw, attempts, perr)
	}

	c.clear(key)
	return Outcome{Decision: DecisionAck}
}

func (c *Coordinator) clear(key string) {
	c.mu.Lock()
	delete(c.attempts, key)
	c.mu.Unlock()
}

// deadLetterRecord is the DLQ envelope: the failure, the untouched
// original payload, and how many attempts were spent on it.
type deadLetterRecord struct {
	Error        string          `json:"error"`
	Original     json.RawMessage `json:"original,omitempty"`
	OriginalText string          `json:"originalText,omitempty"`
	VehicleID    string          `json:"vehicleId,omitempty"`
	Attempts     int             `json:"attempts"`
	FailedAt     string          `json:"failedAt"`
}

func (c *Coordinator) deadLetter(ctx context.Context, key string, raw []byte, attempts int, cause error) Outcome {
	record := deadLetterRecord{
		Error:    cause.Error(),
		Original: json.RawMessage(raw),
		Attempts: attempts,
		FailedAt: c.now().UTC().Format(time.RFC3339Nano),
	}
	if key != "invalid" {
		record.VehicleID = key
	}
	if !json.Valid(raw) {
		// Keep the DLQ envelope itself well-formed for non-JSON input.
		record.Original = nil
		record.OriginalText = string(raw)
	}
	buf, err := json.Marshal(record)
	if err != nil {
		log.Printf("ingest dlq encode failed: %v", err)
		return Outcome{Decision: DecisionRetry, Backoff: c.baseBackoff}
	}
	if err := c.dlq.PublishDLQ(ctx, []byte(key), buf); err != nil {
		// The record is not safe to drop; leave the message
		// unacknowledged and let redelivery try the DLQ write again.
		log.Printf("ingest dlq publish failed: %v", err)
		return Outcome{Decision: DecisionRetry, Backoff: c.baseBackoff}
	}
	log.Printf("ingest dead-lettered message (key=%s attempts=%d): %v", key, attempts, cause)
	return Outcome{Decision: DecisionDeadLetter}
}
