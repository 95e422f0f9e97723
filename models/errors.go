package models

import "fmt"

// ValidationError reports malformed or out-of-range input. It is never
// retried; the offending message or request is rejected outright.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// InvalidStateTransitionError reports a mission transition the legality
// table forbids, naming the current and the attempted state.
type InvalidStateTransitionError struct {
	Current   MissionState
	Attempted MissionState
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid mission state transition: current=%s attempted=%s", e.Current, e.Attempted)
}

// SerializationError reports a payload that could not be encoded for the
// bus. Fatal for that message; never silently dropped.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string { return fmt.Sprintf("serialize command: %v", e.Err) }
func (e *SerializationError) Unwrap() error { return e.Err }

// PublishError reports a transport failure while publishing to the bus.
type PublishError struct {
	Err error
}

func (e *PublishError) Error() string { return fmt.Sprintf("publish command: %v", e.Err) }
func (e *PublishError) Unwrap() error { return e.Err }

// StorageError reports a durable-store failure. Transient for ingestion
// (retried per coordinator policy), surfaced as a failed operation for
// orchestrator writes.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %v", e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// TimeoutError reports that processing exceeded its configured bound and
// was cancelled.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("processing timed out: %v", e.Err) }
func (e *TimeoutError) Unwrap() error { return e.Err }
