package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrAuth means the session could not be (re)authenticated; the caller must log in again.
	ErrAuth = errors.New("authentication required")
	// ErrGracePeriod is returned when a transition is attempted on the wrong side of the grace gate.
	ErrGracePeriod = errors.New("operation not allowed at this point of the grace period")
	ErrFinalized   = errors.New("booking already finalized")
)

// ValidationError carries field-level messages keyed by the request field path
// (e.g. "room_rate_id", "booking_charges.0.price").
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message attached to path, if any.
func (e *ValidationError) Field(path string) (string, bool) {
	m, ok := e.Fields[path]
	return m, ok
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// ConflictError signals stale occupancy state: the room already holds a live booking.
type ConflictError struct {
	RoomID int64
	Reason string
}

func (e *ConflictError) Error() string {
	if e.RoomID == 0 {
		return "conflict: " + e.Reason
	}
	return fmt.Sprintf("conflict on room %d: %s", e.RoomID, e.Reason)
}

// NetworkError wraps any non-field failure talking to the backend.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: remote %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
