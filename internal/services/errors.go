// Package services defines the business logic for lease windows, missions,
// notifications and incidents. This file centralizes the service-level error
// values and types so they can be returned consistently by service methods
// and translated once, at the handler layer, into HTTP responses.
//
// Taxonomy:
//   - *ValidationError: malformed input, reported with the offending fields.
//   - *ConflictError:   scheduling overlap, reported with the conflicts.
//   - *StateError:      operation invalid for the entity's current status.
//   - Err*NotFound:     referenced entity does not exist.
//   - ErrConcurrentUpdate: an optimistic write lost a race.
//
// Anything else is an infrastructure error and is propagated raw.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/go-mission-scheduler/internal/repo"
)

// Not-found errors.
var (
	// ErrMissionNotFound indicates the mission does not exist or was deleted.
	ErrMissionNotFound = errors.New("mission not found")

	// ErrLeaseWindowNotFound indicates the lease window does not exist.
	ErrLeaseWindowNotFound = errors.New("lease window not found")

	// ErrNotificationNotFound indicates the notification does not exist.
	ErrNotificationNotFound = errors.New("notification not found")
)

// ErrConcurrentUpdate is returned when the row changed between read and
// write. Retrying the request re-reads the current state.
var ErrConcurrentUpdate = errors.New("concurrent update, retry")

// FieldError names one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input. It is returned before any state
// change.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// invalid builds a single-field ValidationError.
func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

// fieldErrors accumulates field errors and yields nil when there are none.
type fieldErrors []FieldError

func (fe *fieldErrors) add(field, msg string) { *fe = append(*fe, FieldError{Field: field, Message: msg}) }

func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return &ValidationError{Fields: fe}
}

// ConflictError reports that the requested slot overlaps missions already
// held by the agent.
type ConflictError struct {
	Conflicts []Conflict `json:"conflicts"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("scheduling conflict with %d mission(s)", len(e.Conflicts))
}

// StateError reports an operation that the entity's current status does
// not allow. No mutation has happened when it is returned.
type StateError struct {
	Entity    string `json:"entity"`
	Current   string `json:"current"`
	Attempted string `json:"attempted"`
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s is %s, cannot %s", e.Entity, e.Current, e.Attempted)
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMissionNotFound) ||
		errors.Is(err, ErrLeaseWindowNotFound) ||
		errors.Is(err, ErrNotificationNotFound)
}

// Error codes shared by the HTTP envelope and bulk results.
const (
	CodeValidation         = "validation_failed"
	CodeSchedulingConflict = "scheduling_conflict"
	CodeInvalidState       = "invalid_state"
	CodeNotFound           = "not_found"
	CodeConcurrentUpdate   = "conflict"
	CodeInternal           = "internal_error"
)

// ErrorCode classifies err into one of the Code* constants.
func ErrorCode(err error) string {
	var (
		ve *ValidationError
		ce *ConflictError
		se *StateError
	)
	switch {
	case errors.As(err, &ve):
		return CodeValidation
	case errors.As(err, &ce):
		return CodeSchedulingConflict
	case errors.As(err, &se):
		return CodeInvalidState
	case IsNotFound(err):
		return CodeNotFound
	case errors.Is(err, ErrConcurrentUpdate):
		return CodeConcurrentUpdate
	}
	return CodeInternal
}

// translate maps repository sentinels onto service errors.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return notFound
	case errors.Is(err, repo.ErrStale):
		return ErrConcurrentUpdate
	}
	return err
}
