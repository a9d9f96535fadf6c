// Package apperrors defines the typed errors returned by the carpool engine.
//
// Every business failure carries a Kind, which callers switch on to pick a
// response, and a Code, a stable machine-readable identifier for the exact
// rule that failed. Infrastructure failures use KindUnavailable.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/jakechorley/carpool/pkg/core/direction"
)

// Kind groups errors by how a caller should react
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindForbidden        Kind = "forbidden"
	KindConflict         Kind = "conflict"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindUnavailable      Kind = "unavailable"
)

// Code is a machine-readable error code
type Code string

const (
	// Validation
	CodeSeatCountOutOfRange Code = "SEAT_COUNT_OUT_OF_RANGE"
	CodeInvalidDirection    Code = "INVALID_DIRECTION"
	CodeEmptyPatch          Code = "EMPTY_PATCH"
	CodeMissingReference    Code = "MISSING_REFERENCE"

	// Not found
	CodeActivityNotFound    Code = "ACTIVITY_NOT_FOUND"
	CodeOfferNotFound       Code = "OFFER_NOT_FOUND"
	CodeParticipantNotFound Code = "PARTICIPANT_NOT_FOUND"
	CodeAssignmentNotFound  Code = "ASSIGNMENT_NOT_FOUND"

	// Forbidden
	CodeNotOfferOwner    Code = "NOT_OFFER_OWNER"
	CodeNotGuardian      Code = "NOT_GUARDIAN"
	CodeNotDriverOrStaff Code = "NOT_DRIVER_OR_STAFF"

	// Conflict
	CodeDuplicateOffer          Code = "DUPLICATE_OFFER"
	CodeAlreadyAssigned         Code = "ALREADY_ASSIGNED"
	CodeSeatReductionBelowUsage Code = "SEAT_REDUCTION_BELOW_USAGE"
	CodeDirectionNotOffered     Code = "DIRECTION_NOT_OFFERED"
	CodeDirectionChangeInUse    Code = "DIRECTION_CHANGE_IN_USE"
	CodeOfferCancelled          Code = "OFFER_CANCELLED"

	// Capacity
	CodeNoAvailableSeats Code = "NO_AVAILABLE_SEATS"

	// Infrastructure
	CodeTryAgain Code = "TRY_AGAIN"
)

// Error is the concrete error type returned for every expected failure
type Error struct {
	Kind    Kind
	Code    Code
	Message string

	// Direction is the leg involved in a capacity or conflict failure, if any
	Direction direction.Direction
	// ActivityID is the activity the failure relates to, if known
	ActivityID string
	// Shortfall is how many assignments must be removed before a seat reduction can apply
	Shortfall int

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind so callers can write errors.Is(err, apperrors.ErrConflict)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Kind == e.Kind
}

// WithDirection records the direction involved
func (e *Error) WithDirection(d direction.Direction) *Error {
	e.Direction = d
	return e
}

// WithActivity records the activity involved
func (e *Error) WithActivity(activityID string) *Error {
	e.ActivityID = activityID
	return e
}

var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded}
	ErrUnavailable      = &Error{Kind: KindUnavailable}
)

func Validation(code Code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(code Code, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(code Code, format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Conflict(code Code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// CapacityExceeded reports that no seat is left on the given leg
func CapacityExceeded(leg direction.Direction, activityID string) *Error {
	return &Error{
		Kind:       KindCapacityExceeded,
		Code:       CodeNoAvailableSeats,
		Message:    fmt.Sprintf("no available seats for the %s leg", leg.Label()),
		Direction:  leg,
		ActivityID: activityID,
	}
}

// Unavailable wraps an infrastructure failure as a generic "try again" error
func Unavailable(cause error) *Error {
	return &Error{
		Kind:    KindUnavailable,
		Code:    CodeTryAgain,
		Message: "temporarily unavailable, try again",
		Err:     cause,
	}
}

// As extracts an *Error from err
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnavailable for errors outside the taxonomy
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnavailable
}

// CodeOf returns the code of err, or an empty code if err is not an *Error
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}
