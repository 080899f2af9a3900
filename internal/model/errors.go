package model

import "errors"

// Sentinel errors returned by the booking engine. Handlers translate these
// to HTTP statuses with errors.Is; callers never see raw storage errors.
var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor may not touch the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrEventNotBookable is returned when the event is not published or
	// has already started.
	ErrEventNotBookable = errors.New("event is not available for booking")

	// ErrInsufficientCapacity is returned when fewer seats remain than
	// requested. Not retried automatically; the caller must change the
	// request.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrInvalidQuantity is returned for a non-positive ticket count.
	ErrInvalidQuantity = errors.New("number of tickets must be at least 1")

	// ErrInvalidTransition is returned when the transition table rejects a
	// status change.
	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrEventAlreadyStarted rejects cancellation after the event start.
	ErrEventAlreadyStarted = errors.New("event has already started")

	// ErrLockTimeout is returned when the per-event lock could not be
	// acquired in time. Transient: safe for the caller to retry.
	ErrLockTimeout = errors.New("timed out waiting for event lock")

	// ErrCapacityBelowHeld rejects shrinking an event's capacity under the
	// number of seats currently held.
	ErrCapacityBelowHeld = errors.New("capacity cannot be lower than seats already held")

	// ErrEventHasBookings rejects deleting an event that still has pending
	// or confirmed bookings against it.
	ErrEventHasBookings = errors.New("event has active bookings")

	// ErrLastAdmin rejects demoting the only remaining admin account.
	ErrLastAdmin = errors.New("cannot demote the last admin user")

	// ErrEmailTaken is returned when registering with an existing email.
	ErrEmailTaken = errors.New("email is already registered")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
