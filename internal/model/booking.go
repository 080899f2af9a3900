package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusRefunded  BookingStatus = "refunded"
)

// PaymentStatus tracks the payment axis independently of the booking status.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentOutcome is the result reported by the external payment collaborator.
type PaymentOutcome string

const (
	PaymentOutcomePaid   PaymentOutcome = "paid"
	PaymentOutcomeFailed PaymentOutcome = "failed"
)

// validTransitions is the booking transition table. Key is the current
// status, value is the set of statuses reachable from it. Illegal moves
// are rejected by construction instead of scattered conditionals.
var validTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusRefunded},
	BookingStatusCancelled: {}, // terminal
	BookingStatusRefunded:  {}, // terminal
}

// IsValid reports whether s is a known booking status.
func (s BookingStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is allowed from s.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusRefunded
}

// CanTransitionTo reports whether the transition s -> target is allowed
// by the transition table.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ReleasesSeats reports whether entering target gives the held seats back
// to the ledger. Confirmation keeps them held; both terminal states free
// them (guarded by the one-shot seats_released marker on the booking).
func ReleasesSeats(target BookingStatus) bool {
	return target == BookingStatusCancelled || target == BookingStatusRefunded
}

// IsValid reports whether p is a known payment status.
func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Booking represents a user's reservation of tickets against an event.
type Booking struct {
	ID                 string        `json:"id"`
	EventID            string        `json:"event_id"`
	UserID             string        `json:"user_id"`
	NumberOfTickets    int           `json:"number_of_tickets"`
	TotalAmount        float64       `json:"total_amount"`
	Status             BookingStatus `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	PaymentMethod      string        `json:"payment_method,omitempty"`
	PaymentID          string        `json:"payment_id,omitempty"`
	SpecialRequests    string        `json:"special_requests,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`

	// SeatsReleased is the one-shot marker: once true, no transition may
	// release this booking's seats again, even on duplicate webhooks.
	SeatsReleased bool `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
