// Package model defines the core domain types for the event booking system.
package model

import "time"

// EventStatus is the publication lifecycle of an event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

// IsValid reports whether s is a known event status.
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCancelled, EventStatusCompleted:
		return true
	}
	return false
}

// Event represents a bookable event created by an organizer.
// Capacity is the total number of seats; the held count lives in the
// per-event ledger row, not here.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	StartDate   time.Time   `json:"start_date"`
	EndDate     time.Time   `json:"end_date"`
	Location    string      `json:"location"`
	Capacity    int         `json:"capacity"`
	Price       float64     `json:"price"`
	Category    string      `json:"category,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Status      EventStatus `json:"status"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// IsBookable reports whether new bookings are accepted: only published
// events whose start date is still in the future.
func (e *Event) IsBookable(now time.Time) bool {
	return e.Status == EventStatusPublished && e.StartDate.After(now)
}

// HasStarted reports whether the event start date has passed.
func (e *Event) HasStarted(now time.Time) bool {
	return !e.StartDate.After(now)
}

// LedgerEntry is the per-event capacity record: how many seats are
// currently committed by bookings in a non-terminal state.
type LedgerEntry struct {
	EventID   string `json:"event_id"`
	Capacity  int    `json:"capacity"`
	SeatsHeld int    `json:"seats_held"`
}

// Available returns the advisory free-seat count. It may be stale the
// moment it is read; reservation decisions never depend on it.
func (l LedgerEntry) Available() int {
	return l.Capacity - l.SeatsHeld
}

// LedgerReconciliation compares the ledger counter with the ticket sum
// over non-terminal bookings. A non-zero drift means seats are stuck or
// leaked and the ledger needs repair.
type LedgerReconciliation struct {
	EventID     string `json:"event_id"`
	SeatsHeld   int    `json:"seats_held"`
	BookedSeats int    `json:"booked_seats"`
	Drift       int    `json:"drift"`
}
