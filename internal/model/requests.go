package model

import "time"

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Location    string    `json:"location"`
	Capacity    int       `json:"capacity"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
}

// UpdateEventRequest is the payload for patching an event. Nil fields are
// left untouched.
type UpdateEventRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	StartDate   *time.Time   `json:"start_date"`
	EndDate     *time.Time   `json:"end_date"`
	Location    *string      `json:"location"`
	Capacity    *int         `json:"capacity"`
	Price       *float64     `json:"price"`
	Category    *string      `json:"category"`
	Tags        *[]string    `json:"tags"`
	Status      *EventStatus `json:"status"`
}

// EventFilter narrows event listings.
type EventFilter struct {
	Status    EventStatus
	Category  string
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// CreateBookingRequest is the payload for reserving tickets.
type CreateBookingRequest struct {
	EventID         string `json:"event_id"`
	NumberOfTickets int    `json:"number_of_tickets"`
	SpecialRequests string `json:"special_requests"`
}

// CancelBookingRequest carries the optional cancellation reason.
type CancelBookingRequest struct {
	CancellationReason string `json:"cancellation_reason"`
}

// PaymentWebhookRequest is the payload delivered by the payment
// collaborator once a payment settles.
type PaymentWebhookRequest struct {
	BookingID     string         `json:"booking_id"`
	Outcome       PaymentOutcome `json:"outcome"`
	PaymentMethod string         `json:"payment_method"`
	PaymentID     string         `json:"payment_id"`
}

// AdminStatusRequest is the admin payload for forcing a booking status.
// It still passes through the transition table.
type AdminStatusRequest struct {
	Status        BookingStatus  `json:"status"`
	PaymentStatus *PaymentStatus `json:"payment_status"`
	PaymentMethod string         `json:"payment_method"`
	PaymentID     string         `json:"payment_id"`
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	UserID  string
	EventID string
	Status  BookingStatus
	Page    int
	Limit   int
}

// Pagination describes a page of a larger result set.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
}

// BookingPage is a page of bookings plus pagination metadata.
type BookingPage struct {
	Bookings   []Booking  `json:"bookings"`
	Pagination Pagination `json:"pagination"`
}

// EventPage is a page of events plus pagination metadata.
type EventPage struct {
	Events     []Event    `json:"events"`
	Pagination Pagination `json:"pagination"`
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UpdateProfileRequest is the payload for patching the caller's own
// account. Nil fields are left untouched; a non-empty password replaces
// the stored hash.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Password  string  `json:"password,omitempty"`
}

// AdminUpdateUserRequest is the admin payload for changing another
// user's role.
type AdminUpdateUserRequest struct {
	Role Role `json:"role"`
}

// UserFilter narrows admin user listings. Search matches username,
// email, and name fields case-insensitively.
type UserFilter struct {
	Role   Role
	Search string
	Page   int
	Limit  int
}

// UserPage is a page of users plus pagination metadata.
type UserPage struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// LoginRequest is the payload for authenticating.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the issued token and the authenticated user.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
