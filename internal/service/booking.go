// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the storage layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ticketforge/booking-engine/internal/clock"
	"github.com/ticketforge/booking-engine/internal/model"
)

// Ledger is the per-event source of truth for capacity. TryReserve and
// Release are the sole serialization point: implementations must make
// check-and-increment indivisible per event.
type Ledger interface {
	Create(ctx context.Context, eventID string, capacity int) error
	TryReserve(ctx context.Context, eventID string, count int) error
	Release(ctx context.Context, eventID string, count int) error
	Get(ctx context.Context, eventID string) (model.LedgerEntry, error)
	UpdateCapacity(ctx context.Context, eventID string, capacity int) error
	Delete(ctx context.Context, eventID string) error
}

// BookingStore persists booking records.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Booking, error)
	Update(ctx context.Context, b *model.Booking) error
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, int64, error)
	SumHeldTickets(ctx context.Context, eventID string) (int, error)
}

// EventStore reads events for booking decisions.
type EventStore interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// UnitOfWork groups the ledger mutation and the booking write into one
// all-or-nothing step. The transactional implementation wraps both in a
// database transaction; the passthrough one runs them directly and relies
// on the compensating release.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Passthrough is the UnitOfWork for non-transactional ledgers: fn runs
// as-is and failures are undone by compensation instead of rollback.
type Passthrough struct{}

// Do runs fn directly.
func (Passthrough) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// AvailabilityCache serves advisory available-seat reads.
type AvailabilityCache interface {
	Get(ctx context.Context, eventID string) (int, bool)
	Set(ctx context.Context, eventID string, available int)
	Invalidate(ctx context.Context, eventID string)
}

// BookingService is the reservation engine: it orchestrates booking
// creation under the capacity invariant and drives every status change
// through the transition table.
type BookingService struct {
	uow      UnitOfWork
	ledger   Ledger
	bookings BookingStore
	events   EventStore
	cache    AvailabilityCache
	clock    clock.Clock
	log      *zap.Logger

	compensate     bool
	releaseRetries int
	releaseBackoff time.Duration
}

// BookingServiceOption customises a BookingService.
type BookingServiceOption func(*BookingService)

// WithAvailabilityCache plugs in the advisory availability cache.
func WithAvailabilityCache(c AvailabilityCache) BookingServiceOption {
	return func(s *BookingService) { s.cache = c }
}

// WithCompensatingRelease enables the compensating release after a failed
// booking write, for deployments whose ledger is not covered by the unit
// of work's transaction. Retried a bounded number of times: stuck-held
// seats are worse than a duplicate attempt, which the one-shot marker and
// the reserve-then-nothing-persisted shape make safe.
func WithCompensatingRelease(retries int, backoff time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.compensate = true
		if retries > 0 {
			s.releaseRetries = retries
		}
		s.releaseBackoff = backoff
	}
}

// NewBookingService constructs a BookingService with its dependencies.
func NewBookingService(
	uow UnitOfWork,
	ledger Ledger,
	bookings BookingStore,
	events EventStore,
	clk clock.Clock,
	log *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	s := &BookingService{
		uow:            uow,
		ledger:         ledger,
		bookings:       bookings,
		events:         events,
		clock:          clk,
		log:            log,
		releaseRetries: 3,
		releaseBackoff: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking reserves seats and creates the booking record as one
// all-or-nothing step. On capacity exhaustion the error message carries
// the seats available at failure time, recomputed from the ledger for
// diagnostics only; the gating check is TryReserve itself.
func (s *BookingService) CreateBooking(ctx context.Context, userID string, req model.CreateBookingRequest) (*model.Booking, error) {
	if req.NumberOfTickets < 1 {
		return nil, model.ErrInvalidQuantity
	}
	if req.EventID == "" {
		return nil, model.ErrNotFound
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsBookable(s.clock.Now()) {
		return nil, model.ErrEventNotBookable
	}

	now := s.clock.Now()
	booking := &model.Booking{
		ID:              uuid.New().String(),
		EventID:         event.ID,
		UserID:          userID,
		NumberOfTickets: req.NumberOfTickets,
		TotalAmount:     event.Price * float64(req.NumberOfTickets),
		Status:          model.BookingStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.ledger.TryReserve(ctx, event.ID, booking.NumberOfTickets); err != nil {
			if errors.Is(err, model.ErrInsufficientCapacity) {
				return s.insufficientCapacity(ctx, event.ID)
			}
			return err
		}

		if err := s.bookings.Create(ctx, booking); err != nil {
			// Seats are held with no booking record behind them. Inside a
			// transaction the rollback undoes the reservation; on a
			// non-transactional ledger we must hand the seats back here.
			if s.compensate {
				s.compensateRelease(ctx, event.ID, booking.NumberOfTickets)
			}
			return fmt.Errorf("persist booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAvailability(ctx, event.ID)
	s.log.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("event_id", event.ID),
		zap.Int("tickets", booking.NumberOfTickets),
	)
	return booking, nil
}

// insufficientCapacity decorates the sentinel with the current advisory
// availability so the caller knows what quantity might still succeed.
func (s *BookingService) insufficientCapacity(ctx context.Context, eventID string) error {
	entry, err := s.ledger.Get(ctx, eventID)
	if err != nil {
		return model.ErrInsufficientCapacity
	}
	return fmt.Errorf("only %d tickets available: %w", entry.Available(), model.ErrInsufficientCapacity)
}

// compensateRelease retries the release a bounded number of times. An
// exhausted retry budget is a critical inconsistency: seats stay held
// with no booking record, and reconciliation has to repair the ledger.
func (s *BookingService) compensateRelease(ctx context.Context, eventID string, count int) {
	var err error
	for attempt := 1; attempt <= s.releaseRetries; attempt++ {
		if err = s.ledger.Release(ctx, eventID, count); err == nil {
			return
		}
		s.log.Warn("compensating release failed",
			zap.String("event_id", eventID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		time.Sleep(s.releaseBackoff * time.Duration(attempt))
	}
	s.log.Error("CRITICAL: compensating release exhausted retries; ledger requires reconciliation",
		zap.String("event_id", eventID),
		zap.Int("seats_stuck", count),
		zap.Error(err),
	)
}

// CancelBooking cancels a pending or confirmed booking before the event
// starts, releasing its seats exactly once.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID string, isAdmin bool, reason string) (*model.Booking, error) {
	var result *model.Booking

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != actorID && !isAdmin {
			return model.ErrForbidden
		}

		event, err := s.events.GetByID(ctx, b.EventID)
		if err != nil {
			return err
		}
		if event.HasStarted(s.clock.Now()) {
			return model.ErrEventAlreadyStarted
		}

		released, err := s.transition(ctx, b, model.BookingStatusCancelled)
		if err != nil {
			return err
		}
		b.CancellationReason = strings.TrimSpace(reason)

		if err := s.persistTransition(ctx, b, released); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAvailability(ctx, result.EventID)
	s.log.Info("booking cancelled",
		zap.String("booking_id", result.ID),
		zap.String("actor_id", actorID),
	)
	return result, nil
}

// ApplyPaymentOutcome consumes an asynchronous payment result. A paid
// outcome confirms the booking and keeps its seats held; a failed outcome
// cancels it and releases them. Re-delivery of an outcome that already
// took effect is a no-op, not a double release.
func (s *BookingService) ApplyPaymentOutcome(ctx context.Context, bookingID string, outcome model.PaymentOutcome, paymentMethod, paymentID string) (*model.Booking, error) {
	if outcome != model.PaymentOutcomePaid && outcome != model.PaymentOutcomeFailed {
		return nil, fmt.Errorf("unknown payment outcome %q: %w", outcome, model.ErrInvalidTransition)
	}

	var result *model.Booking
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}

		if applied(b, outcome) {
			result = b
			return nil
		}

		var released bool
		switch outcome {
		case model.PaymentOutcomePaid:
			if _, err := s.transition(ctx, b, model.BookingStatusConfirmed); err != nil {
				return err
			}
			b.PaymentStatus = model.PaymentStatusPaid
		case model.PaymentOutcomeFailed:
			released, err = s.transition(ctx, b, model.BookingStatusCancelled)
			if err != nil {
				return err
			}
			b.PaymentStatus = model.PaymentStatusFailed
			b.CancellationReason = "payment failed"
		}

		if paymentMethod != "" {
			b.PaymentMethod = paymentMethod
		}
		if paymentID != "" {
			b.PaymentID = paymentID
		}

		if err := s.persistTransition(ctx, b, released); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAvailability(ctx, result.EventID)
	return result, nil
}

// applied reports whether this outcome already took effect on the booking,
// i.e. the webhook is a duplicate delivery.
func applied(b *model.Booking, outcome model.PaymentOutcome) bool {
	switch outcome {
	case model.PaymentOutcomePaid:
		return b.Status == model.BookingStatusConfirmed && b.PaymentStatus == model.PaymentStatusPaid
	case model.PaymentOutcomeFailed:
		return b.Status == model.BookingStatusCancelled && b.PaymentStatus == model.PaymentStatusFailed
	}
	return false
}

// AdminSetStatus forces a booking status on behalf of an administrator.
// It passes through the same transition table as every other path; there
// is deliberately no way to patch status fields around it.
func (s *BookingService) AdminSetStatus(ctx context.Context, bookingID string, req model.AdminStatusRequest) (*model.Booking, error) {
	if !req.Status.IsValid() {
		return nil, fmt.Errorf("unknown status %q: %w", req.Status, model.ErrInvalidTransition)
	}
	if req.PaymentStatus != nil && !req.PaymentStatus.IsValid() {
		return nil, fmt.Errorf("unknown payment status %q: %w", *req.PaymentStatus, model.ErrInvalidTransition)
	}

	var result *model.Booking
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}

		released, err := s.transition(ctx, b, req.Status)
		if err != nil {
			return err
		}

		switch {
		case req.PaymentStatus != nil:
			b.PaymentStatus = *req.PaymentStatus
		case req.Status == model.BookingStatusConfirmed:
			b.PaymentStatus = model.PaymentStatusPaid
		case req.Status == model.BookingStatusRefunded:
			b.PaymentStatus = model.PaymentStatusRefunded
		}

		if req.PaymentMethod != "" {
			b.PaymentMethod = req.PaymentMethod
		}
		if req.PaymentID != "" {
			b.PaymentID = req.PaymentID
		}

		if err := s.persistTransition(ctx, b, released); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAvailability(ctx, result.EventID)
	s.log.Info("booking status set by admin",
		zap.String("booking_id", result.ID),
		zap.String("status", string(result.Status)),
	)
	return result, nil
}

// transition applies the table-checked move to the target status and
// releases held seats when the target calls for it. The seats_released
// marker makes release fire at most once over the booking's lifetime,
// even if a handler runs twice. Returns whether this call released
// seats, so a failed persist can undo it.
func (s *BookingService) transition(ctx context.Context, b *model.Booking, to model.BookingStatus) (bool, error) {
	if !b.Status.CanTransitionTo(to) {
		return false, fmt.Errorf("%s -> %s: %w", b.Status, to, model.ErrInvalidTransition)
	}

	released := false
	if model.ReleasesSeats(to) && !b.SeatsReleased {
		if err := s.ledger.Release(ctx, b.EventID, b.NumberOfTickets); err != nil {
			return false, err
		}
		b.SeatsReleased = true
		released = true
	}

	b.Status = to
	b.UpdatedAt = s.clock.Now()
	return released, nil
}

// persistTransition writes the booking after a transition. Inside a
// transaction a failed write rolls the release back with it; on the
// non-transactional path the seats must be re-reserved here, or a
// pending booking would be left holding nothing.
func (s *BookingService) persistTransition(ctx context.Context, b *model.Booking, released bool) error {
	err := s.bookings.Update(ctx, b)
	if err == nil {
		return nil
	}

	if released && s.compensate {
		if reserveErr := s.ledger.TryReserve(ctx, b.EventID, b.NumberOfTickets); reserveErr != nil {
			s.log.Error("CRITICAL: could not re-reserve seats after failed booking write; ledger requires reconciliation",
				zap.String("booking_id", b.ID),
				zap.String("event_id", b.EventID),
				zap.Int("seats", b.NumberOfTickets),
				zap.Error(reserveErr),
			)
		}
	}
	return fmt.Errorf("persist booking: %w", err)
}

// GetBooking returns a booking visible to the actor (owner or admin).
func (s *BookingService) GetBooking(ctx context.Context, bookingID, actorID string, isAdmin bool) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actorID && !isAdmin {
		return nil, model.ErrForbidden
	}
	return b, nil
}

// ListBookingsForUser returns a page of the user's own bookings.
func (s *BookingService) ListBookingsForUser(ctx context.Context, userID string, status model.BookingStatus, page, limit int) (*model.BookingPage, error) {
	return s.list(ctx, model.BookingFilter{UserID: userID, Status: status, Page: page, Limit: limit})
}

// ListBookings returns a page of bookings across all users (admin).
func (s *BookingService) ListBookings(ctx context.Context, f model.BookingFilter) (*model.BookingPage, error) {
	return s.list(ctx, f)
}

func (s *BookingService) list(ctx context.Context, f model.BookingFilter) (*model.BookingPage, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, fmt.Errorf("unknown status %q: %w", f.Status, model.ErrInvalidTransition)
	}
	bookings, total, err := s.bookings.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	return &model.BookingPage{
		Bookings:   bookings,
		Pagination: paginate(total, f.Page, f.Limit),
	}, nil
}

// AvailableSeats returns the advisory free-seat count for an event. The
// value may be stale immediately; it is for display, never for gating.
func (s *BookingService) AvailableSeats(ctx context.Context, eventID string) (int, error) {
	if s.cache != nil {
		if available, ok := s.cache.Get(ctx, eventID); ok {
			return available, nil
		}
	}

	entry, err := s.ledger.Get(ctx, eventID)
	if err != nil {
		return 0, err
	}
	available := entry.Available()

	if s.cache != nil {
		s.cache.Set(ctx, eventID, available)
	}
	return available, nil
}

// ReconcileLedger compares the ledger's seats-held counter with the
// ticket sum over pending and confirmed bookings. Drift indicates a
// failed compensation or an out-of-band mutation; repair stays a manual
// decision, this only surfaces the numbers.
func (s *BookingService) ReconcileLedger(ctx context.Context, eventID string) (*model.LedgerReconciliation, error) {
	entry, err := s.ledger.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	booked, err := s.bookings.SumHeldTickets(ctx, eventID)
	if err != nil {
		return nil, err
	}

	rec := &model.LedgerReconciliation{
		EventID:     eventID,
		SeatsHeld:   entry.SeatsHeld,
		BookedSeats: booked,
		Drift:       entry.SeatsHeld - booked,
	}
	if rec.Drift != 0 {
		s.log.Warn("ledger drift detected",
			zap.String("event_id", eventID),
			zap.Int("seats_held", rec.SeatsHeld),
			zap.Int("booked_seats", rec.BookedSeats),
			zap.Int("drift", rec.Drift),
		)
	}
	return rec, nil
}

func (s *BookingService) invalidateAvailability(ctx context.Context, eventID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, eventID)
	}
}

func paginate(total int64, page, limit int) model.Pagination {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}
	pages := int(total) / limit
	if int(total)%limit > 0 {
		pages++
	}
	return model.Pagination{Total: total, Page: page, Pages: pages}
}
