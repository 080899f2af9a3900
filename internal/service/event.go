package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ticketforge/booking-engine/internal/clock"
	"github.com/ticketforge/booking-engine/internal/model"
)

const (
	minTitleLen = 3
	maxTitleLen = 100
	maxCapacity = 100000
)

// EventWriter persists events. It extends the read-only EventStore the
// booking side depends on.
type EventWriter interface {
	EventStore
	Create(ctx context.Context, e *model.Event) error
	Update(ctx context.Context, e *model.Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f model.EventFilter) ([]model.Event, int64, error)
}

// EventService manages the event catalogue and keeps each event's ledger
// entry consistent with its capacity.
type EventService struct {
	uow    UnitOfWork
	events EventWriter
	ledger Ledger
	clock  clock.Clock
	log    *zap.Logger
}

// NewEventService constructs an EventService.
func NewEventService(uow UnitOfWork, events EventWriter, ledger Ledger, clk clock.Clock, log *zap.Logger) *EventService {
	return &EventService{uow: uow, events: events, ledger: ledger, clock: clk, log: log}
}

// ValidationError marks a request rejected for malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// CreateEvent creates an event in draft status together with its ledger
// entry, so the ledger row exists before the first booking attempt.
func (s *EventService) CreateEvent(ctx context.Context, creatorID string, req model.CreateEventRequest) (*model.Event, error) {
	if err := validateNewEvent(req, s.clock.Now()); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	event := &model.Event{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Location:    strings.TrimSpace(req.Location),
		Capacity:    req.Capacity,
		Price:       req.Price,
		Category:    strings.TrimSpace(req.Category),
		Tags:        req.Tags,
		Status:      model.EventStatusDraft,
		CreatedBy:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.events.Create(ctx, event); err != nil {
			return err
		}
		return s.ledger.Create(ctx, event.ID, event.Capacity)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event created",
		zap.String("event_id", event.ID),
		zap.String("title", event.Title),
		zap.Int("capacity", event.Capacity),
	)
	return event, nil
}

// UpdateEvent patches an event. A capacity change goes through the ledger,
// which rejects any value below the seats currently held.
func (s *EventService) UpdateEvent(ctx context.Context, eventID string, req model.UpdateEventRequest) (*model.Event, error) {
	var result *model.Event

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByID(ctx, eventID)
		if err != nil {
			return err
		}

		if err := applyEventPatch(event, req); err != nil {
			return err
		}

		if req.Capacity != nil && *req.Capacity != event.Capacity {
			if *req.Capacity < 1 {
				return invalid("capacity", "must be at least 1")
			}
			if *req.Capacity > maxCapacity {
				return invalid("capacity", fmt.Sprintf("must be at most %d", maxCapacity))
			}
			if err := s.ledger.UpdateCapacity(ctx, eventID, *req.Capacity); err != nil {
				return err
			}
			event.Capacity = *req.Capacity
		}

		event.UpdatedAt = s.clock.Now()
		if err := s.events.Update(ctx, event); err != nil {
			return err
		}
		result = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event updated", zap.String("event_id", result.ID))
	return result, nil
}

// DeleteEvent removes an event and its ledger entry. Rejected while any
// seats are held: pending or confirmed bookings still reference the event.
func (s *EventService) DeleteEvent(ctx context.Context, eventID string) error {
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		if _, err := s.events.GetByID(ctx, eventID); err != nil {
			return err
		}
		entry, err := s.ledger.Get(ctx, eventID)
		if err != nil {
			return err
		}
		if entry.SeatsHeld > 0 {
			return model.ErrEventHasBookings
		}
		if err := s.ledger.Delete(ctx, eventID); err != nil {
			return err
		}
		return s.events.Delete(ctx, eventID)
	})
	if err != nil {
		return err
	}

	s.log.Info("event deleted", zap.String("event_id", eventID))
	return nil
}

// GetEvent returns a single event.
func (s *EventService) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	return s.events.GetByID(ctx, eventID)
}

// ListEvents returns a page of events matching the filter.
func (s *EventService) ListEvents(ctx context.Context, f model.EventFilter) (*model.EventPage, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, invalid("status", fmt.Sprintf("unknown value %q", f.Status))
	}
	events, total, err := s.events.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return &model.EventPage{
		Events:     events,
		Pagination: paginate(total, f.Page, f.Limit),
	}, nil
}

func validateNewEvent(req model.CreateEventRequest, now time.Time) error {
	title := strings.TrimSpace(req.Title)
	if len(title) < minTitleLen || len(title) > maxTitleLen {
		return invalid("title", fmt.Sprintf("must be between %d and %d characters", minTitleLen, maxTitleLen))
	}
	if req.Capacity < 1 {
		return invalid("capacity", "must be at least 1")
	}
	if req.Capacity > maxCapacity {
		return invalid("capacity", fmt.Sprintf("must be at most %d", maxCapacity))
	}
	if req.Price < 0 {
		return invalid("price", "must not be negative")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return invalid("dates", "start_date and end_date are required")
	}
	if !req.StartDate.After(now) {
		return invalid("start_date", "must be in the future")
	}
	if !req.EndDate.After(req.StartDate) {
		return invalid("end_date", "must be after start_date")
	}
	return nil
}

func applyEventPatch(event *model.Event, req model.UpdateEventRequest) error {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if len(title) < minTitleLen || len(title) > maxTitleLen {
			return invalid("title", fmt.Sprintf("must be between %d and %d characters", minTitleLen, maxTitleLen))
		}
		event.Title = title
	}
	if req.Description != nil {
		event.Description = strings.TrimSpace(*req.Description)
	}
	if req.StartDate != nil {
		event.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		event.EndDate = *req.EndDate
	}
	if !event.EndDate.After(event.StartDate) {
		return invalid("end_date", "must be after start_date")
	}
	if req.Location != nil {
		event.Location = strings.TrimSpace(*req.Location)
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return invalid("price", "must not be negative")
		}
		event.Price = *req.Price
	}
	if req.Category != nil {
		event.Category = strings.TrimSpace(*req.Category)
	}
	if req.Tags != nil {
		event.Tags = *req.Tags
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return invalid("status", fmt.Sprintf("unknown value %q", *req.Status))
		}
		event.Status = *req.Status
	}
	return nil
}
