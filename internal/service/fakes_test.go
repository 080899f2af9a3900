package service

import (
	"context"
	"errors"
	"sync"

	"github.com/ticketforge/booking-engine/internal/model"
)

type fakeEventStore struct {
	mu     sync.Mutex
	events map[string]*model.Event
}

func newFakeEventStore(events ...*model.Event) *fakeEventStore {
	s := &fakeEventStore{events: make(map[string]*model.Event)}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *fakeEventStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (s *fakeEventStore) Create(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *e
	s.events[e.ID] = &copied
	return nil
}

func (s *fakeEventStore) Update(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; !ok {
		return model.ErrNotFound
	}
	copied := *e
	s.events[e.ID] = &copied
	return nil
}

func (s *fakeEventStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *fakeEventStore) List(_ context.Context, f model.EventFilter) ([]model.Event, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, e := range s.events {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, *e)
	}
	return out, int64(len(out)), nil
}

type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking

	// createFailures makes the next N Create calls fail.
	createFailures int
	// updateFailures makes the next N Update calls fail.
	updateFailures int
}

func newFakeBookingStore(bookings ...*model.Booking) *fakeBookingStore {
	s := &fakeBookingStore{bookings: make(map[string]*model.Booking)}
	for _, b := range bookings {
		copied := *b
		s.bookings[b.ID] = &copied
	}
	return s
}

func (s *fakeBookingStore) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createFailures > 0 {
		s.createFailures--
		return errors.New("storage write failed")
	}
	copied := *b
	s.bookings[b.ID] = &copied
	return nil
}

func (s *fakeBookingStore) GetByID(_ context.Context, id string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (s *fakeBookingStore) GetByIDForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	return s.GetByID(ctx, id)
}

func (s *fakeBookingStore) Update(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateFailures > 0 {
		s.updateFailures--
		return errors.New("storage write failed")
	}
	if _, ok := s.bookings[b.ID]; !ok {
		return model.ErrNotFound
	}
	copied := *b
	s.bookings[b.ID] = &copied
	return nil
}

func (s *fakeBookingStore) SumHeldTickets(_ context.Context, eventID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := 0
	for _, b := range s.bookings {
		if b.EventID != eventID {
			continue
		}
		if b.Status == model.BookingStatusPending || b.Status == model.BookingStatusConfirmed {
			sum += b.NumberOfTickets
		}
	}
	return sum, nil
}

func (s *fakeBookingStore) List(_ context.Context, f model.BookingFilter) ([]model.Booking, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.EventID != "" && b.EventID != f.EventID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

// flakyLedger wraps a Ledger and fails the next N Release calls, for
// exercising the compensating-release retry loop.
type flakyLedger struct {
	Ledger

	mu              sync.Mutex
	releaseFailures int
	releaseCalls    int
}

func (l *flakyLedger) Release(ctx context.Context, eventID string, count int) error {
	l.mu.Lock()
	l.releaseCalls++
	fail := l.releaseFailures > 0
	if fail {
		l.releaseFailures--
	}
	l.mu.Unlock()

	if fail {
		return errors.New("ledger unavailable")
	}
	return l.Ledger.Release(ctx, eventID, count)
}

type fakeCache struct {
	mu            sync.Mutex
	values        map[string]int
	sets          int
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]int)}
}

func (c *fakeCache) Get(_ context.Context, eventID string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[eventID]
	return v, ok
}

func (c *fakeCache) Set(_ context.Context, eventID string, available int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[eventID] = available
	c.sets++
}

func (c *fakeCache) Invalidate(_ context.Context, eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, eventID)
	c.invalidations++
}
