package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ticketforge/booking-engine/internal/clock"
	"github.com/ticketforge/booking-engine/internal/ledger"
	"github.com/ticketforge/booking-engine/internal/model"
)

type eventFixture struct {
	svc    *EventService
	ledger *ledger.Memory
	events *fakeEventStore
}

func newEventFixture(t *testing.T) *eventFixture {
	t.Helper()
	led := ledger.NewMemory()
	events := newFakeEventStore()
	svc := NewEventService(Passthrough{}, events, led, clock.NewFixed(testNow), zap.NewNop())
	return &eventFixture{svc: svc, ledger: led, events: events}
}

func validCreateRequest() model.CreateEventRequest {
	return model.CreateEventRequest{
		Title:     "Summer Concert",
		StartDate: testNow.Add(72 * time.Hour),
		EndDate:   testNow.Add(76 * time.Hour),
		Location:  "City Hall",
		Capacity:  200,
		Price:     49.99,
		Category:  "music",
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(t)

	event, err := f.svc.CreateEvent(ctx, "admin-1", validCreateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, model.EventStatusDraft, event.Status)
	assert.Equal(t, "admin-1", event.CreatedBy)

	// the ledger entry is created alongside the event
	entry, err := f.ledger.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, entry.Capacity)
	assert.Equal(t, 0, entry.SeatsHeld)
}

func TestCreateEventValidation(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(t)

	tests := []struct {
		name   string
		mutate func(*model.CreateEventRequest)
	}{
		{"title too short", func(r *model.CreateEventRequest) { r.Title = "ab" }},
		{"title whitespace only", func(r *model.CreateEventRequest) { r.Title = "   " }},
		{"zero capacity", func(r *model.CreateEventRequest) { r.Capacity = 0 }},
		{"capacity too large", func(r *model.CreateEventRequest) { r.Capacity = 1000001 }},
		{"negative price", func(r *model.CreateEventRequest) { r.Price = -1 }},
		{"start in the past", func(r *model.CreateEventRequest) { r.StartDate = testNow.Add(-time.Hour) }},
		{"end before start", func(r *model.CreateEventRequest) { r.EndDate = r.StartDate.Add(-time.Hour) }},
		{"missing dates", func(r *model.CreateEventRequest) { r.StartDate, r.EndDate = time.Time{}, time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)

			_, err := f.svc.CreateEvent(ctx, "admin-1", req)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(t)

	event, err := f.svc.CreateEvent(ctx, "admin-1", validCreateRequest())
	require.NoError(t, err)

	title := "Autumn Concert"
	status := model.EventStatusPublished
	updated, err := f.svc.UpdateEvent(ctx, event.ID, model.UpdateEventRequest{
		Title:  &title,
		Status: &status,
	})
	require.NoError(t, err)

	assert.Equal(t, "Autumn Concert", updated.Title)
	assert.Equal(t, model.EventStatusPublished, updated.Status)
}

func TestUpdateEventCapacity(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(t)

	event, err := f.svc.CreateEvent(ctx, "admin-1", validCreateRequest())
	require.NoError(t, err)
	require.NoError(t, f.ledger.TryReserve(ctx, event.ID, 150))

	t.Run("shrink below held rejected", func(t *testing.T) {
		capacity := 100
		_, err := f.svc.UpdateEvent(ctx, event.ID, model.UpdateEventRequest{Capacity: &capacity})
		assert.ErrorIs(t, err, model.ErrCapacityBelowHeld)

		// the event keeps its previous capacity
		current, err := f.svc.GetEvent(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 200, current.Capacity)
	})

	t.Run("shrink to held allowed", func(t *testing.T) {
		capacity := 150
		updated, err := f.svc.UpdateEvent(ctx, event.ID, model.UpdateEventRequest{Capacity: &capacity})
		require.NoError(t, err)
		assert.Equal(t, 150, updated.Capacity)

		entry, err := f.ledger.Get(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, entry.Available())
	})

	t.Run("grow allowed", func(t *testing.T) {
		capacity := 500
		updated, err := f.svc.UpdateEvent(ctx, event.ID, model.UpdateEventRequest{Capacity: &capacity})
		require.NoError(t, err)
		assert.Equal(t, 500, updated.Capacity)
	})
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(t)

	event, err := f.svc.CreateEvent(ctx, "admin-1", validCreateRequest())
	require.NoError(t, err)

	t.Run("rejected while seats are held", func(t *testing.T) {
		require.NoError(t, f.ledger.TryReserve(ctx, event.ID, 2))

		err := f.svc.DeleteEvent(ctx, event.ID)
		assert.ErrorIs(t, err, model.ErrEventHasBookings)

		// the event survives the rejected delete
		_, err = f.svc.GetEvent(ctx, event.ID)
		assert.NoError(t, err)
	})

	t.Run("allowed once seats are released", func(t *testing.T) {
		require.NoError(t, f.ledger.Release(ctx, event.ID, 2))

		require.NoError(t, f.svc.DeleteEvent(ctx, event.ID))

		_, err := f.svc.GetEvent(ctx, event.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)

		// the ledger entry goes with it
		_, err = f.ledger.Get(ctx, event.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestDeleteEventUnknown(t *testing.T) {
	f := newEventFixture(t)
	err := f.svc.DeleteEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateEventUnknown(t *testing.T) {
	f := newEventFixture(t)
	title := "New Title"
	_, err := f.svc.UpdateEvent(context.Background(), "missing", model.UpdateEventRequest{Title: &title})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListEvents(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture(t)

	event, err := f.svc.CreateEvent(ctx, "admin-1", validCreateRequest())
	require.NoError(t, err)

	page, err := f.svc.ListEvents(ctx, model.EventFilter{Status: model.EventStatusPublished})
	require.NoError(t, err)
	assert.Empty(t, page.Events)

	status := model.EventStatusPublished
	_, err = f.svc.UpdateEvent(ctx, event.ID, model.UpdateEventRequest{Status: &status})
	require.NoError(t, err)

	page, err = f.svc.ListEvents(ctx, model.EventFilter{Status: model.EventStatusPublished})
	require.NoError(t, err)
	assert.Len(t, page.Events, 1)

	_, err = f.svc.ListEvents(ctx, model.EventFilter{Status: model.EventStatus("bogus")})
	assert.Error(t, err)
}
