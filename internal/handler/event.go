package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ticketforge/booking-engine/internal/model"
	"github.com/ticketforge/booking-engine/internal/service"
)

// availabilityReader serves advisory free-seat counts and the admin
// ledger reconciliation view.
type availabilityReader interface {
	AvailableSeats(ctx context.Context, eventID string) (int, error)
	ReconcileLedger(ctx context.Context, eventID string) (*model.LedgerReconciliation, error)
}

// EventHandler serves the event catalogue.
type EventHandler struct {
	events       *service.EventService
	availability availabilityReader
	jwt          func(http.Handler) http.Handler
	log          *zap.Logger
}

// NewEventHandler constructs an EventHandler. jwtMiddleware guards the
// admin-only management routes.
func NewEventHandler(events *service.EventService, availability availabilityReader, jwtMiddleware func(http.Handler) http.Handler, log *zap.Logger) *EventHandler {
	return &EventHandler{events: events, availability: availability, jwt: jwtMiddleware, log: log}
}

// Register mounts the event routes.
func (h *EventHandler) Register(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/availability", h.availableSeats)

	r.Group(func(r chi.Router) {
		r.Use(h.jwt, RequireAdmin)
		r.Post("/", h.create)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Get("/{id}/reconciliation", h.reconcile)
	})
}

func (h *EventHandler) create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	event, err := h.events.CreateEvent(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	event, err := h.events.UpdateEvent(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.events.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) get(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// list serves the public catalogue. Without an explicit status filter only
// published events are returned.
func (h *EventHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.EventFilter{
		Status:   model.EventStatus(q.Get("status")),
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     queryInt(q.Get("page"), 1),
		Limit:    queryInt(q.Get("limit"), 10),
	}
	if filter.Status == "" {
		filter.Status = model.EventStatusPublished
	}
	if from, ok := queryTime(q.Get("start_date")); ok {
		filter.StartDate = &from
	}
	if to, ok := queryTime(q.Get("end_date")); ok {
		filter.EndDate = &to
	}

	page, err := h.events.ListEvents(r.Context(), filter)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *EventHandler) availableSeats(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	available, err := h.availability.AvailableSeats(r.Context(), eventID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id":        eventID,
		"available_seats": available,
	})
}

func (h *EventHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.availability.ReconcileLedger(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func queryInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func queryTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
