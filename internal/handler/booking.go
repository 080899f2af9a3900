package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ticketforge/booking-engine/internal/model"
	"github.com/ticketforge/booking-engine/internal/service"
)

// BookingHandler serves booking creation, cancellation, queries, the
// payment webhook, and the admin status override.
type BookingHandler struct {
	bookings *service.BookingService
	jwt      func(http.Handler) http.Handler
	log      *zap.Logger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings *service.BookingService, jwtMiddleware func(http.Handler) http.Handler, log *zap.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, jwt: jwtMiddleware, log: log}
}

// Register mounts the booking routes.
func (h *BookingHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.jwt)
		r.Post("/", h.create)
		r.Get("/my-bookings", h.listMine)
		r.Get("/{id}", h.get)
		r.Post("/{id}/cancel", h.cancel)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/", h.listAll)
			r.Patch("/{id}/status", h.adminSetStatus)
		})
	})
}

// RegisterWebhook mounts the payment webhook outside the user auth group.
// In production the route sits behind gateway-level signature checks.
func (h *BookingHandler) RegisterWebhook(r chi.Router) {
	r.Post("/payments", h.paymentWebhook)
}

func (h *BookingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	booking, err := h.bookings.CreateBooking(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (h *BookingHandler) get(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookings.GetBooking(r.Context(), chi.URLParam(r, "id"), userID(r), isAdmin(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) cancel(w http.ResponseWriter, r *http.Request) {
	var req model.CancelBookingRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
	}

	booking, err := h.bookings.CancelBooking(r.Context(), chi.URLParam(r, "id"), userID(r), isAdmin(r), req.CancellationReason)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) listMine(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.bookings.ListBookingsForUser(r.Context(), userID(r),
		model.BookingStatus(q.Get("status")),
		queryInt(q.Get("page"), 1),
		queryInt(q.Get("limit"), 10),
	)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *BookingHandler) listAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.bookings.ListBookings(r.Context(), model.BookingFilter{
		UserID:  q.Get("user_id"),
		EventID: q.Get("event_id"),
		Status:  model.BookingStatus(q.Get("status")),
		Page:    queryInt(q.Get("page"), 1),
		Limit:   queryInt(q.Get("limit"), 10),
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *BookingHandler) adminSetStatus(w http.ResponseWriter, r *http.Request) {
	var req model.AdminStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	booking, err := h.bookings.AdminSetStatus(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req model.PaymentWebhookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.BookingID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "booking_id is required")
		return
	}

	booking, err := h.bookings.ApplyPaymentOutcome(r.Context(), req.BookingID, req.Outcome, req.PaymentMethod, req.PaymentID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
