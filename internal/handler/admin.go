package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ticketforge/booking-engine/internal/model"
	"github.com/ticketforge/booking-engine/internal/service"
)

// AdminHandler serves the dashboard, user management, and statistics.
type AdminHandler struct {
	admin *service.AdminService
	jwt   func(http.Handler) http.Handler
	log   *zap.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(admin *service.AdminService, jwtMiddleware func(http.Handler) http.Handler, log *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, jwt: jwtMiddleware, log: log}
}

// Register mounts the admin routes. Every route requires an admin token.
func (h *AdminHandler) Register(r chi.Router) {
	r.Use(h.jwt, RequireAdmin)

	r.Get("/dashboard", h.dashboard)
	r.Get("/users", h.listUsers)
	r.Patch("/users/{id}", h.updateUser)
	r.Get("/events/statistics", h.eventStatistics)
	r.Get("/bookings/statistics", h.bookingStatistics)
}

func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.admin.Dashboard(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.UserFilter{
		Role:   model.Role(q.Get("role")),
		Search: q.Get("search"),
		Page:   queryInt(q.Get("page"), 1),
		Limit:  queryInt(q.Get("limit"), 10),
	}

	page, err := h.admin.ListUsers(r.Context(), filter)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req model.AdminUpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	user, err := h.admin.SetUserRole(r.Context(), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) eventStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.EventStatistics(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) bookingStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.BookingStatistics(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
