package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter assembles the HTTP API.
func NewRouter(log *zap.Logger, auth *AuthHandler, events *EventHandler, bookings *BookingHandler, admin *AdminHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", auth.Register)
		r.Route("/events", events.Register)
		r.Route("/bookings", bookings.Register)
		r.Route("/webhooks", bookings.RegisterWebhook)
		r.Route("/admin", admin.Register)
	})

	return r
}
