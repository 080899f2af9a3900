// Package handler exposes the HTTP API: request decoding, auth middleware,
// and mapping of service errors onto status codes.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ticketforge/booking-engine/internal/model"
	"github.com/ticketforge/booking-engine/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: message})
}

// writeError maps domain errors onto HTTP status codes. Unrecognised
// errors become an opaque 500; the detail goes to the log, not the client.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var ve *service.ValidationError

	switch {
	case errors.Is(err, model.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, model.ErrForbidden):
		writeErrorMessage(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, model.ErrInvalidCredentials):
		writeErrorMessage(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, model.ErrEmailTaken):
		writeErrorMessage(w, http.StatusConflict, "email already registered")
	case errors.Is(err, model.ErrInsufficientCapacity):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrEventAlreadyStarted):
		writeErrorMessage(w, http.StatusConflict, "event has already started")
	case errors.Is(err, model.ErrCapacityBelowHeld):
		writeErrorMessage(w, http.StatusConflict, "capacity cannot drop below seats already held")
	case errors.Is(err, model.ErrEventHasBookings):
		writeErrorMessage(w, http.StatusConflict, "event still has active bookings")
	case errors.Is(err, model.ErrLastAdmin):
		writeErrorMessage(w, http.StatusConflict, "cannot demote the last admin user")
	case errors.Is(err, model.ErrEventNotBookable):
		writeErrorMessage(w, http.StatusUnprocessableEntity, "event is not open for booking")
	case errors.Is(err, model.ErrInvalidQuantity):
		writeErrorMessage(w, http.StatusBadRequest, "number of tickets must be at least 1")
	case errors.Is(err, model.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		writeErrorMessage(w, http.StatusServiceUnavailable, "event is busy, retry the request")
	case errors.As(err, &ve):
		writeErrorMessage(w, http.StatusBadRequest, ve.Error())
	default:
		log.Error("request failed", zap.Error(err))
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return invalidBody(err)
	}
	return nil
}

func invalidBody(err error) error {
	return &service.ValidationError{Field: "body", Message: err.Error()}
}
