package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/careloop/hms-backend/internal/appointment"
	"github.com/careloop/hms-backend/internal/export"
	"github.com/careloop/hms-backend/internal/schedule"
	"github.com/careloop/hms-backend/internal/user"
)

// respondDomainError translates service errors into HTTP responses. Anything
// not recognized is a 500 and gets logged with the request id.
func respondDomainError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, user.ErrInvalidCredentials),
		errors.Is(err, user.ErrAccountDisabled):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())

	case errors.Is(err, appointment.ErrNotOwner):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())

	case errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, user.ErrDoctorNotFound),
		errors.Is(err, user.ErrPatientNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, appointment.ErrDoctorUnavailable),
		errors.Is(err, appointment.ErrPatientNotFound),
		errors.Is(err, appointment.ErrTreatmentNotFound),
		errors.Is(err, schedule.ErrOverrideNotFound),
		errors.Is(err, export.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, user.ErrUsernameTaken),
		errors.Is(err, appointment.ErrSlotTaken),
		errors.Is(err, appointment.ErrSlotBeingBooked),
		errors.Is(err, appointment.ErrStatusChanged):
		writeError(w, http.StatusConflict, "conflict", err.Error())

	case errors.Is(err, user.ErrMissingField),
		errors.Is(err, schedule.ErrInvalidDate),
		errors.Is(err, schedule.ErrUnknownSlot),
		errors.Is(err, schedule.ErrPastDate),
		errors.Is(err, schedule.ErrNoSlots),
		errors.Is(err, appointment.ErrPastDate),
		errors.Is(err, appointment.ErrInvalidStatus),
		errors.Is(err, appointment.ErrSameStatus),
		errors.Is(err, appointment.ErrTerminalStatus),
		errors.Is(err, appointment.ErrCancelCompleted),
		errors.Is(err, appointment.ErrCancelPast):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())

	default:
		log.Error().
			Err(err).
			Str("request_id", RequestIDFrom(r.Context())).
			Str("path", r.URL.Path).
			Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}
