package response

import (
	"errors"
	"net/http"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
	"github.com/drgroup/asistencia-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	case errors.Is(err, attendance.ErrAlreadyFinalized):
		Conflict(w, "Attendance already finalized today")
	case errors.Is(err, attendance.ErrClockInInProgress):
		Conflict(w, "A clock-in is already in progress")
	case errors.Is(err, attendance.ErrSessionExists):
		Conflict(w, "An open session already exists for today")
	case errors.Is(err, attendance.ErrTooEarlyToClockIn):
		UnprocessableEntity(w, "Too early to clock in")
	case errors.Is(err, attendance.ErrNoActiveSession):
		NotFound(w, "No active session")
	case errors.Is(err, attendance.ErrSessionNotFound):
		NotFound(w, "Session not found")
	case errors.Is(err, attendance.ErrBreakLimitReached):
		UnprocessableEntity(w, "Break limit reached for today")
	case errors.Is(err, attendance.ErrLunchAlreadyTaken):
		UnprocessableEntity(w, "Lunch already taken today")
	case errors.Is(err, attendance.ErrNotWorking):
		UnprocessableEntity(w, "Session is not in a working state")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
