package attendance

import (
	"time"

	"github.com/drgroup/asistencia-go/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

// ClockInRequest optionally overrides the device-side location capture
// with a fix the UI already holds.
type ClockInRequest struct {
	Latitud     *float64 `json:"latitud,omitempty"`
	Longitud    *float64 `json:"longitud,omitempty"`
	Dispositivo string   `json:"dispositivo,omitempty"`
}

func (r *ClockInRequest) Validate() error {
	var errs validator.ValidationErrors

	if (r.Latitud == nil) != (r.Longitud == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitud",
			Message: "latitud and longitud must be provided together",
		})
	}
	if r.Latitud != nil && !validator.IsValidLatitude(*r.Latitud) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitud",
			Message: "latitud must be between -90 and 90",
		})
	}
	if r.Longitud != nil && !validator.IsValidLongitude(*r.Longitud) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitud",
			Message: "longitud must be between -180 and 180",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ClockOutRequest mirrors ClockInRequest for the salida event.
type ClockOutRequest struct {
	Latitud  *float64 `json:"latitud,omitempty"`
	Longitud *float64 `json:"longitud,omitempty"`
}

func (r *ClockOutRequest) Validate() error {
	in := ClockInRequest{Latitud: r.Latitud, Longitud: r.Longitud}
	return in.Validate()
}

// SessionResponse is the activeSession read model exposed to the UI.
// Fuente reports which side of the sync boundary produced the view.
type SessionResponse struct {
	Session     *Session `json:"session"`
	PendingSync bool     `json:"hasPendingSync"`
	Fuente      string   `json:"fuente,omitempty"` // "remota" or "local"
}

// SyncStatusResponse summarizes the offline backlog for UI indication.
type SyncStatusResponse struct {
	HasPendingSync bool       `json:"hasPendingSync"`
	PendingCount   int        `json:"pendingCount"`
	LastSync       *time.Time `json:"lastSync,omitempty"`
}

// DrainResponse reports the outcome of one queue drain.
type DrainResponse struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
