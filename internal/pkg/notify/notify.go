// Package notify dispatches outbound attendance notifications. Delivery
// is fire-and-forget: failures are logged and never reach the caller.
package notify

import (
	"context"
	"log/slog"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
)

// Event identifies the attendance boundary being announced.
type Event string

const (
	EventClockIn    Event = "attendance_clock_in"
	EventClockOut   Event = "attendance_clock_out"
	EventBreakStart Event = "attendance_break_start"
	EventBreakEnd   Event = "attendance_break_end"
	EventLunchStart Event = "attendance_lunch_start"
	EventLunchEnd   Event = "attendance_lunch_end"
)

// Dispatcher sends one notification per attendance boundary.
// Implementations must not block the clock action and must swallow
// delivery errors after logging them.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event, session *attendance.Session)
}

// SlogDispatcher records events on the structured log. It stands in for
// the push-notification platform, which is outside this subsystem.
type SlogDispatcher struct{}

func NewSlogDispatcher() *SlogDispatcher {
	return &SlogDispatcher{}
}

func (d *SlogDispatcher) Dispatch(ctx context.Context, event Event, session *attendance.Session) {
	if session == nil {
		return
	}
	slog.Info("attendance notification",
		"event", string(event),
		"uid", session.UID,
		"fecha", session.Fecha,
		"estado", session.EstadoActual,
	)
}
