package attendance

import (
	"log/slog"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
)

// Reconstruct rebuilds a session view by replaying actions in queue
// order (append order, not timestamp order: insertion order is
// authoritative for local replay). The result is a best-effort display
// view for when the remote store is unreachable; it is never consulted
// to decide whether a remote session may be created.
func Reconstruct(uid, fecha string, acciones []attendance.Action) *attendance.Session {
	if len(acciones) == 0 {
		return nil
	}

	s := &attendance.Session{
		UID:          uid,
		Fecha:        fecha,
		EstadoActual: attendance.EstadoFinalizado,
		Breaks:       []attendance.Break{},
	}

	for _, a := range acciones {
		patch, err := Reduce(s, a)
		if err != nil {
			slog.Warn("skipping unknown action during replay", "tipo", a.Tipo, "id", a.ID)
			continue
		}
		patch.Apply(s)
	}
	return s
}
