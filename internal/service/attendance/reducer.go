package attendance

import (
	"fmt"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
)

// NewSessionShell builds the initial session document for the first
// action of a day. Only an entrada action populates the entrada field;
// other action kinds produce a bare shell the caller patches afterwards.
func NewSessionShell(uid, fecha string, a attendance.Action) *attendance.Session {
	now := a.Timestamp
	s := &attendance.Session{
		UID:          uid,
		Fecha:        fecha,
		EstadoActual: attendance.EstadoTrabajando,
		Breaks:       []attendance.Break{},
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}
	if a.Tipo == attendance.ActionEntrada {
		s.Entrada = entradaFromAction(a)
	}
	return s
}

// Reduce computes the patch one action produces over the current session
// state. Pure: it never mutates current and never touches storage. The
// fin actions are idempotent against replay; unknown action types are
// the only error.
func Reduce(current *attendance.Session, a attendance.Action) (*attendance.Patch, error) {
	switch a.Tipo {
	case attendance.ActionEntrada:
		estado := attendance.EstadoTrabajando
		return &attendance.Patch{
			Entrada:      entradaFromAction(a),
			EstadoActual: &estado,
		}, nil

	case attendance.ActionInicioBreak:
		breaks := append(cloneBreaks(current.Breaks), attendance.Break{Inicio: a.Timestamp})
		estado := attendance.EstadoBreak
		return &attendance.Patch{Breaks: &breaks, EstadoActual: &estado}, nil

	case attendance.ActionFinBreak:
		estado := attendance.EstadoTrabajando
		breaks := cloneBreaks(current.Breaks)
		if len(breaks) > 0 {
			last := &breaks[len(breaks)-1]
			if last.Fin == nil {
				fin := a.Timestamp
				last.Fin = &fin
				last.Duracion = attendance.FormatHMS(fin.Sub(last.Inicio))
			}
		}
		return &attendance.Patch{Breaks: &breaks, EstadoActual: &estado}, nil

	case attendance.ActionInicioAlmuerzo:
		estado := attendance.EstadoAlmuerzo
		return &attendance.Patch{
			Almuerzo:     &attendance.Almuerzo{Inicio: a.Timestamp},
			EstadoActual: &estado,
		}, nil

	case attendance.ActionFinAlmuerzo:
		estado := attendance.EstadoTrabajando
		if current.Almuerzo == nil {
			return &attendance.Patch{EstadoActual: &estado}, nil
		}
		alm := *current.Almuerzo
		if alm.Fin == nil {
			fin := a.Timestamp
			alm.Fin = &fin
			alm.Duracion = attendance.FormatHMS(fin.Sub(alm.Inicio))
		}
		return &attendance.Patch{Almuerzo: &alm, EstadoActual: &estado}, nil

	case attendance.ActionSalida:
		estado := attendance.EstadoFinalizado
		p := &attendance.Patch{
			Salida:       &attendance.Salida{Hora: a.Timestamp, Ubicacion: a.Ubicacion},
			EstadoActual: &estado,
		}
		if current.Entrada != nil {
			worked := a.Timestamp.Sub(current.Entrada.Hora)
			for _, b := range current.Breaks {
				worked -= attendance.ParseHMS(b.Duracion)
			}
			if current.Almuerzo != nil {
				worked -= attendance.ParseHMS(current.Almuerzo.Duracion)
			}
			hms := attendance.FormatHMS(worked)
			p.HorasTrabajadas = &hms
		}
		return p, nil
	}

	return nil, fmt.Errorf("unknown action type %q", a.Tipo)
}

func entradaFromAction(a attendance.Action) *attendance.Entrada {
	return &attendance.Entrada{
		Hora:               a.Timestamp,
		Ubicacion:          a.Ubicacion,
		Dispositivo:        a.Dispositivo,
		ProveedorUbicacion: a.ProveedorUbicacion,
		PrecisionUbicacion: a.PrecisionUbicacion,
		UbicacionSimulada:  a.UbicacionSimulada,
	}
}

func cloneBreaks(breaks []attendance.Break) []attendance.Break {
	out := make([]attendance.Break, len(breaks))
	copy(out, breaks)
	return out
}
