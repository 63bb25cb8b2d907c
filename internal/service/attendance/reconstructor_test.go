package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
)

func TestReconstructEmptyQueue(t *testing.T) {
	assert.Nil(t, Reconstruct("emp-1", "2026-03-10", nil))
	assert.Nil(t, Reconstruct("emp-1", "2026-03-10", []attendance.Action{}))
}

func TestReconstructFullDay(t *testing.T) {
	acciones := []attendance.Action{
		attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0)),
		attendance.NewAction(attendance.ActionInicioBreak, at(11, 0, 0)),
		attendance.NewAction(attendance.ActionFinBreak, at(11, 15, 0)),
		attendance.NewAction(attendance.ActionInicioAlmuerzo, at(13, 0, 0)),
		attendance.NewAction(attendance.ActionFinAlmuerzo, at(14, 0, 0)),
		attendance.NewAction(attendance.ActionSalida, at(18, 0, 0)),
	}

	s := Reconstruct("emp-1", "2026-03-10", acciones)
	require.NotNil(t, s)
	assert.Equal(t, "emp-1", s.UID)
	assert.Equal(t, "2026-03-10", s.Fecha)
	require.NotNil(t, s.Entrada)
	require.Len(t, s.Breaks, 1)
	assert.Equal(t, "00:15:00", s.Breaks[0].Duracion)
	require.NotNil(t, s.Almuerzo)
	assert.Equal(t, "01:00:00", s.Almuerzo.Duracion)
	require.NotNil(t, s.Salida)
	assert.Equal(t, attendance.EstadoFinalizado, s.EstadoActual)
	assert.Equal(t, "07:45:00", s.HorasTrabajadas)
}

func TestReconstructPartialDay(t *testing.T) {
	acciones := []attendance.Action{
		attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0)),
		attendance.NewAction(attendance.ActionInicioBreak, at(11, 0, 0)),
	}

	s := Reconstruct("emp-1", "2026-03-10", acciones)
	require.NotNil(t, s)
	assert.Equal(t, attendance.EstadoBreak, s.EstadoActual)
	require.Len(t, s.Breaks, 1)
	assert.Nil(t, s.Breaks[0].Fin)
	assert.False(t, s.Finalizado())
}

func TestReconstructFollowsAppendOrder(t *testing.T) {
	// Timestamps deliberately out of order; append order must win
	acciones := []attendance.Action{
		attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0)),
		attendance.NewAction(attendance.ActionFinBreak, at(12, 0, 0)),
		attendance.NewAction(attendance.ActionInicioBreak, at(11, 0, 0)),
	}

	s := Reconstruct("emp-1", "2026-03-10", acciones)
	require.NotNil(t, s)
	// The finBreak before any break is a no-op; the later inicioBreak
	// leaves the session on break
	assert.Equal(t, attendance.EstadoBreak, s.EstadoActual)
	require.Len(t, s.Breaks, 1)
	assert.Nil(t, s.Breaks[0].Fin)
}

func TestReconstructSkipsUnknownActions(t *testing.T) {
	acciones := []attendance.Action{
		attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0)),
		{ID: "x", Tipo: "siesta", Timestamp: at(10, 0, 0)},
		attendance.NewAction(attendance.ActionInicioAlmuerzo, at(13, 0, 0)),
	}

	s := Reconstruct("emp-1", "2026-03-10", acciones)
	require.NotNil(t, s)
	assert.Equal(t, attendance.EstadoAlmuerzo, s.EstadoActual)
	require.NotNil(t, s.Entrada)
}
