package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2026, 3, 10, hour, min, sec, 0, time.Local)
}

func applyAction(t *testing.T, s *attendance.Session, tipo attendance.ActionType, ts time.Time) {
	t.Helper()
	patch, err := Reduce(s, attendance.NewAction(tipo, ts))
	require.NoError(t, err)
	patch.Apply(s)
}

func workingSession(entrada time.Time) *attendance.Session {
	a := attendance.NewAction(attendance.ActionEntrada, entrada)
	return NewSessionShell("emp-1", attendance.FechaLocal(entrada), a)
}

func TestNewSessionShell(t *testing.T) {
	entrada := attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0))
	entrada.Dispositivo = "kiosk-3"

	s := NewSessionShell("emp-1", "2026-03-10", entrada)
	require.NotNil(t, s.Entrada)
	assert.Equal(t, at(9, 0, 0), s.Entrada.Hora)
	assert.Equal(t, "kiosk-3", s.Entrada.Dispositivo)
	assert.Equal(t, attendance.EstadoTrabajando, s.EstadoActual)
	assert.NotNil(t, s.Breaks)

	// A non-entrada first action still yields a usable shell
	bare := NewSessionShell("emp-1", "2026-03-10", attendance.NewAction(attendance.ActionInicioBreak, at(11, 0, 0)))
	assert.Nil(t, bare.Entrada)
	assert.Equal(t, attendance.EstadoTrabajando, bare.EstadoActual)
}

func TestReduceEntrada(t *testing.T) {
	s := &attendance.Session{UID: "emp-1", Fecha: "2026-03-10"}
	a := attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0))
	a.Ubicacion = &attendance.Ubicacion{Lat: 4.6, Lon: -74.08, Etiqueta: "oficina"}

	patch, err := Reduce(s, a)
	require.NoError(t, err)
	patch.Apply(s)

	require.NotNil(t, s.Entrada)
	assert.Equal(t, at(9, 0, 0), s.Entrada.Hora)
	assert.Equal(t, "oficina", s.Entrada.Ubicacion.Etiqueta)
	assert.Equal(t, attendance.EstadoTrabajando, s.EstadoActual)
}

func TestReduceBreakCycle(t *testing.T) {
	s := workingSession(at(9, 0, 0))

	applyAction(t, s, attendance.ActionInicioBreak, at(11, 0, 0))
	require.Len(t, s.Breaks, 1)
	assert.Nil(t, s.Breaks[0].Fin)
	assert.Equal(t, attendance.EstadoBreak, s.EstadoActual)

	applyAction(t, s, attendance.ActionFinBreak, at(11, 15, 0))
	require.NotNil(t, s.Breaks[0].Fin)
	assert.Equal(t, "00:15:00", s.Breaks[0].Duracion)
	assert.Equal(t, attendance.EstadoTrabajando, s.EstadoActual)
}

func TestReduceFinBreakIdempotent(t *testing.T) {
	s := workingSession(at(9, 0, 0))
	applyAction(t, s, attendance.ActionInicioBreak, at(11, 0, 0))
	applyAction(t, s, attendance.ActionFinBreak, at(11, 15, 0))

	// Replaying the close must not touch the recorded interval
	applyAction(t, s, attendance.ActionFinBreak, at(11, 40, 0))
	require.Len(t, s.Breaks, 1)
	assert.Equal(t, at(11, 15, 0), *s.Breaks[0].Fin)
	assert.Equal(t, "00:15:00", s.Breaks[0].Duracion)
}

func TestReduceFinBreakWithoutBreaks(t *testing.T) {
	s := workingSession(at(9, 0, 0))

	applyAction(t, s, attendance.ActionFinBreak, at(11, 0, 0))
	assert.Empty(t, s.Breaks)
	assert.Equal(t, attendance.EstadoTrabajando, s.EstadoActual)
}

func TestReduceAlmuerzoCycle(t *testing.T) {
	s := workingSession(at(9, 0, 0))

	applyAction(t, s, attendance.ActionInicioAlmuerzo, at(13, 0, 0))
	require.NotNil(t, s.Almuerzo)
	assert.Equal(t, attendance.EstadoAlmuerzo, s.EstadoActual)

	applyAction(t, s, attendance.ActionFinAlmuerzo, at(14, 0, 0))
	require.NotNil(t, s.Almuerzo.Fin)
	assert.Equal(t, "01:00:00", s.Almuerzo.Duracion)
	assert.Equal(t, attendance.EstadoTrabajando, s.EstadoActual)

	// Replay of the close keeps the original interval
	applyAction(t, s, attendance.ActionFinAlmuerzo, at(14, 30, 0))
	assert.Equal(t, at(14, 0, 0), *s.Almuerzo.Fin)
	assert.Equal(t, "01:00:00", s.Almuerzo.Duracion)
}

func TestReduceSalidaComputesHorasTrabajadas(t *testing.T) {
	s := workingSession(at(9, 0, 0))
	applyAction(t, s, attendance.ActionInicioBreak, at(11, 0, 0))
	applyAction(t, s, attendance.ActionFinBreak, at(11, 15, 0))
	applyAction(t, s, attendance.ActionInicioAlmuerzo, at(13, 0, 0))
	applyAction(t, s, attendance.ActionFinAlmuerzo, at(14, 0, 0))

	applyAction(t, s, attendance.ActionSalida, at(18, 0, 0))

	require.NotNil(t, s.Salida)
	assert.Equal(t, attendance.EstadoFinalizado, s.EstadoActual)
	// 9h elapsed minus 15m break minus 1h lunch
	assert.Equal(t, "07:45:00", s.HorasTrabajadas)
}

func TestReduceSalidaUnparseableDurationCountsZero(t *testing.T) {
	s := workingSession(at(9, 0, 0))
	fin := at(11, 15, 0)
	s.Breaks = []attendance.Break{{Inicio: at(11, 0, 0), Fin: &fin, Duracion: "garbage"}}

	applyAction(t, s, attendance.ActionSalida, at(17, 0, 0))
	assert.Equal(t, "08:00:00", s.HorasTrabajadas)
}

func TestReduceSalidaWithoutEntrada(t *testing.T) {
	s := &attendance.Session{UID: "emp-1", Fecha: "2026-03-10", EstadoActual: attendance.EstadoTrabajando}

	applyAction(t, s, attendance.ActionSalida, at(17, 0, 0))
	require.NotNil(t, s.Salida)
	assert.Equal(t, attendance.EstadoFinalizado, s.EstadoActual)
	assert.Empty(t, s.HorasTrabajadas)
}

func TestReduceUnknownAction(t *testing.T) {
	s := workingSession(at(9, 0, 0))
	_, err := Reduce(s, attendance.Action{ID: "x", Tipo: "siesta", Timestamp: at(15, 0, 0)})
	assert.Error(t, err)
}

func TestReduceDoesNotMutateCurrent(t *testing.T) {
	s := workingSession(at(9, 0, 0))
	applyAction(t, s, attendance.ActionInicioBreak, at(11, 0, 0))
	before := s.Clone()

	_, err := Reduce(s, attendance.NewAction(attendance.ActionFinBreak, at(11, 30, 0)))
	require.NoError(t, err)
	assert.Equal(t, before, s)
}
