package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
	"github.com/drgroup/asistencia-go/internal/pkg/storage"
	"github.com/drgroup/asistencia-go/internal/repository/memory"
)

func newTestEngine(t *testing.T) (*Engine, *ActionQueue, *memory.SessionStore) {
	t.Helper()
	queue := NewActionQueue(storage.NewMemoryKV())
	store := memory.NewSessionStore()
	engine := NewEngine(queue, store, 0, time.Second, time.Millisecond, 0)
	return engine, queue, store
}

func TestDrainEmptyQueue(t *testing.T) {
	engine, _, store := newTestEngine(t)

	res := engine.Drain(context.Background())
	assert.Zero(t, res.Succeeded)
	assert.Zero(t, res.Failed)
	assert.Zero(t, store.Count())
}

func TestDrainCreatesSessionFromEntrada(t *testing.T) {
	engine, queue, store := newTestEngine(t)
	entrada := attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0))
	require.NoError(t, queue.Append("emp-1", "2026-03-10", entrada))

	res := engine.Drain(context.Background())

	assert.Equal(t, 1, res.Succeeded)
	assert.Zero(t, res.Failed)
	assert.NotEmpty(t, res.CreatedID)
	assert.Equal(t, 1, store.Count())

	remote, err := store.GetByUIDAndFecha(context.Background(), "emp-1", "2026-03-10")
	require.NoError(t, err)
	require.NotNil(t, remote.Entrada)
	assert.Equal(t, at(9, 0, 0), remote.Entrada.Hora)
	assert.False(t, queue.HasPending())
}

func TestDrainReplaysFullDayInOrder(t *testing.T) {
	engine, queue, store := newTestEngine(t)
	for _, a := range []attendance.Action{
		attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0)),
		attendance.NewAction(attendance.ActionInicioBreak, at(11, 0, 0)),
		attendance.NewAction(attendance.ActionFinBreak, at(11, 15, 0)),
		attendance.NewAction(attendance.ActionInicioAlmuerzo, at(13, 0, 0)),
		attendance.NewAction(attendance.ActionFinAlmuerzo, at(14, 0, 0)),
		attendance.NewAction(attendance.ActionSalida, at(18, 0, 0)),
	} {
		require.NoError(t, queue.Append("emp-1", "2026-03-10", a))
	}

	res := engine.Drain(context.Background())

	assert.Equal(t, 6, res.Succeeded)
	assert.Equal(t, 1, store.Count(), "all actions land on one document")

	remote, err := store.GetByUIDAndFecha(context.Background(), "emp-1", "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, attendance.EstadoFinalizado, remote.EstadoActual)
	assert.Equal(t, "07:45:00", remote.HorasTrabajadas)
	require.Len(t, remote.Breaks, 1)
	assert.Equal(t, "00:15:00", remote.Breaks[0].Duracion)
}

func TestDrainNonEntradaFirstActionPatchesShell(t *testing.T) {
	engine, queue, store := newTestEngine(t)
	require.NoError(t, queue.Append("emp-1", "2026-03-10", attendance.NewAction(attendance.ActionInicioAlmuerzo, at(13, 0, 0))))

	res := engine.Drain(context.Background())

	assert.Equal(t, 1, res.Succeeded)
	assert.NotEmpty(t, res.CreatedID)

	remote, err := store.GetByUIDAndFecha(context.Background(), "emp-1", "2026-03-10")
	require.NoError(t, err)
	assert.Nil(t, remote.Entrada)
	require.NotNil(t, remote.Almuerzo)
	assert.Equal(t, attendance.EstadoAlmuerzo, remote.EstadoActual)
}

func TestDrainLeavesFailedActionsPending(t *testing.T) {
	engine, queue, store := newTestEngine(t)
	store.FailWith = errors.New("network unreachable")

	require.NoError(t, queue.Append("emp-1", "2026-03-10", attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0))))
	require.NoError(t, queue.Append("emp-1", "2026-03-10", attendance.NewAction(attendance.ActionInicioBreak, at(11, 0, 0))))

	res := engine.Drain(context.Background())
	assert.Zero(t, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	assert.True(t, queue.HasPending())

	// Reconnect: the same actions drain cleanly
	store.FailWith = nil
	res = engine.Drain(context.Background())
	assert.Equal(t, 2, res.Succeeded)
	assert.Zero(t, res.Failed)
	assert.False(t, queue.HasPending())

	remote, err := store.GetByUIDAndFecha(context.Background(), "emp-1", "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, attendance.EstadoBreak, remote.EstadoActual)
}

func TestDrainSkipsAlreadySyncedActions(t *testing.T) {
	engine, queue, store := newTestEngine(t)
	entrada := attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0))
	require.NoError(t, queue.Append("emp-1", "2026-03-10", entrada))

	res := engine.Drain(context.Background())
	require.Equal(t, 1, res.Succeeded)

	// A second drain must not touch the remote store again
	res = engine.Drain(context.Background())
	assert.Zero(t, res.Succeeded)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 1, store.Count())
}

func TestDrainAgainstExistingRemoteSession(t *testing.T) {
	engine, queue, store := newTestEngine(t)

	// Another writer already created today's document
	existing := workingSession(at(8, 30, 0))
	_, err := store.Create(context.Background(), existing)
	require.NoError(t, err)

	require.NoError(t, queue.Append("emp-1", "2026-03-10", attendance.NewAction(attendance.ActionInicioBreak, at(11, 0, 0))))

	res := engine.Drain(context.Background())
	assert.Equal(t, 1, res.Succeeded)
	assert.Empty(t, res.CreatedID, "no new document should be created")
	assert.Equal(t, 1, store.Count())

	remote, err := store.GetByUIDAndFecha(context.Background(), "emp-1", "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, at(8, 30, 0), remote.Entrada.Hora, "existing entrada preserved")
	require.Len(t, remote.Breaks, 1)
}
