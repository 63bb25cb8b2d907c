package attendance

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
	"github.com/drgroup/asistencia-go/internal/pkg/storage"
)

func TestQueueAppendAndSnapshot(t *testing.T) {
	q := NewActionQueue(storage.NewMemoryKV())

	require.NoError(t, q.Append("emp-1", "2026-03-10", attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0))))
	require.NoError(t, q.Append("emp-1", "2026-03-10", attendance.NewAction(attendance.ActionInicioBreak, at(11, 0, 0))))

	snap := q.Snapshot()
	assert.Equal(t, "emp-1", snap.UID)
	assert.Equal(t, "2026-03-10", snap.Fecha)
	require.Len(t, snap.Acciones, 2)
	assert.Equal(t, attendance.ActionEntrada, snap.Acciones[0].Tipo)
	assert.Equal(t, attendance.ActionInicioBreak, snap.Acciones[1].Tipo)
	assert.True(t, q.HasPending())
}

func TestQueueResetsOnNewDay(t *testing.T) {
	q := NewActionQueue(storage.NewMemoryKV())

	require.NoError(t, q.Append("emp-1", "2026-03-10", attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0))))
	require.NoError(t, q.Append("emp-1", "2026-03-11", attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0))))

	snap := q.Snapshot()
	assert.Equal(t, "2026-03-11", snap.Fecha)
	require.Len(t, snap.Acciones, 1)
}

func TestQueueResetsOnNewUser(t *testing.T) {
	q := NewActionQueue(storage.NewMemoryKV())

	require.NoError(t, q.Append("emp-1", "2026-03-10", attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0))))
	require.NoError(t, q.Append("emp-2", "2026-03-10", attendance.NewAction(attendance.ActionEntrada, at(9, 30, 0))))

	snap := q.Snapshot()
	assert.Equal(t, "emp-2", snap.UID)
	require.Len(t, snap.Acciones, 1)
}

func TestQueueMarkSynced(t *testing.T) {
	q := NewActionQueue(storage.NewMemoryKV())
	a := attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0))
	require.NoError(t, q.Append("emp-1", "2026-03-10", a))

	require.NoError(t, q.MarkSynced(a.ID))

	snap := q.Snapshot()
	assert.Equal(t, attendance.SyncSincronizado, snap.Acciones[0].Estado)
	assert.NotNil(t, snap.Acciones[0].SyncTimestamp)
	assert.NotNil(t, snap.LastSync)
	assert.False(t, q.HasPending())

	// Unknown id is a no-op, not an error
	require.NoError(t, q.MarkSynced("missing"))
}

func TestQueueSurvivesReload(t *testing.T) {
	kv := storage.NewMemoryKV()
	q := NewActionQueue(kv)
	require.NoError(t, q.Append("emp-1", "2026-03-10", attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0))))

	// A fresh queue over the same storage sees the persisted actions
	q2 := NewActionQueue(kv)
	assert.True(t, q2.HasPending())
	assert.Len(t, q2.Snapshot().Acciones, 1)
}

func TestQueueAppendStorageFailure(t *testing.T) {
	kv := storage.NewMemoryKV()
	kv.FailWrites = errors.New("disk full")
	q := NewActionQueue(kv)

	err := q.Append("emp-1", "2026-03-10", attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0)))
	assert.Error(t, err)
}

func TestQueuePruneSyncedKeepsPending(t *testing.T) {
	q := NewActionQueue(storage.NewMemoryKV())
	q.now = func() time.Time { return at(9, 0, 0) }

	old := attendance.NewAction(attendance.ActionEntrada, at(9, 0, 0).AddDate(0, 0, -10))
	stale := attendance.NewAction(attendance.ActionInicioBreak, at(9, 0, 0).AddDate(0, 0, -10))
	fresh := attendance.NewAction(attendance.ActionFinBreak, at(8, 0, 0))

	require.NoError(t, q.Append("emp-1", "2026-03-10", old))
	require.NoError(t, q.Append("emp-1", "2026-03-10", stale))
	require.NoError(t, q.Append("emp-1", "2026-03-10", fresh))

	// Mark two as synced, then age one of them past the threshold
	require.NoError(t, q.MarkSynced(old.ID))
	require.NoError(t, q.MarkSynced(fresh.ID))
	snap := q.Snapshot()
	oldTs := at(9, 0, 0).AddDate(0, 0, -10)
	snap.Acciones[0].SyncTimestamp = &oldTs
	mustSaveQueue(t, q, snap)

	require.NoError(t, q.PruneSynced(DefaultPruneAge))

	after := q.Snapshot()
	ids := make([]string, 0, len(after.Acciones))
	for _, a := range after.Acciones {
		ids = append(ids, a.ID)
	}
	assert.NotContains(t, ids, old.ID, "aged synced action should be pruned")
	assert.Contains(t, ids, stale.ID, "pending action is never pruned")
	assert.Contains(t, ids, fresh.ID, "recent synced action is kept")
}

// mustSaveQueue writes a snapshot back through the queue's storage,
// bypassing Append, so tests can age timestamps.
func mustSaveQueue(t *testing.T, q *ActionQueue, cola *attendance.Queue) {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	require.NoError(t, q.save(cola))
}
