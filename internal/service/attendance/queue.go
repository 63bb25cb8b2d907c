package attendance

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
	"github.com/drgroup/asistencia-go/internal/pkg/storage"
)

// queueStorageKey is the fixed local-storage key holding the one queue
// this device retains.
const queueStorageKey = "asistencia_pendiente_sync"

// DefaultPruneAge is how long synced actions are kept before pruning.
const DefaultPruneAge = 7 * 24 * time.Hour

// ActionQueue is the durable, append-only log of pending attendance
// actions for the current (uid, fecha). It is the source of truth while
// offline. A storage write failure is logged and returned, never
// swallowed into a successful return.
type ActionQueue struct {
	store storage.KV
	mu    sync.Mutex
	now   func() time.Time
}

func NewActionQueue(store storage.KV) *ActionQueue {
	return &ActionQueue{store: store, now: time.Now}
}

// Append adds an action for (uid, fecha). A stored queue belonging to a
// different user or day is reset first: only one day's queue is retained.
func (q *ActionQueue) Append(uid, fecha string, a attendance.Action) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cola := q.load()
	if cola.UID != uid || cola.Fecha != fecha {
		cola = &attendance.Queue{UID: uid, Fecha: fecha}
	}
	cola.Acciones = append(cola.Acciones, a)

	if err := q.save(cola); err != nil {
		return err
	}
	slog.Debug("action queued", "tipo", a.Tipo, "id", a.ID)
	return nil
}

// MarkSynced flags one action as synchronized. Idempotent; a missing id
// is a no-op.
func (q *ActionQueue) MarkSynced(actionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cola := q.load()
	now := q.now()
	for i := range cola.Acciones {
		if cola.Acciones[i].ID == actionID {
			cola.Acciones[i].Estado = attendance.SyncSincronizado
			cola.Acciones[i].SyncTimestamp = &now
			break
		}
	}
	cola.LastSync = &now
	return q.save(cola)
}

// HasPending reports whether any stored action still awaits sync.
func (q *ActionQueue) HasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load().HasPending()
}

// Snapshot returns a copy of the stored queue.
func (q *ActionQueue) Snapshot() *attendance.Queue {
	q.mu.Lock()
	defer q.mu.Unlock()

	cola := q.load()
	out := *cola
	out.Acciones = make([]attendance.Action, len(cola.Acciones))
	copy(out.Acciones, cola.Acciones)
	return &out
}

// PruneSynced drops synced actions older than the threshold. Pending
// actions are never pruned, regardless of age.
func (q *ActionQueue) PruneSynced(olderThan time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cola := q.load()
	cutoff := q.now().Add(-olderThan)

	kept := cola.Acciones[:0]
	for _, a := range cola.Acciones {
		if a.Estado == attendance.SyncPendiente {
			kept = append(kept, a)
			continue
		}
		ts := a.Timestamp
		if a.SyncTimestamp != nil {
			ts = *a.SyncTimestamp
		}
		if ts.After(cutoff) {
			kept = append(kept, a)
		}
	}
	cola.Acciones = kept
	return q.save(cola)
}

func (q *ActionQueue) load() *attendance.Queue {
	data, err := q.store.Get(queueStorageKey)
	if err != nil {
		if err != storage.ErrKeyNotFound {
			slog.Error("failed to read action queue", "error", err)
		}
		return &attendance.Queue{}
	}

	var cola attendance.Queue
	if err := json.Unmarshal(data, &cola); err != nil {
		slog.Error("corrupt action queue, starting empty", "error", err)
		return &attendance.Queue{}
	}
	return &cola
}

func (q *ActionQueue) save(cola *attendance.Queue) error {
	data, err := json.Marshal(cola)
	if err != nil {
		slog.Error("failed to encode action queue", "error", err)
		return err
	}
	if err := q.store.Set(queueStorageKey, data); err != nil {
		slog.Error("failed to persist action queue", "error", err)
		return err
	}
	return nil
}
