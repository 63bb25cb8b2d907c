package attendance

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
	"github.com/drgroup/asistencia-go/internal/pkg/utils"
)

// SyncResult reports one drain pass. CreatedID carries the remote id
// assigned when the drain created today's document, so the caller can
// retire its temp_ id.
type SyncResult struct {
	Succeeded int
	Failed    int
	CreatedID string
}

// Engine drains the pending queue against the remote store, one action
// at a time, in append order. Each action's patch is computed against
// the latest fetched remote state, never a cached one. A failed action
// stays pending and does not block later actions.
type Engine struct {
	queue    *ActionQueue
	store    attendance.DocumentStore
	retries  int
	timeout  time.Duration
	backoff  time.Duration
	pruneAge time.Duration

	mu sync.Mutex // one drain at a time
}

func NewEngine(queue *ActionQueue, store attendance.DocumentStore, retries int, timeout, backoff, pruneAge time.Duration) *Engine {
	if pruneAge <= 0 {
		pruneAge = DefaultPruneAge
	}
	return &Engine{
		queue:    queue,
		store:    store,
		retries:  retries,
		timeout:  timeout,
		backoff:  backoff,
		pruneAge: pruneAge,
	}
}

// Drain replays every pending action against the remote store. Old
// synced actions are pruned afterwards.
func (e *Engine) Drain(ctx context.Context) SyncResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	var res SyncResult
	snap := e.queue.Snapshot()
	if snap.UID == "" || len(snap.Acciones) == 0 {
		return res
	}

	for _, a := range snap.Acciones {
		if a.Estado != attendance.SyncPendiente {
			continue
		}

		createdID, err := e.syncOne(ctx, snap.UID, snap.Fecha, a)
		if err != nil {
			res.Failed++
			slog.Warn("action left pending after retries", "tipo", a.Tipo, "id", a.ID, "error", err)
			continue
		}
		if createdID != "" {
			res.CreatedID = createdID
		}
		if err := e.queue.MarkSynced(a.ID); err != nil {
			slog.Error("failed to mark action synced", "id", a.ID, "error", err)
		}
		res.Succeeded++
	}

	if err := e.queue.PruneSynced(e.pruneAge); err != nil {
		slog.Error("failed to prune synced actions", "error", err)
	}

	slog.Info("queue drained", "succeeded", res.Succeeded, "failed", res.Failed)
	return res
}

// syncOne applies a single action remotely with bounded retries and a
// per-attempt timeout.
func (e *Engine) syncOne(ctx context.Context, uid, fecha string, a attendance.Action) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(e.backoff):
			}
		}

		createdID, err := utils.WithTimeout(ctx, e.timeout, func(ctx context.Context) (string, error) {
			return e.applyRemote(ctx, uid, fecha, a)
		}, "")
		if err == nil {
			return createdID, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// applyRemote performs one read-then-write cycle: fetch the current
// remote document for (uid, fecha), lazily creating it, then write the
// reducer's patch.
func (e *Engine) applyRemote(ctx context.Context, uid, fecha string, a attendance.Action) (string, error) {
	current, err := e.store.GetByUIDAndFecha(ctx, uid, fecha)
	if err != nil && !errors.Is(err, attendance.ErrSessionNotFound) {
		return "", err
	}

	if current == nil {
		shell := NewSessionShell(uid, fecha, a)
		id, err := e.store.Create(ctx, shell)
		if err != nil {
			if !errors.Is(err, attendance.ErrSessionExists) {
				return "", err
			}
			// Another device won the creation race: fall through to a
			// plain patch against its document.
			current, err = e.store.GetByUIDAndFecha(ctx, uid, fecha)
			if err != nil {
				return "", err
			}
		} else {
			if a.Tipo == attendance.ActionEntrada {
				return id, nil
			}
			// First action of the day was not an entrada: patch the
			// fresh shell with it.
			shell.ID = id
			patch, err := Reduce(shell, a)
			if err != nil {
				return "", err
			}
			if patch.IsZero() {
				return id, nil
			}
			if err := e.store.Patch(ctx, id, patch); err != nil {
				return "", err
			}
			return id, nil
		}
	}

	patch, err := Reduce(current, a)
	if err != nil {
		return "", err
	}
	if patch.IsZero() {
		return "", nil
	}
	return "", e.store.Patch(ctx, current.ID, patch)
}
