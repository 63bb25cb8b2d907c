package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/drgroup/asistencia-go/internal/pkg/netwatch"
	attendancesvc "github.com/drgroup/asistencia-go/internal/service/attendance"
)

// SyncJobs holds the background maintenance jobs of the offline queue: a
// periodic drain as a safety net behind the event-driven drains, and a
// daily prune of old synced actions.
type SyncJobs struct {
	sessions      *attendancesvc.SessionStore
	queue         *attendancesvc.ActionQueue
	net           netwatch.Watcher
	drainInterval time.Duration
	pruneAge      time.Duration
}

func NewSyncJobs(
	sessions *attendancesvc.SessionStore,
	queue *attendancesvc.ActionQueue,
	net netwatch.Watcher,
	drainInterval time.Duration,
	pruneAge time.Duration,
) *SyncJobs {
	return &SyncJobs{
		sessions:      sessions,
		queue:         queue,
		net:           net,
		drainInterval: drainInterval,
		pruneAge:      pruneAge,
	}
}

// Register adds the sync jobs to the scheduler.
func (j *SyncJobs) Register(s *Scheduler) {
	s.AddJob("queue_drain", j.drainInterval, j.runDrain)
	s.AddJob("queue_prune", 24*time.Hour, j.runPrune)
}

// runDrain pushes the pending backlog. Offline it is a silent no-op; the
// netwatch subscription will drain on reconnect instead.
func (j *SyncJobs) runDrain(ctx context.Context) error {
	if !j.queue.HasPending() {
		return nil
	}
	if !j.net.Current().Online() {
		slog.Debug("skipping scheduled drain, device offline")
		return nil
	}

	res := j.sessions.DrainNow(ctx)
	if res.Failed > 0 {
		slog.Warn("scheduled drain left actions pending", "failed", res.Failed)
	}
	return nil
}

// runPrune drops synced actions older than the retention window.
func (j *SyncJobs) runPrune(ctx context.Context) error {
	return j.queue.PruneSynced(j.pruneAge)
}
