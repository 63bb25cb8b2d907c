package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
	"github.com/drgroup/asistencia-go/internal/pkg/netwatch"
	"github.com/drgroup/asistencia-go/internal/pkg/notify"
	"github.com/drgroup/asistencia-go/internal/pkg/sse"
	"github.com/drgroup/asistencia-go/internal/pkg/storage"
	"github.com/google/uuid"
)

// sessionCacheKey is the local-storage key for the last known active
// session, the optimistic fast path at startup.
const sessionCacheKey = "asistencia_sesion_activa"

// ClockConfig holds the workday rules the orchestrator enforces before
// an action may be queued.
type ClockConfig struct {
	// StartTime is the scheduled jornada start, HH:MM local. Empty
	// disables the early-clock-in window check.
	StartTime string
	// EarlyMargin is how long before StartTime clock-in opens.
	EarlyMargin time.Duration
	// DuplicateWindow suppresses a second session creation for the same
	// day this soon after the first.
	DuplicateWindow time.Duration
}

// SessionStore is the user-facing attendance state machine. It is the
// only writer of the in-memory activeSession view and the only component
// that enqueues actions. All locks are in-memory on purpose: a persisted
// in-flight flag could outlive its operation across a restart.
type SessionStore struct {
	uid         string
	dispositivo string
	cfg         ClockConfig
	queue       *ActionQueue
	engine      *Engine
	store       attendance.DocumentStore
	local       storage.KV
	capture     *LocationCapture
	net         netwatch.Watcher
	dispatcher  notify.Dispatcher
	hub         *sse.Hub
	now         func() time.Time

	mu               sync.Mutex
	active           *attendance.Session
	creating         bool
	lastCreatedFecha string
	lastCreatedAt    time.Time

	cancelWatch context.CancelFunc
	wg          sync.WaitGroup
}

func NewSessionStore(
	uid string,
	dispositivo string,
	cfg ClockConfig,
	queue *ActionQueue,
	engine *Engine,
	store attendance.DocumentStore,
	local storage.KV,
	capture *LocationCapture,
	net netwatch.Watcher,
	dispatcher notify.Dispatcher,
	hub *sse.Hub,
) *SessionStore {
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = 5 * time.Second
	}
	if cfg.EarlyMargin <= 0 {
		cfg.EarlyMargin = 5 * time.Minute
	}
	return &SessionStore{
		uid:         uid,
		dispositivo: dispositivo,
		cfg:         cfg,
		queue:       queue,
		engine:      engine,
		store:       store,
		local:       local,
		capture:     capture,
		net:         net,
		dispatcher:  dispatcher,
		hub:         hub,
		now:         time.Now,
	}
}

// Start loads the cached view, attaches the remote watch and the
// connectivity subscription, and drains any backlog if the network is
// already up.
func (s *SessionStore) Start(ctx context.Context) {
	today := attendance.FechaLocal(s.now())

	if cached := s.loadCache(); cached != nil && cached.Fecha == today && !cached.Finalizado() {
		s.setActive(cached)
	} else if q := s.queue.Snapshot(); q.UID == s.uid && q.Fecha == today && q.HasPending() {
		// Restarted while offline with queued actions: rebuild the view
		// from the local log.
		if recon := Reconstruct(s.uid, today, q.Acciones); recon != nil && !recon.Finalizado() {
			recon.ID = attendance.TempIDPrefix + uuid.NewString()
			s.setActive(recon)
		}
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.cancelWatch = cancel

	s.attachRemote(watchCtx, today)
	s.attachNetwork(watchCtx)

	if s.queue.HasPending() && s.net.Current().Online() {
		s.drainAndResolve(ctx)
	}
}

// Stop detaches the remote watch and network subscription.
func (s *SessionStore) Stop() {
	if s.cancelWatch != nil {
		s.cancelWatch()
	}
	s.wg.Wait()
}

// ActiveSession returns the authoritative view exposed to the UI.
func (s *SessionStore) ActiveSession() *attendance.SessionResponse {
	s.mu.Lock()
	sess := s.active.Clone()
	s.mu.Unlock()

	fuente := ""
	if sess != nil {
		fuente = "remota"
		if sess.HasTempID() {
			fuente = "local"
		}
	}
	return &attendance.SessionResponse{
		Session:     sess,
		PendingSync: s.queue.HasPending(),
		Fuente:      fuente,
	}
}

// HasPendingSync reports whether an offline backlog exists.
func (s *SessionStore) HasPendingSync() bool {
	return s.queue.HasPending()
}

// SyncStatus summarizes the queue for the UI.
func (s *SessionStore) SyncStatus() *attendance.SyncStatusResponse {
	q := s.queue.Snapshot()
	return &attendance.SyncStatusResponse{
		HasPendingSync: q.HasPending(),
		PendingCount:   q.PendingCount(),
		LastSync:       q.LastSync,
	}
}

// DrainNow forces a drain attempt, regardless of observed connectivity.
func (s *SessionStore) DrainNow(ctx context.Context) SyncResult {
	return s.drainAndResolve(ctx)
}

// IniciarJornada clocks the employee in. The guard ladder runs before
// anything is queued: duplicate-tap lock, cached local record, live
// remote query, allowed start window, and a final remote re-check right
// before the write. Transient remote failures never fail the call; the
// entrada is queued with a temp_ session id instead.
func (s *SessionStore) IniciarJornada(ctx context.Context, req attendance.ClockInRequest) (*attendance.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	today := attendance.FechaLocal(now)

	s.mu.Lock()
	if s.creating {
		s.mu.Unlock()
		return nil, attendance.ErrClockInInProgress
	}
	if s.lastCreatedFecha == today && now.Sub(s.lastCreatedAt) < s.cfg.DuplicateWindow {
		active := s.active.Clone()
		s.mu.Unlock()
		slog.Warn("duplicate clock-in suppressed", "fecha", today)
		return active, nil
	}
	s.creating = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.creating = false
		s.mu.Unlock()
	}()

	if resumed, err := s.resumeFromCache(ctx, today); err != nil || resumed != nil {
		return resumed, err
	}
	if resumed, err := s.resumeFromRemote(ctx, today); err != nil || resumed != nil {
		return resumed, err
	}
	if err := s.checkStartWindow(now); err != nil {
		return nil, err
	}

	var cap Capture
	if req.Latitud != nil && req.Longitud != nil {
		cap = s.capture.FromOverride(*req.Latitud, *req.Longitud)
	} else {
		cap = s.capture.ClockIn(ctx)
	}

	// Final re-check immediately before the write, to shrink the race
	// window between check and create.
	if resumed, err := s.resumeFromRemote(ctx, today); err != nil || resumed != nil {
		return resumed, err
	}

	a := attendance.NewAction(attendance.ActionEntrada, now)
	a.Ubicacion = cap.Ubicacion
	a.ProveedorUbicacion = cap.Proveedor
	a.PrecisionUbicacion = cap.Precision
	a.UbicacionSimulada = cap.Simulada
	a.Dispositivo = s.dispositivo
	if req.Dispositivo != "" {
		a.Dispositivo = req.Dispositivo
	}

	sess := NewSessionShell(s.uid, today, a)
	sess.ID = attendance.TempIDPrefix + uuid.NewString()

	s.mu.Lock()
	s.active = sess
	s.lastCreatedFecha = today
	s.lastCreatedAt = now
	snapshot := sess.Clone()
	s.mu.Unlock()

	s.afterEmit(ctx, a, snapshot, notify.EventClockIn)

	return s.ActiveSession().Session, nil
}

// RegistrarBreak starts a rest interval.
func (s *SessionStore) RegistrarBreak(ctx context.Context) (*attendance.Session, error) {
	now := s.now()

	s.mu.Lock()
	if s.active == nil || s.active.Finalizado() {
		s.mu.Unlock()
		return nil, attendance.ErrNoActiveSession
	}
	if s.active.EstadoActual != attendance.EstadoTrabajando {
		s.mu.Unlock()
		return nil, attendance.ErrNotWorking
	}
	if len(s.active.Breaks) >= attendance.MaxBreaks {
		s.mu.Unlock()
		return nil, attendance.ErrBreakLimitReached
	}
	a := attendance.NewAction(attendance.ActionInicioBreak, now)
	snapshot, err := s.applyLocked(a)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.afterEmit(ctx, a, snapshot, notify.EventBreakStart)
	return snapshot, nil
}

// FinalizarBreak ends the open rest interval. With no open break it is a
// no-op, mirroring the reducer's idempotence.
func (s *SessionStore) FinalizarBreak(ctx context.Context) (*attendance.Session, error) {
	now := s.now()

	s.mu.Lock()
	if s.active == nil || s.active.Finalizado() {
		s.mu.Unlock()
		return nil, attendance.ErrNoActiveSession
	}
	if s.active.OpenBreak() == nil {
		snapshot := s.active.Clone()
		s.mu.Unlock()
		return snapshot, nil
	}
	a := attendance.NewAction(attendance.ActionFinBreak, now)
	snapshot, err := s.applyLocked(a)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.afterEmit(ctx, a, snapshot, notify.EventBreakEnd)
	return snapshot, nil
}

// RegistrarAlmuerzo starts the single lunch interval of the day.
func (s *SessionStore) RegistrarAlmuerzo(ctx context.Context) (*attendance.Session, error) {
	now := s.now()

	s.mu.Lock()
	if s.active == nil || s.active.Finalizado() {
		s.mu.Unlock()
		return nil, attendance.ErrNoActiveSession
	}
	if s.active.EstadoActual != attendance.EstadoTrabajando {
		s.mu.Unlock()
		return nil, attendance.ErrNotWorking
	}
	if s.active.Almuerzo != nil {
		s.mu.Unlock()
		return nil, attendance.ErrLunchAlreadyTaken
	}
	a := attendance.NewAction(attendance.ActionInicioAlmuerzo, now)
	snapshot, err := s.applyLocked(a)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.afterEmit(ctx, a, snapshot, notify.EventLunchStart)
	return snapshot, nil
}

// FinalizarAlmuerzo ends lunch. No lunch, or an already closed one, is a
// no-op.
func (s *SessionStore) FinalizarAlmuerzo(ctx context.Context) (*attendance.Session, error) {
	now := s.now()

	s.mu.Lock()
	if s.active == nil || s.active.Finalizado() {
		s.mu.Unlock()
		return nil, attendance.ErrNoActiveSession
	}
	if s.active.Almuerzo == nil || s.active.Almuerzo.Fin != nil {
		snapshot := s.active.Clone()
		s.mu.Unlock()
		return snapshot, nil
	}
	a := attendance.NewAction(attendance.ActionFinAlmuerzo, now)
	snapshot, err := s.applyLocked(a)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.afterEmit(ctx, a, snapshot, notify.EventLunchEnd)
	return snapshot, nil
}

// FinalizarJornada clocks the employee out. Without an active session it
// is a no-op. Location capture shares a short total budget and never
// delays leaving.
func (s *SessionStore) FinalizarJornada(ctx context.Context, req attendance.ClockOutRequest) (*attendance.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return nil, nil
	}
	if s.active.Finalizado() {
		snapshot := s.active.Clone()
		s.mu.Unlock()
		return snapshot, nil
	}
	s.mu.Unlock()

	var cap Capture
	if req.Latitud != nil && req.Longitud != nil {
		cap = s.capture.FromOverride(*req.Latitud, *req.Longitud)
	} else {
		cap = s.capture.ClockOut(ctx)
	}
	now := s.now()

	s.mu.Lock()
	if s.active == nil || s.active.Finalizado() {
		snapshot := s.active.Clone()
		s.mu.Unlock()
		return snapshot, nil
	}
	a := attendance.NewAction(attendance.ActionSalida, now)
	a.Ubicacion = cap.Ubicacion
	a.UbicacionSimulada = cap.Simulada
	snapshot, err := s.applyLocked(a)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.afterEmit(ctx, a, snapshot, notify.EventClockOut)
	return snapshot, nil
}

// applyLocked runs the reducer over the active session and applies the
// patch. Caller holds s.mu.
func (s *SessionStore) applyLocked(a attendance.Action) (*attendance.Session, error) {
	patch, err := Reduce(s.active, a)
	if err != nil {
		return nil, err
	}
	patch.Apply(s.active)
	return s.active.Clone(), nil
}

// afterEmit is everything past the guards: queue the action, persist the
// cached view, broadcast, notify, and opportunistically drain. All of it
// is best-effort; none of it can fail the clock operation.
func (s *SessionStore) afterEmit(ctx context.Context, a attendance.Action, snapshot *attendance.Session, event notify.Event) {
	if err := s.queue.Append(s.uid, snapshot.Fecha, a); err != nil {
		slog.Error("failed to queue action", "tipo", a.Tipo, "error", err)
	}
	s.saveCache(snapshot)
	s.publishSession()
	s.dispatcher.Dispatch(ctx, event, snapshot)

	if s.net.Current().Online() {
		s.drainAndResolve(ctx)
	} else {
		s.publishSyncStatus()
	}
}

// resumeFromCache is guard (a): a cached record for (uid, today) means
// resume, not create. A cached session the remote store says is
// finalized rejects the clock-in.
func (s *SessionStore) resumeFromCache(ctx context.Context, today string) (*attendance.Session, error) {
	cached := s.loadCache()
	if cached == nil || cached.Fecha != today {
		return nil, nil
	}
	if cached.Finalizado() {
		return nil, attendance.ErrAlreadyFinalized
	}

	if cached.HasTempID() {
		// Never persisted remotely; resume the local view as-is.
		s.setActive(cached)
		return s.snapshotActive(), nil
	}

	remote, err := s.store.GetByID(ctx, cached.ID)
	switch {
	case err == nil:
		if remote.Salida != nil {
			return nil, attendance.ErrAlreadyFinalized
		}
		s.setActive(remote)
		return s.snapshotActive(), nil
	case errors.Is(err, attendance.ErrSessionNotFound):
		// Stale cache: the document is gone. Drop it and keep checking.
		if err := s.local.Remove(sessionCacheKey); err != nil {
			slog.Error("failed to drop stale session cache", "error", err)
		}
		return nil, nil
	default:
		// Unreachable store: resume the cached copy rather than risking a
		// duplicate creation that would surface after reconnect.
		slog.Warn("remote store unreachable, resuming cached session", "error", err)
		s.setActive(cached)
		return s.snapshotActive(), nil
	}
}

// resumeFromRemote is guards (b) and (d): a live query for today's
// document. Already clocked out means rejection; still open means
// resume. Transport errors fall through to the offline create path.
func (s *SessionStore) resumeFromRemote(ctx context.Context, today string) (*attendance.Session, error) {
	remote, err := s.store.GetByUIDAndFecha(ctx, s.uid, today)
	if err != nil {
		if !errors.Is(err, attendance.ErrSessionNotFound) {
			slog.Warn("remote session lookup failed, assuming offline", "error", err)
		}
		return nil, nil
	}
	if remote.Salida != nil {
		return nil, attendance.ErrAlreadyFinalized
	}
	s.setActive(remote)
	s.saveCache(remote)
	return s.snapshotActive(), nil
}

// checkStartWindow is guard (c): clock-in opens EarlyMargin before the
// scheduled start time.
func (s *SessionStore) checkStartWindow(now time.Time) error {
	if s.cfg.StartTime == "" {
		return nil
	}
	start, err := time.ParseInLocation("15:04", s.cfg.StartTime, now.Location())
	if err != nil {
		return fmt.Errorf("invalid configured start time %q: %w", s.cfg.StartTime, err)
	}
	opens := time.Date(now.Year(), now.Month(), now.Day(), start.Hour(), start.Minute(), 0, 0, now.Location()).
		Add(-s.cfg.EarlyMargin)
	if now.Before(opens) {
		return attendance.ErrTooEarlyToClockIn
	}
	return nil
}

// attachRemote reconciles once against the remote store, then streams
// every document change into the local view. Remote is authoritative
// once reachable: updates overwrite wholesale, admin edits included.
func (s *SessionStore) attachRemote(ctx context.Context, fecha string) {
	remote, err := s.store.GetByUIDAndFecha(ctx, s.uid, fecha)
	switch {
	case err == nil:
		s.applyRemoteUpdate(remote)
	case errors.Is(err, attendance.ErrSessionNotFound):
		// No record today: surface a still-open session from a previous
		// day (forgotten clock-out) instead.
		if prev, err := s.store.FindOpenBefore(ctx, s.uid, fecha); err == nil && prev != nil {
			s.applyRemoteUpdate(prev)
		}
	default:
		slog.Warn("remote store unreachable at startup", "error", err)
	}

	ch, cancel, err := s.store.Watch(ctx, s.uid, fecha)
	if err != nil {
		slog.Warn("could not attach remote watch", "error", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case remote, ok := <-ch:
				if !ok {
					return
				}
				s.applyRemoteUpdate(remote)
			}
		}
	}()
}

// attachNetwork drains the queue on every transition to online.
func (s *SessionStore) attachNetwork(ctx context.Context) {
	ch, cleanup := s.net.Subscribe()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cleanup()
		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-ch:
				if !ok {
					return
				}
				if st.Online() {
					slog.Info("network restored, draining queue")
					s.drainAndResolve(ctx)
				}
			}
		}
	}()
}

// applyRemoteUpdate replaces the local view with a remote snapshot.
func (s *SessionStore) applyRemoteUpdate(remote *attendance.Session) {
	if remote == nil {
		return
	}
	s.setActive(remote)
	s.saveCache(remote)
	s.publishSession()
}

// drainAndResolve runs the sync engine and retires the temp_ id when the
// drain created today's remote document.
func (s *SessionStore) drainAndResolve(ctx context.Context) SyncResult {
	res := s.engine.Drain(ctx)

	if res.CreatedID != "" {
		s.mu.Lock()
		if s.active != nil && s.active.HasTempID() {
			s.active.ID = res.CreatedID
		}
		snapshot := s.active.Clone()
		s.mu.Unlock()
		if snapshot != nil {
			s.saveCache(snapshot)
		}
		s.publishSession()
	}

	s.publishSyncStatus()
	return res
}

func (s *SessionStore) setActive(sess *attendance.Session) {
	s.mu.Lock()
	s.active = sess.Clone()
	s.mu.Unlock()
}

func (s *SessionStore) snapshotActive() *attendance.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.Clone()
}

func (s *SessionStore) publishSession() {
	s.hub.Publish(sse.Event{Kind: sse.KindSessionUpdate, Data: s.ActiveSession()})
}

func (s *SessionStore) publishSyncStatus() {
	s.hub.Publish(sse.Event{Kind: sse.KindSyncStatus, Data: s.SyncStatus()})
}

func (s *SessionStore) loadCache() *attendance.Session {
	data, err := s.local.Get(sessionCacheKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			slog.Error("failed to read session cache", "error", err)
		}
		return nil
	}
	var sess attendance.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		slog.Error("corrupt session cache", "error", err)
		return nil
	}
	return &sess
}

func (s *SessionStore) saveCache(sess *attendance.Session) {
	data, err := json.Marshal(sess)
	if err != nil {
		slog.Error("failed to encode session cache", "error", err)
		return
	}
	if err := s.local.Set(sessionCacheKey, data); err != nil {
		slog.Error("failed to persist session cache", "error", err)
	}
}
