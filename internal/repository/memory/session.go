// Package memory holds an in-memory attendance.DocumentStore. It backs
// tests and the no-database demo mode, and it deliberately skips the
// conditional-create guarantee: Create always appends, the way a
// best-effort document backend behaves.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
	"github.com/google/uuid"
)

type watchKey struct {
	uid   string
	fecha string
}

type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*attendance.Session
	order    []string
	watchers map[watchKey]map[chan *attendance.Session]struct{}

	// FailWith makes every call return this error, for exercising the
	// offline and retry paths.
	FailWith error
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*attendance.Session),
		watchers: make(map[watchKey]map[chan *attendance.Session]struct{}),
	}
}

// GetByUIDAndFecha implements attendance.DocumentStore.
func (s *SessionStore) GetByUIDAndFecha(ctx context.Context, uid, fecha string) (*attendance.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return nil, s.FailWith
	}
	for _, id := range s.order {
		sess := s.sessions[id]
		if sess.UID == uid && sess.Fecha == fecha {
			return sess.Clone(), nil
		}
	}
	return nil, attendance.ErrSessionNotFound
}

// GetByID implements attendance.DocumentStore.
func (s *SessionStore) GetByID(ctx context.Context, id string) (*attendance.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return nil, s.FailWith
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, attendance.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Create implements attendance.DocumentStore. Plain append, no
// uniqueness check.
func (s *SessionStore) Create(ctx context.Context, sess *attendance.Session) (string, error) {
	s.mu.Lock()

	if s.FailWith != nil {
		s.mu.Unlock()
		return "", s.FailWith
	}

	stored := sess.Clone()
	stored.ID = uuid.NewString()
	now := time.Now()
	stored.CreatedAt = &now
	stored.UpdatedAt = &now

	s.sessions[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	snapshot := stored.Clone()
	s.mu.Unlock()

	s.notify(snapshot)
	return snapshot.ID, nil
}

// Patch implements attendance.DocumentStore.
func (s *SessionStore) Patch(ctx context.Context, id string, p *attendance.Patch) error {
	s.mu.Lock()

	if s.FailWith != nil {
		s.mu.Unlock()
		return s.FailWith
	}
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return attendance.ErrSessionNotFound
	}

	p.Apply(sess)
	now := time.Now()
	sess.UpdatedAt = &now
	snapshot := sess.Clone()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// FindOpenBefore implements attendance.DocumentStore.
func (s *SessionStore) FindOpenBefore(ctx context.Context, uid, fecha string) (*attendance.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return nil, s.FailWith
	}

	var best *attendance.Session
	for _, id := range s.order {
		sess := s.sessions[id]
		if sess.UID != uid || sess.Fecha >= fecha || sess.Finalizado() {
			continue
		}
		if best == nil || sess.Fecha > best.Fecha {
			best = sess
		}
	}
	return best.Clone(), nil
}

// Watch implements attendance.DocumentStore.
func (s *SessionStore) Watch(ctx context.Context, uid, fecha string) (<-chan *attendance.Session, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return nil, nil, s.FailWith
	}

	key := watchKey{uid: uid, fecha: fecha}
	ch := make(chan *attendance.Session, 8)
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[chan *attendance.Session]struct{})
	}
	s.watchers[key][ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.watchers[key], ch)
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel, nil
}

// AdminPatch edits a document the way an out-of-band dashboard would,
// watchers notified. Test helper.
func (s *SessionStore) AdminPatch(id string, p *attendance.Patch) error {
	return s.Patch(context.Background(), id, p)
}

// AdminReplace overwrites a document wholesale, the way a dashboard
// reopening a finalized session does (a patch cannot clear salida).
// Test helper.
func (s *SessionStore) AdminReplace(id string, sess *attendance.Session) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return attendance.ErrSessionNotFound
	}
	stored := sess.Clone()
	stored.ID = id
	now := time.Now()
	stored.UpdatedAt = &now
	s.sessions[id] = stored
	snapshot := stored.Clone()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// Count returns the number of stored documents. Test helper.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) notify(sess *attendance.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := watchKey{uid: sess.UID, fecha: sess.Fecha}
	for ch := range s.watchers[key] {
		select {
		case ch <- sess.Clone():
		default:
			// Skip if channel is full (non-blocking to prevent deadlock)
		}
	}
}
