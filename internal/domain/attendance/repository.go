package attendance

import "context"

// DocumentStore is the remote session database. Writes are optimistic
// read-then-write patches over the latest fetched state; concurrent
// external edits resolve as last-write-wins. Implementations may reject
// duplicate open sessions on Create with ErrSessionExists where the
// backing store supports conditional writes, but callers must not rely
// on it.
type DocumentStore interface {
	// GetByUIDAndFecha retrieves the session for one employee and local day.
	// Returns ErrSessionNotFound when no document exists.
	GetByUIDAndFecha(ctx context.Context, uid, fecha string) (*Session, error)

	// GetByID retrieves a session by its remote document id.
	GetByID(ctx context.Context, id string) (*Session, error)

	// Create persists a new session document and returns its remote id.
	Create(ctx context.Context, s *Session) (string, error)

	// Patch applies a partial update to an existing document.
	Patch(ctx context.Context, id string, p *Patch) error

	// FindOpenBefore returns the most recent non-finalized session from a
	// day strictly before fecha, if any. Used to surface a forgotten
	// clock-out from a previous day.
	FindOpenBefore(ctx context.Context, uid, fecha string) (*Session, error)

	// Watch streams every change to the (uid, fecha) document until the
	// returned cancel function is called or ctx ends. Each delivered
	// session is a full snapshot, admin edits included.
	Watch(ctx context.Context, uid, fecha string) (<-chan *Session, func(), error)
}
