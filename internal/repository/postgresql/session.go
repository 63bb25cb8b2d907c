package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
	"github.com/drgroup/asistencia-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

// sessionStore keeps one JSONB document per (uid, fecha). A partial
// unique index rejects a second open session for the same day, and a
// trigger emits asistencias_changes notifications that back Watch.
type sessionStore struct {
	db *database.DB
}

func NewSessionStore(db *database.DB) attendance.DocumentStore {
	return &sessionStore{db: db}
}

// GetByUIDAndFecha implements attendance.DocumentStore.
func (s *sessionStore) GetByUIDAndFecha(ctx context.Context, uid, fecha string) (*attendance.Session, error) {
	query := `
		SELECT id, doc, created_at, updated_at
		FROM asistencias
		WHERE uid = $1 AND fecha = $2
		LIMIT 1
	`

	var (
		id        string
		doc       []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := s.db.QueryRow(ctx, query, uid, fecha).Scan(&id, &doc, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, attendance.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return decodeSession(id, doc, createdAt, updatedAt)
}

// GetByID implements attendance.DocumentStore.
func (s *sessionStore) GetByID(ctx context.Context, id string) (*attendance.Session, error) {
	query := `
		SELECT id, doc, created_at, updated_at
		FROM asistencias
		WHERE id = $1
	`

	var (
		docID     string
		doc       []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := s.db.QueryRow(ctx, query, id).Scan(&docID, &doc, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, attendance.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session by id: %w", err)
	}

	return decodeSession(docID, doc, createdAt, updatedAt)
}

// Create implements attendance.DocumentStore. The partial unique index
// on (uid, fecha) WHERE estado_actual <> 'finalizado' turns a duplicate
// open session into ErrSessionExists instead of a second row.
func (s *sessionStore) Create(ctx context.Context, sess *attendance.Session) (string, error) {
	doc, err := encodeSession(sess)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO asistencias (uid, fecha, estado_actual, doc)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
		RETURNING id
	`

	var id string
	err = s.db.QueryRow(ctx, query, sess.UID, sess.Fecha, sess.EstadoActual, doc).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", attendance.ErrSessionExists
		}
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return id, nil
}

// Patch implements attendance.DocumentStore. The row is locked for the
// read-then-write cycle so two drains on this store cannot interleave;
// against external writers the semantics stay last-write-wins.
func (s *sessionStore) Patch(ctx context.Context, id string, p *attendance.Patch) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin patch transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var doc []byte
	err = tx.QueryRow(ctx, `SELECT doc FROM asistencias WHERE id = $1 FOR UPDATE`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.ErrSessionNotFound
		}
		return fmt.Errorf("failed to read session for patch: %w", err)
	}

	var sess attendance.Session
	if err := json.Unmarshal(doc, &sess); err != nil {
		return fmt.Errorf("corrupt session document %s: %w", id, err)
	}
	p.Apply(&sess)

	newDoc, err := encodeSession(&sess)
	if err != nil {
		return err
	}

	query := `
		UPDATE asistencias
		SET doc = $2, estado_actual = $3, updated_at = now()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, query, id, newDoc, sess.EstadoActual); err != nil {
		return fmt.Errorf("failed to patch session: %w", err)
	}

	return tx.Commit(ctx)
}

// FindOpenBefore implements attendance.DocumentStore.
func (s *sessionStore) FindOpenBefore(ctx context.Context, uid, fecha string) (*attendance.Session, error) {
	query := `
		SELECT id, doc, created_at, updated_at
		FROM asistencias
		WHERE uid = $1
		  AND fecha < $2
		  AND estado_actual <> 'finalizado'
		ORDER BY fecha DESC
		LIMIT 1
	`

	var (
		id        string
		doc       []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := s.db.QueryRow(ctx, query, uid, fecha).Scan(&id, &doc, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open session: %w", err)
	}

	return decodeSession(id, doc, createdAt, updatedAt)
}

// Watch implements attendance.DocumentStore. It holds a dedicated pool
// connection on LISTEN and re-fetches the document on every matching
// notification, so subscribers always see a full snapshot.
func (s *sessionStore) Watch(ctx context.Context, uid, fecha string) (<-chan *attendance.Session, func(), error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN asistencias_changes"); err != nil {
		conn.Release()
		return nil, nil, fmt.Errorf("failed to listen for session changes: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	ch := make(chan *attendance.Session, 8)

	go func() {
		defer close(ch)
		defer conn.Release()

		for {
			n, err := conn.Conn().WaitForNotification(watchCtx)
			if err != nil {
				if watchCtx.Err() == nil {
					slog.Error("session watch interrupted", "error", err)
				}
				return
			}

			var payload struct {
				ID    string `json:"id"`
				UID   string `json:"uid"`
				Fecha string `json:"fecha"`
			}
			if err := json.Unmarshal([]byte(n.Payload), &payload); err != nil {
				slog.Warn("malformed change notification", "payload", n.Payload)
				continue
			}
			if payload.UID != uid || payload.Fecha != fecha {
				continue
			}

			sess, err := s.GetByID(watchCtx, payload.ID)
			if err != nil {
				slog.Warn("failed to fetch changed session", "id", payload.ID, "error", err)
				continue
			}

			select {
			case ch <- sess:
			case <-watchCtx.Done():
				return
			}
		}
	}()

	return ch, cancel, nil
}

// encodeSession marshals the document body. The row columns carry id and
// the timestamps, so they are stripped from the JSON to keep one source
// of truth.
func encodeSession(sess *attendance.Session) ([]byte, error) {
	clone := sess.Clone()
	clone.ID = ""
	clone.CreatedAt = nil
	clone.UpdatedAt = nil

	doc, err := json.Marshal(clone)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session document: %w", err)
	}
	return doc, nil
}

func decodeSession(id string, doc []byte, createdAt, updatedAt time.Time) (*attendance.Session, error) {
	var sess attendance.Session
	if err := json.Unmarshal(doc, &sess); err != nil {
		return nil, fmt.Errorf("corrupt session document %s: %w", id, err)
	}
	sess.ID = id
	sess.CreatedAt = &createdAt
	sess.UpdatedAt = &updatedAt
	return &sess, nil
}
