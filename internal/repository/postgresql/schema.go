package postgresql

import (
	"context"
	"fmt"

	"github.com/drgroup/asistencia-go/internal/pkg/database"
)

// EnsureSchema creates the asistencias table, the partial unique index
// that rejects a second open session per (uid, fecha), and the trigger
// feeding the asistencias_changes notification channel.
func EnsureSchema(ctx context.Context, db *database.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS asistencias (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			uid           TEXT NOT NULL,
			fecha         TEXT NOT NULL,
			estado_actual TEXT NOT NULL DEFAULT 'trabajando',
			doc           JSONB NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		// One open session per employee per day. Finalized rows fall out
		// of the index, so an admin-created historical record never blocks
		// a new day.
		`CREATE UNIQUE INDEX IF NOT EXISTS asistencias_uid_fecha_abierta_idx
			ON asistencias (uid, fecha)
			WHERE estado_actual <> 'finalizado'`,

		`CREATE INDEX IF NOT EXISTS asistencias_uid_fecha_idx
			ON asistencias (uid, fecha)`,

		`CREATE OR REPLACE FUNCTION notify_asistencias_changes() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('asistencias_changes', json_build_object(
				'id', NEW.id,
				'uid', NEW.uid,
				'fecha', NEW.fecha
			)::text);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`,

		`DROP TRIGGER IF EXISTS asistencias_changes_trigger ON asistencias`,

		`CREATE TRIGGER asistencias_changes_trigger
			AFTER INSERT OR UPDATE ON asistencias
			FOR EACH ROW EXECUTE FUNCTION notify_asistencias_changes()`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
