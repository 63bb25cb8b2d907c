package attendance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionType tags the six attendance mutations a device can emit.
type ActionType string

const (
	ActionEntrada        ActionType = "entrada"
	ActionInicioBreak    ActionType = "inicioBreak"
	ActionFinBreak       ActionType = "finBreak"
	ActionInicioAlmuerzo ActionType = "inicioAlmuerzo"
	ActionFinAlmuerzo    ActionType = "finAlmuerzo"
	ActionSalida         ActionType = "salida"
)

// SyncStatus tracks whether a queued action has reached the remote store.
type SyncStatus string

const (
	SyncPendiente    SyncStatus = "pendiente"
	SyncSincronizado SyncStatus = "sincronizado"
)

// Action is one queued local mutation. Only entrada and salida carry a
// location payload; only entrada carries device and provider metadata.
type Action struct {
	ID                 string     `json:"id"`
	Tipo               ActionType `json:"tipo"`
	Timestamp          time.Time  `json:"timestamp"`
	Ubicacion          *Ubicacion `json:"ubicacion,omitempty"`
	Dispositivo        string     `json:"dispositivo,omitempty"`
	ProveedorUbicacion string     `json:"proveedorUbicacion,omitempty"`
	PrecisionUbicacion float64    `json:"precisionUbicacion,omitempty"`
	UbicacionSimulada  bool       `json:"ubicacionSimulada,omitempty"`
	Estado             SyncStatus `json:"estado"`
	SyncTimestamp      *time.Time `json:"syncTimestamp,omitempty"`
}

// NewAction builds a pending action with a locally unique id
// (capture time plus a random suffix).
func NewAction(tipo ActionType, ts time.Time) Action {
	return Action{
		ID:        fmt.Sprintf("%d-%s", ts.UnixMilli(), uuid.NewString()[:8]),
		Tipo:      tipo,
		Timestamp: ts,
		Estado:    SyncPendiente,
	}
}

// Queue is the persisted per-device action log. Only one (UID, Fecha)
// queue is retained at a time; a new day or user resets it.
type Queue struct {
	UID      string     `json:"uid"`
	Fecha    string     `json:"fecha"`
	Acciones []Action   `json:"acciones"`
	LastSync *time.Time `json:"lastSync,omitempty"`
}

// HasPending reports whether any action is still waiting for sync.
func (q *Queue) HasPending() bool {
	if q == nil {
		return false
	}
	for _, a := range q.Acciones {
		if a.Estado == SyncPendiente {
			return true
		}
	}
	return false
}

// PendingCount returns the number of unsynced actions.
func (q *Queue) PendingCount() int {
	if q == nil {
		return 0
	}
	n := 0
	for _, a := range q.Acciones {
		if a.Estado == SyncPendiente {
			n++
		}
	}
	return n
}
