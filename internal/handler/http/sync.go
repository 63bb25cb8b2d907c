package http

import (
	"net/http"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
	"github.com/drgroup/asistencia-go/internal/handler/http/response"
	attendancesvc "github.com/drgroup/asistencia-go/internal/service/attendance"
)

type SyncHandler interface {
	Status(w http.ResponseWriter, r *http.Request)
	Drain(w http.ResponseWriter, r *http.Request)
}

type syncHandlerImpl struct {
	sessions *attendancesvc.SessionStore
}

func NewSyncHandler(sessions *attendancesvc.SessionStore) SyncHandler {
	return &syncHandlerImpl{sessions: sessions}
}

// Status implements SyncHandler.
func (h *syncHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.sessions.SyncStatus())
}

// Drain implements SyncHandler. Forces a drain attempt regardless of
// observed connectivity; an unreachable store just leaves the actions
// pending.
func (h *syncHandlerImpl) Drain(w http.ResponseWriter, r *http.Request) {
	res := h.sessions.DrainNow(r.Context())
	response.Success(w, attendance.DrainResponse{
		Succeeded: res.Succeeded,
		Failed:    res.Failed,
	})
}
