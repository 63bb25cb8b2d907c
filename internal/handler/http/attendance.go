package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
	"github.com/drgroup/asistencia-go/internal/handler/http/response"
	"github.com/drgroup/asistencia-go/internal/pkg/sse"
	attendancesvc "github.com/drgroup/asistencia-go/internal/service/attendance"
)

type AttendanceHandler interface {
	Active(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
	ClockIn(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	StartLunch(w http.ResponseWriter, r *http.Request)
	EndLunch(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	sessions *attendancesvc.SessionStore
	hub      *sse.Hub
}

func NewAttendanceHandler(sessions *attendancesvc.SessionStore, hub *sse.Hub) AttendanceHandler {
	return &attendanceHandlerImpl{
		sessions: sessions,
		hub:      hub,
	}
}

// decodeBody tolerates an empty request body: every field of the clock
// requests is optional.
func decodeBody(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Active implements AttendanceHandler.
func (h *attendanceHandlerImpl) Active(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.sessions.ActiveSession())
}

// Stream implements AttendanceHandler. It pushes activeSession and
// sync-status snapshots over SSE until the client disconnects.
func (h *attendanceHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe()
	defer cleanup()

	// Initial snapshot so the client renders without waiting for a change
	if data, err := json.Marshal(h.sessions.ActiveSession()); err == nil {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sse.KindSessionUpdate, data)
	}
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// ClockIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req attendance.ClockInRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	sess, err := h.sessions.IniciarJornada(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Jornada iniciada", sess)
}

// StartBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.RegistrarBreak(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, sess)
}

// EndBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.FinalizarBreak(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, sess)
}

// StartLunch implements AttendanceHandler.
func (h *attendanceHandlerImpl) StartLunch(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.RegistrarAlmuerzo(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, sess)
}

// EndLunch implements AttendanceHandler.
func (h *attendanceHandlerImpl) EndLunch(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.FinalizarAlmuerzo(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, sess)
}

// ClockOut implements AttendanceHandler. Without an active session this
// is a successful no-op, matching the service semantics.
func (h *attendanceHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	var req attendance.ClockOutRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	sess, err := h.sessions.FinalizarJornada(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if sess == nil {
		response.SuccessWithMessage(w, "No hay jornada activa", nil)
		return
	}
	response.Success(w, sess)
}
