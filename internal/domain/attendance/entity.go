package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Estado values mirror the estadoActual field of the asistencias documents.
const (
	EstadoTrabajando = "trabajando"
	EstadoBreak      = "break"
	EstadoAlmuerzo   = "almuerzo"
	EstadoFinalizado = "finalizado"
)

// MaxBreaks is the number of breaks an employee may take per workday.
const MaxBreaks = 2

// TempIDPrefix marks session ids that exist only on this device and have
// not yet been assigned a remote document id.
const TempIDPrefix = "temp_"

// Ubicacion is a captured coordinate pair. Etiqueta classifies the fix as
// "oficina" or "remoto" relative to the configured office location.
type Ubicacion struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Etiqueta string  `json:"etiqueta,omitempty"`
}

// Entrada records the clock-in event. Set once; immutable after creation.
type Entrada struct {
	Hora               time.Time  `json:"hora"`
	Ubicacion          *Ubicacion `json:"ubicacion,omitempty"`
	Dispositivo        string     `json:"dispositivo,omitempty"`
	ProveedorUbicacion string     `json:"proveedorUbicacion,omitempty"`
	PrecisionUbicacion float64    `json:"precisionUbicacion,omitempty"`
	UbicacionSimulada  bool       `json:"ubicacionSimulada,omitempty"`
}

// Break is one rest interval. Fin == nil means the break is still open.
// Duracion is stored as HH:MM:SS once the break is closed.
type Break struct {
	Inicio   time.Time  `json:"inicio"`
	Fin      *time.Time `json:"fin,omitempty"`
	Duracion string     `json:"duracion,omitempty"`
}

// Almuerzo is the single lunch interval of a workday.
type Almuerzo struct {
	Inicio   time.Time  `json:"inicio"`
	Fin      *time.Time `json:"fin,omitempty"`
	Duracion string     `json:"duracion,omitempty"`
}

// Salida records the clock-out event. Terminal: once set, no further
// mutation of the session is legal.
type Salida struct {
	Hora      time.Time  `json:"hora"`
	Ubicacion *Ubicacion `json:"ubicacion,omitempty"`
}

// Session is one employee's attendance record for one local calendar day.
// The (UID, Fecha) pair is the partition key: at most one non-finalized
// session may exist for it.
type Session struct {
	ID              string     `json:"id,omitempty"`
	UID             string     `json:"uid"`
	Fecha           string     `json:"fecha"`
	Entrada         *Entrada   `json:"entrada,omitempty"`
	Breaks          []Break    `json:"breaks"`
	Almuerzo        *Almuerzo  `json:"almuerzo,omitempty"`
	Salida          *Salida    `json:"salida,omitempty"`
	EstadoActual    string     `json:"estadoActual"`
	HorasTrabajadas string     `json:"horasTrabajadas,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

// Finalizado reports whether the session has been clocked out.
func (s *Session) Finalizado() bool {
	return s.Salida != nil || s.EstadoActual == EstadoFinalizado
}

// OpenBreak returns the last break entry if it has no end yet.
func (s *Session) OpenBreak() *Break {
	if len(s.Breaks) == 0 {
		return nil
	}
	last := &s.Breaks[len(s.Breaks)-1]
	if last.Fin == nil {
		return last
	}
	return nil
}

// HasTempID reports whether the session has not yet been persisted remotely.
func (s *Session) HasTempID() bool {
	return strings.HasPrefix(s.ID, TempIDPrefix)
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Entrada != nil {
		e := *s.Entrada
		if s.Entrada.Ubicacion != nil {
			u := *s.Entrada.Ubicacion
			e.Ubicacion = &u
		}
		out.Entrada = &e
	}
	out.Breaks = make([]Break, len(s.Breaks))
	copy(out.Breaks, s.Breaks)
	if s.Almuerzo != nil {
		a := *s.Almuerzo
		out.Almuerzo = &a
	}
	if s.Salida != nil {
		sal := *s.Salida
		if s.Salida.Ubicacion != nil {
			u := *s.Salida.Ubicacion
			sal.Ubicacion = &u
		}
		out.Salida = &sal
	}
	return &out
}

// FechaLocal returns the local calendar day string used to partition
// sessions. Device-local time, not UTC.
func FechaLocal(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatHMS renders a duration as HH:MM:SS. Negative durations collapse
// to zero so duration math stays total.
func FormatHMS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// ParseHMS parses an HH:MM:SS string. Malformed input yields zero rather
// than an error: a corrupt duration must never break clock-out arithmetic.
func ParseHMS(s string) time.Duration {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || h < 0 || m < 0 || sec < 0 {
		return 0
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
}
