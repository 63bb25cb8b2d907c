package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/drgroup/asistencia-go/internal/domain/attendance"
	"github.com/drgroup/asistencia-go/internal/pkg/location"
	"github.com/drgroup/asistencia-go/internal/pkg/utils"
)

// Capture is the best-effort location enrichment attached to a clock
// event. Ubicacion is nil when every tier failed or the fix was mocked.
type Capture struct {
	Ubicacion *attendance.Ubicacion
	Proveedor string
	Precision float64
	Simulada  bool
}

// Office labels captured fixes as oficina/remoto by haversine distance.
// A zero radius disables labeling (every fix is "remoto").
type Office struct {
	Lat     float64
	Lon     float64
	RadiusM float64
}

// LocationCapture acquires a fix through accuracy tiers with short
// per-tier timeouts. It never blocks or fails the clock action: when all
// tiers are exhausted it falls back to a remote-unknown placeholder.
type LocationCapture struct {
	provider    location.Provider
	office      *Office
	tierTimeout time.Duration
	outBudget   time.Duration
}

func NewLocationCapture(provider location.Provider, office *Office, tierTimeout, outBudget time.Duration) *LocationCapture {
	if tierTimeout <= 0 {
		tierTimeout = 5 * time.Second
	}
	if outBudget <= 0 {
		outBudget = 2 * time.Second
	}
	return &LocationCapture{
		provider:    provider,
		office:      office,
		tierTimeout: tierTimeout,
		outBudget:   outBudget,
	}
}

// ClockIn tries high accuracy, then balanced, then last-known, each
// bounded by the tier timeout. A tier's timeout abandons that tier only.
func (c *LocationCapture) ClockIn(ctx context.Context) Capture {
	tiers := []struct {
		name string
		op   func(ctx context.Context) (location.Position, error)
	}{
		{"gps_high", func(ctx context.Context) (location.Position, error) {
			return c.provider.Current(ctx, location.AccuracyHigh)
		}},
		{"gps_balanced", func(ctx context.Context) (location.Position, error) {
			return c.provider.Current(ctx, location.AccuracyBalanced)
		}},
		{"last_known", func(ctx context.Context) (location.Position, error) {
			return c.provider.LastKnown(ctx)
		}},
	}

	for _, tier := range tiers {
		pos, err := utils.WithTimeout(ctx, c.tierTimeout, tier.op, location.Position{})
		if err != nil {
			slog.Debug("location tier failed", "tier", tier.name, "error", err)
			continue
		}
		return c.fromPosition(pos, tier.name)
	}
	return placeholder()
}

// ClockOut shares one short budget across high accuracy and last-known:
// leaving must never wait on a slow fix.
func (c *LocationCapture) ClockOut(ctx context.Context) Capture {
	budgetCtx, cancel := context.WithTimeout(ctx, c.outBudget)
	defer cancel()

	pos, err := c.provider.Current(budgetCtx, location.AccuracyHigh)
	if err != nil {
		pos, err = c.provider.LastKnown(budgetCtx)
		if err != nil {
			return placeholder()
		}
		return c.fromPosition(pos, "last_known")
	}
	return c.fromPosition(pos, "gps_high")
}

func (c *LocationCapture) fromPosition(pos location.Position, proveedor string) Capture {
	if pos.Mocked {
		// A mocked fix is rejected as a trust signal: the coordinates are
		// dropped but the flag is recorded with the action.
		slog.Warn("mocked location reported, discarding coordinates", "proveedor", proveedor)
		cap := placeholder()
		cap.Simulada = true
		return cap
	}

	u := &attendance.Ubicacion{Lat: pos.Lat, Lon: pos.Lon, Etiqueta: "remoto"}
	if c.office != nil && c.office.RadiusM > 0 {
		dist := utils.HaversineDistance(pos.Lat, pos.Lon, c.office.Lat, c.office.Lon)
		if dist <= c.office.RadiusM {
			u.Etiqueta = "oficina"
		}
	}
	return Capture{
		Ubicacion: u,
		Proveedor: proveedor,
		Precision: pos.AccuracyM,
	}
}

// FromOverride builds a capture from coordinates the UI supplied itself.
func (c *LocationCapture) FromOverride(lat, lon float64) Capture {
	return c.fromPosition(location.Position{Lat: lat, Lon: lon}, "cliente")
}

func placeholder() Capture {
	return Capture{Proveedor: "desconocido"}
}
