package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgroup/asistencia-go/internal/pkg/location"
)

var testOffice = &Office{Lat: 4.60971, Lon: -74.08175, RadiusM: 150}

func TestClockInUsesProviderFix(t *testing.T) {
	provider := location.NewStaticProvider(location.Position{
		Lat: 4.60971, Lon: -74.08175, AccuracyM: 12, Provider: "gps",
	})
	c := NewLocationCapture(provider, testOffice, 50*time.Millisecond, 50*time.Millisecond)

	cap := c.ClockIn(context.Background())
	require.NotNil(t, cap.Ubicacion)
	assert.Equal(t, "gps_high", cap.Proveedor)
	assert.Equal(t, float64(12), cap.Precision)
	assert.Equal(t, "oficina", cap.Ubicacion.Etiqueta)
	assert.False(t, cap.Simulada)
}

func TestClockInFallsBackToPlaceholder(t *testing.T) {
	c := NewLocationCapture(location.NewEmptyProvider(), testOffice, 50*time.Millisecond, 50*time.Millisecond)

	cap := c.ClockIn(context.Background())
	assert.Nil(t, cap.Ubicacion)
	assert.Equal(t, "desconocido", cap.Proveedor)
}

func TestMockedFixDiscardsCoordinates(t *testing.T) {
	provider := location.NewStaticProvider(location.Position{
		Lat: 4.60971, Lon: -74.08175, Mocked: true,
	})
	c := NewLocationCapture(provider, testOffice, 50*time.Millisecond, 50*time.Millisecond)

	cap := c.ClockIn(context.Background())
	assert.Nil(t, cap.Ubicacion)
	assert.True(t, cap.Simulada)
}

func TestOfficeLabeling(t *testing.T) {
	// A fix well away from the office is labeled remoto
	provider := location.NewStaticProvider(location.Position{Lat: 4.7, Lon: -74.05})
	c := NewLocationCapture(provider, testOffice, 50*time.Millisecond, 50*time.Millisecond)

	cap := c.ClockIn(context.Background())
	require.NotNil(t, cap.Ubicacion)
	assert.Equal(t, "remoto", cap.Ubicacion.Etiqueta)

	// Zero radius disables labeling entirely
	unlabeled := NewLocationCapture(provider, &Office{}, 50*time.Millisecond, 50*time.Millisecond)
	cap = unlabeled.ClockIn(context.Background())
	require.NotNil(t, cap.Ubicacion)
	assert.Equal(t, "remoto", cap.Ubicacion.Etiqueta)
}

func TestClockOutUsesLastKnownOnFailure(t *testing.T) {
	c := NewLocationCapture(location.NewEmptyProvider(), testOffice, 50*time.Millisecond, 50*time.Millisecond)

	cap := c.ClockOut(context.Background())
	assert.Nil(t, cap.Ubicacion)
	assert.Equal(t, "desconocido", cap.Proveedor)
}

func TestFromOverride(t *testing.T) {
	c := NewLocationCapture(location.NewEmptyProvider(), testOffice, 50*time.Millisecond, 50*time.Millisecond)

	cap := c.FromOverride(4.60971, -74.08175)
	require.NotNil(t, cap.Ubicacion)
	assert.Equal(t, "cliente", cap.Proveedor)
	assert.Equal(t, "oficina", cap.Ubicacion.Etiqueta)
}
