package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteKV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asistencia.db")
	kv, err := NewSQLiteKV(path)
	require.NoError(t, err)
	defer kv.Close()

	_, err = kv.Get("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, kv.Set("cola", []byte(`{"uid":"u1"}`)))
	got, err := kv.Get("cola")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"uid":"u1"}`), got)

	// Overwrite replaces the previous value
	require.NoError(t, kv.Set("cola", []byte(`{"uid":"u2"}`)))
	got, err = kv.Get("cola")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"uid":"u2"}`), got)

	require.NoError(t, kv.Remove("cola"))
	_, err = kv.Get("cola")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Removing an absent key is not an error
	assert.NoError(t, kv.Remove("cola"))
}

func TestSQLiteKV_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asistencia.db")

	kv, err := NewSQLiteKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set("cola", []byte(`{"acciones":[]}`)))
	require.NoError(t, kv.Close())

	reopened, err := NewSQLiteKV(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("cola")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"acciones":[]}`), got)
}
