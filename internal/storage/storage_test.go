package storage_test

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/spsc/internal/bench"
	"github.com/OCAP2/spsc/internal/config"
	"github.com/OCAP2/spsc/internal/storage"
	gormstorage "github.com/OCAP2/spsc/internal/storage/gorm"
	"github.com/OCAP2/spsc/internal/storage/memory"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ storage.Backend = (*gormstorage.Backend)(nil)
	_ storage.Backend = (*memory.Backend)(nil)
	_ storage.Backend = storage.Nop{}
)

func TestNewBackend_Types(t *testing.T) {
	log := zerolog.New(io.Discard)

	b, err := storage.NewBackend(config.StorageConfig{Type: "none"}, log)
	require.NoError(t, err)
	assert.IsType(t, storage.Nop{}, b)

	b, err = storage.NewBackend(config.StorageConfig{Type: "memory"}, log)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	_, err = storage.NewBackend(config.StorageConfig{Type: "cassandra"}, log)
	assert.Error(t, err)
}

func TestNewBackend_SqliteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	b, err := storage.NewBackend(config.StorageConfig{Type: "sqlite", SQLitePath: path}, zerolog.New(io.Discard))
	require.NoError(t, err)
	require.NoError(t, b.Init())

	res := bench.Result{RunID: uuid.New(), Messages: 10, StartedAt: time.Now(), Duration: time.Millisecond}
	require.NoError(t, b.Save(res))
	require.NoError(t, b.Close())

	// reopen and read back
	b, err = storage.NewBackend(config.StorageConfig{Type: "sqlite", SQLitePath: path}, zerolog.New(io.Discard))
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	got, err := b.Recent(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, res.RunID, got[0].RunID)
}

func TestNop(t *testing.T) {
	var b storage.Backend = storage.Nop{}
	require.NoError(t, b.Init())
	require.NoError(t, b.Save(bench.Result{}))
	got, err := b.Recent(3)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, b.Close())
}
