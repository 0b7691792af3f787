package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/OCAP2/spsc/internal/bench"
	"github.com/OCAP2/spsc/internal/config"
	"github.com/OCAP2/spsc/internal/influx"
	"github.com/OCAP2/spsc/internal/storage"
	"github.com/rs/zerolog"
)

func initStorage(cfg config.StorageConfig, log zerolog.Logger) (storage.Backend, error) {
	backend, err := storage.NewBackend(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	log.Info().Str("type", cfg.Type).Msg("Storage initialized")
	return backend, nil
}

// influxExporter is a nil-safe wrapper so callers need not check whether
// InfluxDB export is enabled.
type influxExporter struct {
	m *influx.Manager
}

func initInflux(logsDir string, sessionStart time.Time, log zerolog.Logger) *influxExporter {
	if !config.GetBool("influx.enabled") {
		return &influxExporter{}
	}

	backup := filepath.Join(logsDir, fmt.Sprintf("influx_backup.%s.log.gzip", sessionStart.Format("20060102_150405")))
	m := influx.NewManager(log, backup)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		log.Error().Err(err).Msg("InfluxDB export disabled")
		_ = m.Close()
		return &influxExporter{}
	}
	return &influxExporter{m: m}
}

func (e *influxExporter) write(res bench.Result) error {
	if e == nil || e.m == nil {
		return nil
	}
	return e.m.WriteResult(res)
}

func (e *influxExporter) close() error {
	if e == nil || e.m == nil {
		return nil
	}
	return e.m.Close()
}
