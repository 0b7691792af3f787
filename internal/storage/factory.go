package storage

import (
	"fmt"

	"github.com/OCAP2/spsc/internal/config"
	"github.com/OCAP2/spsc/internal/database"
	gormstorage "github.com/OCAP2/spsc/internal/storage/gorm"
	"github.com/OCAP2/spsc/internal/storage/memory"
	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres", "sqlite":
		dbm := database.NewManager(log)
		if err := dbm.Connect(cfg.Type, cfg.SQLitePath); err != nil {
			return nil, err
		}
		return gormstorage.New(gormstorage.Dependencies{DB: dbm.DB, Closer: dbm, Logger: log}), nil
	case "memory":
		return memory.New(), nil
	case "none", "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
