// Package backend selects and constructs the snapshot store from
// configuration.
package backend

import (
	"fmt"

	"tally/internal/config"
	"tally/internal/log"
	"tally/internal/storage"
)

// Type identifies a storage backend.
type Type string

const (
	DocumentBackend Type = "document"
	SQLiteBackend   Type = "sqlite"
	MemoryBackend   Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case DocumentBackend, SQLiteBackend, MemoryBackend:
		return true
	}
	return false
}

// Factory creates stores based on configuration.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(log.ComponentStorage)}
}

// CreateStore builds the store named by cfg.DataBackend.
func (f *Factory) CreateStore(cfg *config.Config) (storage.Store, error) {
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch t {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", log.FieldPath, cfg.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return storage.NewMemoryStore(), nil
	default:
		f.logger.Info("Initialized document backend",
			log.FieldPath, cfg.DocumentPath,
			"backup_path", cfg.BackupPath)
		return storage.NewDocumentStore(cfg.DocumentPath, cfg.BackupPath), nil
	}
}
