// Package postgres implements the storage.Backend interface on PostgreSQL.
// Writes go through the queued GORM backend.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/corax/nail/internal/config"
	"github.com/corax/nail/internal/database"
	gormstorage "github.com/corax/nail/internal/storage/gorm"
	"gorm.io/gorm"
)

// Backend connects to Postgres on Init and delegates recording to the GORM backend.
type Backend struct {
	*gormstorage.Backend
	cfg    config.DBConfig
	logger *slog.Logger
}

// New creates a Postgres backend. The connection is opened by Init.
func New(cfg config.DBConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, logger: logger}
}

// NewWithDB creates a backend on an already opened database.
func NewWithDB(db *gorm.DB, logger *slog.Logger) *Backend {
	b := New(config.DBConfig{}, logger)
	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: db, Logger: b.logger})
	return b
}

// Init connects if no database was injected, then migrates and starts the writer.
func (b *Backend) Init() error {
	if b.Backend == nil {
		db, err := database.GetPostgresDB(b.cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.logger.Info("Connected to database", "host", b.cfg.Host, "database", b.cfg.Database)
		b.Backend = gormstorage.New(gormstorage.Dependencies{DB: db, Logger: b.logger})
	}
	return b.Backend.Init()
}

// Close stops the writer. It is safe to call when Init failed.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
