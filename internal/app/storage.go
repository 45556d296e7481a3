package app

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/corax/nail/internal/config"
	"github.com/corax/nail/internal/influx"
	"github.com/corax/nail/internal/storage"
	influxstorage "github.com/corax/nail/internal/storage/influx"
	"github.com/corax/nail/internal/storage/memory"
	pgstorage "github.com/corax/nail/internal/storage/postgres"
	sqlitestorage "github.com/corax/nail/internal/storage/sqlite"
	wsstorage "github.com/corax/nail/internal/storage/websocket"
)

// StorageDeps is what the storage factory needs besides the storage settings.
type StorageDeps struct {
	Logger       *slog.Logger
	DataDir      string // where sqlite dumps and influx backups are written
	Program      string
	SessionStart time.Time
	DB           config.DBConfig
	API          config.APIConfig
	Influx       config.InfluxConfig
}

// NewStorageBackend creates the backend selected by cfg.Type. The backend is not initialised.
func NewStorageBackend(cfg config.StorageConfig, deps StorageDeps) (storage.Backend, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	stamp := deps.SessionStart.Format("20060102_150405")

	switch cfg.Type {
	case "", "memory":
		deps.Logger.Info("Memory storage backend initialized", "outputDir", cfg.Memory.OutputDir)
		return memory.New(cfg.Memory), nil

	case "sqlite":
		dumpPath := filepath.Join(deps.DataDir, fmt.Sprintf("%s_%s.db", deps.Program, stamp))
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
		}, deps.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		deps.Logger.Info("SQLite storage backend initialized", "dumpPath", dumpPath)
		return backend, nil

	case "postgres":
		deps.Logger.Info("Postgres storage backend initialized", "host", deps.DB.Host, "database", deps.DB.Database)
		return pgstorage.New(deps.DB, deps.Logger), nil

	case "websocket":
		wsURL := wsstorage.HTTPToWS(deps.API.ServerURL) + "/api"
		deps.Logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: deps.API.APIKey,
		}, deps.Logger), nil

	case "influx":
		if !deps.Influx.Enabled {
			return nil, fmt.Errorf("influx storage selected but influx.enabled is false")
		}
		backupPath := filepath.Join(deps.DataDir, fmt.Sprintf("%s_%s.lp.gz", deps.Program, stamp))
		deps.Logger.Info("InfluxDB storage backend initialized", "url", deps.Influx.URL(), "backup", backupPath)
		return influxstorage.New(influx.NewManager(deps.Influx, backupPath, deps.Logger)), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
