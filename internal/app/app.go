// Package app assembles a guidance program with its logging, telemetry, flight recorder
// and host bridge, in the order each depends on the last.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/corax/nail/internal/aiming"
	"github.com/corax/nail/internal/api"
	"github.com/corax/nail/internal/config"
	"github.com/corax/nail/internal/dispatcher"
	"github.com/corax/nail/internal/guidance"
	"github.com/corax/nail/internal/logging"
	"github.com/corax/nail/internal/missile"
	intOtel "github.com/corax/nail/internal/otel"
	"github.com/corax/nail/internal/recorder"
	"github.com/corax/nail/internal/storage"
	"github.com/corax/nail/internal/storage/memory"
	"github.com/corax/nail/pkg/core"
	"github.com/corax/nail/pkg/host"
	"github.com/corax/nail/pkg/hostbridge"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Programs a runtime can host.
const (
	ProgramMissile = "missile"
	ProgramAiming  = "aiming"
)

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

// Options describe the program to run and where it lives.
type Options struct {
	Program   string
	ConfigDir string
	DataDir   string // sqlite dumps and influx backups, defaults to ConfigDir
	Grid      host.GridTerminal
	Self      host.ProgrammableBlock // required by the missile program
	LogWriter io.Writer              // replaces the session log file when set
	Now       func() time.Time
}

// Runtime is one running program.
type Runtime struct {
	opts  Options
	start time.Time

	logs    *logging.SlogManager
	logger  *slog.Logger
	logFile *os.File
	otel    *intOtel.Provider

	storageType string
	backend     storage.Backend
	dispatcher  *dispatcher.Dispatcher
	recorder    *recorder.Recorder
	bridge      *hostbridge.Bridge

	missile *missile.Controller
	aiming  *aiming.Controller

	closeOnce sync.Once
	closeErr  error
}

// New builds the runtime and starts a flight. Storage failures fall back to the memory
// backend so the program keeps flying.
func New(opts Options) (*Runtime, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DataDir == "" {
		opts.DataDir = opts.ConfigDir
	}
	if opts.Grid == nil {
		return nil, errors.New("no grid terminal")
	}
	switch opts.Program {
	case ProgramMissile:
		if opts.Self == nil {
			return nil, errors.New("missile program needs its programmable block")
		}
	case ProgramAiming:
	default:
		return nil, fmt.Errorf("unknown program: %q", opts.Program)
	}

	r := &Runtime{opts: opts, start: opts.Now()}

	r.logs = logging.NewSlogManager()
	r.logs.SetName(opts.Program)
	r.logs.Setup(opts.LogWriter, "info", nil)
	r.logger = r.logs.Logger()

	if err := config.Load(opts.ConfigDir); err != nil {
		r.logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		r.logger.Info("Loaded config")
	}

	r.setupLogging()

	if err := r.setupStorage(); err != nil {
		if r.logFile != nil {
			_ = r.logFile.Close()
		}
		return nil, err
	}

	d, err := dispatcher.New(r.logger)
	if err != nil {
		r.closeStorage()
		if r.logFile != nil {
			_ = r.logFile.Close()
		}
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	r.dispatcher = d
	r.recorder = recorder.New(r.backend, r.logger)
	r.recorder.RegisterHandlers(d, config.GetStorageConfig().BufferSize)

	switch opts.Program {
	case ProgramMissile:
		r.missile = missile.NewController(opts.Grid, opts.Self, missileConfig(config.GetMissileConfig()),
			missile.WithLogger(r.logger), missile.WithClock(opts.Now))
	case ProgramAiming:
		r.aiming = aiming.NewController(opts.Grid, aimingConfig(config.GetAimingConfig()),
			aiming.WithLogger(r.logger), aiming.WithClock(opts.Now))
	}

	r.registerHandlers()
	r.bridge = hostbridge.New(d, Version)

	flight := &core.Flight{
		ProgramName: opts.Program,
		StartTime:   r.start,
		Settings:    flightSettings(opts.Program),
	}
	if err := r.recorder.Start(flight); err != nil {
		r.logger.Error("Failed to start flight recording", "error", err)
	}

	r.logger.Info("Runtime ready", "program", opts.Program, "version", Version, "storage", r.storageType)
	return r, nil
}

// setupLogging opens the session log file and re-creates the logger with it, the OTel
// bridge and the flight context.
func (r *Runtime) setupLogging() {
	w := r.opts.LogWriter
	if w == nil {
		logsDir := config.GetString("logsDir")
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			r.logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
		}
		path := logging.LogFilePath(logsDir, r.opts.Program, r.start)
		if _, err := os.Stat(path); err == nil {
			_ = os.Rename(path, path+".old")
		}
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			r.logger.Error("Failed to create/open log file!", "error", err, "path", path)
		} else {
			r.logFile = f
			w = f
			r.logger.Info("Begin logging in logs directory", "path", path)
		}
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		provider, err := intOtel.New(intOtel.FromConfig(otelCfg, w))
		if err != nil {
			r.logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			r.otel = provider
			r.logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	var logProvider *sdklog.LoggerProvider
	if r.otel != nil {
		logProvider = r.otel.LoggerProvider()
	}

	r.logs.SetContextProvider(func() []slog.Attr {
		if r.recorder == nil {
			return nil
		}
		attrs := []slog.Attr{slog.Uint64("flightId", uint64(r.recorder.FlightID()))}
		if r.opts.Program == ProgramMissile {
			attrs = append(attrs, slog.String("phase", r.recorder.Phase().String()))
		}
		return attrs
	})
	r.logs.Setup(w, config.GetString("logLevel"), logProvider)
	r.logger = r.logs.Logger()
}

func (r *Runtime) setupStorage() error {
	storageCfg := config.GetStorageConfig()
	backend, err := NewStorageBackend(storageCfg, StorageDeps{
		Logger:       r.logger,
		DataDir:      r.opts.DataDir,
		Program:      r.opts.Program,
		SessionStart: r.start,
		DB:           config.GetDBConfig(),
		API:          config.GetAPIConfig(),
		Influx:       config.GetInfluxConfig(),
	})
	if err == nil {
		err = backend.Init()
		if err != nil {
			_ = backend.Close()
		}
	}
	if err != nil {
		if storageCfg.Type == "memory" || storageCfg.Type == "" {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		r.logger.Error("Failed to initialize storage backend, recording in memory", "type", storageCfg.Type, "error", err)
		backend = memory.New(storageCfg.Memory)
		if err := backend.Init(); err != nil {
			return fmt.Errorf("failed to initialize memory storage: %w", err)
		}
		storageCfg.Type = "memory"
	}
	r.backend = backend
	r.storageType = storageCfg.Type
	return nil
}

func (r *Runtime) closeStorage() {
	if err := r.backend.Close(); err != nil {
		r.logger.Error("Failed to close storage", "error", err)
	}
}

// Call handles a raw host call, see hostbridge.Bridge.Call.
func (r *Runtime) Call(input string) string {
	return r.bridge.Call(input)
}

// CallArgs handles a host call with separate arguments.
func (r *Runtime) CallArgs(command string, args []string) string {
	return r.bridge.CallArgs(command, args)
}

// Logger returns the runtime's logger.
func (r *Runtime) Logger() *slog.Logger { return r.logger }

// Backend returns the storage backend in use.
func (r *Runtime) Backend() storage.Backend { return r.backend }

// StorageType is the name of the storage backend in use.
func (r *Runtime) StorageType() string { return r.storageType }

// Recorder returns the flight recorder.
func (r *Runtime) Recorder() *recorder.Recorder { return r.recorder }

// Close drains queued records, ends the flight, closes storage and flushes logs.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		r.dispatcher.Close()

		if err := r.recorder.End(); err != nil {
			errs = append(errs, err)
		}
		if err := r.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
		if u, ok := r.backend.(storage.Uploadable); ok && u.GetExportedFilePath() != "" {
			r.logger.Info("Flight exported", "path", u.GetExportedFilePath())
			r.upload(u)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.logs.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
		if r.otel != nil {
			if err := r.otel.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if r.logFile != nil {
			if err := r.logFile.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}

// upload sends the exported flight to the archive when uploads are enabled. A failed
// upload leaves the export on disk for nailctl upload.
func (r *Runtime) upload(u storage.Uploadable) {
	apiCfg := config.GetAPIConfig()
	if !apiCfg.UploadFlights {
		return
	}
	path := u.GetExportedFilePath()
	client := api.New(apiCfg.ServerURL, apiCfg.APIKey)
	if err := client.Upload(path, u.GetExportMetadata()); err != nil {
		r.logger.Error("Failed to upload flight", "path", path, "error", err)
		return
	}
	r.logger.Info("Flight uploaded", "path", path, "server", apiCfg.ServerURL)
}

func missileConfig(c config.MissileConfig) missile.Config {
	return missile.Config{
		GroupTag:       c.GroupTag,
		ThrustTag:      c.ForwardThrustTag,
		StatusSurface:  c.StatusSurface,
		LaunchDistance: c.LaunchDistance,
		Tuning: guidance.Tuning{
			MinAngle:    c.MinAngle,
			Coefficient: c.ControlCoefficient,
			MinRate:     c.MinTurnRate,
			MaxRate:     c.MaxTurnRate,
		},
	}
}

func aimingConfig(c config.AimingConfig) aiming.Config {
	return aiming.Config{
		GroupTag:           c.GroupTag,
		HorizontalRotorTag: c.HorizontalRotorTag,
		VerticalRotorTag:   c.VerticalRotorTag,
		MissileTag:         c.MissileTag,
		HorizontalSpeed:    c.HorizontalSpeed,
		VerticalSpeed:      c.VerticalSpeed,
		LockDistance:       c.LockDistance,
		StatusSurface:      c.StatusSurface,
		TargetSurface:      c.TargetSurface,
	}
}

// flightSettings snapshots the program's own settings. Connection settings are left out
// so credentials never end up in flight records.
func flightSettings(program string) map[string]any {
	all := config.Settings()
	if s, ok := all[program].(map[string]any); ok {
		return s
	}
	return nil
}
