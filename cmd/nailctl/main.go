// Command nailctl inspects recorded flights offline: it lists flights in the SQL store,
// exports them to JSON, prints phase timelines and uploads exports to the archive.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/corax/nail/internal/api"
	"github.com/corax/nail/internal/config"
	"github.com/corax/nail/internal/database"
	"github.com/corax/nail/internal/logging"
	"github.com/corax/nail/internal/storage/memory"
	"gorm.io/gorm"
)

const usage = `usage: nailctl [-config dir] [-sqlite file] [-out dir] <command> [args]

commands:
  flights            list recorded flights
  export <id...>     write each flight as gzipped JSON into -out
  summary <id|file>  print the phase timeline of a flight or an exported file
  upload <file...>   send exported files to the flight archive (api.serverUrl)`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("nailctl", flag.ContinueOnError)
	fs.SetOutput(errOut)
	configDir := fs.String("config", ".", "directory holding "+config.FileName)
	sqlitePath := fs.String("sqlite", "", "read a SQLite dump instead of Postgres")
	outDir := fs.String("out", ".", "directory export writes to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logs := logging.NewSlogManager()
	logs.SetName("nailctl")
	logs.Setup(errOut, "warn", nil)
	logger := logs.Logger()

	rest := fs.Args()
	if len(rest) == 0 {
		return errors.New(usage)
	}
	command, params := strings.ToLower(rest[0]), rest[1:]

	// summaries of exported files need no database
	if command == "summary" && len(params) == 1 && isExportFile(params[0]) {
		export, err := memory.ReadExport(params[0])
		if err != nil {
			return err
		}
		printSummary(out, export.Summary)
		return nil
	}

	if command == "upload" {
		return uploadFiles(*configDir, params, out, logger)
	}

	db, err := openDB(*configDir, *sqlitePath, logger)
	if err != nil {
		return err
	}
	defer closeDB(db)

	switch command {
	case "flights":
		rows, err := listFlights(db)
		if err != nil {
			return err
		}
		printFlights(out, rows)

	case "export":
		ids, err := parseIDs(params)
		if err != nil {
			return err
		}
		for _, id := range ids {
			export, err := loadFlight(db, id)
			if err != nil {
				return err
			}
			path := filepath.Join(*outDir, memory.FileName(export.Flight, true))
			if err := memory.WriteExport(path, export, true); err != nil {
				return err
			}
			fmt.Fprintln(out, path)
		}

	case "summary":
		ids, err := parseIDs(params)
		if err != nil {
			return err
		}
		for _, id := range ids {
			export, err := loadFlight(db, id)
			if err != nil {
				return err
			}
			printSummary(out, export.Summary)
		}

	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
	return nil
}

func openDB(configDir, sqlitePath string, logger *slog.Logger) (*gorm.DB, error) {
	if sqlitePath != "" {
		if _, err := os.Stat(sqlitePath); err != nil {
			return nil, fmt.Errorf("sqlite dump: %w", err)
		}
		return database.GetSqliteDB(sqlitePath)
	}

	if err := config.Load(configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	}
	db, err := database.GetPostgresDB(config.GetDBConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	return db, nil
}

func uploadFiles(configDir string, files []string, out io.Writer, logger *slog.Logger) error {
	if len(files) == 0 {
		return errors.New("no export files provided")
	}
	if err := config.Load(configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	}
	apiCfg := config.GetAPIConfig()
	client := api.New(apiCfg.ServerURL, apiCfg.APIKey)
	if err := client.Healthcheck(); err != nil {
		return fmt.Errorf("flight archive unreachable: %w", err)
	}

	for _, file := range files {
		export, err := memory.ReadExport(file)
		if err != nil {
			return err
		}
		if err := client.Upload(file, export.Summary); err != nil {
			return fmt.Errorf("upload %s: %w", file, err)
		}
		fmt.Fprintln(out, "uploaded", file)
	}
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func parseIDs(params []string) ([]uint, error) {
	if len(params) == 0 {
		return nil, errors.New("no flight IDs provided")
	}
	ids := make([]uint, 0, len(params))
	for _, p := range params {
		id, err := strconv.ParseUint(p, 10, 32)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid flight ID %q", p)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func isExportFile(arg string) bool {
	return strings.HasSuffix(arg, ".json") || strings.HasSuffix(arg, ".json.gz")
}
