package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/partdb/backend/internal/bootstrap"
	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/infrastructure/config"
	"github.com/partdb/backend/internal/infrastructure/logger"
	"github.com/partdb/backend/internal/infrastructure/migration"
	"github.com/partdb/backend/internal/infrastructure/persistence"
)

const defaultMigrationsPath = "migrations/postgres"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "Path to migrations directory (default: ./"+defaultMigrationsPath+")")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log := logger.New(&logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	defer func() {
		_ = log.Sync()
	}()

	migrationsPath, err := resolvePath(migrationsPath)
	if err != nil {
		log.Fatal("Failed to resolve migrations path", zap.Error(err))
	}
	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("migrations_path", migrationsPath),
	)

	// create and list only touch the file system
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(migrationsPath, args[1], description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return
	case "list":
		migrations, err := migration.ListMigrations(migrationsPath)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		log.Info("Available migrations", zap.Int("count", len(migrations)))
		for _, m := range migrations {
			fmt.Println("  -", m)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level, cfg.Telemetry.DBSlowQueryThresh)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	schema, err := migration.Open(db, migrationsPath, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer func() {
		if err := schema.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	switch command {
	case "up":
		if err := up(context.Background(), cfg, db, schema, log); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}

	case "down":
		m := requireVersioned(schema, log)
		if err := m.Down(); err != nil {
			log.Fatal("Migration down failed", zap.Error(err))
		}

	case "steps", "step":
		if len(args) < 2 {
			log.Fatal("Step count required. Usage: migrate steps <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		if err := requireVersioned(schema, log).Steps(n); err != nil {
			log.Fatal("Migration steps failed", zap.Error(err))
		}

	case "version":
		version, dirty, err := schema.Version()
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version",
				zap.Uint("version", version),
				zap.Bool("dirty", dirty),
			)
		}

	case "force":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		if err := requireVersioned(schema, log).Force(version); err != nil {
			log.Fatal("Force version failed", zap.Error(err))
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

// up migrates the schema, records the update in the event log and creates
// the built-in groups and users
func up(ctx context.Context, cfg *config.Config, db *persistence.Database, schema migration.Schema, log *zap.Logger) error {
	res, upErr := schema.Up()

	svc, err := bootstrap.Build(ctx, bootstrap.Options{Config: cfg, Logger: log, DB: db, Lightweight: true})
	if err != nil {
		if upErr != nil {
			return upErr
		}
		return err
	}
	defer func() {
		_ = svc.Close()
	}()

	if res.Applied || upErr != nil {
		entry := logsystem.NewDatabaseUpdated(
			strconv.FormatUint(uint64(res.From), 10),
			strconv.FormatUint(uint64(res.To), 10),
			upErr == nil,
		)
		if err := svc.Recorder.Add(ctx, entry); err != nil {
			// the log table is missing when the first migration failed
			log.Warn("Failed to record database update", zap.Error(err))
		}
	}
	if upErr != nil {
		return upErr
	}

	result, err := svc.Installer.EnsureDefaults(ctx, cfg.Security.InitialAdminPass)
	if err != nil {
		return fmt.Errorf("create defaults: %w", err)
	}
	if len(result.CreatedGroups) > 0 || len(result.CreatedUsers) > 0 {
		log.Info("Built-in accounts created",
			zap.Strings("groups", result.CreatedGroups),
			zap.Strings("users", result.CreatedUsers),
		)
	}
	if result.AdminPasswordSet {
		log.Info("Initial admin password set from configuration")
	}
	return nil
}

// requireVersioned exits unless the database uses the SQL migrations
func requireVersioned(schema migration.Schema, log *zap.Logger) *migration.Migrator {
	m, ok := schema.(*migration.Migrator)
	if !ok {
		log.Fatal("Command needs versioned migrations; sqlite and mysql databases are auto-migrated")
	}
	return m
}

func resolvePath(path string) (string, error) {
	if path == "" {
		path = defaultMigrationsPath
		if _, err := os.Stat(path); err != nil {
			if execPath, err := os.Executable(); err == nil {
				candidate := filepath.Join(filepath.Dir(execPath), "..", "..", defaultMigrationsPath)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				}
			}
		}
	}
	return filepath.Abs(path)
}

func printUsage() {
	fmt.Println(`Part-DB Database Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations and create the built-in accounts
  down                  Roll back all migrations (postgres only)
  steps <n>             Apply n migrations, negative to roll back (postgres only)
  version               Show current schema version
  force <version>       Force set migration version (postgres only)
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations

Flags:
  -path string          Path to migrations directory (default: ./migrations/postgres)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  PARTDB_DATABASE_DRIVER, PARTDB_DATABASE_HOST, PARTDB_DATABASE_PORT, ...
  PARTDB_SECURITY_INITIAL_ADMIN_PASSWORD sets the admin password on the first run

Examples:
  migrate up
  migrate steps -1
  migrate create add_lot_owner "Owner of part lots"`)
}
