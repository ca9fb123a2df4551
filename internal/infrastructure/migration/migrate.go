// Package migration keeps the database schema up to date. Postgres runs the
// versioned SQL files through golang-migrate; sqlite and mysql setups use
// gorm's AutoMigrate on the entity models.
package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/partdb/backend/internal/infrastructure/persistence"
)

// AutoSchemaVersion is the schema version AutoMigrate brings a database to.
// It matches the latest SQL migration.
const AutoSchemaVersion uint = 1

// Result describes the outcome of an upgrade
type Result struct {
	From    uint
	To      uint
	Applied bool
}

// Schema is implemented by both migration strategies
type Schema interface {
	Up() (Result, error)
	Version() (uint, bool, error)
	Close() error
}

// Open returns the migration strategy for db's driver
func Open(db *persistence.Database, migrationsPath string, logger *zap.Logger) (Schema, error) {
	if db.Driver == "postgres" || db.Driver == "" {
		sqlDB, err := db.DB.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		return New(sqlDB, migrationsPath, logger)
	}
	return NewAutoMigrator(db.DB, logger), nil
}

// Migrator handles database migrations using golang-migrate
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// New creates a new Migrator on a postgres connection
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{
		migrate: m,
		logger:  logger,
	}, nil
}

// NewFromURL creates a Migrator from database URL
func NewFromURL(databaseURL, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		databaseURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{
		migrate: m,
		logger:  logger,
	}, nil
}

// Up runs all pending migrations
func (m *Migrator) Up() (Result, error) {
	from, dirty, err := m.Version()
	if err != nil {
		return Result{}, err
	}
	if dirty {
		return Result{From: from}, fmt.Errorf("database is dirty at version %d, force a version first", from)
	}
	m.logger.Info("Running migrations up", zap.Uint("from_version", from))

	err = m.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to apply")
		return Result{From: from, To: from}, nil
	}
	if err != nil {
		return Result{From: from}, fmt.Errorf("migration up failed: %w", err)
	}

	to, dirty, err := m.Version()
	if err != nil {
		return Result{From: from}, err
	}
	m.logger.Info("Migrations completed",
		zap.Uint("version", to),
		zap.Bool("dirty", dirty),
	)
	return Result{From: from, To: to, Applied: true}, nil
}

// Down rolls back all migrations
func (m *Migrator) Down() error {
	m.logger.Info("Running migrations down")

	err := m.migrate.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}

	m.logger.Info("All migrations rolled back")
	return nil
}

// Steps applies n migrations (positive = up, negative = down)
func (m *Migrator) Steps(n int) error {
	m.logger.Info("Running migration steps", zap.Int("steps", n))

	err := m.migrate.Steps(n)
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration steps failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info("Migration steps completed",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Version returns the current migration version
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the migration version without running migrations.
// Only for fixing a dirty database.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))

	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}

	m.logger.Info("Migration version forced", zap.Int("version", version))
	return nil
}

// Close closes the migrator and releases resources
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close database: %w", dbErr)
	}
	return nil
}

// AutoMigrator brings sqlite and mysql databases to AutoSchemaVersion
type AutoMigrator struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAutoMigrator creates an AutoMigrator
func NewAutoMigrator(db *gorm.DB, logger *zap.Logger) *AutoMigrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoMigrator{db: db, logger: logger}
}

// Up creates or updates the tables of all models
func (a *AutoMigrator) Up() (Result, error) {
	from, _, err := a.Version()
	if err != nil {
		return Result{}, err
	}
	a.logger.Info("Running auto migration", zap.String("dialect", a.db.Dialector.Name()))
	if err := persistence.AutoMigrate(a.db); err != nil {
		return Result{From: from}, err
	}
	a.logger.Info("Auto migration completed", zap.Uint("version", AutoSchemaVersion))
	return Result{From: from, To: AutoSchemaVersion, Applied: from != AutoSchemaVersion}, nil
}

// Version reports AutoSchemaVersion once the log table exists, zero before.
// An auto-migrated schema is never dirty.
func (a *AutoMigrator) Version() (uint, bool, error) {
	if a.db.Migrator().HasTable("log_entries") {
		return AutoSchemaVersion, false, nil
	}
	return 0, false, nil
}

// Close is a no-op; the connection belongs to the caller
func (a *AutoMigrator) Close() error { return nil }
