// Command partdb is the maintenance console for a Part-DB installation. It
// works directly on the database configured for the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/partdb/backend/internal/bootstrap"
	"github.com/partdb/backend/internal/infrastructure/config"
	"github.com/partdb/backend/internal/infrastructure/logger"
	"github.com/partdb/backend/internal/infrastructure/persistence"
)

var errNoSchema = errors.New("database schema is missing, run \"migrate up\" first")

// app holds the state shared by all commands. The database and the services
// are opened on first use.
type app struct {
	logLevel string
	in       io.Reader
	out      io.Writer

	loadConfig func() (*config.Config, error)

	cfg *config.Config
	log *zap.Logger
	db  *persistence.Database
	svc *bootstrap.Services
}

func newApp() *app {
	return &app{
		in:         os.Stdin,
		out:        os.Stdout,
		loadConfig: config.Load,
	}
}

func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	a.cfg = cfg
	return cfg, nil
}

func (a *app) logger() *zap.Logger {
	if a.log == nil {
		a.log = logger.New(&logger.Config{Level: a.logLevel, Format: "console", Output: "stderr"})
	}
	return a.log
}

func (a *app) database() (*persistence.Database, error) {
	if a.db != nil {
		return a.db, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	db, err := persistence.NewDatabase(&cfg.Database, a.logger(), a.logLevel, cfg.Telemetry.DBSlowQueryThresh)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.db = db
	return db, nil
}

// services opens the database and builds the application services. The
// command fails when the schema has not been created yet.
func (a *app) services(ctx context.Context) (*bootstrap.Services, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	if !db.DB.Migrator().HasTable("log_entries") {
		return nil, errNoSchema
	}
	svc, err := bootstrap.Build(ctx, bootstrap.Options{
		Config:      a.cfg,
		Logger:      a.logger(),
		DB:          db,
		Lightweight: true,
	})
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

func (a *app) close() {
	if a.svc != nil {
		_ = a.svc.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func (a *app) table() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetStyle(table.StyleLight)
	return t
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "partdb",
		Short:         "Part-DB maintenance console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newUsersCmd(a),
		newLogsCmd(a),
		newFixturesCmd(a),
		newCheckCmd(a),
	)
	return root
}

func main() {
	a := newApp()
	err := newRootCmd(a).ExecuteContext(context.Background())
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
