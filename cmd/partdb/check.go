package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	appidentity "github.com/partdb/backend/internal/application/identity"
	"github.com/partdb/backend/internal/infrastructure/cache"
	"github.com/partdb/backend/internal/infrastructure/messaging"
	"github.com/partdb/backend/internal/infrastructure/storage"
)

type checkStatus int

const (
	statusOK checkStatus = iota
	statusSkipped
	statusWarning
	statusFailed
)

func (s checkStatus) String() string {
	switch s {
	case statusOK:
		return text.FgGreen.Sprint("ok")
	case statusSkipped:
		return text.FgHiBlack.Sprint("skipped")
	case statusWarning:
		return text.FgYellow.Sprint("warning")
	default:
		return text.FgRed.Sprint("failed")
	}
}

type checkResult struct {
	Name    string
	Status  checkStatus
	Message string
}

const probeKey = ".partdb-check"

var errRequirementsFailed = errors.New("some requirements are not met")

func newCheckCmd(a *app) *cobra.Command {
	var onlyIssues bool
	cmd := &cobra.Command{
		Use:   "check-requirements",
		Short: "Check that the configured services are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results := a.checkRequirements(cmd.Context())

			t := a.table()
			t.AppendHeader(table.Row{"Check", "Status", "Details"})
			failed := false
			for _, r := range results {
				failed = failed || r.Status == statusFailed
				if onlyIssues && r.Status < statusWarning {
					continue
				}
				t.AppendRow(table.Row{r.Name, r.Status, r.Message})
			}
			t.Render()
			if failed {
				return errRequirementsFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&onlyIssues, "only-issues", false, "only show warnings and failures")
	return cmd
}

// checkRequirements runs all checks. Checks that need the database are
// skipped when the connection fails.
func (a *app) checkRequirements(ctx context.Context) []checkResult {
	var results []checkResult
	add := func(name string, status checkStatus, format string, args ...any) {
		results = append(results, checkResult{Name: name, Status: status, Message: fmt.Sprintf(format, args...)})
	}

	cfg, err := a.config()
	if err != nil {
		add("Configuration", statusFailed, "%v", err)
		return results
	}
	add("Configuration", statusOK, "environment %s", cfg.App.Env)

	dbReady := false
	if db, err := a.database(); err != nil {
		add("Database", statusFailed, "%v", err)
	} else if err := db.Ping(); err != nil {
		add("Database", statusFailed, "%v", err)
	} else {
		add("Database", statusOK, "%s", driverName(cfg.Database.Driver))
		dbReady = true
	}

	if !dbReady {
		add("Schema", statusSkipped, "no database connection")
		add("Admin account", statusSkipped, "no database connection")
	} else if svc, err := a.services(ctx); err != nil {
		add("Schema", statusFailed, "%v", err)
		add("Admin account", statusSkipped, "no schema")
	} else {
		add("Schema", statusOK, "log table present")
		admin, err := svc.Users.GetByUsername(ctx, appidentity.AdminUsername)
		switch {
		case err != nil:
			add("Admin account", statusWarning, "no %q user, run \"migrate up\"", appidentity.AdminUsername)
		case admin.Disabled:
			add("Admin account", statusWarning, "%q is disabled", admin.Username)
		default:
			add("Admin account", statusOK, "%q is active", admin.Username)
		}
	}

	name, status, msg := a.checkStorage(ctx)
	add(name, status, "%s", msg)

	tagCache, err := cache.NewFactory(cfg.Cache, cfg.Redis, cache.WithLogger(a.logger()), cache.WithInMemoryFallback(false)).Create()
	if err != nil {
		add("Cache", statusFailed, "%v", err)
	} else {
		backend := cfg.Cache.Backend
		if backend == "" {
			backend = "memory"
		}
		add("Cache", statusOK, "%s", backend)
		_ = tagCache.Close()
	}

	name, status, msg = chromeCheck(cfg.Labels.ChromePath)
	add(name, status, "%s", msg)

	if cfg.Mail.Enabled() {
		add("Mailer", statusOK, "configured")
	} else {
		add("Mailer", statusWarning, "no mailer configured, password reset mails are disabled")
	}

	if !cfg.Audit.ForwardEnabled {
		add("Message broker", statusSkipped, "log forwarding is disabled")
	} else {
		sink := messaging.NewAMQPSink(cfg.Messaging, a.logger())
		if err := sink.Connect(); err != nil {
			add("Message broker", statusFailed, "%v", err)
		} else {
			add("Message broker", statusOK, "exchange %s", cfg.Messaging.Exchange)
		}
		_ = sink.Close()
	}

	return results
}

// checkStorage writes and removes a probe object
func (a *app) checkStorage(ctx context.Context) (string, checkStatus, string) {
	const name = "Attachment storage"
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := storage.NewObjectStorage(ctx, a.cfg.Storage, a.logger())
	if err != nil {
		return name, statusFailed, err.Error()
	}
	body := []byte("ok")
	if err := store.Put(ctx, probeKey, bytes.NewReader(body), int64(len(body)), "text/plain"); err != nil {
		return name, statusFailed, fmt.Sprintf("%s is not writable: %v", store.Backend(), err)
	}
	if err := store.Delete(ctx, probeKey); err != nil {
		return name, statusWarning, fmt.Sprintf("%s probe not removed: %v", store.Backend(), err)
	}
	return name, statusOK, store.Backend()
}

func chromeCheck(path string) (string, checkStatus, string) {
	const name = "Label PDF renderer"
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return name, statusWarning, "no chrome path configured, labels are HTML only"
	case strings.Contains(path, "://"):
		return name, statusOK, "remote browser " + path
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return name, statusFailed, err.Error()
	}
	return name, statusOK, resolved
}

func driverName(driver string) string {
	if driver == "" {
		return "postgres"
	}
	return driver
}
