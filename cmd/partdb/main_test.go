package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "github.com/partdb/backend/internal/application/logsystem"
	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/infrastructure/config"
	"github.com/partdb/backend/internal/infrastructure/persistence"
)

func init() {
	text.DisableColors()
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "partdb", Env: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
		JWT:      config.JWTConfig{Secret: "console-test-secret-0123456789abcdef", Issuer: "partdb-test"},
		Security: config.SecurityConfig{BackupCodeLength: 8, BackupCodeCount: 5},
		Storage:  config.StorageConfig{Backend: "local", LocalPath: t.TempDir()},
	}
}

// newTestApp returns a console on a migrated in-memory database with the
// built-in accounts
func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	db, err := persistence.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db.DB))

	out := &bytes.Buffer{}
	a := &app{in: strings.NewReader(""), out: out, cfg: testConfig(t), db: db}
	t.Cleanup(a.close)

	svc, err := a.services(context.Background())
	require.NoError(t, err)
	_, err = svc.Installer.EnsureDefaults(context.Background(), "initial-secret")
	require.NoError(t, err)
	return a, out
}

func run(t *testing.T, a *app, args ...string) error {
	t.Helper()
	root := newRootCmd(a)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestServices_RequiresSchema(t *testing.T) {
	db, err := persistence.OpenSQLite(":memory:")
	require.NoError(t, err)
	a := &app{out: &bytes.Buffer{}, cfg: testConfig(t), db: db}
	defer a.close()

	_, err = a.services(context.Background())
	assert.ErrorIs(t, err, errNoSchema)
}

func TestUsersList(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, run(t, a, "users", "list"))
	assert.Contains(t, out.String(), "admin")
	assert.Contains(t, out.String(), "anonymous")
}

func TestUsersDisableAndEnable(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, run(t, a, "users", "disable", "admin", "-m", "maintenance"))
	assert.Contains(t, out.String(), "admin disabled.")

	admin, err := a.svc.Users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.Disabled)

	entries, _, err := a.svc.LogService.List(ctx, applog.LogListFilter{Types: []string{"element_edited"}, TargetType: "user"})
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if e.Comment == "maintenance" {
			found = true
			assert.Equal(t, applog.ConsoleUsername, e.Username)
		}
	}
	assert.True(t, found, "the change is logged with its comment")

	out.Reset()
	require.NoError(t, run(t, a, "users", "disable", "admin"))
	assert.Contains(t, out.String(), "already disabled")

	require.NoError(t, run(t, a, "users", "enable", "admin"))
	admin, err = a.svc.Users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.False(t, admin.Disabled)
}

func TestUsersDisable_UnknownUser(t *testing.T) {
	a, _ := newTestApp(t)
	err := run(t, a, "users", "disable", "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody")
}

func TestUsersSetPassword_FromStdin(t *testing.T) {
	a, out := newTestApp(t)
	a.in = strings.NewReader("new-secret\n")

	require.NoError(t, run(t, a, "users", "set-password", "admin", "--need-change"))
	assert.Contains(t, out.String(), "Password of admin changed.")

	admin, err := a.svc.Users.GetByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.True(t, admin.NeedPwChange)

	entries, _, err := a.svc.LogService.List(context.Background(), applog.LogListFilter{Types: []string{"security_event"}})
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestTerminalFd(t *testing.T) {
	_, ok := terminalFd(strings.NewReader("secret\n"))
	assert.False(t, ok)

	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()
	_, ok = terminalFd(f)
	assert.False(t, ok, "a redirected file is read like a pipe")
}

func TestUsersSetPassword_FromFile(t *testing.T) {
	a, out := newTestApp(t)
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString("from-a-file\n")
	require.NoError(t, err)
	_, err = f.Seek(0, 0)
	require.NoError(t, err)
	a.in = f

	require.NoError(t, run(t, a, "users", "set-password", "admin"))
	assert.Contains(t, out.String(), "Password of admin changed.")
}

func TestUsersSetPassword_TooShort(t *testing.T) {
	a, _ := newTestApp(t)
	err := run(t, a, "users", "set-password", "admin", "--password", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least")
}

func TestLogsShow(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, run(t, a, "users", "disable", "anonymous", "-m", "lock down"))
	out.Reset()

	require.NoError(t, run(t, a, "logs", "show", "--type", "element_edited", "--target-type", "user", "-n", "5"))
	assert.Contains(t, out.String(), "element_edited")
	assert.Contains(t, out.String(), "user #")
	assert.Contains(t, out.String(), "lock down")
}

func TestLogsShow_InvalidLevel(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, run(t, a, "logs", "show", "--min-level", "loud"))
}

func TestFixturesLoad(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, run(t, a, "fixtures", "load", "--parts", "3", "--manufacturers", "2", "--suppliers", "1", "--boxes", "1", "--seed", "5"))
	assert.Contains(t, out.String(), "seed 5")

	_, total, err := a.svc.Parts.List(context.Background(), appparts.PartListFilter{PageSize: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	err = run(t, a, "fixtures", "load", "--parts", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
}

func TestCheckRequirements(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, run(t, a, "check-requirements"))
	s := out.String()
	assert.Contains(t, s, "Database")
	assert.Contains(t, s, "sqlite")
	assert.Contains(t, s, "Attachment storage")
	assert.Contains(t, s, "Label PDF renderer")
	assert.NotContains(t, s, "failed")

	out.Reset()
	require.NoError(t, run(t, a, "check-requirements", "--only-issues"))
	assert.NotContains(t, out.String(), "Database")
	assert.Contains(t, out.String(), "Label PDF renderer")
}

func TestCheckRequirements_MissingChrome(t *testing.T) {
	a, out := newTestApp(t)
	a.cfg.Labels.ChromePath = "/nonexistent/chrome-binary"

	err := run(t, a, "check-requirements")
	assert.ErrorIs(t, err, errRequirementsFailed)
	assert.Contains(t, out.String(), "failed")
}

func TestChromeCheck(t *testing.T) {
	_, status, _ := chromeCheck("")
	assert.Equal(t, statusWarning, status)
	_, status, msg := chromeCheck("ws://browser:9222")
	assert.Equal(t, statusOK, status)
	assert.Contains(t, msg, "remote")
}
