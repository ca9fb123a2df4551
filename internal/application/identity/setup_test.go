package identity

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	applog "github.com/partdb/backend/internal/application/logsystem"
	"github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/domain/identity"
	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/infrastructure/auth"
	"github.com/partdb/backend/internal/infrastructure/config"
	"github.com/partdb/backend/internal/infrastructure/persistence"
)

type memTagCache struct {
	mu    sync.Mutex
	items map[string][]byte
	tags  map[string][]string
}

func newMemTagCache() *memTagCache {
	return &memTagCache{items: map[string][]byte{}, tags: map[string][]string{}}
}

func (c *memTagCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memTagCache) Set(_ context.Context, key string, value any, _ time.Duration, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	for _, t := range tags {
		c.tags[t] = append(c.tags[t], key)
	}
	return nil
}

func (c *memTagCache) InvalidateTags(_ context.Context, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tags {
		for _, k := range c.tags[t] {
			delete(c.items, k)
		}
		delete(c.tags, t)
	}
	return nil
}

type fixture struct {
	logs        *persistence.GormLogEntryRepository
	cache       *memTagCache
	users       identity.UserRepository
	groups      identity.GroupRepository
	tracker     *applog.Tracker
	jwt         *auth.JWTService
	blacklist   *auth.InMemoryTokenBlacklist
	permissions *PermissionService
	auth        *AuthService
	userSvc     *UserService
	groupSvc    *GroupService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := persistence.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.AutoMigrate(db.DB))

	logs := persistence.NewGormLogEntryRepository(db.DB)
	recorder := applog.NewRecorder(logs, applog.DefaultSettings())
	tracker := applog.NewTracker(persistence.NewGormElementStore(db.DB), recorder,
		persistence.NewGormTransactionManager(db.DB), nil)

	schema, err := PermissionSchema()
	require.NoError(t, err)

	gen, err := identity.NewBackupCodeGenerator(8, 5)
	require.NoError(t, err)

	f := &fixture{
		logs:      logs,
		cache:     newMemTagCache(),
		users:     persistence.NewGormUserRepository(db.DB),
		groups:    persistence.NewGormGroupRepository(db.DB),
		tracker:   tracker,
		blacklist: auth.NewInMemoryTokenBlacklist(),
		jwt: auth.NewJWTService(config.JWTConfig{
			Secret:                 "identity-test-secret-0123456789ab",
			AccessTokenExpiration:  15 * time.Minute,
			RefreshTokenExpiration: time.Hour,
			Issuer:                 "partdb-test",
			MaxRefreshCount:        5,
		}),
	}
	f.permissions = NewPermissionService(f.users, f.groups, identity.NewPermissionResolver(schema),
		tracker, f.cache, time.Minute, nil)
	f.auth = NewAuthService(f.users, f.permissions, f.jwt, f.blacklist,
		identity.NewBackupCodeManager(gen), tracker, NewLoginThrottle(5, time.Minute),
		AuthServiceConfig{TOTPIssuer: "Part-DB"}, nil)
	f.userSvc = NewUserService(f.users, f.groups, tracker, nil)
	f.groupSvc = NewGroupService(f.groups, f.users, parts.Deps{Tracker: tracker, Cache: f.cache, CacheTTL: time.Minute})
	return f
}

func (f *fixture) group(t *testing.T, name string, parent *uint, perms identity.PermissionData) *identity.Group {
	t.Helper()
	g := &identity.Group{Permissions: perms}
	g.Name = name
	g.ParentID = parent
	require.NoError(t, f.groupSvc.Create(context.Background(), g, ""))
	return g
}

func (f *fixture) user(t *testing.T, name, password string, groupID *uint) *identity.User {
	t.Helper()
	dto, err := f.userSvc.Create(context.Background(), CreateUserInput{Username: name, Password: password, GroupID: groupID})
	require.NoError(t, err)
	u, err := f.users.FindByID(context.Background(), dto.ID)
	require.NoError(t, err)
	return u
}

func (f *fixture) entries(t *testing.T, typ logsystem.Type) []logsystem.LogEntry {
	t.Helper()
	filter := logsystem.DefaultFilter()
	filter.Types = []logsystem.Type{typ}
	found, err := f.logs.FindAll(context.Background(), filter)
	require.NoError(t, err)
	return found
}

func asUser(u *identity.User) context.Context {
	return applog.WithActor(context.Background(), actorOf(u, "127.0.0.1"))
}
