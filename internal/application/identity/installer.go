package identity

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/partdb/backend/internal/domain/identity"
	"github.com/partdb/backend/internal/domain/shared"
)

// Built-in accounts and groups of a fresh installation
const (
	AdminUsername    = "admin"
	AdminsGroup      = "admins"
	UsersGroup       = "users"
	ReadonlyGroup    = "readonly"
	readOperation    = "read"
	historyOperation = "show_history"
)

// InstallResult lists what EnsureDefaults created
type InstallResult struct {
	CreatedGroups    []string
	CreatedUsers     []string
	AdminPasswordSet bool
}

// Installer creates the built-in groups and users. It writes through the
// repositories directly, the log is not involved.
type Installer struct {
	users    identity.UserRepository
	groups   identity.GroupRepository
	schema   *identity.PermissionSchema
	resolver *identity.PermissionResolver
	logger   *zap.Logger
}

// NewInstaller creates an Installer
func NewInstaller(users identity.UserRepository, groups identity.GroupRepository, schema *identity.PermissionSchema, logger *zap.Logger) *Installer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Installer{
		users:    users,
		groups:   groups,
		schema:   schema,
		resolver: identity.NewPermissionResolver(schema),
		logger:   logger,
	}
}

// EnsureDefaults creates the admins, users and readonly groups, the anonymous
// user (member of readonly) and the admin user (member of admins) when they
// do not exist. adminPassword is set on the admin user if it has none yet;
// an empty adminPassword leaves the admin unable to log in.
func (i *Installer) EnsureDefaults(ctx context.Context, adminPassword string) (*InstallResult, error) {
	res := &InstallResult{}

	allow := true
	admins, err := i.ensureGroup(ctx, res, AdminsGroup, func(g *identity.Group) error {
		for _, perm := range i.schema.PermissionNames() {
			if err := i.resolver.SetAllOperations(g, perm, &allow); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	readonly, err := i.ensureGroup(ctx, res, ReadonlyGroup, i.grantRead)
	if err != nil {
		return nil, err
	}
	if _, err := i.ensureGroup(ctx, res, UsersGroup, func(g *identity.Group) error {
		if err := i.grantRead(g); err != nil {
			return err
		}
		for _, perm := range []string{"parts", "parts_stock"} {
			if err := i.resolver.SetAllOperations(g, perm, &allow); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if _, err := i.ensureUser(ctx, res, identity.AnonymousUsername, readonly.ID); err != nil {
		return nil, err
	}
	admin, err := i.ensureUser(ctx, res, AdminUsername, admins.ID)
	if err != nil {
		return nil, err
	}
	if admin.PasswordHash == "" && adminPassword != "" {
		if err := admin.SetPassword(adminPassword); err != nil {
			return nil, err
		}
		if err := i.users.Save(ctx, admin); err != nil {
			return nil, err
		}
		res.AdminPasswordSet = true
		i.logger.Info("Initial admin password set", zap.String("username", AdminUsername))
	}
	return res, nil
}

// grantRead allows the read and show_history operations of every permission
// that has them
func (i *Installer) grantRead(g *identity.Group) error {
	allow := true
	for _, perm := range i.schema.PermissionNames() {
		for _, op := range []string{readOperation, historyOperation} {
			if !i.schema.IsValid(perm, op) {
				continue
			}
			if err := i.resolver.Set(g, perm, op, &allow); err != nil {
				return err
			}
		}
	}
	return nil
}

func (i *Installer) ensureGroup(ctx context.Context, res *InstallResult, name string, grant func(*identity.Group) error) (*identity.Group, error) {
	g, err := i.groups.FindByNameAndParent(ctx, name, nil)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	g = &identity.Group{Permissions: identity.PermissionData{}}
	g.BaseEntity = shared.NewBaseEntity()
	g.Name = name
	if err := grant(g); err != nil {
		return nil, err
	}
	if err := i.groups.Save(ctx, g); err != nil {
		return nil, err
	}
	res.CreatedGroups = append(res.CreatedGroups, name)
	i.logger.Info("Group created", zap.String("group", name))
	return g, nil
}

func (i *Installer) ensureUser(ctx context.Context, res *InstallResult, name string, groupID uint) (*identity.User, error) {
	u, err := i.users.FindByUsername(ctx, name)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	u, err = identity.NewUser(name, "")
	if err != nil {
		return nil, err
	}
	u.GroupID = &groupID
	if err := i.users.Save(ctx, u); err != nil {
		return nil, err
	}
	res.CreatedUsers = append(res.CreatedUsers, name)
	i.logger.Info("User created", zap.String("username", name))
	return u, nil
}
