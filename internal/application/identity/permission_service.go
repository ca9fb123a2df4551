package identity

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	applog "github.com/partdb/backend/internal/application/logsystem"
	"github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/domain/identity"
	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

// maxGroupDepth guards against corrupted parent chains
const maxGroupDepth = 64

// PermissionService resolves permissions of users and changes the explicit
// permission values of users and groups
type PermissionService struct {
	users    identity.UserRepository
	groups   identity.GroupRepository
	resolver *identity.PermissionResolver
	tracker  *applog.Tracker
	cache    parts.TagCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewPermissionService creates a new permission service. cache may be nil.
func NewPermissionService(
	users identity.UserRepository,
	groups identity.GroupRepository,
	resolver *identity.PermissionResolver,
	tracker *applog.Tracker,
	cache parts.TagCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{
		users:    users,
		groups:   groups,
		resolver: resolver,
		tracker:  tracker,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Schema returns the permission schema
func (s *PermissionService) Schema() *identity.PermissionSchema {
	return s.resolver.Schema()
}

// IsGranted reports whether the acting user of ctx may do perm.op.
// Requests without a user are checked against the anonymous user.
func (s *PermissionService) IsGranted(ctx context.Context, perm, op string) (bool, error) {
	resolved, err := s.Resolved(ctx, applog.ActorFrom(ctx).UserID)
	if err != nil {
		return false, err
	}
	return resolved.Allowed(perm, op), nil
}

// Require returns FORBIDDEN unless the acting user may do perm.op. A denial
// is written to the log as user_not_allowed.
func (s *PermissionService) Require(ctx context.Context, path, perm, op string) error {
	ok, err := s.IsGranted(ctx, perm, op)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	s.Denied(ctx, path, "Missing permission "+perm+"."+op)
	return shared.NewDomainError("FORBIDDEN", "You are not allowed to do this ("+perm+"."+op+")")
}

// Denied records a user_not_allowed entry for path
func (s *PermissionService) Denied(ctx context.Context, path, message string) {
	if s.tracker == nil {
		return
	}
	if err := s.tracker.Recorder().Add(ctx, logsystem.NewUserNotAllowed(path, message)); err != nil {
		s.logger.Warn("Failed to record denied access", zap.String("path", path), zap.Error(err))
	}
}

// Resolved returns the effective permissions of userID (nil for anonymous)
func (s *PermissionService) Resolved(ctx context.Context, userID *uint) (ResolvedPermissions, error) {
	user, err := s.userOrAnonymous(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := "permissions_user_" + strconv.FormatUint(uint64(user.ID), 10)
	cacheable := s.cache != nil && user.ID != 0
	if cacheable {
		var cached ResolvedPermissions
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return cached, nil
		}
		if err != nil {
			s.logger.Warn("Permission cache read failed", zap.Error(err))
		}
	}

	resolved, err := s.resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := s.cache.Set(ctx, key, resolved, s.cacheTTL, parts.UserTag(user.ID), parts.TagUser, parts.TagGroups); err != nil {
			s.logger.Warn("Permission cache write failed", zap.Error(err))
		}
	}
	return resolved, nil
}

// ResolvedFor resolves the permissions of a loaded user without caching
func (s *PermissionService) ResolvedFor(ctx context.Context, user *identity.User) (ResolvedPermissions, error) {
	return s.resolve(ctx, user)
}

func (s *PermissionService) resolve(ctx context.Context, user *identity.User) (ResolvedPermissions, error) {
	chain, err := s.GroupChain(ctx, user.GroupID)
	if err != nil {
		return nil, err
	}
	schema := s.resolver.Schema()
	out := make(ResolvedPermissions, len(schema.Perms))
	for _, perm := range schema.PermissionNames() {
		ops := make(map[string]bool)
		for _, op := range schema.OperationNames(perm) {
			ops[op] = s.resolver.IsAllowed(user, chain, perm, op)
		}
		out[perm] = ops
	}
	return out, nil
}

func (s *PermissionService) userOrAnonymous(ctx context.Context, userID *uint) (*identity.User, error) {
	if userID != nil {
		u, err := s.users.FindByID(ctx, *userID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	u, err := s.users.FindByUsername(ctx, identity.AnonymousUsername)
	if errors.Is(err, shared.ErrNotFound) {
		// without an anonymous user, unauthenticated requests get nothing
		return &identity.User{Username: identity.AnonymousUsername}, nil
	}
	return u, err
}

// GroupChain returns the group groupID followed by its ancestors
func (s *PermissionService) GroupChain(ctx context.Context, groupID *uint) ([]*identity.Group, error) {
	var chain []*identity.Group
	seen := map[uint]bool{}
	for id := groupID; id != nil && len(chain) < maxGroupDepth; {
		if seen[*id] {
			break
		}
		seen[*id] = true
		g, err := s.groups.FindByID(ctx, *id)
		if errors.Is(err, shared.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, g)
		id = g.ParentID
	}
	return chain, nil
}

// SetUserPermissions changes explicit permission values of a user
func (s *PermissionService) SetUserPermissions(ctx context.Context, userID uint, changes []PermissionChange, comment string) (*identity.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.applyChanges(ctx, u, u, changes, comment); err != nil {
		return nil, err
	}
	return u, nil
}

// SetGroupPermissions changes explicit permission values of a group
func (s *PermissionService) SetGroupPermissions(ctx context.Context, groupID uint, changes []PermissionChange, comment string) (*identity.Group, error) {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.applyChanges(ctx, g, g, changes, comment); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *PermissionService) applyChanges(ctx context.Context, element shared.Trackable, holder identity.PermissionHolder, changes []PermissionChange, comment string) error {
	before, err := shared.TakeSnapshot(element)
	if err != nil {
		return err
	}
	for _, c := range changes {
		value, err := c.parseValue()
		if err != nil {
			return err
		}
		if c.Operation == "" || c.Operation == "*" {
			err = s.resolver.SetAllOperations(holder, c.Permission, value)
		} else {
			err = s.resolver.Set(holder, c.Permission, c.Operation, value)
		}
		if err != nil {
			return err
		}
	}
	return s.tracker.Update(ctx, element, before, comment)
}

// ResolvedPermissions maps permission -> operation -> allowed
type ResolvedPermissions map[string]map[string]bool

// Allowed returns true if perm.op is allowed
func (r ResolvedPermissions) Allowed(perm, op string) bool {
	return r[perm][op]
}
