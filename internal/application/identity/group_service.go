package identity

import (
	"context"

	"github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/domain/identity"
)

// GroupService manages the group tree. Groups behave like the other tree
// elements; a group with members cannot be deleted.
type GroupService = parts.StructuralService[identity.Group, *identity.Group]

// NewGroupService creates the group service
func NewGroupService(groups identity.GroupRepository, users identity.UserRepository, deps parts.Deps) *GroupService {
	return parts.NewStructuralService[identity.Group](groups, deps).
		WithUsageCheck("users", func(ctx context.Context, id uint) (int64, error) {
			return users.CountByGroup(ctx, id)
		})
}
