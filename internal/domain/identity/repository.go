package identity

import (
	"context"

	"github.com/partdb/backend/internal/domain/shared"
)

// UserRepository persists users
type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]User, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uint) error
	CountByGroup(ctx context.Context, groupID uint) (int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// GroupRepository persists groups
type GroupRepository interface {
	shared.StructuralRepository[Group]
}
