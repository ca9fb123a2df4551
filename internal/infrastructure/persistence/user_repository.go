package persistence

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/partdb/backend/internal/domain/identity"
	"github.com/partdb/backend/internal/domain/shared"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a user by its ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*identity.User, error) {
	var u identity.User
	if err := conn(ctx, r.db).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindByUsername finds a user by its login name
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	var u identity.User
	if err := conn(ctx, r.db).Where("name = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindAll finds users matching the filter. Supported filter keys: group_id, disabled.
func (r *GormUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.User, error) {
	var users []identity.User
	q := r.applyFilter(conn(ctx, r.db).Model(&identity.User{}), filter).
		Order(orderClause(filter, UserSortFields, "name ASC"))
	if err := paginate(q, filter).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Count counts users matching the filter
func (r *GormUserRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(conn(ctx, r.db).Model(&identity.User{}), filter).Count(&count).Error
	return count, err
}

func (r *GormUserRepository) applyFilter(q *gorm.DB, filter shared.Filter) *gorm.DB {
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := likePattern(s)
		q = q.Where("(name LIKE ? OR first_name LIKE ? OR last_name LIKE ? OR email LIKE ?)", like, like, like, like)
	}
	if id, ok := filterUint(filter, "group_id"); ok {
		q = q.Where("group_id = ?", id)
	}
	if v, ok := filterBool(filter, "disabled"); ok {
		q = q.Where("disabled = ?", v)
	}
	return q
}

// Save creates or updates a user
func (r *GormUserRepository) Save(ctx context.Context, u *identity.User) error {
	return translate(conn(ctx, r.db).Save(u).Error)
}

// Delete deletes a user
func (r *GormUserRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(conn(ctx, r.db), &identity.User{}, id)
}

// CountByGroup counts the members of a group
func (r *GormUserRepository) CountByGroup(ctx context.Context, groupID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&identity.User{}).Where("group_id = ?", groupID).Count(&count).Error
	return count, err
}

// ExistsByUsername checks if a login name is taken
func (r *GormUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&identity.User{}).Where("name = ?", username).Count(&count).Error
	return count > 0, err
}

// NewGormGroupRepository creates the group repository
func NewGormGroupRepository(db *gorm.DB) identity.GroupRepository {
	return NewGormStructuralRepository[identity.Group](db)
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
