package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/partdb/backend/internal/domain/shared"
)

// GormStructuralRepository stores one kind of tree element. PT is the pointer
// type of T so the repository can hand out *T values.
type GormStructuralRepository[T any, PT interface {
	*T
	shared.Structural
}] struct {
	db *gorm.DB
}

// NewGormStructuralRepository creates a repository for the tree element T
func NewGormStructuralRepository[T any, PT interface {
	*T
	shared.Structural
}](db *gorm.DB) *GormStructuralRepository[T, PT] {
	return &GormStructuralRepository[T, PT]{db: db}
}

// FindByID finds an element by its ID
func (r *GormStructuralRepository[T, PT]) FindByID(ctx context.Context, id uint) (*T, error) {
	var el T
	if err := conn(ctx, r.db).First(&el, id).Error; err != nil {
		return nil, translate(err)
	}
	return &el, nil
}

// FindAll returns every element ordered by name
func (r *GormStructuralRepository[T, PT]) FindAll(ctx context.Context) ([]T, error) {
	var els []T
	if err := conn(ctx, r.db).Order("name ASC").Find(&els).Error; err != nil {
		return nil, err
	}
	return els, nil
}

// FindChildren returns the direct children of parentID, or the roots if
// parentID is nil
func (r *GormStructuralRepository[T, PT]) FindChildren(ctx context.Context, parentID *uint) ([]T, error) {
	var els []T
	q := conn(ctx, r.db)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	if err := q.Order("name ASC").Find(&els).Error; err != nil {
		return nil, err
	}
	return els, nil
}

// FindByNameAndParent finds the sibling named name below parentID
func (r *GormStructuralRepository[T, PT]) FindByNameAndParent(ctx context.Context, name string, parentID *uint) (*T, error) {
	var el T
	q := conn(ctx, r.db).Where("name = ?", name)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	if err := q.First(&el).Error; err != nil {
		return nil, translate(err)
	}
	return &el, nil
}

// Save creates or updates an element
func (r *GormStructuralRepository[T, PT]) Save(ctx context.Context, el *T) error {
	return translate(conn(ctx, r.db).Save(el).Error)
}

// Delete deletes an element
func (r *GormStructuralRepository[T, PT]) Delete(ctx context.Context, id uint) error {
	return deleteByID(conn(ctx, r.db), new(T), id)
}

// CountChildren counts the direct children of id
func (r *GormStructuralRepository[T, PT]) CountChildren(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(new(T)).Where("parent_id = ?", id).Count(&count).Error
	return count, err
}
