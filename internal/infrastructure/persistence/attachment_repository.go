package persistence

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/partdb/backend/internal/domain/attachment"
	"github.com/partdb/backend/internal/domain/shared"
)

// GormAttachmentRepository implements attachment.AttachmentRepository using GORM
type GormAttachmentRepository struct {
	db *gorm.DB
}

// NewGormAttachmentRepository creates a new GormAttachmentRepository
func NewGormAttachmentRepository(db *gorm.DB) *GormAttachmentRepository {
	return &GormAttachmentRepository{db: db}
}

// FindByID finds an attachment by its ID
func (r *GormAttachmentRepository) FindByID(ctx context.Context, id uint) (*attachment.Attachment, error) {
	var a attachment.Attachment
	if err := conn(ctx, r.db).First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// FindByElement returns the attachments of an element
func (r *GormAttachmentRepository) FindByElement(ctx context.Context, elementType shared.TargetType, elementID uint) ([]attachment.Attachment, error) {
	var result []attachment.Attachment
	if err := conn(ctx, r.db).Where("element_type = ? AND element_id = ?", elementType, elementID).
		Order("id ASC").Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// FindAll finds attachments matching the filter. Supported filter keys:
// element_type, element_id, attachment_type_id, private.
func (r *GormAttachmentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]attachment.Attachment, error) {
	var result []attachment.Attachment
	q := r.applyFilter(conn(ctx, r.db).Model(&attachment.Attachment{}), filter).
		Order(orderClause(filter, AttachmentSortFields, "id ASC"))
	if err := paginate(q, filter).Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// Count counts attachments matching the filter
func (r *GormAttachmentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(conn(ctx, r.db).Model(&attachment.Attachment{}), filter).Count(&count).Error
	return count, err
}

func (r *GormAttachmentRepository) applyFilter(q *gorm.DB, filter shared.Filter) *gorm.DB {
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := likePattern(s)
		q = q.Where("(name LIKE ? OR original_filename LIKE ?)", like, like)
	}
	if t, ok := filter.Filters["element_type"].(string); ok && t != "" {
		q = q.Where("element_type = ?", t)
	}
	if id, ok := filterUint(filter, "element_id"); ok {
		q = q.Where("element_id = ?", id)
	}
	if id, ok := filterUint(filter, "attachment_type_id"); ok {
		q = q.Where("attachment_type_id = ?", id)
	}
	if v, ok := filterBool(filter, "private"); ok {
		q = q.Where("private = ?", v)
	}
	return q
}

// Save creates or updates an attachment
func (r *GormAttachmentRepository) Save(ctx context.Context, a *attachment.Attachment) error {
	return translate(conn(ctx, r.db).Save(a).Error)
}

// Delete deletes an attachment
func (r *GormAttachmentRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(conn(ctx, r.db), &attachment.Attachment{}, id)
}

// CountByType counts attachments of an attachment type
func (r *GormAttachmentRepository) CountByType(ctx context.Context, attachmentTypeID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&attachment.Attachment{}).Where("attachment_type_id = ?", attachmentTypeID).Count(&count).Error
	return count, err
}

// CountByStorageKey counts attachments sharing a stored file
func (r *GormAttachmentRepository) CountByStorageKey(ctx context.Context, key string) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&attachment.Attachment{}).Where("storage_key = ?", key).Count(&count).Error
	return count, err
}

var _ attachment.AttachmentRepository = (*GormAttachmentRepository)(nil)
