package attachment

import (
	"context"

	"github.com/partdb/backend/internal/domain/shared"
)

// AttachmentRepository defines the interface for attachment persistence
type AttachmentRepository interface {
	FindByID(ctx context.Context, id uint) (*Attachment, error)
	FindByElement(ctx context.Context, elementType shared.TargetType, elementID uint) ([]Attachment, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Attachment, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, a *Attachment) error
	Delete(ctx context.Context, id uint) error
	CountByType(ctx context.Context, attachmentTypeID uint) (int64, error)
	CountByStorageKey(ctx context.Context, key string) (int64, error)
}
