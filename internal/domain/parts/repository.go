package parts

import (
	"context"

	"github.com/partdb/backend/internal/domain/shared"
)

// PartRepository defines the interface for part persistence
type PartRepository interface {
	FindByID(ctx context.Context, id uint) (*Part, error)
	FindByIDs(ctx context.Context, ids []uint) ([]Part, error)
	// FindAll finds parts matching the filter. Supported filter keys:
	// category_id, footprint_id, manufacturer_id, storage_location_id,
	// favorite, needs_review.
	FindAll(ctx context.Context, filter shared.Filter) ([]Part, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, part *Part) error
	Delete(ctx context.Context, id uint) error
	ExistsByIPN(ctx context.Context, ipn string, excludeID uint) (bool, error)
	FindByProviderReference(ctx context.Context, key, id string) (*Part, error)
	// CountByReference counts parts whose column (category_id, footprint_id,
	// manufacturer_id, part_unit_id) equals id.
	CountByReference(ctx context.Context, column string, id uint) (int64, error)
}

// PartLotRepository defines the interface for part lot persistence
type PartLotRepository interface {
	FindByID(ctx context.Context, id uint) (*PartLot, error)
	FindByPart(ctx context.Context, partID uint) ([]PartLot, error)
	Save(ctx context.Context, lot *PartLot) error
	Delete(ctx context.Context, id uint) error
	// PartIDsAtLocation returns the distinct part IDs having lots at the
	// location, ignoring the lot excludeLotID.
	PartIDsAtLocation(ctx context.Context, locationID uint, excludeLotID uint) ([]uint, error)
	CountByLocation(ctx context.Context, locationID uint) (int64, error)
	CountByOwner(ctx context.Context, ownerID uint) (int64, error)
}
