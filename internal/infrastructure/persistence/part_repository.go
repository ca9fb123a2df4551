package persistence

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/shared"
)

// GormPartRepository implements parts.PartRepository using GORM
type GormPartRepository struct {
	db *gorm.DB
}

// NewGormPartRepository creates a new GormPartRepository
func NewGormPartRepository(db *gorm.DB) *GormPartRepository {
	return &GormPartRepository{db: db}
}

// FindByID finds a part by its ID
func (r *GormPartRepository) FindByID(ctx context.Context, id uint) (*parts.Part, error) {
	var part parts.Part
	if err := conn(ctx, r.db).First(&part, id).Error; err != nil {
		return nil, translate(err)
	}
	return &part, nil
}

// FindByIDs returns the parts with the given IDs ordered by ID
func (r *GormPartRepository) FindByIDs(ctx context.Context, ids []uint) ([]parts.Part, error) {
	var result []parts.Part
	if len(ids) == 0 {
		return result, nil
	}
	if err := conn(ctx, r.db).Where("id IN ?", ids).Order("id ASC").Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// FindAll finds all parts matching the filter
func (r *GormPartRepository) FindAll(ctx context.Context, filter shared.Filter) ([]parts.Part, error) {
	var result []parts.Part
	q := r.applyFilter(conn(ctx, r.db).Model(&parts.Part{}), filter)
	q = q.Order(orderClause(filter, PartSortFields, "name ASC"))
	if err := paginate(q, filter).Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// Count counts parts matching the filter
func (r *GormPartRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(conn(ctx, r.db).Model(&parts.Part{}), filter).Count(&count).Error
	return count, err
}

func (r *GormPartRepository) applyFilter(q *gorm.DB, filter shared.Filter) *gorm.DB {
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := likePattern(s)
		q = q.Where("(name LIKE ? OR description LIKE ? OR ipn LIKE ? OR manufacturer_product_number LIKE ? OR tags LIKE ?)",
			like, like, like, like, like)
	}
	for _, col := range []string{"category_id", "footprint_id", "manufacturer_id", "part_unit_id"} {
		if id, ok := filterUint(filter, col); ok {
			q = q.Where(col+" = ?", id)
		}
	}
	if id, ok := filterUint(filter, "storage_location_id"); ok {
		q = q.Where("id IN (?)", q.Session(&gorm.Session{NewDB: true}).
			Model(&parts.PartLot{}).Select("part_id").Where("storage_location_id = ?", id))
	}
	if v, ok := filterBool(filter, "favorite"); ok {
		q = q.Where("favorite = ?", v)
	}
	if v, ok := filterBool(filter, "needs_review"); ok {
		q = q.Where("needs_review = ?", v)
	}
	return q
}

// Save creates or updates a part
func (r *GormPartRepository) Save(ctx context.Context, part *parts.Part) error {
	return translate(conn(ctx, r.db).Save(part).Error)
}

// Delete deletes a part
func (r *GormPartRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(conn(ctx, r.db), &parts.Part{}, id)
}

// ExistsByIPN checks whether another part already uses ipn
func (r *GormPartRepository) ExistsByIPN(ctx context.Context, ipn string, excludeID uint) (bool, error) {
	var count int64
	q := conn(ctx, r.db).Model(&parts.Part{}).Where("ipn = ?", ipn)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByProviderReference finds the part created from a provider result
func (r *GormPartRepository) FindByProviderReference(ctx context.Context, key, id string) (*parts.Part, error) {
	var part parts.Part
	if err := conn(ctx, r.db).Where("provider_key = ? AND provider_id = ?", key, id).First(&part).Error; err != nil {
		return nil, translate(err)
	}
	return &part, nil
}

// CountByReference counts parts referencing id in column
func (r *GormPartRepository) CountByReference(ctx context.Context, column string, id uint) (int64, error) {
	switch column {
	case "category_id", "footprint_id", "manufacturer_id", "part_unit_id":
	default:
		return 0, shared.NewDomainError("INVALID_INPUT", "unknown reference column "+column)
	}
	var count int64
	err := conn(ctx, r.db).Model(&parts.Part{}).Where(column+" = ?", id).Count(&count).Error
	return count, err
}

// GormPartLotRepository implements parts.PartLotRepository using GORM
type GormPartLotRepository struct {
	db *gorm.DB
}

// NewGormPartLotRepository creates a new GormPartLotRepository
func NewGormPartLotRepository(db *gorm.DB) *GormPartLotRepository {
	return &GormPartLotRepository{db: db}
}

// FindByID finds a lot by its ID
func (r *GormPartLotRepository) FindByID(ctx context.Context, id uint) (*parts.PartLot, error) {
	var lot parts.PartLot
	if err := conn(ctx, r.db).First(&lot, id).Error; err != nil {
		return nil, translate(err)
	}
	return &lot, nil
}

// FindByPart returns the lots of a part
func (r *GormPartLotRepository) FindByPart(ctx context.Context, partID uint) ([]parts.PartLot, error) {
	var lots []parts.PartLot
	if err := conn(ctx, r.db).Where("part_id = ?", partID).Order("id ASC").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// Save creates or updates a lot
func (r *GormPartLotRepository) Save(ctx context.Context, lot *parts.PartLot) error {
	return translate(conn(ctx, r.db).Save(lot).Error)
}

// Delete deletes a lot
func (r *GormPartLotRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(conn(ctx, r.db), &parts.PartLot{}, id)
}

// PartIDsAtLocation returns the parts having lots at the location
func (r *GormPartLotRepository) PartIDsAtLocation(ctx context.Context, locationID uint, excludeLotID uint) ([]uint, error) {
	var ids []uint
	q := conn(ctx, r.db).Model(&parts.PartLot{}).Where("storage_location_id = ?", locationID)
	if excludeLotID != 0 {
		q = q.Where("id <> ?", excludeLotID)
	}
	if err := q.Distinct().Pluck("part_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CountByLocation counts the lots stored at a location
func (r *GormPartLotRepository) CountByLocation(ctx context.Context, locationID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&parts.PartLot{}).Where("storage_location_id = ?", locationID).Count(&count).Error
	return count, err
}

// CountByOwner counts the lots owned by a user
func (r *GormPartLotRepository) CountByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&parts.PartLot{}).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}

var (
	_ parts.PartRepository    = (*GormPartRepository)(nil)
	_ parts.PartLotRepository = (*GormPartLotRepository)(nil)
)
