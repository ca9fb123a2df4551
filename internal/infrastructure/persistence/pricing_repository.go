package persistence

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/partdb/backend/internal/domain/pricing"
)

// GormOrderdetailRepository implements pricing.OrderdetailRepository using GORM
type GormOrderdetailRepository struct {
	db *gorm.DB
}

// NewGormOrderdetailRepository creates a new GormOrderdetailRepository
func NewGormOrderdetailRepository(db *gorm.DB) *GormOrderdetailRepository {
	return &GormOrderdetailRepository{db: db}
}

// FindByID finds an orderdetail with its pricedetails
func (r *GormOrderdetailRepository) FindByID(ctx context.Context, id uint) (*pricing.Orderdetail, error) {
	var od pricing.Orderdetail
	if err := conn(ctx, r.db).Preload("Pricedetails", orderPricedetails).First(&od, id).Error; err != nil {
		return nil, translate(err)
	}
	return &od, nil
}

// FindByPart returns the orderdetails of a part with their pricedetails
func (r *GormOrderdetailRepository) FindByPart(ctx context.Context, partID uint) ([]pricing.Orderdetail, error) {
	var ods []pricing.Orderdetail
	if err := conn(ctx, r.db).Preload("Pricedetails", orderPricedetails).
		Where("part_id = ?", partID).Order("id ASC").Find(&ods).Error; err != nil {
		return nil, err
	}
	return ods, nil
}

func orderPricedetails(db *gorm.DB) *gorm.DB {
	return db.Order("min_discount_quantity ASC")
}

// Save creates or updates an orderdetail. Pricedetails are saved separately.
func (r *GormOrderdetailRepository) Save(ctx context.Context, od *pricing.Orderdetail) error {
	return translate(conn(ctx, r.db).Omit(clause.Associations).Save(od).Error)
}

// Delete deletes an orderdetail
func (r *GormOrderdetailRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(conn(ctx, r.db), &pricing.Orderdetail{}, id)
}

// CountBySupplier counts the orderdetails of a supplier
func (r *GormOrderdetailRepository) CountBySupplier(ctx context.Context, supplierID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&pricing.Orderdetail{}).Where("supplier_id = ?", supplierID).Count(&count).Error
	return count, err
}

// GormPricedetailRepository implements pricing.PricedetailRepository using GORM
type GormPricedetailRepository struct {
	db *gorm.DB
}

// NewGormPricedetailRepository creates a new GormPricedetailRepository
func NewGormPricedetailRepository(db *gorm.DB) *GormPricedetailRepository {
	return &GormPricedetailRepository{db: db}
}

// FindByID finds a pricedetail by its ID
func (r *GormPricedetailRepository) FindByID(ctx context.Context, id uint) (*pricing.Pricedetail, error) {
	var pd pricing.Pricedetail
	if err := conn(ctx, r.db).First(&pd, id).Error; err != nil {
		return nil, translate(err)
	}
	return &pd, nil
}

// FindByOrderdetail returns the price steps of an orderdetail
func (r *GormPricedetailRepository) FindByOrderdetail(ctx context.Context, orderdetailID uint) ([]pricing.Pricedetail, error) {
	var pds []pricing.Pricedetail
	if err := conn(ctx, r.db).Where("orderdetail_id = ?", orderdetailID).
		Order("min_discount_quantity ASC").Find(&pds).Error; err != nil {
		return nil, err
	}
	return pds, nil
}

// Save creates or updates a pricedetail
func (r *GormPricedetailRepository) Save(ctx context.Context, pd *pricing.Pricedetail) error {
	return translate(conn(ctx, r.db).Save(pd).Error)
}

// Delete deletes a pricedetail
func (r *GormPricedetailRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(conn(ctx, r.db), &pricing.Pricedetail{}, id)
}

// CountByCurrency counts the pricedetails using a currency
func (r *GormPricedetailRepository) CountByCurrency(ctx context.Context, currencyID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&pricing.Pricedetail{}).Where("currency_id = ?", currencyID).Count(&count).Error
	return count, err
}

var (
	_ pricing.OrderdetailRepository = (*GormOrderdetailRepository)(nil)
	_ pricing.PricedetailRepository = (*GormPricedetailRepository)(nil)
)
