package pricing

import (
	"context"
)

// OrderdetailRepository defines the interface for orderdetail persistence
type OrderdetailRepository interface {
	FindByID(ctx context.Context, id uint) (*Orderdetail, error)
	// FindByPart returns the orderdetails of a part with their pricedetails loaded
	FindByPart(ctx context.Context, partID uint) ([]Orderdetail, error)
	Save(ctx context.Context, od *Orderdetail) error
	Delete(ctx context.Context, id uint) error
	CountBySupplier(ctx context.Context, supplierID uint) (int64, error)
}

// PricedetailRepository defines the interface for pricedetail persistence
type PricedetailRepository interface {
	FindByID(ctx context.Context, id uint) (*Pricedetail, error)
	FindByOrderdetail(ctx context.Context, orderdetailID uint) ([]Pricedetail, error)
	Save(ctx context.Context, pd *Pricedetail) error
	Delete(ctx context.Context, id uint) error
	CountByCurrency(ctx context.Context, currencyID uint) (int64, error)
}
