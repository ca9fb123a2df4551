package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/partdb/backend/internal/domain/shared"
)

// PriceScale is the number of decimal places prices are stored with
const PriceScale = 5

// Pricedetail is one price step of an orderdetail
type Pricedetail struct {
	shared.BaseEntity
	OrderdetailID        uint            `gorm:"not null;index" json:"orderdetail_id"`
	Price                decimal.Decimal `gorm:"type:decimal(11,5);not null" json:"price"`
	PriceRelatedQuantity decimal.Decimal `gorm:"type:decimal(11,5);not null" json:"price_related_quantity"`
	MinDiscountQuantity  decimal.Decimal `gorm:"type:decimal(11,5);not null" json:"min_discount_quantity"`
	CurrencyID           *uint           `gorm:"index" json:"currency_id"`
}

// TableName returns the table name for GORM
func (Pricedetail) TableName() string { return "pricedetails" }

// TargetType implements shared.Trackable
func (*Pricedetail) TargetType() shared.TargetType { return shared.TargetPricedetail }

// GetName returns the price as text
func (p *Pricedetail) GetName() string { return p.Price.String() }

// NewPricedetail creates a price step with quantity 1 defaults
func NewPricedetail(orderdetailID uint, price decimal.Decimal) (*Pricedetail, error) {
	pd := &Pricedetail{
		BaseEntity:           shared.NewBaseEntity(),
		OrderdetailID:        orderdetailID,
		Price:                price,
		PriceRelatedQuantity: decimal.NewFromInt(1),
		MinDiscountQuantity:  decimal.NewFromInt(1),
	}
	if err := pd.Validate(); err != nil {
		return nil, err
	}
	return pd, nil
}

// Validate checks the pricedetail fields
func (p *Pricedetail) Validate() error {
	if p.OrderdetailID == 0 {
		return shared.NewDomainError("INVALID_ORDERDETAIL", "A pricedetail must belong to an orderdetail")
	}
	if p.Price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	one := decimal.NewFromInt(1)
	if p.PriceRelatedQuantity.LessThan(one) {
		return shared.NewDomainError("INVALID_QUANTITY", "Price related quantity must be at least 1")
	}
	if p.MinDiscountQuantity.LessThan(one) {
		return shared.NewDomainError("INVALID_QUANTITY", "Minimum discount quantity must be at least 1")
	}
	return nil
}

// PricePerUnit returns the price of a single unit in the pricedetail's currency
func (p *Pricedetail) PricePerUnit() decimal.Decimal {
	if p.PriceRelatedQuantity.IsZero() {
		return p.Price
	}
	return p.Price.DivRound(p.PriceRelatedQuantity, PriceScale)
}
