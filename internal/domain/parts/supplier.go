package parts

import (
	"github.com/shopspring/decimal"

	"github.com/partdb/backend/internal/domain/shared"
)

// Supplier sells parts. Orderdetails link parts to suppliers.
type Supplier struct {
	shared.StructuralElement
	Company
	DefaultCurrencyID *uint            `gorm:"index" json:"default_currency_id"`
	ShippingCosts     *decimal.Decimal `gorm:"type:decimal(11,5)" json:"shipping_costs"`
}

// TableName returns the table name for GORM
func (Supplier) TableName() string { return "suppliers" }

// TargetType implements shared.Trackable
func (*Supplier) TargetType() shared.TargetType { return shared.TargetSupplier }

// Validate checks the supplier fields
func (s *Supplier) Validate() error {
	if err := s.ValidateStructure(); err != nil {
		return err
	}
	if s.ShippingCosts != nil && s.ShippingCosts.IsNegative() {
		return shared.NewDomainError("INVALID_SHIPPING_COSTS", "Shipping costs cannot be negative")
	}
	return nil
}
