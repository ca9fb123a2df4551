package pricing

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/partdb/backend/internal/domain/shared"
)

// Orderdetail describes where a part can be bought
type Orderdetail struct {
	shared.BaseEntity
	PartID             uint   `gorm:"not null;index" json:"part_id"`
	SupplierID         uint   `gorm:"not null;index" json:"supplier_id"`
	SupplierPartNr     string `gorm:"column:supplierpartnr;type:varchar(255)" json:"supplierpartnr"`
	SupplierProductURL string `gorm:"type:varchar(255)" json:"supplier_product_url"`
	Obsolete           bool   `gorm:"not null;default:false" json:"obsolete"`

	Pricedetails []Pricedetail `gorm:"foreignKey:OrderdetailID" json:"-"`
}

// TableName returns the table name for GORM
func (Orderdetail) TableName() string { return "orderdetails" }

// TargetType implements shared.Trackable
func (*Orderdetail) TargetType() shared.TargetType { return shared.TargetOrderdetail }

// GetName returns the supplier part number
func (o *Orderdetail) GetName() string { return o.SupplierPartNr }

// Validate checks the orderdetail fields
func (o *Orderdetail) Validate() error {
	if o.PartID == 0 {
		return shared.NewDomainError("INVALID_PART", "An orderdetail must belong to a part")
	}
	if o.SupplierID == 0 {
		return shared.NewDomainError("INVALID_SUPPLIER", "A supplier is required")
	}
	o.SupplierPartNr = strings.TrimSpace(o.SupplierPartNr)
	if o.SupplierProductURL != "" {
		u, err := url.Parse(o.SupplierProductURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return shared.NewDomainError("INVALID_URL", "Supplier product URL is not a valid URL")
		}
	}
	return nil
}

// PricedetailForQuantity returns the pricedetail that applies when buying
// quantity pieces: the one with the largest minimum discount quantity not
// exceeding quantity. Returns nil if none applies.
func (o *Orderdetail) PricedetailForQuantity(quantity decimal.Decimal) *Pricedetail {
	var best *Pricedetail
	for i := range o.Pricedetails {
		pd := &o.Pricedetails[i]
		if pd.MinDiscountQuantity.GreaterThan(quantity) {
			continue
		}
		if best == nil || pd.MinDiscountQuantity.GreaterThan(best.MinDiscountQuantity) {
			best = pd
		}
	}
	return best
}
