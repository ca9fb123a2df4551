package parts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/pricing"
)

// CreatePartRequest is the input for creating a part
type CreatePartRequest struct {
	Name                      string            `json:"name" binding:"required,max=255"`
	Description               string            `json:"description"`
	Comment                   string            `json:"comment"`
	CategoryID                uint              `json:"category_id" binding:"required"`
	FootprintID               *uint             `json:"footprint_id"`
	ManufacturerID            *uint             `json:"manufacturer_id"`
	ManufacturerProductNumber string            `json:"manufacturer_product_number" binding:"max=255"`
	ManufacturerProductURL    string            `json:"manufacturer_product_url" binding:"omitempty,url"`
	ManufacturingStatus       string            `json:"manufacturing_status" binding:"omitempty,oneof=announced active nrfnd eol discontinued"`
	IPN                       *string           `json:"ipn" binding:"omitempty,max=100"`
	Tags                      string            `json:"tags"`
	Mass                      *float64          `json:"mass" binding:"omitempty,min=0"`
	MinAmount                 float64           `json:"min_amount" binding:"min=0"`
	NeedsReview               bool              `json:"needs_review"`
	Favorite                  bool              `json:"favorite"`
	PartUnitID                *uint             `json:"part_unit_id"`
	InitialLot                *CreateLotRequest `json:"initial_lot"`
	ChangeComment             string            `json:"change_comment"`
	// Provider is set when the part is created from an info provider result
	Provider *parts.ProviderReference `json:"-"`
}

// UpdatePartRequest changes the fields that are set
type UpdatePartRequest struct {
	Name                      *string  `json:"name" binding:"omitempty,max=255"`
	Description               *string  `json:"description"`
	Comment                   *string  `json:"comment"`
	CategoryID                *uint    `json:"category_id"`
	FootprintID               *uint    `json:"footprint_id"`
	ClearFootprint            bool     `json:"clear_footprint"`
	ManufacturerID            *uint    `json:"manufacturer_id"`
	ClearManufacturer         bool     `json:"clear_manufacturer"`
	ManufacturerProductNumber *string  `json:"manufacturer_product_number" binding:"omitempty,max=255"`
	ManufacturerProductURL    *string  `json:"manufacturer_product_url" binding:"omitempty,url"`
	ManufacturingStatus       *string  `json:"manufacturing_status" binding:"omitempty,oneof=announced active nrfnd eol discontinued"`
	IPN                       *string  `json:"ipn" binding:"omitempty,max=100"`
	Tags                      *string  `json:"tags"`
	Mass                      *float64 `json:"mass" binding:"omitempty,min=0"`
	MinAmount                 *float64 `json:"min_amount" binding:"omitempty,min=0"`
	NeedsReview               *bool    `json:"needs_review"`
	Favorite                  *bool    `json:"favorite"`
	PartUnitID                *uint    `json:"part_unit_id"`
	ChangeComment             string   `json:"change_comment"`
}

// PartListFilter is the query of the part listing
type PartListFilter struct {
	Page              int    `form:"page" binding:"omitempty,min=1"`
	PageSize          int    `form:"page_size" binding:"omitempty,min=1,max=500"`
	SortBy            string `form:"sort_by"`
	SortDesc          bool   `form:"sort_desc"`
	Search            string `form:"search"`
	CategoryID        *uint  `form:"category_id"`
	FootprintID       *uint  `form:"footprint_id"`
	ManufacturerID    *uint  `form:"manufacturer_id"`
	StorageLocationID *uint  `form:"storage_location_id"`
	Favorite          *bool  `form:"favorite"`
	NeedsReview       *bool  `form:"needs_review"`
}

// PartResponse is a part with its derived values
type PartResponse struct {
	parts.Part
	TotalAmount  float64          `json:"total_amount"`
	AveragePrice *decimal.Decimal `json:"average_price,omitempty"`
	Lots         []LotResponse    `json:"lots,omitempty"`
}

// CreateLotRequest is the input for creating a part lot
type CreateLotRequest struct {
	Description       string     `json:"description" binding:"max=255"`
	Comment           string     `json:"comment"`
	StorageLocationID *uint      `json:"storage_location_id"`
	Amount            float64    `json:"amount" binding:"min=0"`
	InstockUnknown    bool       `json:"instock_unknown"`
	ExpirationDate    *time.Time `json:"expiration_date"`
	NeedsRefill       bool       `json:"needs_refill"`
	OwnerID           *uint      `json:"owner_id"`
	ChangeComment     string     `json:"change_comment"`
}

// UpdateLotRequest changes the lot fields that are set. The amount is only
// changed through stock operations.
type UpdateLotRequest struct {
	Description         *string    `json:"description" binding:"omitempty,max=255"`
	Comment             *string    `json:"comment"`
	StorageLocationID   *uint      `json:"storage_location_id"`
	ClearLocation       bool       `json:"clear_location"`
	InstockUnknown      *bool      `json:"instock_unknown"`
	ExpirationDate      *time.Time `json:"expiration_date"`
	ClearExpirationDate bool       `json:"clear_expiration_date"`
	NeedsRefill         *bool      `json:"needs_refill"`
	OwnerID             *uint      `json:"owner_id"`
	ChangeComment       string     `json:"change_comment"`
}

// StockRequest is the input of add and withdraw
type StockRequest struct {
	Amount           float64 `json:"amount" binding:"required,gt=0"`
	Comment          string  `json:"comment"`
	DeleteLotIfEmpty bool    `json:"delete_lot_if_empty"`
}

// MoveRequest is the input of a stock move
type MoveRequest struct {
	TargetLotID uint    `json:"target_lot_id" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Comment     string  `json:"comment"`
}

// LotResponse is a part lot in API responses
type LotResponse struct {
	parts.PartLot
	Expired     bool   `json:"expired"`
	SelectLabel string `json:"select_label"`
}

// CreateOrderdetailRequest is the input for creating an orderdetail
type CreateOrderdetailRequest struct {
	SupplierID         uint   `json:"supplier_id" binding:"required"`
	SupplierPartNr     string `json:"supplierpartnr" binding:"max=255"`
	SupplierProductURL string `json:"supplier_product_url" binding:"omitempty,url"`
	Obsolete           bool   `json:"obsolete"`
	ChangeComment      string `json:"change_comment"`
}

// UpdateOrderdetailRequest changes the orderdetail fields that are set
type UpdateOrderdetailRequest struct {
	SupplierID         *uint   `json:"supplier_id"`
	SupplierPartNr     *string `json:"supplierpartnr" binding:"omitempty,max=255"`
	SupplierProductURL *string `json:"supplier_product_url" binding:"omitempty,url"`
	Obsolete           *bool   `json:"obsolete"`
	ChangeComment      string  `json:"change_comment"`
}

// OrderdetailResponse is an orderdetail with its price steps
type OrderdetailResponse struct {
	pricing.Orderdetail
	Pricedetails []pricing.Pricedetail `json:"pricedetails"`
}

// PricedetailRequest is the input for creating or replacing a price step
type PricedetailRequest struct {
	Price                decimal.Decimal  `json:"price" binding:"dgte=0"`
	PriceRelatedQuantity *decimal.Decimal `json:"price_related_quantity" binding:"omitempty,dgte=1"`
	MinDiscountQuantity  *decimal.Decimal `json:"min_discount_quantity" binding:"omitempty,dgte=1"`
	CurrencyID           *uint            `json:"currency_id"`
	ChangeComment        string           `json:"change_comment"`
}

// ToOrderdetailResponse converts an orderdetail
func ToOrderdetailResponse(od *pricing.Orderdetail) OrderdetailResponse {
	pds := od.Pricedetails
	if pds == nil {
		pds = []pricing.Pricedetail{}
	}
	return OrderdetailResponse{Orderdetail: *od, Pricedetails: pds}
}
