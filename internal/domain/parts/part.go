package parts

import (
	"strings"
	"time"

	"github.com/partdb/backend/internal/domain/shared"
)

// ManufacturingStatus describes the production state of a part
type ManufacturingStatus string

const (
	ManufacturingStatusUnknown      ManufacturingStatus = ""
	ManufacturingStatusAnnounced    ManufacturingStatus = "announced"
	ManufacturingStatusActive       ManufacturingStatus = "active"
	ManufacturingStatusNRFND        ManufacturingStatus = "nrfnd"
	ManufacturingStatusEOL          ManufacturingStatus = "eol"
	ManufacturingStatusDiscontinued ManufacturingStatus = "discontinued"
)

// IsValid returns true if the status is known
func (s ManufacturingStatus) IsValid() bool {
	switch s {
	case ManufacturingStatusUnknown, ManufacturingStatusAnnounced, ManufacturingStatusActive,
		ManufacturingStatusNRFND, ManufacturingStatusEOL, ManufacturingStatusDiscontinued:
		return true
	}
	return false
}

// ProviderReference records where the part data was fetched from
type ProviderReference struct {
	ProviderKey string     `gorm:"column:provider_key;type:varchar(50)" json:"provider_key"`
	ProviderID  string     `gorm:"column:provider_id;type:varchar(255)" json:"provider_id"`
	ProviderURL string     `gorm:"column:provider_url;type:varchar(255)" json:"provider_url"`
	LastUpdated *time.Time `gorm:"column:provider_last_updated" json:"last_updated"`
}

// IsSet returns true if the part was created from an info provider
func (r ProviderReference) IsSet() bool {
	return r.ProviderKey != "" && r.ProviderID != ""
}

// Part is an electronic component kept in the inventory
type Part struct {
	shared.BaseEntity
	Name                      string              `gorm:"type:varchar(255);not null;index" json:"name"`
	Description               string              `gorm:"type:text" json:"description"`
	Comment                   string              `gorm:"type:text" json:"comment"`
	CategoryID                uint                `gorm:"not null;index" json:"category_id"`
	FootprintID               *uint               `gorm:"index" json:"footprint_id"`
	ManufacturerID            *uint               `gorm:"index" json:"manufacturer_id"`
	ManufacturerProductNumber string              `gorm:"type:varchar(255);index" json:"manufacturer_product_number"`
	ManufacturerProductURL    string              `gorm:"type:varchar(255)" json:"manufacturer_product_url"`
	ManufacturingStatus       ManufacturingStatus `gorm:"type:varchar(20)" json:"manufacturing_status"`
	IPN                       *string             `gorm:"column:ipn;type:varchar(100);uniqueIndex" json:"ipn"`
	Tags                      string              `gorm:"type:text" json:"tags"`
	Mass                      *float64            `json:"mass"`
	MinAmount                 float64             `gorm:"not null;default:0" json:"min_amount"`
	NeedsReview               bool                `gorm:"not null;default:false" json:"needs_review"`
	Favorite                  bool                `gorm:"not null;default:false" json:"favorite"`
	PartUnitID                *uint               `gorm:"index" json:"part_unit_id"`
	ProviderReference         ProviderReference   `gorm:"embedded" json:"provider_reference"`
}

// TableName returns the table name for GORM
func (Part) TableName() string { return "parts" }

// TargetType implements shared.Trackable
func (*Part) TargetType() shared.TargetType { return shared.TargetPart }

// GetName returns the part name
func (p *Part) GetName() string { return p.Name }

// NewPart creates a new part in the given category
func NewPart(name string, categoryID uint) (*Part, error) {
	p := &Part{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		CategoryID: categoryID,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the part fields
func (p *Part) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return shared.NewDomainError("INVALID_NAME", "Part name cannot be empty")
	}
	if len(p.Name) > shared.MaxNameLength {
		return shared.NewDomainError("INVALID_NAME", "Part name cannot exceed 255 characters")
	}
	if p.CategoryID == 0 {
		return shared.NewDomainError("INVALID_CATEGORY", "A part must belong to a category")
	}
	if !p.ManufacturingStatus.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown manufacturing status")
	}
	if p.Mass != nil && *p.Mass < 0 {
		return shared.NewDomainError("INVALID_MASS", "Mass cannot be negative")
	}
	if p.MinAmount < 0 {
		return shared.NewDomainError("INVALID_AMOUNT", "Minimum amount cannot be negative")
	}
	if p.IPN != nil {
		ipn := strings.TrimSpace(*p.IPN)
		if ipn == "" {
			p.IPN = nil
		} else {
			p.IPN = &ipn
		}
	}
	return nil
}

// TagList returns the comma separated tags as a slice
func (p *Part) TagList() []string {
	if strings.TrimSpace(p.Tags) == "" {
		return nil
	}
	raw := strings.Split(p.Tags, ",")
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// AmountSum returns the amount in stock counted over all lots whose
// instock value is known and which are not expired.
func AmountSum(lots []PartLot, now time.Time) float64 {
	var sum float64
	for i := range lots {
		if lots[i].InstockUnknown || lots[i].IsExpiredAt(now) {
			continue
		}
		sum += lots[i].Amount
	}
	return sum
}
