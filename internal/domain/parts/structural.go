package parts

import (
	"regexp"

	"github.com/partdb/backend/internal/domain/shared"
)

// Category groups parts. Categories form a tree.
type Category struct {
	shared.StructuralElement
	PartnameHint         string `gorm:"type:varchar(255)" json:"partname_hint"`
	PartnameRegex        string `gorm:"type:varchar(255)" json:"partname_regex"`
	DefaultDescription   string `gorm:"type:text" json:"default_description"`
	DefaultComment       string `gorm:"type:text" json:"default_comment"`
	DisableFootprints    bool   `gorm:"not null;default:false" json:"disable_footprints"`
	DisableManufacturers bool   `gorm:"not null;default:false" json:"disable_manufacturers"`
}

// TableName returns the table name for GORM
func (Category) TableName() string { return "categories" }

// TargetType implements shared.Trackable
func (*Category) TargetType() shared.TargetType { return shared.TargetCategory }

// Validate checks the category fields
func (c *Category) Validate() error {
	if err := c.ValidateStructure(); err != nil {
		return err
	}
	if c.PartnameRegex != "" {
		if _, err := regexp.Compile(c.PartnameRegex); err != nil {
			return shared.NewDomainError("INVALID_REGEX", "Part name regex is not a valid regular expression")
		}
	}
	return nil
}

// CheckPartName returns an error if name does not match the partname regex
func (c *Category) CheckPartName(name string) error {
	if c.PartnameRegex == "" {
		return nil
	}
	re, err := regexp.Compile(c.PartnameRegex)
	if err != nil {
		return nil
	}
	if !re.MatchString(name) {
		return shared.NewDomainError("INVALID_PART_NAME", "Part name does not match the pattern required by its category")
	}
	return nil
}

// StorageLocation is a place where part lots are stored
type StorageLocation struct {
	shared.StructuralElement
	IsFull               bool  `gorm:"not null;default:false" json:"is_full"`
	LimitToExistingParts bool  `gorm:"not null;default:false" json:"limit_to_existing_parts"`
	OnlySinglePart       bool  `gorm:"not null;default:false" json:"only_single_part"`
	StorageTypeID        *uint `gorm:"index" json:"storage_type_id"`
	OwnerID              *uint `gorm:"index" json:"owner_id"`
	PartOwnerMustMatch   bool  `gorm:"not null;default:false" json:"part_owner_must_match"`
}

// TableName returns the table name for GORM
func (StorageLocation) TableName() string { return "storage_locations" }

// TargetType implements shared.Trackable
func (*StorageLocation) TargetType() shared.TargetType { return shared.TargetStorageLocation }

// Validate checks the storage location fields
func (s *StorageLocation) Validate() error {
	if err := s.ValidateStructure(); err != nil {
		return err
	}
	if s.PartOwnerMustMatch && s.OwnerID == nil {
		return shared.NewDomainError("INVALID_OWNER", "An owner is required when part owners must match")
	}
	return nil
}

// Footprint describes the package of a part
type Footprint struct {
	shared.StructuralElement
}

// TableName returns the table name for GORM
func (Footprint) TableName() string { return "footprints" }

// TargetType implements shared.Trackable
func (*Footprint) TargetType() shared.TargetType { return shared.TargetFootprint }

// Validate checks the footprint fields
func (f *Footprint) Validate() error { return f.ValidateStructure() }

// Company holds contact data shared by manufacturers and suppliers
type Company struct {
	Address        string `gorm:"type:text" json:"address"`
	PhoneNumber    string `gorm:"type:varchar(100)" json:"phone_number"`
	FaxNumber      string `gorm:"type:varchar(100)" json:"fax_number"`
	EmailAddress   string `gorm:"type:varchar(255)" json:"email_address"`
	Website        string `gorm:"type:varchar(255)" json:"website"`
	AutoProductURL string `gorm:"type:varchar(255)" json:"auto_product_url"`
}

// Manufacturer produces parts
type Manufacturer struct {
	shared.StructuralElement
	Company
}

// TableName returns the table name for GORM
func (Manufacturer) TableName() string { return "manufacturers" }

// TargetType implements shared.Trackable
func (*Manufacturer) TargetType() shared.TargetType { return shared.TargetManufacturer }

// Validate checks the manufacturer fields
func (m *Manufacturer) Validate() error { return m.ValidateStructure() }

// MeasurementUnit is the unit in which the amount of a part is counted
type MeasurementUnit struct {
	shared.StructuralElement
	Unit        string `gorm:"type:varchar(20)" json:"unit"`
	IsInteger   bool   `gorm:"not null;default:true" json:"is_integer"`
	UseSIPrefix bool   `gorm:"not null;default:false" json:"use_si_prefix"`
}

// TableName returns the table name for GORM
func (MeasurementUnit) TableName() string { return "measurement_units" }

// TargetType implements shared.Trackable
func (*MeasurementUnit) TargetType() shared.TargetType { return shared.TargetMeasurementUnit }

// Validate checks the unit fields
func (u *MeasurementUnit) Validate() error {
	if err := u.ValidateStructure(); err != nil {
		return err
	}
	if len(u.Unit) > 20 {
		return shared.NewDomainError("INVALID_UNIT", "Unit symbol cannot exceed 20 characters")
	}
	return nil
}
