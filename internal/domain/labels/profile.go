package labels

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/partdb/backend/internal/domain/shared"
)

// SupportedElement is the element kind a label is made for
type SupportedElement string

const (
	ElementPart            SupportedElement = "part"
	ElementPartLot         SupportedElement = "part_lot"
	ElementStorageLocation SupportedElement = "storage_location"
)

// IsValid returns true for known element kinds
func (s SupportedElement) IsValid() bool {
	switch s {
	case ElementPart, ElementPartLot, ElementStorageLocation:
		return true
	}
	return false
}

// TargetType maps the element kind to its log target type
func (s SupportedElement) TargetType() shared.TargetType {
	switch s {
	case ElementPartLot:
		return shared.TargetPartLot
	case ElementStorageLocation:
		return shared.TargetStorageLocation
	}
	return shared.TargetPart
}

// Options controls how a label looks. Sizes are in millimeters.
type Options struct {
	Width            float64          `json:"width"`
	Height           float64          `json:"height"`
	SupportedElement SupportedElement `json:"supported_element"`
	Lines            string           `json:"lines"`
	AdditionalCSS    string           `json:"additional_css"`
}

// DefaultOptions returns a 50 x 30 mm part label
func DefaultOptions() Options {
	return Options{
		Width:            50,
		Height:           30,
		SupportedElement: ElementPart,
		Lines:            "<b>[[NAME]]</b><br>[[DESCRIPTION]]",
	}
}

// Validate checks the options
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return shared.NewDomainError("INVALID_LABEL_SIZE", "Label width and height must be positive")
	}
	if o.Width > 1000 || o.Height > 1000 {
		return shared.NewDomainError("INVALID_LABEL_SIZE", "Label width and height cannot exceed 1000 mm")
	}
	if !o.SupportedElement.IsValid() {
		return shared.NewDomainError("INVALID_LABEL_ELEMENT", "Unsupported label element type")
	}
	return nil
}

// CSSSize returns width and height as CSS lengths rounded to 1/100 mm
func (o Options) CSSSize() (width, height string) {
	return mmLength(o.Width), mmLength(o.Height)
}

func mmLength(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String() + "mm"
}

// Profile is a saved set of label options
type Profile struct {
	shared.BaseEntity
	Name           string  `gorm:"type:varchar(255);not null" json:"name"`
	Comment        string  `gorm:"type:text" json:"comment"`
	ShowInDropdown bool    `gorm:"not null" json:"show_in_dropdown"`
	Options        Options `gorm:"type:text;serializer:json" json:"options"`
}

// TableName returns the table name for GORM
func (Profile) TableName() string { return "label_profiles" }

// TargetType implements shared.Trackable
func (*Profile) TargetType() shared.TargetType { return shared.TargetLabelProfile }

// GetName returns the profile name
func (p *Profile) GetName() string { return p.Name }

// NewProfile creates a profile
func NewProfile(name string, options Options) (*Profile, error) {
	p := &Profile{
		BaseEntity:     shared.NewBaseEntity(),
		Name:           strings.TrimSpace(name),
		ShowInDropdown: true,
		Options:        options,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the profile
func (p *Profile) Validate() error {
	if p.Name == "" {
		return shared.NewDomainError("INVALID_NAME", "Profile name cannot be empty")
	}
	if len(p.Name) > shared.MaxNameLength {
		return shared.NewDomainError("INVALID_NAME", "Profile name is too long")
	}
	return p.Options.Validate()
}
