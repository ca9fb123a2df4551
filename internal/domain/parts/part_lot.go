package parts

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/partdb/backend/internal/domain/shared"
)

// PartLot is an amount of a part stored at one location
type PartLot struct {
	shared.BaseEntity
	PartID            uint       `gorm:"not null;index" json:"part_id"`
	Description       string     `gorm:"type:varchar(255)" json:"description"`
	Comment           string     `gorm:"type:text" json:"comment"`
	StorageLocationID *uint      `gorm:"index" json:"storage_location_id"`
	Amount            float64    `gorm:"not null;default:0" json:"amount"`
	InstockUnknown    bool       `gorm:"not null;default:false" json:"instock_unknown"`
	ExpirationDate    *time.Time `json:"expiration_date"`
	NeedsRefill       bool       `gorm:"not null;default:false" json:"needs_refill"`
	OwnerID           *uint      `gorm:"index" json:"owner_id"`
}

// TableName returns the table name for GORM
func (PartLot) TableName() string { return "part_lots" }

// TargetType implements shared.Trackable
func (*PartLot) TargetType() shared.TargetType { return shared.TargetPartLot }

// GetName returns the lot description
func (l *PartLot) GetName() string { return l.Description }

// NewPartLot creates a lot for the given part
func NewPartLot(partID uint, amount float64) (*PartLot, error) {
	lot := &PartLot{
		BaseEntity: shared.NewBaseEntity(),
		PartID:     partID,
		Amount:     amount,
	}
	if err := lot.Validate(); err != nil {
		return nil, err
	}
	return lot, nil
}

// Validate checks the lot fields
func (l *PartLot) Validate() error {
	if l.PartID == 0 {
		return shared.NewDomainError("INVALID_PART", "A lot must belong to a part")
	}
	if l.Amount < 0 || math.IsNaN(l.Amount) || math.IsInf(l.Amount, 0) {
		return shared.NewDomainError("INVALID_AMOUNT", "Lot amount must be a non-negative number")
	}
	return nil
}

// IsExpiredAt returns true if the lot has an expiration date before now
func (l *PartLot) IsExpiredAt(now time.Time) bool {
	return l.ExpirationDate != nil && l.ExpirationDate.Before(now)
}

// SelectLabel formats the lot for selection lists:
// "<location full path> (<description>): <amount>"
func (l *PartLot) SelectLabel(locationPath string) string {
	amount := strconv.FormatFloat(l.Amount, 'f', -1, 64)
	if l.InstockUnknown {
		amount = "?"
	}
	if locationPath == "" {
		locationPath = "-"
	}
	return fmt.Sprintf("%s (%s): %s", locationPath, l.Description, amount)
}

// Add increases the stored amount
func (l *PartLot) Add(amount float64) error {
	if err := l.checkChangeable(amount); err != nil {
		return err
	}
	l.Amount += amount
	l.Touch()
	return nil
}

// Withdraw decreases the stored amount
func (l *PartLot) Withdraw(amount float64) error {
	if err := l.checkChangeable(amount); err != nil {
		return err
	}
	if amount > l.Amount {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Cannot withdraw %s, only %s in stock",
				strconv.FormatFloat(amount, 'f', -1, 64), strconv.FormatFloat(l.Amount, 'f', -1, 64)))
	}
	l.Amount -= amount
	l.Touch()
	return nil
}

func (l *PartLot) checkChangeable(amount float64) error {
	if l.InstockUnknown {
		return shared.NewDomainError("INVALID_STATE", "The amount of this lot is unknown and cannot be changed")
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount must be greater than zero")
	}
	return nil
}

// RoundAmount rounds amount to a whole number unless the unit allows fractions.
// A missing unit counts pieces.
func RoundAmount(amount float64, unit *MeasurementUnit) float64 {
	if unit == nil || unit.IsInteger {
		return math.Round(amount)
	}
	return amount
}

// CheckLocationAccepts verifies that a lot of partID owned by ownerID may be
// placed at loc. partsAtLocation lists the IDs of parts that already have lots
// there (excluding the lot being placed).
func CheckLocationAccepts(loc *StorageLocation, partID uint, ownerID *uint, partsAtLocation []uint, adding bool) error {
	if loc == nil {
		return nil
	}
	if adding && loc.IsFull {
		return shared.NewDomainError("LOCATION_FULL", "The storage location is marked as full")
	}
	if loc.OnlySinglePart {
		for _, id := range partsAtLocation {
			if id != partID {
				return shared.NewDomainError("LOCATION_SINGLE_PART", "The storage location may only contain a single part")
			}
		}
	}
	if loc.LimitToExistingParts {
		found := false
		for _, id := range partsAtLocation {
			if id == partID {
				found = true
				break
			}
		}
		if !found {
			return shared.NewDomainError("LOCATION_EXISTING_PARTS_ONLY", "The storage location only accepts parts already stored there")
		}
	}
	if loc.PartOwnerMustMatch && loc.OwnerID != nil {
		if ownerID == nil || *ownerID != *loc.OwnerID {
			return shared.NewDomainError("LOCATION_OWNER_MISMATCH", "The lot owner must match the owner of the storage location")
		}
	}
	return nil
}
