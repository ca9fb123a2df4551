package pricing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/partdb/backend/internal/domain/shared"
)

var isoCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Currency is a currency other than the base currency. ExchangeRate converts
// one unit of the currency into the base currency.
type Currency struct {
	shared.StructuralElement
	ISOCode      string           `gorm:"column:iso_code;type:varchar(3);not null;uniqueIndex" json:"iso_code"`
	ExchangeRate *decimal.Decimal `gorm:"type:decimal(11,5)" json:"exchange_rate"`
}

// TableName returns the table name for GORM
func (Currency) TableName() string { return "currencies" }

// TargetType implements shared.Trackable
func (*Currency) TargetType() shared.TargetType { return shared.TargetCurrency }

// Validate checks the currency fields
func (c *Currency) Validate() error {
	if err := c.ValidateStructure(); err != nil {
		return err
	}
	c.ISOCode = strings.ToUpper(strings.TrimSpace(c.ISOCode))
	if !isoCodePattern.MatchString(c.ISOCode) {
		return shared.NewDomainError("INVALID_ISO_CODE", "Currency code must be a three letter ISO 4217 code")
	}
	if c.ExchangeRate != nil && !c.ExchangeRate.IsPositive() {
		return shared.NewDomainError("INVALID_EXCHANGE_RATE", "Exchange rate must be greater than zero")
	}
	return nil
}

// InverseExchangeRate returns how many units of this currency one base unit buys
func (c *Currency) InverseExchangeRate() *decimal.Decimal {
	if c.ExchangeRate == nil || c.ExchangeRate.IsZero() {
		return nil
	}
	inv := decimal.NewFromInt(1).DivRound(*c.ExchangeRate, 5)
	return &inv
}
