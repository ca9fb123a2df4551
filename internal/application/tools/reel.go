package tools

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/partdb/backend/internal/domain/shared"
)

// ReelInput holds the measurements of an SMD reel in millimeters
type ReelInput struct {
	InnerDiameter decimal.NullDecimal `json:"inner_diameter" binding:"omitempty,dgt=0"`
	OuterDiameter decimal.NullDecimal `json:"outer_diameter" binding:"omitempty,dgt=0"`
	TapeThickness decimal.NullDecimal `json:"tape_thickness" binding:"omitempty,dgt=0"`
	// PartDistance is the pitch between two parts on the tape, optional
	PartDistance decimal.NullDecimal `json:"part_distance" binding:"omitempty,dgte=0"`
}

// ReelResult is the estimate of tape length and part count
type ReelResult struct {
	LengthMM        float64  `json:"length_mm"`
	LengthFormatted string   `json:"length_formatted"`
	PartsPerMeter   *float64 `json:"parts_per_meter,omitempty"`
	Amount          *int64   `json:"amount,omitempty"`
}

var (
	errReelMissingValues = shared.NewDomainError("MISSING_VALUES", "Inner diameter, outer diameter and tape thickness are required")
	errReelOuterSmaller  = shared.NewDomainError("OUTER_SMALLER_THAN_INNER", "The outer diameter must be greater than the inner diameter")
)

// CalculateReel estimates the tape length on a reel from its diameters and
// the tape thickness, and the number of parts when the pitch is known
func CalculateReel(in ReelInput) (*ReelResult, error) {
	if !in.InnerDiameter.Valid || !in.OuterDiameter.Valid || !in.TapeThickness.Valid ||
		in.TapeThickness.Decimal.IsZero() {
		return nil, errReelMissingValues
	}
	inner := in.InnerDiameter.Decimal.InexactFloat64()
	outer := in.OuterDiameter.Decimal.InexactFloat64()
	thickness := in.TapeThickness.Decimal.InexactFloat64()
	if outer < inner {
		return nil, errReelOuterSmaller
	}

	length := math.Pi * (outer*outer - inner*inner) / (4 * thickness)
	res := &ReelResult{LengthMM: length, LengthFormatted: formatLength(length)}

	if in.PartDistance.Valid && !in.PartDistance.Decimal.IsZero() {
		perMeter := 1000 / in.PartDistance.Decimal.InexactFloat64()
		amount := int64(math.Floor(length / 1000 * perMeter))
		res.PartsPerMeter = &perMeter
		res.Amount = &amount
	}
	return res, nil
}

func formatLength(mm float64) string {
	switch {
	case mm > 1000:
		return fmt.Sprintf("%.2f m", mm/1000)
	case mm > 10:
		return fmt.Sprintf("%.2f cm", mm/10)
	}
	return fmt.Sprintf("%.2f mm", mm)
}
