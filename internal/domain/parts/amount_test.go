package parts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	meters := &MeasurementUnit{Unit: "m", UseSIPrefix: true}
	grams := &MeasurementUnit{Unit: "g"}
	pieces := &MeasurementUnit{IsInteger: true}

	tests := []struct {
		name   string
		amount float64
		unit   *MeasurementUnit
		want   string
	}{
		{"no unit", 12.4, nil, "12"},
		{"integer unit", 3, pieces, "3"},
		{"fractional", 2.5, grams, "2.5 g"},
		{"trailing zeros trimmed", 2.0, grams, "2 g"},
		{"kilo", 1500, meters, "1.5 km"},
		{"milli", 0.25, meters, "250 mm"},
		{"base", 7, meters, "7 m"},
		{"zero with prefix unit", 0, meters, "0 m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.amount, tt.unit))
		})
	}
}
