package parts

import (
	"math"
	"strconv"
	"strings"
)

var siPrefixes = []struct {
	factor float64
	symbol string
}{
	{1e9, "G"},
	{1e6, "M"},
	{1e3, "k"},
	{1, ""},
	{1e-3, "m"},
	{1e-6, "µ"},
}

// FormatAmount formats amount in unit for display. Without a unit the
// amount counts pieces and is printed as an integer.
func FormatAmount(amount float64, unit *MeasurementUnit) string {
	if unit == nil {
		return strconv.FormatFloat(math.Round(amount), 'f', 0, 64)
	}
	symbol := unit.Unit
	value := amount
	prefix := ""
	if unit.UseSIPrefix && amount != 0 {
		abs := math.Abs(amount)
		for _, p := range siPrefixes {
			if abs >= p.factor {
				value, prefix = amount/p.factor, p.symbol
				break
			}
		}
		if prefix == "" && abs < 1e-6 {
			value, prefix = amount/1e-6, "µ"
		}
	}

	var num string
	if unit.IsInteger && prefix == "" {
		num = strconv.FormatFloat(math.Round(value), 'f', 0, 64)
	} else {
		num = strconv.FormatFloat(value, 'f', 3, 64)
		num = strings.TrimRight(strings.TrimRight(num, "0"), ".")
	}
	if symbol == "" && prefix == "" {
		return num
	}
	return num + " " + prefix + symbol
}
