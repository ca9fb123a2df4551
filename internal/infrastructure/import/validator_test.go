package csvimport

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldRuleBuilder(t *testing.T) {
	rule := Field("amount").Required().Decimal().MinValue(decimal.Zero).Unique().Build()

	assert.Equal(t, "amount", rule.Column)
	assert.True(t, rule.Required)
	assert.True(t, rule.Unique)
	assert.Equal(t, TypeDecimal, rule.Type)
	require.NotNil(t, rule.MinValue)
	assert.True(t, rule.MinValue.IsZero())
}

func TestFieldValidator_ValidateRow(t *testing.T) {
	rules := []FieldRule{
		Field("name").Required().MaxLength(5).Unique().Build(),
		Field("amount").Decimal().MinValue(decimal.Zero).Build(),
		Field("expires").Date().Build(),
		Field("favorite").Bool().Build(),
		Field("ipn").Custom(func(v string) error {
			if v == "bad" {
				return errors.New("ipn is bad")
			}
			return nil
		}).Build(),
	}

	tests := []struct {
		name string
		data map[string]string
		code string
	}{
		{"valid", map[string]string{"name": "R1", "amount": "1.5", "expires": "2025-01-31", "favorite": "yes"}, ""},
		{"missing name", map[string]string{"amount": "1"}, ErrCodeImportRequiredField},
		{"too long", map[string]string{"name": "Resistor"}, ErrCodeImportInvalidLength},
		{"not a number", map[string]string{"name": "C1", "amount": "many"}, ErrCodeImportInvalidType},
		{"negative", map[string]string{"name": "C2", "amount": "-1"}, ErrCodeImportInvalidRange},
		{"bad date", map[string]string{"name": "C3", "expires": "31.01.2025"}, ErrCodeImportInvalidType},
		{"bad bool", map[string]string{"name": "C4", "favorite": "maybe"}, ErrCodeImportInvalidType},
		{"custom", map[string]string{"name": "C5", "ipn": "bad"}, ErrCodeImportValidation},
		{"duplicate", map[string]string{"name": "r1"}, ErrCodeImportDuplicateInFile},
	}

	v := NewFieldValidator(rules, 50)
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(v.Errors().Errors())
			ok := v.ValidateRow(&Row{LineNumber: i + 2, Data: tt.data})
			if tt.code == "" {
				assert.True(t, ok)
				assert.Len(t, v.Errors().Errors(), before)
				return
			}
			assert.False(t, ok)
			errs := v.Errors().Errors()
			require.Len(t, errs, before+1)
			assert.Equal(t, tt.code, errs[before].Code)
			assert.Equal(t, i+2, errs[before].Row)
		})
	}
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"true": true, "Y": true, "1": true, "no": false, "": false, "0": false} {
		got, ok := ParseBool(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseBool("perhaps")
	assert.False(t, ok)
}
