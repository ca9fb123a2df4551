package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/domain/shared"
)

func TestNewProfile(t *testing.T) {
	p, err := NewProfile(" Small ", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Small", p.Name)
	assert.True(t, p.ShowInDropdown)

	_, err = NewProfile("", DefaultOptions())
	assert.Error(t, err)

	opts := DefaultOptions()
	opts.Width = 0
	_, err = NewProfile("x", opts)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.SupportedElement = "device"
	_, err = NewProfile("x", opts)
	assert.Error(t, err)
}

func TestSupportedElement_TargetType(t *testing.T) {
	assert.Equal(t, shared.TargetPart, ElementPart.TargetType())
	assert.Equal(t, shared.TargetPartLot, ElementPartLot.TargetType())
	assert.Equal(t, shared.TargetStorageLocation, ElementStorageLocation.TargetType())
}

func TestOptions_CSSSize(t *testing.T) {
	tests := []struct {
		width, height float64
		w, h          string
	}{
		{50, 30, "50mm", "30mm"},
		{62.5, 29, "62.5mm", "29mm"},
		{25.4, 12.7, "25.4mm", "12.7mm"},
		{101.555, 0.004, "101.56mm", "0mm"},
	}
	for _, tt := range tests {
		opts := DefaultOptions()
		opts.Width, opts.Height = tt.width, tt.height
		w, h := opts.CSSSize()
		assert.Equal(t, tt.w, w)
		assert.Equal(t, tt.h, h)
	}
}
