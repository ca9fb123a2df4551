package parts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPart(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p, err := NewPart("  BC547 ", 1)
		require.NoError(t, err)
		assert.Equal(t, "BC547", p.Name)
		assert.Equal(t, uint(1), p.CategoryID)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := NewPart("", 1)
		assert.Error(t, err)
	})

	t.Run("missing category", func(t *testing.T) {
		_, err := NewPart("BC547", 0)
		assert.Error(t, err)
	})
}

func TestPart_Validate(t *testing.T) {
	negative := -1.0
	blank := "   "

	p := &Part{Name: "x", CategoryID: 1, Mass: &negative}
	assert.Error(t, p.Validate())

	p = &Part{Name: "x", CategoryID: 1, ManufacturingStatus: "gone"}
	assert.Error(t, p.Validate())

	p = &Part{Name: "x", CategoryID: 1, IPN: &blank}
	require.NoError(t, p.Validate())
	assert.Nil(t, p.IPN, "blank IPNs are stored as NULL")
}

func TestPart_TagList(t *testing.T) {
	p := &Part{Tags: "smd, transistor,,npn "}
	assert.Equal(t, []string{"smd", "transistor", "npn"}, p.TagList())
	assert.Nil(t, (&Part{}).TagList())
}

func TestAmountSum(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	lots := []PartLot{
		{Amount: 10},
		{Amount: 5, ExpirationDate: &future},
		{Amount: 100, ExpirationDate: &past},
		{Amount: 7, InstockUnknown: true},
	}
	assert.Equal(t, 15.0, AmountSum(lots, now))
}

func TestCategory_CheckPartName(t *testing.T) {
	c := &Category{PartnameRegex: `^R\d+$`}
	c.Name = "Resistors"
	require.NoError(t, c.Validate())

	assert.NoError(t, c.CheckPartName("R100"))
	assert.Error(t, c.CheckPartName("C100"))

	c.PartnameRegex = "("
	assert.Error(t, c.Validate())
}
