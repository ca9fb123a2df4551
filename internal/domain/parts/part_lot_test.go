package parts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/domain/shared"
)

func TestPartLot_AddWithdraw(t *testing.T) {
	lot, err := NewPartLot(1, 10)
	require.NoError(t, err)

	require.NoError(t, lot.Add(5))
	assert.Equal(t, 15.0, lot.Amount)

	require.NoError(t, lot.Withdraw(15))
	assert.Equal(t, 0.0, lot.Amount)

	err = lot.Withdraw(1)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	assert.Error(t, lot.Add(0))
	assert.Error(t, lot.Add(-3))
}

func TestPartLot_UnknownInstockCannotChange(t *testing.T) {
	lot := &PartLot{PartID: 1, InstockUnknown: true}
	assert.ErrorIs(t, lot.Add(1), shared.ErrInvalidState)
	assert.ErrorIs(t, lot.Withdraw(1), shared.ErrInvalidState)
}

func TestPartLot_SelectLabel(t *testing.T) {
	lot := &PartLot{Description: "Box 1", Amount: 12.5}
	assert.Equal(t, "Shelf → Box (Box 1): 12.5", lot.SelectLabel("Shelf → Box"))

	lot.InstockUnknown = true
	assert.Equal(t, "- (Box 1): ?", lot.SelectLabel(""))
}

func TestRoundAmount(t *testing.T) {
	assert.Equal(t, 3.0, RoundAmount(2.6, nil))
	assert.Equal(t, 3.0, RoundAmount(2.6, &MeasurementUnit{IsInteger: true}))
	assert.Equal(t, 2.6, RoundAmount(2.6, &MeasurementUnit{IsInteger: false}))
}

func TestCheckLocationAccepts(t *testing.T) {
	owner := uint(5)
	other := uint(6)

	tests := []struct {
		name    string
		loc     *StorageLocation
		partID  uint
		owner   *uint
		present []uint
		adding  bool
		code    string
	}{
		{name: "nil location", loc: nil, partID: 1},
		{name: "full location rejects additions", loc: &StorageLocation{IsFull: true}, partID: 1, adding: true, code: "LOCATION_FULL"},
		{name: "full location allows withdrawals", loc: &StorageLocation{IsFull: true}, partID: 1},
		{name: "single part with other part", loc: &StorageLocation{OnlySinglePart: true}, partID: 1, present: []uint{2}, code: "LOCATION_SINGLE_PART"},
		{name: "single part with same part", loc: &StorageLocation{OnlySinglePart: true}, partID: 1, present: []uint{1}},
		{name: "existing parts only, new part", loc: &StorageLocation{LimitToExistingParts: true}, partID: 1, present: []uint{2}, code: "LOCATION_EXISTING_PARTS_ONLY"},
		{name: "existing parts only, known part", loc: &StorageLocation{LimitToExistingParts: true}, partID: 2, present: []uint{2}},
		{name: "owner mismatch", loc: &StorageLocation{PartOwnerMustMatch: true, OwnerID: &owner}, partID: 1, owner: &other, code: "LOCATION_OWNER_MISMATCH"},
		{name: "owner missing", loc: &StorageLocation{PartOwnerMustMatch: true, OwnerID: &owner}, partID: 1, code: "LOCATION_OWNER_MISMATCH"},
		{name: "owner match", loc: &StorageLocation{PartOwnerMustMatch: true, OwnerID: &owner}, partID: 1, owner: &owner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckLocationAccepts(tt.loc, tt.partID, tt.owner, tt.present, tt.adding)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
		})
	}
}
