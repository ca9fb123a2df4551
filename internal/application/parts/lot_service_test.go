package parts

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/pricing"
	"github.com/partdb/backend/internal/domain/shared"
)

func newCategory(name string, parent *uint) *parts.Category {
	c := &parts.Category{}
	c.Name = name
	c.ParentID = parent
	return c
}

func TestPartService_CreateWithInitialLot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cat := f.category(t, "Transistors", nil)

	p := f.part(t, "BC547", cat.ID, &CreateLotRequest{Description: "Drawer", Amount: 25})
	assert.Equal(t, 25.0, p.TotalAmount)
	require.Len(t, p.Lots, 1)
	assert.Equal(t, "- (Drawer): 25", p.Lots[0].SelectLabel)

	var partCreated *logsystem.LogEntry
	for _, e := range f.entries(t, logsystem.TypeElementCreated) {
		if e.TargetType == shared.TargetPart {
			partCreated = &e
		}
	}
	require.NotNil(t, partCreated)
	instock, ok := partCreated.Float(logsystem.ExtraInstock)
	require.True(t, ok)
	assert.Equal(t, 25.0, instock)

	ipn := "IPN-1"
	_, err := f.parts.Update(ctx, p.ID, UpdatePartRequest{IPN: &ipn})
	require.NoError(t, err)
	other := f.part(t, "BC548", cat.ID, nil)
	_, err = f.parts.Update(ctx, other.ID, UpdatePartRequest{IPN: &ipn})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestPartService_CategoryNamePattern(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cat := newCategory("Resistors", nil)
	cat.PartnameRegex = `^R\d+$`
	require.NoError(t, f.categories.Create(ctx, cat, ""))

	_, err := f.parts.Create(ctx, CreatePartRequest{Name: "C100", CategoryID: cat.ID})
	assert.Error(t, err)
	_, err = f.parts.Create(ctx, CreatePartRequest{Name: "R100", CategoryID: cat.ID})
	assert.NoError(t, err)
}

func TestPartService_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cat := f.category(t, "ICs", nil)
	supplier := &parts.Supplier{}
	supplier.Name = "Reichelt"
	require.NoError(t, f.suppliers.Create(ctx, supplier, ""))

	p := f.part(t, "NE555", cat.ID, &CreateLotRequest{Amount: 3})
	od, err := f.orderdetails.Create(ctx, p.ID, CreateOrderdetailRequest{SupplierID: supplier.ID, SupplierPartNr: "NE 555"})
	require.NoError(t, err)
	_, err = f.orderdetails.AddPricedetail(ctx, od.ID, PricedetailRequest{Price: decimal.RequireFromString("0.35")})
	require.NoError(t, err)

	require.NoError(t, f.parts.Delete(ctx, p.ID, "obsolete"))

	_, err = f.parts.Get(ctx, p.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	deleted := f.entries(t, logsystem.TypeElementDeleted)
	types := map[shared.TargetType]int{}
	for _, e := range deleted {
		types[e.TargetType]++
	}
	assert.Equal(t, 1, types[shared.TargetPart])
	assert.Equal(t, 1, types[shared.TargetPartLot])
	assert.Equal(t, 1, types[shared.TargetOrderdetail])
	assert.Equal(t, 1, types[shared.TargetPricedetail])
	assert.Len(t, f.entries(t, logsystem.TypeCollectionElementDeleted), 3)
}

func TestPartService_AveragePrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cat := f.category(t, "ICs", nil)
	supplier := &parts.Supplier{}
	supplier.Name = "Mouser"
	require.NoError(t, f.suppliers.Create(ctx, supplier, ""))
	rate := decimal.RequireFromString("2")
	usd := &pricing.Currency{ISOCode: "USD", ExchangeRate: &rate}
	usd.Name = "Dollar"
	require.NoError(t, f.currencies.Create(ctx, usd, ""))

	p := f.part(t, "LM358", cat.ID, nil)
	od1, err := f.orderdetails.Create(ctx, p.ID, CreateOrderdetailRequest{SupplierID: supplier.ID})
	require.NoError(t, err)
	_, err = f.orderdetails.AddPricedetail(ctx, od1.ID, PricedetailRequest{Price: decimal.RequireFromString("1")})
	require.NoError(t, err)
	od2, err := f.orderdetails.Create(ctx, p.ID, CreateOrderdetailRequest{SupplierID: supplier.ID})
	require.NoError(t, err)
	_, err = f.orderdetails.AddPricedetail(ctx, od2.ID, PricedetailRequest{Price: decimal.RequireFromString("2"), CurrencyID: &usd.ID})
	require.NoError(t, err)

	avg, err := f.parts.AveragePrice(ctx, p.ID, decimal.NewFromInt(1))
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.True(t, decimal.RequireFromString("2.5").Equal(*avg), avg.String())
}

func TestLotService_StockOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cat := f.category(t, "Resistors", nil)
	p := f.part(t, "10k", cat.ID, &CreateLotRequest{Description: "A", Amount: 10})
	lotA := p.Lots[0].ID
	lotB, err := f.lots.Create(ctx, p.ID, CreateLotRequest{Description: "B", Amount: 0})
	require.NoError(t, err)

	t.Run("add rounds to whole pieces", func(t *testing.T) {
		lot, err := f.lots.Add(ctx, lotA, StockRequest{Amount: 4.6, Comment: "restock"})
		require.NoError(t, err)
		assert.Equal(t, 15.0, lot.Amount)
	})

	t.Run("withdraw more than stored fails", func(t *testing.T) {
		_, err := f.lots.Withdraw(ctx, lotA, StockRequest{Amount: 100})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})

	t.Run("move between lots", func(t *testing.T) {
		_, err := f.lots.Move(ctx, lotA, MoveRequest{TargetLotID: lotB.ID, Amount: 5})
		require.NoError(t, err)
		b, err := f.lots.Get(ctx, lotB.ID)
		require.NoError(t, err)
		assert.Equal(t, 5.0, b.Amount)
	})

	t.Run("withdraw can delete the empty lot", func(t *testing.T) {
		lot, err := f.lots.Withdraw(ctx, lotB.ID, StockRequest{Amount: 5, DeleteLotIfEmpty: true})
		require.NoError(t, err)
		assert.Nil(t, lot)
		_, err = f.lots.Get(ctx, lotB.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	changes := f.entries(t, logsystem.TypePartStockChanged)
	require.Len(t, changes, 3)
	// newest first: withdraw, move, add
	withdraw, ok := logsystem.AsPartStockChanged(&changes[0])
	require.True(t, ok)
	assert.Equal(t, logsystem.StockWithdraw, withdraw.ChangeType())
	assert.Equal(t, 10.0, withdraw.NewTotalAmount())

	move, _ := logsystem.AsPartStockChanged(&changes[1])
	assert.Equal(t, logsystem.StockMove, move.ChangeType())
	assert.Equal(t, 15.0, move.OldAmount())
	assert.Equal(t, 10.0, move.NewAmount())
	assert.Equal(t, lotB.ID, move.MoveToTarget())

	add, _ := logsystem.AsPartStockChanged(&changes[2])
	assert.Equal(t, "restock", add.Comment())
	assert.Equal(t, 15.0, add.NewTotalAmount())
}

func TestLotService_CommentRequired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, logsystem.CommentPartStockOperation)
	cat := f.category(t, "Resistors", nil)
	p := f.part(t, "1k", cat.ID, &CreateLotRequest{Amount: 1})

	_, err := f.lots.Add(ctx, p.Lots[0].ID, StockRequest{Amount: 1})
	assert.ErrorIs(t, err, shared.ErrCommentRequired)

	_, err = f.lots.Add(ctx, p.Lots[0].ID, StockRequest{Amount: 1, Comment: "found more"})
	assert.NoError(t, err)
}

func TestLotService_LocationConstraints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cat := f.category(t, "Misc", nil)
	first := f.part(t, "First", cat.ID, nil)
	second := f.part(t, "Second", cat.ID, nil)

	full := f.location(t, "Full box", func(l *parts.StorageLocation) { l.IsFull = true })
	single := f.location(t, "Single", func(l *parts.StorageLocation) { l.OnlySinglePart = true })

	_, err := f.lots.Create(ctx, first.ID, CreateLotRequest{StorageLocationID: &full.ID, Amount: 1})
	assertCode(t, err, "LOCATION_FULL")

	_, err = f.lots.Create(ctx, first.ID, CreateLotRequest{StorageLocationID: &single.ID, Amount: 1})
	require.NoError(t, err)
	_, err = f.lots.Create(ctx, second.ID, CreateLotRequest{StorageLocationID: &single.ID, Amount: 1})
	assertCode(t, err, "LOCATION_SINGLE_PART")

	t.Run("adding to a lot in a full location fails", func(t *testing.T) {
		lot, err := f.lots.Create(ctx, second.ID, CreateLotRequest{Amount: 2})
		require.NoError(t, err)
		loc, err := f.locations.Update(ctx, single.ID, map[string]any{"is_full": true}, "")
		require.NoError(t, err)
		require.True(t, loc.IsFull)

		firstLots, err := f.lots.ListByPart(ctx, first.ID)
		require.NoError(t, err)
		_, err = f.lots.Add(ctx, firstLots[0].ID, StockRequest{Amount: 1})
		assertCode(t, err, "LOCATION_FULL")

		_, err = f.lots.Withdraw(ctx, lot.ID, StockRequest{Amount: 1})
		assert.NoError(t, err)
	})
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}
