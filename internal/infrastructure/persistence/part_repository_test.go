package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/shared"
)

func TestGormPartRepository_FindByID(t *testing.T) {
	t.Run("finds existing part", func(t *testing.T) {
		db, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormPartRepository(db)

		rows := sqlmock.NewRows([]string{"id", "name", "category_id", "min_amount"}).
			AddRow(7, "BC547", 3, 10)
		mock.ExpectQuery(`SELECT \* FROM "parts" WHERE "parts"."id" = \$1 ORDER BY "parts"."id" LIMIT \$2`).
			WithArgs(7, 1).
			WillReturnRows(rows)

		part, err := repo.FindByID(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, uint(7), part.ID)
		assert.Equal(t, "BC547", part.Name)
		assert.Equal(t, uint(3), part.CategoryID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing rows to ErrNotFound", func(t *testing.T) {
		db, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormPartRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "parts"`).
			WithArgs(9, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByID(context.Background(), 9)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPartRepository_Delete(t *testing.T) {
	db, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormPartRepository(db)

	mock.ExpectExec(`DELETE FROM "parts" WHERE "parts"."id" = \$1`).
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 4)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPartRepository_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewGormPartRepository(db)
	lots := NewGormPartLotRepository(db)

	cat := &parts.Category{StructuralElement: shared.StructuralElement{BaseEntity: shared.NewBaseEntity(), Name: "Transistors"}}
	require.NoError(t, db.Create(cat).Error)
	loc := &parts.StorageLocation{StructuralElement: shared.StructuralElement{BaseEntity: shared.NewBaseEntity(), Name: "Drawer 1"}}
	require.NoError(t, db.Create(loc).Error)

	p1, err := parts.NewPart("BC547", cat.ID)
	require.NoError(t, err)
	p1.Favorite = true
	ipn := "T-001"
	p1.IPN = &ipn
	require.NoError(t, repo.Save(ctx, p1))

	p2, err := parts.NewPart("2N3904", cat.ID)
	require.NoError(t, err)
	p2.Description = "NPN general purpose"
	require.NoError(t, repo.Save(ctx, p2))

	lot, err := parts.NewPartLot(p2.ID, 5)
	require.NoError(t, err)
	lot.StorageLocationID = &loc.ID
	require.NoError(t, lots.Save(ctx, lot))

	t.Run("search matches description", func(t *testing.T) {
		f := shared.DefaultFilter()
		f.Search = "general"
		found, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, p2.ID, found[0].ID)
	})

	t.Run("favorite", func(t *testing.T) {
		f := shared.DefaultFilter()
		f.Filters["favorite"] = true
		n, err := repo.Count(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("storage location", func(t *testing.T) {
		f := shared.DefaultFilter()
		f.Filters["storage_location_id"] = loc.ID
		found, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "2N3904", found[0].Name)
	})

	t.Run("ipn uniqueness check ignores the part itself", func(t *testing.T) {
		exists, err := repo.ExistsByIPN(ctx, "T-001", p1.ID)
		require.NoError(t, err)
		assert.False(t, exists)
		exists, err = repo.ExistsByIPN(ctx, "T-001", p2.ID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("lots at location", func(t *testing.T) {
		ids, err := lots.PartIDsAtLocation(ctx, loc.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint{p2.ID}, ids)
		ids, err = lots.PartIDsAtLocation(ctx, loc.ID, lot.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("reference counting rejects unknown columns", func(t *testing.T) {
		n, err := repo.CountByReference(ctx, "category_id", cat.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		_, err = repo.CountByReference(ctx, "name; DROP TABLE parts", 1)
		assert.Error(t, err)
	})

}
