package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/shared"
)

func savedEntry(t *testing.T, repo *GormLogEntryRepository, e *logsystem.LogEntry, at time.Time) *logsystem.LogEntry {
	t.Helper()
	e.Timestamp = at
	require.NoError(t, repo.Save(context.Background(), e))
	require.NotZero(t, e.ID)
	return e
}

func TestGormLogEntryRepository_SaveAndFind(t *testing.T) {
	repo := NewGormLogEntryRepository(newTestDB(t))
	ctx := context.Background()

	part := &parts.Part{BaseEntity: shared.BaseEntity{ID: 12}, Name: "LM317"}
	edit := logsystem.NewElementEdited(part, []string{"name"},
		shared.Snapshot{"name": "LM117"}, shared.Snapshot{"name": "LM317"})
	edit.SetUser(uintPtr(2), "admin").SetComment("typo")
	savedEntry(t, repo, edit, time.Now())

	got, err := repo.FindByID(ctx, edit.ID)
	require.NoError(t, err)
	assert.Equal(t, logsystem.TypeElementEdited, got.Type)
	assert.Equal(t, shared.TargetPart, got.TargetType)
	assert.Equal(t, uint(12), got.TargetID)
	assert.Equal(t, "admin", got.Username)
	assert.Equal(t, "typo", got.Comment())
	assert.Equal(t, []string{"name"}, got.ChangedFields())
	assert.Equal(t, "LM117", got.OldData()["name"])

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormLogEntryRepository_Filter(t *testing.T) {
	repo := NewGormLogEntryRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now()

	part := &parts.Part{BaseEntity: shared.BaseEntity{ID: 1}}
	savedEntry(t, repo, logsystem.NewElementCreated(part), now.Add(-time.Hour))
	savedEntry(t, repo, logsystem.NewUserNotAllowed("/api/v1/parts", "denied"), now.Add(-time.Minute))
	savedEntry(t, repo, logsystem.NewUserLogin("127.0.0.1").SetUser(uintPtr(3), "bob"), now)

	t.Run("newest first", func(t *testing.T) {
		all, err := repo.FindAll(ctx, logsystem.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, logsystem.TypeUserLogin, all[0].Type)
	})

	t.Run("min level keeps more severe entries", func(t *testing.T) {
		f := logsystem.DefaultFilter()
		lvl := logsystem.LevelWarning
		f.MinLevel = &lvl
		all, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, logsystem.TypeUserNotAllowed, all[0].Type)
	})

	t.Run("by user and time range", func(t *testing.T) {
		f := logsystem.DefaultFilter()
		f.UserID = uintPtr(3)
		n, err := repo.Count(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		f = logsystem.DefaultFilter()
		from := now.Add(-2 * time.Minute)
		f.From = &from
		n, err = repo.Count(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("by target", func(t *testing.T) {
		f := logsystem.DefaultFilter()
		f.TargetType = shared.TargetPart
		f.TargetID = 1
		f.Types = []logsystem.Type{logsystem.TypeElementCreated}
		n, err := repo.Count(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestGormLogEntryRepository_FindLatestDeletion(t *testing.T) {
	repo := NewGormLogEntryRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now()

	part := &parts.Part{BaseEntity: shared.BaseEntity{ID: 5}, Name: "NE555"}
	lot := &parts.PartLot{BaseEntity: shared.BaseEntity{ID: 40}, PartID: 5}
	otherLot := &parts.PartLot{BaseEntity: shared.BaseEntity{ID: 41}, PartID: 5}

	savedEntry(t, repo, logsystem.NewCollectionElementDeleted(part, "part_lots", otherLot, shared.Snapshot{"amount": 1.0}), now.Add(-time.Minute))
	coll := savedEntry(t, repo, logsystem.NewCollectionElementDeleted(part, "part_lots", lot, shared.Snapshot{"amount": 3.0}), now)

	t.Run("falls back to collection deletions", func(t *testing.T) {
		got, err := repo.FindLatestDeletion(ctx, shared.TargetPartLot, 40)
		require.NoError(t, err)
		assert.Equal(t, coll.ID, got.ID)
		assert.Equal(t, 3.0, got.OldData()["amount"])
	})

	t.Run("prefers element deletions", func(t *testing.T) {
		del := savedEntry(t, repo, logsystem.NewElementDeleted(lot, "", shared.Snapshot{"amount": 2.0}), now.Add(-time.Hour))
		got, err := repo.FindLatestDeletion(ctx, shared.TargetPartLot, 40)
		require.NoError(t, err)
		assert.Equal(t, del.ID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.FindLatestDeletion(ctx, shared.TargetPartLot, 99)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("collection deletions since", func(t *testing.T) {
		got, err := repo.FindCollectionDeletionsSince(ctx, shared.TargetPart, 5, now.Add(-30*time.Second))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint(40), got[0].Uint(logsystem.ExtraDeletedID))
	})
}

func TestGormLogEntryRepository_History(t *testing.T) {
	repo := NewGormLogEntryRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now()
	part := &parts.Part{BaseEntity: shared.BaseEntity{ID: 8}}

	created := savedEntry(t, repo, logsystem.NewElementCreated(part).SetUser(uintPtr(1), "alice"), now.Add(-3*time.Hour))
	savedEntry(t, repo, logsystem.NewElementEdited(part, []string{"name"}, shared.Snapshot{"name": "a"}, nil), now.Add(-2*time.Hour))
	last := savedEntry(t, repo, logsystem.NewElementEdited(part, []string{"name"}, shared.Snapshot{"name": "b"}, nil).SetUser(uintPtr(2), "bob"), now.Add(-time.Hour))

	got, err := repo.FindCreation(ctx, shared.TargetPart, 8)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	edits, err := repo.FindEditsSince(ctx, shared.TargetPart, 8, now.Add(-150*time.Minute))
	require.NoError(t, err)
	require.Len(t, edits, 2)
	assert.Equal(t, last.ID, edits[0].ID)

	editor, err := repo.FindLastEditor(ctx, shared.TargetPart, 8)
	require.NoError(t, err)
	assert.Equal(t, "bob", editor.Username)

	require.NoError(t, repo.Delete(ctx, last.ID))
	assert.ErrorIs(t, repo.Delete(ctx, last.ID), shared.ErrNotFound)
}
