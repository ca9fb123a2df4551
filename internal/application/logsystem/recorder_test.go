package logsystem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/shared"
	"github.com/partdb/backend/internal/infrastructure/config"
)

func TestSettingsFromConfig(t *testing.T) {
	s, err := SettingsFromConfig(config.AuditConfig{
		SaveNewData: true,
		MinLevel:    "notice",
		Blacklist:   []string{"user_login"},
	})
	require.NoError(t, err)
	assert.Equal(t, logsystem.LevelNotice, s.MinLevel)
	assert.Equal(t, []logsystem.Type{logsystem.TypeUserLogin}, s.Blacklist)

	_, err = SettingsFromConfig(config.AuditConfig{Whitelist: []string{"nope"}})
	assert.Error(t, err)
	_, err = SettingsFromConfig(config.AuditConfig{MinLevel: "loud"})
	assert.Error(t, err)
}

func TestSettings_Allows(t *testing.T) {
	s := DefaultSettings()
	assert.True(t, s.Allows(logsystem.NewUserLogin("::1")))

	debug := logsystem.NewUserLogin("::1")
	debug.Level = logsystem.LevelDebug
	assert.False(t, s.Allows(debug))

	s.Blacklist = []logsystem.Type{logsystem.TypeUserLogin}
	assert.False(t, s.Allows(logsystem.NewUserLogin("::1")))

	s = DefaultSettings()
	s.Whitelist = []logsystem.Type{logsystem.TypeElementDeleted}
	assert.False(t, s.Allows(logsystem.NewUserLogout("::1")))
	assert.True(t, s.Allows(logsystem.NewElementDeleted(&parts.Part{}, "x", nil)))
}

func TestRecorder_Add(t *testing.T) {
	t.Run("fills actor and undo marker", func(t *testing.T) {
		f := newFixture(DefaultSettings())
		uid := uint(4)
		ctx := WithActor(context.Background(), Actor{UserID: &uid, Username: "alice"})
		ctx = WithUndoMarker(ctx, 9, logsystem.UndoModeRevert)

		require.NoError(t, f.recorder.Add(ctx, logsystem.NewUserLogin("10.0.0.1")))
		stored := f.logs.ofType(logsystem.TypeUserLogin)
		require.Len(t, stored, 1)
		assert.Equal(t, "alice", stored[0].Username)
		assert.Equal(t, uint(9), stored[0].UndoneEntryID())
		assert.Equal(t, logsystem.UndoModeRevert, stored[0].UndoMode())
		assert.Len(t, f.publisher.events, 1)
	})

	t.Run("console user without actor", func(t *testing.T) {
		f := newFixture(DefaultSettings())
		require.NoError(t, f.recorder.Add(context.Background(), logsystem.NewUserLogout("")))
		assert.Equal(t, ConsoleUsername, f.logs.ofType(logsystem.TypeUserLogout)[0].Username)
	})

	t.Run("filtered entries are dropped", func(t *testing.T) {
		s := DefaultSettings()
		s.Blacklist = []logsystem.Type{logsystem.TypeUserLogin}
		f := newFixture(s)
		require.NoError(t, f.recorder.Add(context.Background(), logsystem.NewUserLogin("")))
		assert.Empty(t, f.logs.entries)
		assert.Empty(t, f.publisher.events)
	})
}

func TestRecorder_Edited(t *testing.T) {
	part := &parts.Part{BaseEntity: shared.BaseEntity{ID: 3}, Name: "old", CategoryID: 1}
	before, err := shared.TakeSnapshot(part)
	require.NoError(t, err)

	t.Run("no entry without changes", func(t *testing.T) {
		f := newFixture(DefaultSettings())
		changed, err := f.recorder.Edited(context.Background(), part, before, "")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, f.logs.entries)
	})

	t.Run("records changed fields and values", func(t *testing.T) {
		f := newFixture(DefaultSettings())
		edited := *part
		edited.Name = "new"
		edited.Favorite = true
		changed, err := f.recorder.Edited(context.Background(), &edited, before, "renamed")
		require.NoError(t, err)
		assert.True(t, changed)

		e := f.logs.ofType(logsystem.TypeElementEdited)[0]
		assert.Equal(t, []string{"favorite", "name"}, e.ChangedFields())
		assert.Equal(t, "old", e.OldData()["name"])
		assert.Equal(t, "new", e.NewData()["name"])
		assert.Equal(t, "renamed", e.Comment())
	})

	t.Run("settings strip data", func(t *testing.T) {
		s := DefaultSettings()
		s.SaveChangedData = false
		s.SaveNewData = false
		f := newFixture(s)
		edited := *part
		edited.Name = "new"
		_, err := f.recorder.Edited(context.Background(), &edited, before, "")
		require.NoError(t, err)

		e := f.logs.ofType(logsystem.TypeElementEdited)[0]
		assert.False(t, e.HasOldData())
		assert.Nil(t, e.NewData())
		assert.Equal(t, []string{"name"}, e.ChangedFields())
	})
}

func TestRecorder_DeletedKeepsCreationTime(t *testing.T) {
	f := newFixture(DefaultSettings())
	part, err := parts.NewPart("NE555", 1)
	require.NoError(t, err)
	part.ID = 5

	require.NoError(t, f.recorder.Deleted(context.Background(), part, "gone"))
	e := f.logs.ofType(logsystem.TypeElementDeleted)[0]
	assert.Equal(t, "NE555", e.String(logsystem.ExtraName))
	assert.Equal(t, "gone", e.Comment())
	assert.NotEmpty(t, e.OldData()[createdAtKey])
}
