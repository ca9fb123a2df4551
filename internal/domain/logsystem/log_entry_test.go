package logsystem

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/domain/shared"
)

type fakeElement struct {
	shared.BaseEntity
	Name string `json:"name"`
}

func (*fakeElement) TargetType() shared.TargetType { return shared.TargetCategory }

// roundTrip simulates reading the entry back from the database
func roundTrip(t *testing.T, e *LogEntry) *LogEntry {
	t.Helper()
	raw, err := json.Marshal(e)
	require.NoError(t, err)
	var out LogEntry
	require.NoError(t, json.Unmarshal(raw, &out))
	return &out
}

func TestLevel(t *testing.T) {
	assert.Equal(t, "warning", LevelWarning.String())
	assert.True(t, LevelError.AtLeast(LevelWarning))
	assert.False(t, LevelDebug.AtLeast(LevelInfo))

	l, err := ParseLevel("Notice")
	require.NoError(t, err)
	assert.Equal(t, LevelNotice, l)
	l, err = ParseLevel("3")
	require.NoError(t, err)
	assert.Equal(t, LevelError, l)
	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestElementEdited_OldData(t *testing.T) {
	el := &fakeElement{Name: "new"}
	el.ID = 7
	e := NewElementEdited(el, []string{"name"}, shared.Snapshot{"name": "old"}, shared.Snapshot{"name": "new"})
	e.SetComment("renamed")

	read := roundTrip(t, e)
	assert.Equal(t, shared.TargetCategory, read.TargetType)
	assert.Equal(t, uint(7), read.TargetID)
	assert.True(t, read.HasOldData())
	assert.Equal(t, "old", read.OldData()["name"])
	assert.Equal(t, "new", read.NewData()["name"])
	assert.Equal(t, []string{"name"}, read.ChangedFields())
	assert.Equal(t, "renamed", read.Comment())
}

func TestUndoMarker(t *testing.T) {
	e := NewElementCreated(&fakeElement{})
	assert.False(t, e.IsUndoEvent())

	e.SetUndoMarker(42, UndoModeRevert)
	read := roundTrip(t, e)
	assert.True(t, read.IsUndoEvent())
	assert.Equal(t, uint(42), read.UndoneEntryID())
	assert.Equal(t, UndoModeRevert, read.UndoMode())
}

func TestElementDeleted_WithoutSnapshot(t *testing.T) {
	e := NewElementDeleted(&fakeElement{}, "Resistors", nil)
	assert.False(t, e.HasOldData())
	assert.Nil(t, e.OldData())

	e = NewElementDeleted(&fakeElement{}, "Resistors", shared.Snapshot{"name": "Resistors"})
	assert.True(t, e.HasOldData())
}

func TestPartStockChanged(t *testing.T) {
	part := &fakeElement{}
	part.ID = 3
	e := NewPartStockChanged(part, StockMove, 10, 4, 10, "moved", 9)
	v, ok := AsPartStockChanged(roundTrip(t, e))
	require.True(t, ok)
	assert.Equal(t, StockMove, v.ChangeType())
	assert.Equal(t, -6.0, v.Change())
	assert.Equal(t, 10.0, v.NewTotalAmount())
	assert.Equal(t, uint(9), v.MoveToTarget())
	assert.Equal(t, "moved", v.Comment())

	e = NewPartStockChanged(part, StockAdd, 1, 2, 2, "", 9)
	_, hasTarget := e.Extra[ExtraStockMoveTo]
	assert.False(t, hasTarget)

	// fractional amounts of a reel measured in meters
	e = NewPartStockChanged(part, StockWithdraw, 0.3, 0.1, 0.1, "", 0)
	v, _ = AsPartStockChanged(roundTrip(t, e))
	assert.Equal(t, -0.2, v.Change())
	e = NewPartStockChanged(part, StockAdd, 0.1, 0.3, 0.3, "", 0)
	v, _ = AsPartStockChanged(roundTrip(t, e))
	assert.Equal(t, 0.2, v.Change())
}

func TestInstockChanged(t *testing.T) {
	e := &LogEntry{Type: TypeInstockChanged, Timestamp: time.Now(), Extra: map[string]any{
		"o": float64(10), "n": float64(4), "c": "legacy", "p": -1.5,
	}}
	v, ok := AsInstockChanged(e)
	require.True(t, ok)
	assert.Equal(t, -6, v.Difference(false))
	assert.Equal(t, 6, v.Difference(true))
	assert.True(t, v.IsWithdrawal())
	assert.Equal(t, 1.5, v.Price(true))
	assert.Equal(t, -1.5, v.Price(false))

	e.Extra["n"] = float64(unknownInstock)
	assert.Equal(t, 0, v.Difference(false))
}

func TestUserNotAllowed(t *testing.T) {
	e := NewUserNotAllowed("/parts/1", "no access")
	assert.Equal(t, LevelWarning, e.Level)
	v, ok := AsUserNotAllowed(e)
	require.True(t, ok)
	assert.Equal(t, "/parts/1", v.Path())
	assert.Equal(t, "no access", v.Message())

	legacy := &LogEntry{Type: TypeUserNotAllowed, Extra: map[string]any{}}
	v, _ = AsUserNotAllowed(legacy)
	assert.Equal(t, "legacy", v.Path())
	assert.Equal(t, "", v.Message())
}

func TestCollectionElementDeleted(t *testing.T) {
	owner := &fakeElement{}
	owner.ID = 1
	child := &fakeElement{}
	child.ID = 5
	e := NewCollectionElementDeleted(owner, "part_lots", child, shared.Snapshot{"amount": 3})
	v, ok := AsCollectionElementDeleted(roundTrip(t, e))
	require.True(t, ok)
	assert.Equal(t, "part_lots", v.CollectionName())
	assert.Equal(t, shared.TargetCategory, v.DeletedType())
	assert.Equal(t, uint(5), v.DeletedID())
}

func TestDatabaseUpdated(t *testing.T) {
	e := NewDatabaseUpdated("3", "5", false)
	assert.Equal(t, LevelError, e.Level)
	v, ok := AsDatabaseUpdated(e)
	require.True(t, ok)
	assert.Equal(t, "3", v.OldVersion())
	assert.Equal(t, "5", v.NewVersion())
	assert.False(t, v.IsSuccessful())
}

func TestEventCommentNeededHelper(t *testing.T) {
	h, err := NewEventCommentNeededHelper([]string{CommentPartEdit, CommentPartCreate})
	require.NoError(t, err)

	needed, err := h.IsCommentNeeded(CommentPartEdit)
	require.NoError(t, err)
	assert.True(t, needed)

	needed, err = h.IsCommentNeeded(CommentPartDelete)
	require.NoError(t, err)
	assert.False(t, needed)

	_, err = h.IsCommentNeeded("aaaa")
	assert.Error(t, err)

	_, err = NewEventCommentNeededHelper([]string{"aaaa"})
	assert.Error(t, err)
}
