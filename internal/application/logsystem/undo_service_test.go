package logsystem

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

func (f *fixture) undoService(granted bool) *UndoService {
	return NewUndoService(f.logs, f.tracker, f.tt, allowAll{granted: granted}, nil)
}

func (f *fixture) createPart(t *testing.T, name string) *parts.Part {
	t.Helper()
	p, err := parts.NewPart(name, 1)
	require.NoError(t, err)
	require.NoError(t, f.tracker.Create(context.Background(), p, ""))
	tick()
	return p
}

func (f *fixture) latest(t logsystem.Type) logsystem.LogEntry {
	return f.logs.ofType(t)[0]
}

// tick keeps timestamps of consecutive writes apart
func tick() { time.Sleep(2 * time.Millisecond) }

func TestUndoService_UnknownEntry(t *testing.T) {
	f := newFixture(DefaultSettings())
	_, err := f.undoService(true).UndoRevert(context.Background(), UndoRequest{Undo: 42})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Contains(t, err.Error(), "No log entry with the given ID is existing!")
}

func TestUndoService_Forbidden(t *testing.T) {
	f := newFixture(DefaultSettings())
	f.createPart(t, "BC547")
	created := f.latest(logsystem.TypeElementCreated)

	_, err := f.undoService(false).UndoRevert(context.Background(), UndoRequest{Undo: created.ID})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	require.Len(t, f.logs.ofType(logsystem.TypeUserNotAllowed), 1)

	exists, _ := f.store.Exists(context.Background(), shared.TargetPart, created.TargetID)
	assert.True(t, exists)
}

func TestUndoService_UndoCreated(t *testing.T) {
	f := newFixture(DefaultSettings())
	svc := f.undoService(true)
	ctx := context.Background()
	p := f.createPart(t, "BC547")
	created := f.latest(logsystem.TypeElementCreated)

	resp, err := svc.UndoRevert(ctx, UndoRequest{Undo: created.ID, RedirectBack: "/parts"})
	require.NoError(t, err)
	assert.Equal(t, "undo", resp.Mode)
	assert.Equal(t, "/parts", resp.Redirect)
	assert.Equal(t, []Flash{{Type: FlashSuccess, Message: MsgDeleteSuccess}}, resp.Flashes)

	exists, _ := f.store.Exists(ctx, shared.TargetPart, p.ID)
	assert.False(t, exists)
	deleted := f.latest(logsystem.TypeElementDeleted)
	assert.Equal(t, created.ID, deleted.UndoneEntryID())
	assert.Equal(t, logsystem.UndoModeUndo, deleted.UndoMode())

	resp, err = svc.UndoRevert(ctx, UndoRequest{Undo: created.ID})
	require.NoError(t, err)
	assert.Equal(t, FlashWarning, resp.Flashes[0].Type)
	assert.Equal(t, MsgAlreadyDeleted, resp.Flashes[0].Message)
}

func TestUndoService_UndoDeleted(t *testing.T) {
	f := newFixture(DefaultSettings())
	svc := f.undoService(true)
	ctx := context.Background()
	p := f.createPart(t, "LM358")
	require.NoError(t, f.tracker.Delete(ctx, p, ""))
	deleted := f.latest(logsystem.TypeElementDeleted)

	resp, err := svc.UndoRevert(ctx, UndoRequest{Undo: deleted.ID})
	require.NoError(t, err)
	assert.Equal(t, MsgUndeleteSuccess, resp.Flashes[0].Message)

	restored, err := f.store.Find(ctx, shared.TargetPart, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "LM358", restored.(*parts.Part).Name)
	assert.True(t, p.CreatedAt.Equal(restored.GetCreatedAt()))

	resp, err = svc.UndoRevert(ctx, UndoRequest{Undo: deleted.ID})
	require.NoError(t, err)
	assert.Equal(t, Flash{Type: FlashWarning, Message: MsgAlreadyUndeleted}, resp.Flashes[0])
}

func TestUndoService_UndoEdited(t *testing.T) {
	f := newFixture(DefaultSettings())
	svc := f.undoService(true)
	ctx := context.Background()
	p := f.createPart(t, "old name")

	before, _ := shared.TakeSnapshot(p)
	p.Name = "new name"
	require.NoError(t, f.tracker.Update(ctx, p, before, ""))
	edit := f.latest(logsystem.TypeElementEdited)

	resp, err := svc.UndoRevert(ctx, UndoRequest{Undo: edit.ID})
	require.NoError(t, err)
	assert.Equal(t, MsgChangeUndone, resp.Flashes[0].Message)
	current, _ := f.store.Find(ctx, shared.TargetPart, p.ID)
	assert.Equal(t, "old name", current.(*parts.Part).Name)

	require.NoError(t, f.tracker.Delete(ctx, current, ""))
	resp, err = svc.UndoRevert(ctx, UndoRequest{Undo: edit.ID})
	require.NoError(t, err)
	assert.Equal(t, Flash{Type: FlashError, Message: MsgUndeleteFirst}, resp.Flashes[0])
}

func TestUndoService_InvalidType(t *testing.T) {
	f := newFixture(DefaultSettings())
	require.NoError(t, f.recorder.Add(context.Background(), logsystem.NewUserLogin("::1")))
	login := f.latest(logsystem.TypeUserLogin)

	resp, err := f.undoService(true).UndoRevert(context.Background(), UndoRequest{Undo: login.ID})
	require.NoError(t, err)
	assert.Equal(t, Flash{Type: FlashError, Message: MsgLogTypeInvalid}, resp.Flashes[0])

	resp, err = f.undoService(true).UndoRevert(context.Background(), UndoRequest{Revert: login.ID})
	require.NoError(t, err)
	assert.Equal(t, Flash{Type: FlashError, Message: MsgTargetNotFound}, resp.Flashes[0])
}

func TestUndoService_UndoWinsOverRevert(t *testing.T) {
	f := newFixture(DefaultSettings())
	f.createPart(t, "x")
	created := f.latest(logsystem.TypeElementCreated)

	resp, err := f.undoService(true).UndoRevert(context.Background(), UndoRequest{Undo: created.ID, Revert: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "undo", resp.Mode)
}
