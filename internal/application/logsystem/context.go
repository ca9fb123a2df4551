package logsystem

import (
	"context"

	"github.com/partdb/backend/internal/domain/logsystem"
)

// Actor is the user on whose behalf changes are made
type Actor struct {
	UserID   *uint
	Username string
	IP       string
}

type actorKey struct{}

// WithActor stores the acting user in ctx
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the acting user of ctx. Without one, changes are
// attributed to the console.
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{Username: ConsoleUsername}
}

// ConsoleUsername is recorded for changes made outside an HTTP request
const ConsoleUsername = "console"

type undoMarker struct {
	entryID uint
	mode    logsystem.UndoMode
}

type undoKey struct{}

// WithUndoMarker marks every entry recorded with ctx as part of undoing entryID
func WithUndoMarker(ctx context.Context, entryID uint, mode logsystem.UndoMode) context.Context {
	return context.WithValue(ctx, undoKey{}, undoMarker{entryID: entryID, mode: mode})
}

func undoMarkerFrom(ctx context.Context) (undoMarker, bool) {
	m, ok := ctx.Value(undoKey{}).(undoMarker)
	return m, ok
}
