package logsystem

import (
	"context"

	"github.com/partdb/backend/internal/domain/shared"
)

// ElementStore loads and writes tracked elements of any type. Undo and time
// travel work on elements only known by target type and ID.
type ElementStore interface {
	// New returns an empty element of type t
	New(t shared.TargetType) (shared.Trackable, error)
	Find(ctx context.Context, t shared.TargetType, id uint) (shared.Trackable, error)
	Exists(ctx context.Context, t shared.TargetType, id uint) (bool, error)
	// Insert stores a new element keeping its ID and creation time
	Insert(ctx context.Context, element shared.Trackable) error
	Save(ctx context.Context, element shared.Trackable) error
	Delete(ctx context.Context, element shared.Trackable) error
	// FindChildren returns the members of one collection of owner
	FindChildren(ctx context.Context, owner shared.Trackable, collection shared.Collection) ([]shared.Trackable, error)
	// CheckDelete fails if elements outside the collections of element
	// still reference it
	CheckDelete(ctx context.Context, element shared.Trackable) error
	// CheckReferences fails if an element referenced by element is missing
	CheckReferences(ctx context.Context, element shared.Trackable) error
}
