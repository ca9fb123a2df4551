package logsystem

import (
	"context"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

// Tracker performs tracked writes: every change of an element is stored
// together with its log entry in one transaction, and an ElementChanged
// event is published after commit.
type Tracker struct {
	store     logsystem.ElementStore
	recorder  *Recorder
	tx        shared.TransactionManager
	publisher shared.EventPublisher
}

// NewTracker creates a Tracker. publisher may be nil.
func NewTracker(store logsystem.ElementStore, recorder *Recorder, tx shared.TransactionManager, publisher shared.EventPublisher) *Tracker {
	return &Tracker{store: store, recorder: recorder, tx: tx, publisher: publisher}
}

// Store returns the underlying element store
func (t *Tracker) Store() logsystem.ElementStore { return t.store }

// Recorder returns the recorder used for entries
func (t *Tracker) Recorder() *Recorder { return t.recorder }

// Transaction runs fn in the tracker's transaction manager, so several
// tracked writes commit together
func (t *Tracker) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.tx.Transaction(ctx, fn)
}

// Create stores a new element and records its creation
func (t *Tracker) Create(ctx context.Context, element shared.Trackable, comment string) error {
	return t.CreateWith(ctx, element, comment, nil)
}

// CreateWith is Create with a hook to extend the creation entry
func (t *Tracker) CreateWith(ctx context.Context, element shared.Trackable, comment string, extend func(*logsystem.LogEntry)) error {
	return t.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := t.store.Save(ctx, element); err != nil {
			return err
		}
		e, err := t.recorder.CreatedEntry(element, comment)
		if err != nil {
			return err
		}
		if extend != nil {
			extend(e)
		}
		if err := t.recorder.Add(ctx, e); err != nil {
			return err
		}
		t.changed(ctx, element, shared.ElementCreated)
		return nil
	})
}

// Restore inserts a previously deleted element with its original ID and
// records it as created. Elements whose parent or owner is gone are refused.
func (t *Tracker) Restore(ctx context.Context, element shared.Trackable) error {
	return t.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := t.store.CheckReferences(ctx, element); err != nil {
			return err
		}
		if err := t.store.Insert(ctx, element); err != nil {
			return err
		}
		if err := t.recorder.Created(ctx, element, ""); err != nil {
			return err
		}
		t.changed(ctx, element, shared.ElementCreated)
		return nil
	})
}

// Update saves element and records the fields changed since before
func (t *Tracker) Update(ctx context.Context, element shared.Trackable, before shared.Snapshot, comment string) error {
	return t.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := t.store.Save(ctx, element); err != nil {
			return err
		}
		changed, err := t.recorder.Edited(ctx, element, before, comment)
		if err != nil {
			return err
		}
		if changed {
			t.changed(ctx, element, shared.ElementUpdated)
		}
		return nil
	})
}

// Delete removes element together with the members of its collections.
// Each removed member gets its own deletion entry plus a collection entry on
// its owner, so reverting the owner can bring it back.
func (t *Tracker) Delete(ctx context.Context, element shared.Trackable, comment string) error {
	return t.tx.Transaction(ctx, func(ctx context.Context) error {
		// the owner's entry goes first so that reverting to it restores
		// the members removed below
		if err := t.recorder.Deleted(ctx, element, comment); err != nil {
			return err
		}
		if err := t.deleteCollections(ctx, element); err != nil {
			return err
		}
		if err := t.store.Delete(ctx, element); err != nil {
			return err
		}
		t.changed(ctx, element, shared.ElementDeleted)
		return nil
	})
}

// DeleteFromCollection removes a collection member on its own, as when a
// single lot or orderdetail is deleted
func (t *Tracker) DeleteFromCollection(ctx context.Context, owner shared.Trackable, collection string, child shared.Trackable, comment string) error {
	return t.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := t.recorder.CollectionElementDeleted(ctx, owner, collection, child); err != nil {
			return err
		}
		return t.Delete(ctx, child, comment)
	})
}

func (t *Tracker) deleteCollections(ctx context.Context, owner shared.Trackable) error {
	for _, c := range shared.CollectionsOf(owner.TargetType()) {
		children, err := t.store.FindChildren(ctx, owner, c)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := t.DeleteFromCollection(ctx, owner, c.Name, child, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Tracker) changed(ctx context.Context, element shared.Trackable, action shared.ElementAction) {
	if t.publisher == nil {
		return
	}
	event := shared.NewElementChangedEvent(element, action)
	shared.OnCommit(ctx, func(ctx context.Context) {
		_ = t.publisher.Publish(ctx, event)
	})
}
