package logsystem

import (
	"context"
	"errors"
	"time"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

// ElementWriter persists the changes made while reverting
type ElementWriter interface {
	Restore(ctx context.Context, element shared.Trackable) error
	Update(ctx context.Context, element shared.Trackable, before shared.Snapshot, comment string) error
	Delete(ctx context.Context, element shared.Trackable, comment string) error
}

// TimeTravel rebuilds past states of elements from the log
type TimeTravel struct {
	store logsystem.ElementStore
	logs  logsystem.Repository
}

// NewTimeTravel creates a TimeTravel
func NewTimeTravel(store logsystem.ElementStore, logs logsystem.Repository) *TimeTravel {
	return &TimeTravel{store: store, logs: logs}
}

// ErrNoUndeleteData is returned when a deletion entry holds no snapshot
var ErrNoUndeleteData = shared.NewDomainError("INVALID_STATE", "The deletion log entry holds no undelete data")

// Undelete rebuilds a deleted element with its original ID and creation
// time from the newest deletion entry. The element is not stored.
func (tt *TimeTravel) Undelete(ctx context.Context, t shared.TargetType, id uint) (shared.Trackable, error) {
	entry, err := tt.logs.FindLatestDeletion(ctx, t, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_STATE", "No deletion log entry exists for this element")
		}
		return nil, err
	}
	return tt.fromDeletion(t, id, entry)
}

func (tt *TimeTravel) fromDeletion(t shared.TargetType, id uint, entry *logsystem.LogEntry) (shared.Trackable, error) {
	if !entry.HasOldData() {
		return nil, ErrNoUndeleteData
	}
	element, err := tt.store.New(t)
	if err != nil {
		return nil, err
	}
	data := entry.OldData()
	if err := shared.ApplySnapshot(element, data); err != nil {
		return nil, err
	}
	element.SetID(id)
	element.SetCreatedAt(createdAtOf(data, entry.Timestamp))
	return element, nil
}

// createdAtOf reads the creation time stored in a deletion snapshot
func createdAtOf(data shared.Snapshot, fallback time.Time) time.Time {
	if s, ok := data[createdAtKey].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts
		}
	}
	return fallback
}

// ApplyEntry sets the old values stored in entry on element
func (tt *TimeTravel) ApplyEntry(element shared.Trackable, entry *logsystem.LogEntry) error {
	if !entry.HasOldData() {
		return shared.NewDomainError("INVALID_STATE", "The log entry holds no old data")
	}
	return shared.ApplySnapshot(element, entry.OldData())
}

// RevertToTimestamp brings element back to the state it had at ts. Edits
// since ts are undone newest first. Collection members deleted since ts are
// restored, members created after ts are deleted and the rest are reverted
// themselves. With a nil writer only element itself is changed, in memory.
func (tt *TimeTravel) RevertToTimestamp(ctx context.Context, element shared.Trackable, ts time.Time, w ElementWriter) error {
	if element.GetCreatedAt().After(ts) {
		return shared.NewDomainError("INVALID_STATE", "The element was created after the given timestamp")
	}
	before, err := shared.TakeSnapshot(element)
	if err != nil {
		return err
	}
	edits, err := tt.logs.FindEditsSince(ctx, element.TargetType(), element.GetID(), ts)
	if err != nil {
		return err
	}
	for i := range edits {
		if !edits[i].HasOldData() {
			continue
		}
		if err := tt.ApplyEntry(element, &edits[i]); err != nil {
			return err
		}
	}
	if w == nil {
		return nil
	}
	if err := w.Update(ctx, element, before, ""); err != nil {
		return err
	}
	return tt.revertCollections(ctx, element, ts, w)
}

func (tt *TimeTravel) revertCollections(ctx context.Context, owner shared.Trackable, ts time.Time, w ElementWriter) error {
	collections := shared.CollectionsOf(owner.TargetType())
	if len(collections) == 0 {
		return nil
	}
	deletions, err := tt.logs.FindCollectionDeletionsSince(ctx, owner.TargetType(), owner.GetID(), ts)
	if err != nil {
		return err
	}
	for _, c := range collections {
		restored := map[uint]bool{}
		for i := range deletions {
			entry := &deletions[i]
			if shared.TargetType(entry.String(logsystem.ExtraDeletedClass)) != c.Child {
				continue
			}
			id := entry.Uint(logsystem.ExtraDeletedID)
			if id == 0 || restored[id] || !entry.HasOldData() {
				continue
			}
			exists, err := tt.store.Exists(ctx, c.Child, id)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			child, err := tt.fromDeletion(c.Child, id, entry)
			if err != nil {
				return err
			}
			// members created after ts did not exist back then
			if child.GetCreatedAt().After(ts) {
				continue
			}
			if err := w.Restore(ctx, child); err != nil {
				return err
			}
			restored[id] = true
		}

		children, err := tt.store.FindChildren(ctx, owner, c)
		if err != nil {
			return err
		}
		for _, child := range children {
			if child.GetCreatedAt().After(ts) {
				if err := w.Delete(ctx, child, ""); err != nil {
					return err
				}
				continue
			}
			if err := tt.RevertToTimestamp(ctx, child, ts, w); err != nil {
				return err
			}
		}
	}
	return nil
}

// ElementAt reconstructs the state of an element at ts without storing
// anything. Deleted elements are rebuilt from their deletion entry first.
func (tt *TimeTravel) ElementAt(ctx context.Context, t shared.TargetType, id uint, ts time.Time) (shared.Trackable, error) {
	element, err := tt.store.Find(ctx, t, id)
	if errors.Is(err, shared.ErrNotFound) {
		element, err = tt.Undelete(ctx, t, id)
	}
	if err != nil {
		return nil, err
	}
	if err := tt.RevertToTimestamp(ctx, element, ts, nil); err != nil {
		return nil, err
	}
	return element, nil
}
