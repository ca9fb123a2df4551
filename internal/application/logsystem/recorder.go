package logsystem

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

// Metrics counts audit activity
type Metrics interface {
	RecordLogEntry(ctx context.Context, entryType string)
	RecordUndo(ctx context.Context, mode string, success bool)
}

type nopMetrics struct{}

func (nopMetrics) RecordLogEntry(context.Context, string)     {}
func (nopMetrics) RecordUndo(context.Context, string, bool) {}

// Recorder writes log entries. It applies the configured filters, fills in
// the acting user and the undo marker of the context, and publishes every
// stored entry once the transaction commits.
type Recorder struct {
	repo      logsystem.Repository
	settings  Settings
	publisher shared.EventPublisher
	metrics   Metrics
	logger    *zap.Logger
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithPublisher publishes recorded entries on the event bus
func WithPublisher(p shared.EventPublisher) RecorderOption {
	return func(r *Recorder) { r.publisher = p }
}

// WithMetrics counts recorded entries
func WithMetrics(m Metrics) RecorderOption {
	return func(r *Recorder) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithLogger sets the logger used for publish failures
func WithLogger(l *zap.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder creates a Recorder
func NewRecorder(repo logsystem.Repository, settings Settings, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		repo:     repo,
		settings: settings,
		metrics:  nopMetrics{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings returns the active settings
func (r *Recorder) Settings() Settings {
	return r.settings
}

// ShouldBeAdded reports whether e passes the level, blacklist and whitelist filters
func (r *Recorder) ShouldBeAdded(e *logsystem.LogEntry) bool {
	return r.settings.Allows(e)
}

// Add stores e unless it is filtered out. The acting user is taken from ctx
// unless e already names one.
func (r *Recorder) Add(ctx context.Context, e *logsystem.LogEntry) error {
	if e.Username == "" && e.UserID == nil {
		a := ActorFrom(ctx)
		e.SetUser(a.UserID, a.Username)
	}
	if m, ok := undoMarkerFrom(ctx); ok {
		e.SetUndoMarker(m.entryID, m.mode)
	}
	if !r.ShouldBeAdded(e) {
		return nil
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if err := r.repo.Save(ctx, e); err != nil {
		return fmt.Errorf("save log entry: %w", err)
	}
	r.metrics.RecordLogEntry(ctx, string(e.Type))

	if r.publisher != nil {
		stored := *e
		shared.OnCommit(ctx, func(ctx context.Context) {
			if err := r.publisher.Publish(ctx, logsystem.NewLogEntryRecorded(stored)); err != nil {
				r.logger.Warn("Failed to publish log entry",
					zap.Uint("log_id", stored.ID), zap.Error(err))
			}
		})
	}
	return nil
}

// Created records the creation of element
func (r *Recorder) Created(ctx context.Context, element shared.Trackable, comment string) error {
	e, err := r.CreatedEntry(element, comment)
	if err != nil {
		return err
	}
	return r.Add(ctx, e)
}

// CreatedEntry builds the creation entry of element without storing it, so
// callers can add type specific data
func (r *Recorder) CreatedEntry(element shared.Trackable, comment string) (*logsystem.LogEntry, error) {
	e := logsystem.NewElementCreated(element).SetComment(comment)
	if r.settings.SaveNewData {
		snap, err := shared.TakeSnapshot(element)
		if err != nil {
			return nil, err
		}
		e.Extra[logsystem.ExtraNewData] = map[string]any(snap)
	}
	return e, nil
}

// Edited records the changes of element since before. Nothing is written if
// no field changed. It returns whether an entry was produced.
func (r *Recorder) Edited(ctx context.Context, element shared.Trackable, before shared.Snapshot, comment string) (bool, error) {
	after, err := shared.TakeSnapshot(element)
	if err != nil {
		return false, err
	}
	fields, oldValues, newValues := shared.Diff(before, after)
	if len(fields) == 0 {
		return false, nil
	}
	if !r.settings.SaveChangedFields {
		fields = nil
	}
	if !r.settings.SaveChangedData {
		oldValues = nil
	}
	if !r.settings.SaveNewData {
		newValues = nil
	}
	e := logsystem.NewElementEdited(element, fields, oldValues, newValues).SetComment(comment)
	return true, r.Add(ctx, e)
}

// Deleted records the deletion of element
func (r *Recorder) Deleted(ctx context.Context, element shared.Trackable, comment string) error {
	snap, err := r.removedData(element)
	if err != nil {
		return err
	}
	e := logsystem.NewElementDeleted(element, nameOf(element), snap).SetComment(comment)
	return r.Add(ctx, e)
}

// CollectionElementDeleted records that child was removed from a collection of owner
func (r *Recorder) CollectionElementDeleted(ctx context.Context, owner shared.Trackable, collection string, child shared.Trackable) error {
	snap, err := r.removedData(child)
	if err != nil {
		return err
	}
	return r.Add(ctx, logsystem.NewCollectionElementDeleted(owner, collection, child, snap))
}

// removedData snapshots element for a later undelete. The creation time is
// kept so a restored element keeps its history.
func (r *Recorder) removedData(element shared.Trackable) (shared.Snapshot, error) {
	if !r.settings.SaveRemovedData {
		return nil, nil
	}
	snap, err := shared.TakeSnapshot(element)
	if err != nil {
		return nil, err
	}
	snap[createdAtKey] = element.GetCreatedAt().UTC().Format(time.RFC3339Nano)
	return snap, nil
}

const createdAtKey = "created_at"

func nameOf(element shared.Trackable) string {
	if n, ok := element.(shared.Named); ok {
		return n.GetName()
	}
	return ""
}
