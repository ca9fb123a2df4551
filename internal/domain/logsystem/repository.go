package logsystem

import (
	"context"
	"time"

	"github.com/partdb/backend/internal/domain/shared"
)

// Filter selects log entries
type Filter struct {
	shared.Filter
	MinLevel   *Level
	Types      []Type
	TargetType shared.TargetType
	TargetID   uint
	UserID     *uint
	From       *time.Time
	To         *time.Time
}

// DefaultFilter returns a filter listing the newest entries first
func DefaultFilter() Filter {
	f := shared.DefaultFilter()
	f.PageSize = 50
	f.OrderBy = "timestamp"
	f.OrderDir = "desc"
	return Filter{Filter: f}
}

// Repository persists log entries
type Repository interface {
	Save(ctx context.Context, entry *LogEntry) error
	FindByID(ctx context.Context, id uint) (*LogEntry, error)
	FindAll(ctx context.Context, filter Filter) ([]LogEntry, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Delete(ctx context.Context, id uint) error

	// FindLatestDeletion returns the newest element_deleted entry for the
	// element, falling back to collection_element_deleted entries that name
	// it as the deleted element.
	FindLatestDeletion(ctx context.Context, targetType shared.TargetType, id uint) (*LogEntry, error)
	// FindCreation returns the element_created entry of the element
	FindCreation(ctx context.Context, targetType shared.TargetType, id uint) (*LogEntry, error)
	// FindEditsSince returns element_edited entries of the element with a
	// timestamp at or after since, newest first.
	FindEditsSince(ctx context.Context, targetType shared.TargetType, id uint, since time.Time) ([]LogEntry, error)
	// FindCollectionDeletionsSince returns collection_element_deleted
	// entries of owner at or after since, newest first.
	FindCollectionDeletionsSince(ctx context.Context, ownerType shared.TargetType, ownerID uint, since time.Time) ([]LogEntry, error)
	// FindLastEditor returns the entry of the last create or edit of the element
	FindLastEditor(ctx context.Context, targetType shared.TargetType, id uint) (*LogEntry, error)
}

// EventLogEntryRecorded is published after a log entry was committed
const EventLogEntryRecorded = "LogEntryRecorded"

// LogEntryRecorded carries a committed log entry to subscribers
type LogEntryRecorded struct {
	shared.BaseDomainEvent
	Entry LogEntry `json:"entry"`
}

// NewLogEntryRecorded creates the event for entry
func NewLogEntryRecorded(entry LogEntry) *LogEntryRecorded {
	return &LogEntryRecorded{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventLogEntryRecorded, "LogEntry", entry.ID),
		Entry:           entry,
	}
}
