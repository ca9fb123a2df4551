package logsystem

import (
	"time"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

// UndoRequest selects the entry to undo or revert to. Undo wins when both are set.
type UndoRequest struct {
	Undo         uint   `json:"undo" form:"undo"`
	Revert       uint   `json:"revert" form:"revert"`
	RedirectBack string `json:"redirect_back" form:"redirect_back"`
}

// UndoResponse reports the outcome of an undo or revert
type UndoResponse struct {
	Mode     string  `json:"mode"`
	LogID    uint    `json:"log_id"`
	Flashes  []Flash `json:"flashes"`
	Redirect string  `json:"redirect,omitempty"`
}

// LogListFilter is the query of the log listing
type LogListFilter struct {
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=500"`
	SortBy     string     `form:"sort_by"`
	SortDesc   *bool      `form:"sort_desc"`
	Search     string     `form:"search"`
	MinLevel   string     `form:"min_level"`
	Types      []string   `form:"type"`
	TargetType string     `form:"target_type"`
	TargetID   uint       `form:"target_id"`
	UserID     *uint      `form:"user_id"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// LogEntryResponse is a log entry in API responses
type LogEntryResponse struct {
	ID         uint           `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Type       string         `json:"type"`
	Level      string         `json:"level"`
	TargetType string         `json:"target_type,omitempty"`
	TargetID   uint           `json:"target_id,omitempty"`
	UserID     *uint          `json:"user_id,omitempty"`
	Username   string         `json:"username"`
	Comment    string         `json:"comment,omitempty"`
	Undoable   bool           `json:"undoable"`
	UndoneID   uint           `json:"undone_id,omitempty"`
	UndoMode   string         `json:"undo_mode,omitempty"`
	Extra      map[string]any `json:"extra"`
}

// ToLogEntryResponse converts a log entry
func ToLogEntryResponse(e *logsystem.LogEntry) LogEntryResponse {
	return LogEntryResponse{
		ID:         e.ID,
		Timestamp:  e.Timestamp,
		Type:       string(e.Type),
		Level:      e.Level.String(),
		TargetType: string(e.TargetType),
		TargetID:   e.TargetID,
		UserID:     e.UserID,
		Username:   e.Username,
		Comment:    e.Comment(),
		Undoable:   isUndoable(e),
		UndoneID:   e.UndoneEntryID(),
		UndoMode:   string(e.UndoMode()),
		Extra:      e.Extra,
	}
}

func isUndoable(e *logsystem.LogEntry) bool {
	switch e.Type {
	case logsystem.TypeElementCreated:
		return e.HasTarget()
	case logsystem.TypeElementEdited, logsystem.TypeElementDeleted, logsystem.TypeCollectionElementDeleted:
		return e.HasOldData()
	}
	return false
}

// ElementStateResponse is the reconstructed state of an element
type ElementStateResponse struct {
	TargetType string          `json:"target_type"`
	TargetID   uint            `json:"target_id"`
	At         time.Time       `json:"at"`
	Data       shared.Snapshot `json:"data"`
}
