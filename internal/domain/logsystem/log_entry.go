package logsystem

import (
	"encoding/json"
	"math"
	"time"

	"github.com/partdb/backend/internal/domain/shared"
)

// Type is the type tag of a log entry
type Type string

const (
	TypeElementCreated           Type = "element_created"
	TypeElementEdited            Type = "element_edited"
	TypeElementDeleted           Type = "element_deleted"
	TypeCollectionElementDeleted Type = "collection_element_deleted"
	TypePartStockChanged         Type = "part_stock_changed"
	TypeInstockChanged           Type = "instock_changed"
	TypeUserLogin                Type = "user_login"
	TypeUserLogout               Type = "user_logout"
	TypeUserNotAllowed           Type = "user_not_allowed"
	TypeSecurityEvent            Type = "security_event"
	TypeDatabaseUpdated          Type = "database_updated"
)

// AllTypes lists every known log entry type
var AllTypes = []Type{
	TypeElementCreated, TypeElementEdited, TypeElementDeleted, TypeCollectionElementDeleted,
	TypePartStockChanged, TypeInstockChanged, TypeUserLogin, TypeUserLogout,
	TypeUserNotAllowed, TypeSecurityEvent, TypeDatabaseUpdated,
}

// IsValid returns true for known types
func (t Type) IsValid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Keys of the extra payload. They are kept short because they are stored in
// every row.
const (
	ExtraComment       = "m"
	ExtraUndoneID      = "u"
	ExtraUndoMode      = "um"
	ExtraFields        = "f"
	ExtraOldData       = "d"
	ExtraNewData       = "n"
	ExtraOldSnapshot   = "o"
	ExtraName          = "n"
	ExtraInstock       = "i"
	ExtraCollection    = "n"
	ExtraDeletedClass  = "c"
	ExtraDeletedID     = "i"
	ExtraStockType     = "t"
	ExtraStockOld      = "o"
	ExtraStockNew      = "n"
	ExtraStockTotal    = "p"
	ExtraStockComment  = "c"
	ExtraStockMoveTo   = "m"
	ExtraIP            = "i"
	ExtraPath          = "a"
	ExtraMessage       = "p"
	ExtraSecurityType  = "t"
	ExtraVersionOld    = "o"
	ExtraVersionNew    = "n"
	ExtraUpdateSuccess = "s"
)

// UndoMode tells whether an entry was written by an undo or a revert
type UndoMode string

const (
	UndoModeUndo   UndoMode = "undo"
	UndoModeRevert UndoMode = "revert"
)

// Security event subtypes
const (
	SecurityPasswordChanged = "password_changed"
	SecurityPasswordReset   = "password_reset"
	SecurityBackupKeysReset = "backup_keys_reset"
	Security2FAEnabled      = "2fa_enabled"
	Security2FADisabled     = "2fa_disabled"
)

// LogEntry is one row of the audit log
type LogEntry struct {
	ID         uint              `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Type       Type              `json:"type"`
	Level      Level             `json:"level"`
	TargetType shared.TargetType `json:"target_type,omitempty"`
	TargetID   uint              `json:"target_id,omitempty"`
	UserID     *uint             `json:"user_id,omitempty"`
	Username   string            `json:"username"`
	Extra      map[string]any    `json:"extra"`
}

// NewLogEntry creates an entry of the given type at info level
func NewLogEntry(typ Type) *LogEntry {
	return &LogEntry{
		Timestamp: time.Now(),
		Type:      typ,
		Level:     LevelInfo,
		Extra:     make(map[string]any),
	}
}

// SetTarget points the entry at element
func (e *LogEntry) SetTarget(element shared.Trackable) *LogEntry {
	e.TargetType = element.TargetType()
	e.TargetID = element.GetID()
	return e
}

// HasTarget returns true if the entry refers to an element
func (e *LogEntry) HasTarget() bool {
	return e.TargetType != "" && e.TargetID != 0
}

// SetUser records who caused the entry. A nil user leaves the entry anonymous.
func (e *LogEntry) SetUser(id *uint, username string) *LogEntry {
	e.UserID = id
	e.Username = username
	return e
}

// Comment returns the user supplied change comment
func (e *LogEntry) Comment() string {
	if e.Type == TypePartStockChanged || e.Type == TypeInstockChanged {
		return e.String(ExtraStockComment)
	}
	return e.String(ExtraComment)
}

// SetComment stores a change comment. Empty comments are not stored.
func (e *LogEntry) SetComment(comment string) *LogEntry {
	if comment == "" {
		return e
	}
	key := ExtraComment
	if e.Type == TypePartStockChanged {
		key = ExtraStockComment
	}
	e.Extra[key] = comment
	return e
}

// SetUndoMarker marks the entry as written while undoing entry undoneID
func (e *LogEntry) SetUndoMarker(undoneID uint, mode UndoMode) *LogEntry {
	e.Extra[ExtraUndoneID] = undoneID
	e.Extra[ExtraUndoMode] = string(mode)
	return e
}

// UndoneEntryID returns the ID of the entry this one undid, or 0
func (e *LogEntry) UndoneEntryID() uint {
	return e.Uint(ExtraUndoneID)
}

// UndoMode returns the undo mode marker, or "" if not set
func (e *LogEntry) UndoMode() UndoMode {
	return UndoMode(e.String(ExtraUndoMode))
}

// IsUndoEvent returns true if the entry was written by an undo or revert
func (e *LogEntry) IsUndoEvent() bool {
	return e.UndoneEntryID() != 0
}

// HasOldData returns true if the entry holds data to restore a previous state
func (e *LogEntry) HasOldData() bool {
	switch e.Type {
	case TypeElementEdited:
		_, ok := e.Extra[ExtraOldData]
		return ok
	case TypeElementDeleted, TypeCollectionElementDeleted:
		_, ok := e.Extra[ExtraOldSnapshot]
		return ok
	}
	return false
}

// OldData returns the stored previous values: the changed fields of an
// edit or the full snapshot of a deletion.
func (e *LogEntry) OldData() shared.Snapshot {
	key := ExtraOldSnapshot
	if e.Type == TypeElementEdited {
		key = ExtraOldData
	}
	return e.snapshot(key)
}

// NewData returns the stored new values of an edit or creation
func (e *LogEntry) NewData() shared.Snapshot {
	return e.snapshot(ExtraNewData)
}

// ChangedFields returns the field names of an edit
func (e *LogEntry) ChangedFields() []string {
	return e.Strings(ExtraFields)
}

func (e *LogEntry) snapshot(key string) shared.Snapshot {
	raw, ok := e.Extra[key]
	if !ok || raw == nil {
		return nil
	}
	if m, ok := raw.(map[string]any); ok {
		return shared.Snapshot(m)
	}
	if s, ok := raw.(shared.Snapshot); ok {
		return s
	}
	return nil
}

// String returns a string extra value or ""
func (e *LogEntry) String(key string) string {
	if v, ok := e.Extra[key].(string); ok {
		return v
	}
	return ""
}

// Float returns a numeric extra value. Values read back from JSON are
// float64; values set in memory may be any numeric type.
func (e *LogEntry) Float(key string) (float64, bool) {
	switch v := e.Extra[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

// Uint returns an unsigned integer extra value or 0
func (e *LogEntry) Uint(key string) uint {
	f, ok := e.Float(key)
	if !ok || f < 0 {
		return 0
	}
	return uint(math.Round(f))
}

// Bool returns a boolean extra value or false
func (e *LogEntry) Bool(key string) bool {
	v, _ := e.Extra[key].(bool)
	return v
}

// Strings returns a string list extra value
func (e *LogEntry) Strings(key string) []string {
	switch v := e.Extra[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
