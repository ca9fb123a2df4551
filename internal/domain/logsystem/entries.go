package logsystem

import (
	"github.com/partdb/backend/internal/domain/shared"
)

// NewElementCreated creates an element_created entry for element
func NewElementCreated(element shared.Trackable) *LogEntry {
	return NewLogEntry(TypeElementCreated).SetTarget(element)
}

// NewElementEdited creates an element_edited entry. old and new hold only
// the changed fields.
func NewElementEdited(element shared.Trackable, fields []string, oldValues, newValues shared.Snapshot) *LogEntry {
	e := NewLogEntry(TypeElementEdited).SetTarget(element)
	if len(fields) > 0 {
		e.Extra[ExtraFields] = fields
	}
	if oldValues != nil {
		e.Extra[ExtraOldData] = map[string]any(oldValues)
	}
	if newValues != nil {
		e.Extra[ExtraNewData] = map[string]any(newValues)
	}
	return e
}

// NewElementDeleted creates an element_deleted entry. snapshot may be nil if
// removed data is not recorded.
func NewElementDeleted(element shared.Trackable, name string, snapshot shared.Snapshot) *LogEntry {
	e := NewLogEntry(TypeElementDeleted).SetTarget(element)
	if name != "" {
		e.Extra[ExtraName] = name
	}
	if snapshot != nil {
		e.Extra[ExtraOldSnapshot] = map[string]any(snapshot)
	}
	return e
}

// NewCollectionElementDeleted records that deleted was removed from the
// collection of owner.
func NewCollectionElementDeleted(owner shared.Trackable, collection string, deleted shared.Trackable, snapshot shared.Snapshot) *LogEntry {
	e := NewLogEntry(TypeCollectionElementDeleted).SetTarget(owner)
	e.Extra[ExtraCollection] = collection
	e.Extra[ExtraDeletedClass] = string(deleted.TargetType())
	e.Extra[ExtraDeletedID] = deleted.GetID()
	if snapshot != nil {
		e.Extra[ExtraOldSnapshot] = map[string]any(snapshot)
	}
	return e
}

// StockChangeType is the kind of a stock operation
type StockChangeType string

const (
	StockAdd      StockChangeType = "add"
	StockWithdraw StockChangeType = "withdraw"
	StockMove     StockChangeType = "move"
)

// NewPartStockChanged creates a part_stock_changed entry on part.
// moveTarget is 0 unless typ is StockMove.
func NewPartStockChanged(part shared.Trackable, typ StockChangeType, oldAmount, newAmount, newTotal float64, comment string, moveTarget uint) *LogEntry {
	e := NewLogEntry(TypePartStockChanged).SetTarget(part)
	e.Extra[ExtraStockType] = string(typ)
	e.Extra[ExtraStockOld] = oldAmount
	e.Extra[ExtraStockNew] = newAmount
	e.Extra[ExtraStockTotal] = newTotal
	if comment != "" {
		e.Extra[ExtraStockComment] = comment
	}
	if typ == StockMove && moveTarget != 0 {
		e.Extra[ExtraStockMoveTo] = moveTarget
	}
	return e
}

// NewUserLogin creates a user_login entry
func NewUserLogin(ip string) *LogEntry {
	e := NewLogEntry(TypeUserLogin)
	e.Extra[ExtraIP] = ip
	return e
}

// NewUserLogout creates a user_logout entry
func NewUserLogout(ip string) *LogEntry {
	e := NewLogEntry(TypeUserLogout)
	e.Extra[ExtraIP] = ip
	return e
}

// NewUserNotAllowed creates a warning entry for a denied access to path
func NewUserNotAllowed(path, message string) *LogEntry {
	e := NewLogEntry(TypeUserNotAllowed)
	e.Level = LevelWarning
	e.Extra[ExtraPath] = path
	if message != "" {
		e.Extra[ExtraMessage] = message
	}
	return e
}

// NewSecurityEvent creates a security_event entry of the given subtype
func NewSecurityEvent(subtype, ip string) *LogEntry {
	e := NewLogEntry(TypeSecurityEvent)
	e.Level = LevelNotice
	e.Extra[ExtraSecurityType] = subtype
	if ip != "" {
		e.Extra[ExtraIP] = ip
	}
	return e
}

// NewDatabaseUpdated creates a database_updated entry
func NewDatabaseUpdated(oldVersion, newVersion string, success bool) *LogEntry {
	e := NewLogEntry(TypeDatabaseUpdated)
	if !success {
		e.Level = LevelError
	}
	e.Extra[ExtraVersionOld] = oldVersion
	e.Extra[ExtraVersionNew] = newVersion
	e.Extra[ExtraUpdateSuccess] = success
	return e
}
