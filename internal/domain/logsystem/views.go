package logsystem

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/partdb/backend/internal/domain/shared"
)

// unknownInstock marks an unknown amount in legacy instock entries
const unknownInstock = -2

// InstockChanged reads a legacy instock_changed entry
type InstockChanged struct{ e *LogEntry }

// AsInstockChanged wraps e. ok is false if e has another type.
func AsInstockChanged(e *LogEntry) (InstockChanged, bool) {
	return InstockChanged{e: e}, e.Type == TypeInstockChanged
}

func (v InstockChanged) OldInstock() int {
	f, _ := v.e.Float("o")
	return int(f)
}

func (v InstockChanged) NewInstock() int {
	f, _ := v.e.Float("n")
	return int(f)
}

func (v InstockChanged) Comment() string { return v.e.String("c") }

// Price returns the stored price, optionally as absolute value
func (v InstockChanged) Price(absolute bool) float64 {
	p, _ := v.e.Float("p")
	if absolute {
		return math.Abs(p)
	}
	return p
}

// Difference returns new - old, or 0 if either value is unknown
func (v InstockChanged) Difference(absolute bool) int {
	if v.NewInstock() == unknownInstock || v.OldInstock() == unknownInstock {
		return 0
	}
	d := v.NewInstock() - v.OldInstock()
	if absolute && d < 0 {
		return -d
	}
	return d
}

// IsWithdrawal returns true if the amount went down
func (v InstockChanged) IsWithdrawal() bool {
	return v.NewInstock() < v.OldInstock()
}

// UserNotAllowed reads a user_not_allowed entry
type UserNotAllowed struct{ e *LogEntry }

// AsUserNotAllowed wraps e. ok is false if e has another type.
func AsUserNotAllowed(e *LogEntry) (UserNotAllowed, bool) {
	return UserNotAllowed{e: e}, e.Type == TypeUserNotAllowed
}

// Path returns the denied path, "legacy" for old entries without one
func (v UserNotAllowed) Path() string {
	if p := v.e.String(ExtraPath); p != "" {
		return p
	}
	return "legacy"
}

func (v UserNotAllowed) Message() string { return v.e.String(ExtraMessage) }

// PartStockChanged reads a part_stock_changed entry
type PartStockChanged struct{ e *LogEntry }

// AsPartStockChanged wraps e. ok is false if e has another type.
func AsPartStockChanged(e *LogEntry) (PartStockChanged, bool) {
	return PartStockChanged{e: e}, e.Type == TypePartStockChanged
}

func (v PartStockChanged) ChangeType() StockChangeType {
	return StockChangeType(v.e.String(ExtraStockType))
}

func (v PartStockChanged) OldAmount() float64 {
	f, _ := v.e.Float(ExtraStockOld)
	return f
}

func (v PartStockChanged) NewAmount() float64 {
	f, _ := v.e.Float(ExtraStockNew)
	return f
}

func (v PartStockChanged) NewTotalAmount() float64 {
	f, _ := v.e.Float(ExtraStockTotal)
	return f
}

func (v PartStockChanged) Comment() string { return v.e.String(ExtraStockComment) }

func (v PartStockChanged) MoveToTarget() uint { return v.e.Uint(ExtraStockMoveTo) }

// Change returns new - old lot amount. Amounts are stored as floats, the
// difference is taken in decimal so 0.3 - 0.1 gives 0.2.
func (v PartStockChanged) Change() float64 {
	return decimal.NewFromFloat(v.NewAmount()).Sub(decimal.NewFromFloat(v.OldAmount())).InexactFloat64()
}

// CollectionElementDeleted reads a collection_element_deleted entry
type CollectionElementDeleted struct{ e *LogEntry }

// AsCollectionElementDeleted wraps e. ok is false if e has another type.
func AsCollectionElementDeleted(e *LogEntry) (CollectionElementDeleted, bool) {
	return CollectionElementDeleted{e: e}, e.Type == TypeCollectionElementDeleted
}

func (v CollectionElementDeleted) CollectionName() string { return v.e.String(ExtraCollection) }

func (v CollectionElementDeleted) DeletedType() shared.TargetType {
	return shared.TargetType(v.e.String(ExtraDeletedClass))
}

func (v CollectionElementDeleted) DeletedID() uint { return v.e.Uint(ExtraDeletedID) }

// DatabaseUpdated reads a database_updated entry
type DatabaseUpdated struct{ e *LogEntry }

// AsDatabaseUpdated wraps e. ok is false if e has another type.
func AsDatabaseUpdated(e *LogEntry) (DatabaseUpdated, bool) {
	return DatabaseUpdated{e: e}, e.Type == TypeDatabaseUpdated
}

func (v DatabaseUpdated) OldVersion() string { return v.e.String(ExtraVersionOld) }
func (v DatabaseUpdated) NewVersion() string { return v.e.String(ExtraVersionNew) }
func (v DatabaseUpdated) IsSuccessful() bool { return v.e.Bool(ExtraUpdateSuccess) }
