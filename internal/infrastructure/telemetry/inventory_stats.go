package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormInventoryStats implements InventoryStats with queries on the part tables
type GormInventoryStats struct {
	db *gorm.DB
}

// NewGormInventoryStats creates a GormInventoryStats
func NewGormInventoryStats(db *gorm.DB) *GormInventoryStats {
	return &GormInventoryStats{db: db}
}

// CountParts counts all parts
func (s *GormInventoryStats) CountParts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Table("parts").Count(&n).Error
	return n, err
}

// CountLowStock counts parts with a minimum amount above their known stock.
// Lots with unknown stock do not count towards the stock.
func (s *GormInventoryStats) CountLowStock(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Table("parts").
		Where("min_amount > 0").
		Where("min_amount > (SELECT COALESCE(SUM(l.amount), 0) FROM part_lots l WHERE l.part_id = parts.id AND l.instock_unknown = ?)", false).
		Count(&n).Error
	return n, err
}

// CountLogEntries counts the stored log entries
func (s *GormInventoryStats) CountLogEntries(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Table("log_entries").Count(&n).Error
	return n, err
}
