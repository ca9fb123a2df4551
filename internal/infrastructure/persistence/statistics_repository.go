package persistence

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/partdb/backend/internal/domain/attachment"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/shared"
	"github.com/partdb/backend/internal/infrastructure/persistence/models"
)

// GormStatisticsRepository implements tools.StatisticsRepository
type GormStatisticsRepository struct {
	db *gorm.DB
}

// NewGormStatisticsRepository creates a new GormStatisticsRepository
func NewGormStatisticsRepository(db *gorm.DB) *GormStatisticsRepository {
	return &GormStatisticsRepository{db: db}
}

// CountElements counts the rows of element type t
func (r *GormStatisticsRepository) CountElements(ctx context.Context, t shared.TargetType) (int64, error) {
	factory, ok := elementFactories[t]
	if !ok {
		return 0, nil
	}
	var count int64
	err := conn(ctx, r.db).Model(factory()).Count(&count).Error
	return count, err
}

// SumLotAmounts sums the amounts of lots with known stock
func (r *GormStatisticsRepository) SumLotAmounts(ctx context.Context) (float64, error) {
	var sum sql.NullFloat64
	err := conn(ctx, r.db).Model(&parts.PartLot{}).
		Where("instock_unknown = ?", false).
		Select("SUM(amount)").Scan(&sum).Error
	return sum.Float64, err
}

// CountUploadedAttachments counts attachments that have a stored file
func (r *GormStatisticsRepository) CountUploadedAttachments(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&attachment.Attachment{}).
		Where("storage_key IS NOT NULL AND storage_key <> ''").Count(&count).Error
	return count, err
}

// CountLogEntries returns the size of the log
func (r *GormStatisticsRepository) CountLogEntries(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.LogEntryModel{}).Count(&count).Error
	return count, err
}
