package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
	"github.com/partdb/backend/internal/infrastructure/persistence/models"
)

// GormLogEntryRepository implements logsystem.Repository using GORM
type GormLogEntryRepository struct {
	db *gorm.DB
}

// NewGormLogEntryRepository creates a new GormLogEntryRepository
func NewGormLogEntryRepository(db *gorm.DB) *GormLogEntryRepository {
	return &GormLogEntryRepository{db: db}
}

// Save appends an entry. Entries are never updated.
func (r *GormLogEntryRepository) Save(ctx context.Context, entry *logsystem.LogEntry) error {
	m := models.LogEntryModelFromDomain(entry)
	if err := conn(ctx, r.db).Create(m).Error; err != nil {
		return translate(err)
	}
	entry.ID = m.ID
	return nil
}

// FindByID finds an entry by its ID
func (r *GormLogEntryRepository) FindByID(ctx context.Context, id uint) (*logsystem.LogEntry, error) {
	var m models.LogEntryModel
	if err := conn(ctx, r.db).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return m.ToDomain(), nil
}

// FindAll finds entries matching the filter
func (r *GormLogEntryRepository) FindAll(ctx context.Context, filter logsystem.Filter) ([]logsystem.LogEntry, error) {
	var rows []models.LogEntryModel
	order := orderClause(filter.Filter, LogEntrySortFields, "timestamp DESC")
	q := r.applyFilter(conn(ctx, r.db).Model(&models.LogEntryModel{}), filter).Order(order).Order("id DESC")
	if err := paginate(q, filter.Filter).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainEntries(rows), nil
}

// Count counts entries matching the filter
func (r *GormLogEntryRepository) Count(ctx context.Context, filter logsystem.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(conn(ctx, r.db).Model(&models.LogEntryModel{}), filter).Count(&count).Error
	return count, err
}

func (r *GormLogEntryRepository) applyFilter(q *gorm.DB, filter logsystem.Filter) *gorm.DB {
	if filter.MinLevel != nil {
		// lower numbers are more severe
		q = q.Where("level <= ?", int(*filter.MinLevel))
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		q = q.Where("type IN ?", types)
	}
	if filter.TargetType != "" {
		q = q.Where("target_type = ?", string(filter.TargetType))
	}
	if filter.TargetID != 0 {
		q = q.Where("target_id = ?", filter.TargetID)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.From != nil {
		q = q.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("timestamp <= ?", *filter.To)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q = q.Where("username LIKE ?", likePattern(s))
	}
	return q
}

// Delete removes a single entry
func (r *GormLogEntryRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(conn(ctx, r.db), &models.LogEntryModel{}, id)
}

// FindLatestDeletion returns the newest deletion entry of an element
func (r *GormLogEntryRepository) FindLatestDeletion(ctx context.Context, targetType shared.TargetType, id uint) (*logsystem.LogEntry, error) {
	var m models.LogEntryModel
	err := r.forTarget(ctx, targetType, id).
		Where("type = ?", string(logsystem.TypeElementDeleted)).
		Order("timestamp DESC").Order("id DESC").First(&m).Error
	if err == nil {
		return m.ToDomain(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// The element may have been removed as part of its owner's collection.
	// The class matches in SQL; the id is compared after decoding because
	// JSON numbers compare differently across drivers.
	var rows []models.LogEntryModel
	err = conn(ctx, r.db).
		Where("type = ?", string(logsystem.TypeCollectionElementDeleted)).
		Where(datatypes.JSONQuery("extra").Equals(string(targetType), logsystem.ExtraDeletedClass)).
		Order("timestamp DESC").Order("id DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		e := rows[i].ToDomain()
		if e.Uint(logsystem.ExtraDeletedID) == id {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindCreation returns the creation entry of an element
func (r *GormLogEntryRepository) FindCreation(ctx context.Context, targetType shared.TargetType, id uint) (*logsystem.LogEntry, error) {
	var m models.LogEntryModel
	err := r.forTarget(ctx, targetType, id).
		Where("type = ?", string(logsystem.TypeElementCreated)).
		Order("timestamp DESC").Order("id DESC").First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return m.ToDomain(), nil
}

// FindEditsSince returns the edits of an element since a point in time
func (r *GormLogEntryRepository) FindEditsSince(ctx context.Context, targetType shared.TargetType, id uint, since time.Time) ([]logsystem.LogEntry, error) {
	var rows []models.LogEntryModel
	err := r.forTarget(ctx, targetType, id).
		Where("type = ? AND timestamp >= ?", string(logsystem.TypeElementEdited), since).
		Order("timestamp DESC").Order("id DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainEntries(rows), nil
}

// FindCollectionDeletionsSince returns the collection deletions of an owner
// since a point in time
func (r *GormLogEntryRepository) FindCollectionDeletionsSince(ctx context.Context, ownerType shared.TargetType, ownerID uint, since time.Time) ([]logsystem.LogEntry, error) {
	var rows []models.LogEntryModel
	err := r.forTarget(ctx, ownerType, ownerID).
		Where("type = ? AND timestamp >= ?", string(logsystem.TypeCollectionElementDeleted), since).
		Order("timestamp DESC").Order("id DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainEntries(rows), nil
}

// FindLastEditor returns the newest create or edit entry of an element
func (r *GormLogEntryRepository) FindLastEditor(ctx context.Context, targetType shared.TargetType, id uint) (*logsystem.LogEntry, error) {
	var m models.LogEntryModel
	err := r.forTarget(ctx, targetType, id).
		Where("type IN ?", []string{string(logsystem.TypeElementCreated), string(logsystem.TypeElementEdited)}).
		Order("timestamp DESC").Order("id DESC").First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return m.ToDomain(), nil
}

func (r *GormLogEntryRepository) forTarget(ctx context.Context, targetType shared.TargetType, id uint) *gorm.DB {
	return conn(ctx, r.db).Model(&models.LogEntryModel{}).
		Where("target_type = ? AND target_id = ?", string(targetType), id)
}

func toDomainEntries(rows []models.LogEntryModel) []logsystem.LogEntry {
	out := make([]logsystem.LogEntry, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ logsystem.Repository = (*GormLogEntryRepository)(nil)
