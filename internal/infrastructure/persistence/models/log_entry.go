package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

// LogEntryModel is the persistence model for the LogEntry domain entity.
type LogEntryModel struct {
	ID         uint              `gorm:"primaryKey;autoIncrement"`
	Timestamp  time.Time         `gorm:"not null;index:idx_log_timestamp"`
	Type       string            `gorm:"type:varchar(50);not null;index:idx_log_type"`
	Level      int               `gorm:"not null;index:idx_log_level"`
	TargetType string            `gorm:"type:varchar(50);index:idx_log_target,priority:1"`
	TargetID   uint              `gorm:"index:idx_log_target,priority:2"`
	UserID     *uint             `gorm:"index"`
	Username   string            `gorm:"type:varchar(180)"`
	Extra      datatypes.JSONMap `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (LogEntryModel) TableName() string {
	return "log_entries"
}

// ToDomain converts the persistence model to a domain LogEntry.
func (m *LogEntryModel) ToDomain() *logsystem.LogEntry {
	extra := plainJSON(m.Extra)
	return &logsystem.LogEntry{
		ID:         m.ID,
		Timestamp:  m.Timestamp,
		Type:       logsystem.Type(m.Type),
		Level:      logsystem.Level(m.Level),
		TargetType: shared.TargetType(m.TargetType),
		TargetID:   m.TargetID,
		UserID:     m.UserID,
		Username:   m.Username,
		Extra:      extra,
	}
}

// plainJSON re-decodes the payload so numbers are float64 instead of the
// json.Number values produced by JSONMap.Scan
func plainJSON(in datatypes.JSONMap) map[string]any {
	out := map[string]any{}
	raw, err := json.Marshal(map[string]any(in))
	if err != nil {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

// FromDomain populates the persistence model from a domain LogEntry.
func (m *LogEntryModel) FromDomain(e *logsystem.LogEntry) {
	m.ID = e.ID
	m.Timestamp = e.Timestamp
	m.Type = string(e.Type)
	m.Level = int(e.Level)
	m.TargetType = string(e.TargetType)
	m.TargetID = e.TargetID
	m.UserID = e.UserID
	m.Username = e.Username
	m.Extra = datatypes.JSONMap(e.Extra)
	if m.Extra == nil {
		m.Extra = datatypes.JSONMap{}
	}
}

// LogEntryModelFromDomain creates a new persistence model from a domain LogEntry.
func LogEntryModelFromDomain(e *logsystem.LogEntry) *LogEntryModel {
	m := &LogEntryModel{}
	m.FromDomain(e)
	return m
}
