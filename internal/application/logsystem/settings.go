package logsystem

import (
	"fmt"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/infrastructure/config"
)

// Settings control which entries are written and how much data they carry
type Settings struct {
	SaveChangedFields bool
	SaveChangedData   bool
	SaveRemovedData   bool
	SaveNewData       bool
	MinLevel          logsystem.Level
	Blacklist         []logsystem.Type
	Whitelist         []logsystem.Type
}

// DefaultSettings records everything at info level and above
func DefaultSettings() Settings {
	return Settings{
		SaveChangedFields: true,
		SaveChangedData:   true,
		SaveRemovedData:   true,
		SaveNewData:       true,
		MinLevel:          logsystem.LevelInfo,
	}
}

// SettingsFromConfig converts the audit configuration
func SettingsFromConfig(cfg config.AuditConfig) (Settings, error) {
	s := Settings{
		SaveChangedFields: cfg.SaveChangedFields,
		SaveChangedData:   cfg.SaveChangedData,
		SaveRemovedData:   cfg.SaveRemovedData,
		SaveNewData:       cfg.SaveNewData,
		MinLevel:          logsystem.LevelInfo,
	}
	if cfg.MinLevel != "" {
		lvl, err := logsystem.ParseLevel(cfg.MinLevel)
		if err != nil {
			return Settings{}, err
		}
		s.MinLevel = lvl
	}
	var err error
	if s.Blacklist, err = parseTypes(cfg.Blacklist); err != nil {
		return Settings{}, fmt.Errorf("audit.blacklist: %w", err)
	}
	if s.Whitelist, err = parseTypes(cfg.Whitelist); err != nil {
		return Settings{}, fmt.Errorf("audit.whitelist: %w", err)
	}
	return s, nil
}

func parseTypes(names []string) ([]logsystem.Type, error) {
	out := make([]logsystem.Type, 0, len(names))
	for _, n := range names {
		t := logsystem.Type(n)
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown log type %q", n)
		}
		out = append(out, t)
	}
	return out, nil
}

// Allows reports whether an entry passes the level and type filters
func (s Settings) Allows(e *logsystem.LogEntry) bool {
	if !e.Level.AtLeast(s.MinLevel) {
		return false
	}
	for _, t := range s.Blacklist {
		if t == e.Type {
			return false
		}
	}
	if len(s.Whitelist) == 0 {
		return true
	}
	for _, t := range s.Whitelist {
		if t == e.Type {
			return true
		}
	}
	return false
}
