package logsystem

import (
	"fmt"
	"strings"
)

// Level is a PSR-3 style severity; lower is more severe
type Level int

const (
	LevelEmergency Level = iota
	LevelAlert
	LevelCritical
	LevelError
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
)

var levelNames = []string{"emergency", "alert", "critical", "error", "warning", "notice", "info", "debug"}

// String returns the level name
func (l Level) String() string {
	if l < LevelEmergency || l > LevelDebug {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// IsValid returns true for known levels
func (l Level) IsValid() bool {
	return l >= LevelEmergency && l <= LevelDebug
}

// AtLeast returns true if l is as severe as min or more severe
func (l Level) AtLeast(min Level) bool {
	return l <= min
}

// ParseLevel parses a level name or its numeric value
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range levelNames {
		if name == s || fmt.Sprint(i) == s {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
