package tools

import (
	"runtime"
	"strings"
	"time"
)

// ServerInfoConfig holds the settings reported by ServerInfo
type ServerInfoConfig struct {
	Version        string
	Environment    string
	Debug          bool
	DatabaseDriver string
	MailDSN        string
	StorageBackend string
	TrustedProxies []string
	// InfoProviders returns the keys of the active info providers
	InfoProviders func() []string
}

// ServerInfo describes the running installation
type ServerInfo struct {
	Version        string    `json:"version"`
	GoVersion      string    `json:"go_version"`
	OS             string    `json:"os"`
	Environment    string    `json:"environment"`
	Debug          bool      `json:"debug"`
	DatabaseDriver string    `json:"database_driver"`
	MailEnabled    bool      `json:"mail_enabled"`
	StorageBackend string    `json:"storage_backend"`
	TrustedProxies []string  `json:"trusted_proxies"`
	InfoProviders  []string  `json:"info_providers"`
	StartedAt      time.Time `json:"started_at"`
	Uptime         string    `json:"uptime"`
}

// ServerInfoService reports ServerInfo
type ServerInfoService struct {
	config    ServerInfoConfig
	startedAt time.Time
	now       func() time.Time
}

// NewServerInfoService creates a new ServerInfoService
func NewServerInfoService(config ServerInfoConfig) *ServerInfoService {
	return &ServerInfoService{config: config, startedAt: time.Now(), now: time.Now}
}

// Info returns the current server info
func (s *ServerInfoService) Info() ServerInfo {
	info := ServerInfo{
		Version:        s.config.Version,
		GoVersion:      runtime.Version(),
		OS:             runtime.GOOS + "/" + runtime.GOARCH,
		Environment:    s.config.Environment,
		Debug:          s.config.Debug,
		DatabaseDriver: s.config.DatabaseDriver,
		MailEnabled:    IsValidMailDSN(s.config.MailDSN),
		StorageBackend: s.config.StorageBackend,
		TrustedProxies: s.config.TrustedProxies,
		InfoProviders:  []string{},
		StartedAt:      s.startedAt,
		Uptime:         s.now().Sub(s.startedAt).Round(time.Second).String(),
	}
	if s.config.InfoProviders != nil {
		info.InfoProviders = s.config.InfoProviders()
	}
	return info
}

// IsValidMailDSN reports whether dsn configures a real mailer. The
// "null://null" transport discards all mail.
func IsValidMailDSN(dsn string) bool {
	dsn = strings.TrimSpace(dsn)
	return dsn != "" && dsn != "null://null"
}
