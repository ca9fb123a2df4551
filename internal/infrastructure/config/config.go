package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Log           LogConfig
	HTTP          HTTPConfig
	Audit         AuditConfig
	Security      SecurityConfig
	Storage       StorageConfig
	Cache         CacheConfig
	Labels        LabelsConfig
	InfoProviders InfoProvidersConfig
	Mail          MailConfig
	Telemetry     TelemetryConfig
	Messaging     MessagingConfig
	Swagger       SwaggerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name         string
	Env          string
	Port         string
	InstanceName string // shown on labels and in server info
	Version      string
}

// IsDebug returns true outside production
func (a AppConfig) IsDebug() bool {
	return a.Env != "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, mysql, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite database file, ":memory:" for tests
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	AuthRateLimitEnabled  bool
	AuthRateLimitRequests int           // burst of login attempts per client IP
	AuthRateLimitWindow   time.Duration // time to refill the burst
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
}

// AuditConfig controls what the change recorder writes
type AuditConfig struct {
	SaveChangedFields bool
	SaveChangedData   bool
	SaveRemovedData   bool
	SaveNewData       bool
	MinLevel          string
	Blacklist         []string // log types that are never written
	Whitelist         []string // if set, only these log types are written
	EnforceComments   []string // operation kinds that need a change comment
	ForwardEnabled    bool
}

// SecurityConfig holds second factor settings
type SecurityConfig struct {
	BackupCodeLength int
	BackupCodeCount  int
	TOTPIssuer       string
	InitialAdminPass string
}

// StorageConfig holds attachment storage settings
type StorageConfig struct {
	Backend       string // local, s3
	LocalPath     string
	MaxUploadSize int64
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3PathStyle   bool
	PresignExpiry time.Duration
}

// CacheConfig holds tree and provider cache settings
type CacheConfig struct {
	Backend string // memory, redis
	TTL     time.Duration
}

// LabelsConfig holds label rendering settings
type LabelsConfig struct {
	ChromePath    string
	RenderTimeout time.Duration
}

// InfoProvidersConfig holds part information provider settings
type InfoProvidersConfig struct {
	TestEnabled  bool
	LCSCEnabled  bool
	LCSCBaseURL  string
	LCSCCurrency string
	Timeout      time.Duration
	CacheTTL     time.Duration
}

// MailConfig holds the mailer DSN
type MailConfig struct {
	DSN string
}

// Enabled returns true if a usable mailer DSN is configured
func (m MailConfig) Enabled() bool {
	return ValidMailDSN(m.DSN)
}

// ValidMailDSN reports whether dsn points to a real mailer.
// "null://null" is the placeholder for a disabled mailer.
func ValidMailDSN(dsn string) bool {
	dsn = strings.TrimSpace(dsn)
	return dsn != "" && dsn != "null://null"
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	LogsEnabled       bool // Export zap logs over OTLP to the same collector
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
}

// SwaggerConfig controls the API documentation endpoint
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool     // Require a valid access token
	AllowedIPs  []string // IPs or CIDRs, empty allows all
}

// MessagingConfig holds the AMQP broker used to forward audit entries
type MessagingConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PARTDB_ prefix (e.g., PARTDB_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PARTDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setBoolDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name:         v.GetString("app.name"),
			Env:          v.GetString("app.env"),
			Port:         v.GetString("app.port"),
			InstanceName: v.GetString("app.instance_name"),
			Version:      v.GetString("app.version"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			AuthRateLimitEnabled:  v.GetBool("http.auth_rate_limit_enabled"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
		},
		Audit: AuditConfig{
			SaveChangedFields: v.GetBool("audit.save_changed_fields"),
			SaveChangedData:   v.GetBool("audit.save_changed_data"),
			SaveRemovedData:   v.GetBool("audit.save_removed_data"),
			SaveNewData:       v.GetBool("audit.save_new_data"),
			MinLevel:          v.GetString("audit.min_level"),
			Blacklist:         v.GetStringSlice("audit.blacklist"),
			Whitelist:         v.GetStringSlice("audit.whitelist"),
			EnforceComments:   v.GetStringSlice("audit.enforce_comments"),
			ForwardEnabled:    v.GetBool("audit.forward_enabled"),
		},
		Security: SecurityConfig{
			BackupCodeLength: v.GetInt("security.backup_code_length"),
			BackupCodeCount:  v.GetInt("security.backup_code_count"),
			TOTPIssuer:       v.GetString("security.totp_issuer"),
			InitialAdminPass: v.GetString("security.initial_admin_password"),
		},
		Storage: StorageConfig{
			Backend:       v.GetString("storage.backend"),
			LocalPath:     v.GetString("storage.local_path"),
			MaxUploadSize: v.GetInt64("storage.max_upload_size"),
			S3Bucket:      v.GetString("storage.s3_bucket"),
			S3Region:      v.GetString("storage.s3_region"),
			S3Endpoint:    v.GetString("storage.s3_endpoint"),
			S3AccessKey:   v.GetString("storage.s3_access_key"),
			S3SecretKey:   v.GetString("storage.s3_secret_key"),
			S3PathStyle:   v.GetBool("storage.s3_path_style"),
			PresignExpiry: v.GetDuration("storage.presign_expiry"),
		},
		Cache: CacheConfig{
			Backend: v.GetString("cache.backend"),
			TTL:     v.GetDuration("cache.ttl"),
		},
		Labels: LabelsConfig{
			ChromePath:    v.GetString("labels.chrome_path"),
			RenderTimeout: v.GetDuration("labels.render_timeout"),
		},
		InfoProviders: InfoProvidersConfig{
			TestEnabled:  v.GetBool("info_providers.test_enabled"),
			LCSCEnabled:  v.GetBool("info_providers.lcsc_enabled"),
			LCSCBaseURL:  v.GetString("info_providers.lcsc_base_url"),
			LCSCCurrency: v.GetString("info_providers.lcsc_currency"),
			Timeout:      v.GetDuration("info_providers.timeout"),
			CacheTTL:     v.GetDuration("info_providers.cache_ttl"),
		},
		Mail: MailConfig{
			DSN: v.GetString("mail.dsn"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Messaging: MessagingConfig{
			URL:        v.GetString("messaging.url"),
			Exchange:   v.GetString("messaging.exchange"),
			RoutingKey: v.GetString("messaging.routing_key"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setBoolDefaults registers defaults for flags that are on unless disabled.
// Zero-value checks cannot tell "false" from "unset" for booleans.
func setBoolDefaults(v *viper.Viper) {
	v.SetDefault("audit.save_changed_fields", true)
	v.SetDefault("audit.save_changed_data", true)
	v.SetDefault("audit.save_removed_data", true)
	v.SetDefault("audit.save_new_data", true)
	v.SetDefault("http.auth_rate_limit_enabled", true)
	v.SetDefault("info_providers.test_enabled", false)
	v.SetDefault("swagger.enabled", true)
	v.SetDefault("swagger.require_auth", true)
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "partdb-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.InstanceName == "" {
		cfg.App.InstanceName = "Part-DB"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		switch cfg.Database.Driver {
		case "mysql":
			cfg.Database.Port = 3306
		default:
			cfg.Database.Port = 5432
		}
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "partdb"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "partdb.sqlite"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "partdb-backend"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20
	}
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = time.Minute
	}
	// An empty origin list means no cross-origin requests are allowed.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Audit.MinLevel == "" {
		cfg.Audit.MinLevel = "info"
	}
	if cfg.Security.BackupCodeLength == 0 {
		cfg.Security.BackupCodeLength = 8
	}
	if cfg.Security.BackupCodeCount == 0 {
		cfg.Security.BackupCodeCount = 15
	}
	if cfg.Security.TOTPIssuer == "" {
		cfg.Security.TOTPIssuer = cfg.App.InstanceName
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "uploads"
	}
	if cfg.Storage.MaxUploadSize == 0 {
		cfg.Storage.MaxUploadSize = 32 << 20
	}
	if cfg.Storage.PresignExpiry == 0 {
		cfg.Storage.PresignExpiry = 15 * time.Minute
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Labels.RenderTimeout == 0 {
		cfg.Labels.RenderTimeout = 30 * time.Second
	}
	if cfg.InfoProviders.LCSCBaseURL == "" {
		cfg.InfoProviders.LCSCBaseURL = "https://wmsc.lcsc.com/ftps/wm"
	}
	if cfg.InfoProviders.LCSCCurrency == "" {
		cfg.InfoProviders.LCSCCurrency = "EUR"
	}
	if cfg.InfoProviders.Timeout == 0 {
		cfg.InfoProviders.Timeout = 10 * time.Second
	}
	if cfg.InfoProviders.CacheTTL == 0 {
		cfg.InfoProviders.CacheTTL = 24 * time.Hour
	}
	if cfg.Mail.DSN == "" {
		cfg.Mail.DSN = "null://null"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "partdb-backend"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Messaging.Exchange == "" {
		cfg.Messaging.Exchange = "partdb.audit"
	}
	if cfg.Messaging.RoutingKey == "" {
		cfg.Messaging.RoutingKey = "log.entry"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("database.driver must be one of postgres, mysql, sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("storage.s3_bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("storage.backend must be local or s3, got %q", c.Storage.Backend)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}

	if c.Security.BackupCodeLength <= 0 || c.Security.BackupCodeLength%2 != 0 {
		return fmt.Errorf("security.backup_code_length must be a positive even number")
	}

	if c.Audit.ForwardEnabled && c.Messaging.URL == "" {
		return fmt.Errorf("messaging.url is required when audit.forward_enabled is set")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver != "sqlite" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the connection string for the configured driver
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "sqlite":
		return d.Path
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.DBName)
	}
	return d.PostgresURL()
}

// PostgresURL returns the postgres connection URL with properly escaped values
func (d *DatabaseConfig) PostgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
