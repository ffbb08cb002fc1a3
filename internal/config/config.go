// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory stores (not allowed in production).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// LogLevel is the minimum zerolog level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is json or console.
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file. Only cmd/seed needs it.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file used to validate bearer tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTTTL is the lifetime of tokens issued by cmd/seed (e.g. "12h").
	JWTTTL string `mapstructure:"JWT_TTL"`
	// AuthDisabled runs every RPC as a development identity holding all roles. Must not be true in production.
	AuthDisabled bool `mapstructure:"AUTH_DISABLED"`

	// PolicyCacheTTL is how long the active security policy is cached (e.g. "5s").
	PolicyCacheTTL string `mapstructure:"POLICY_CACHE_TTL"`
	// DefaultMaxAddresses seeds the first policy when none exists.
	DefaultMaxAddresses int `mapstructure:"DEFAULT_MAX_ADDRESSES"`
	// DefaultBlockMinutes seeds the first policy when none exists.
	DefaultBlockMinutes int `mapstructure:"DEFAULT_BLOCK_MINUTES"`
	// HeartbeatStaleAfter is how long a session may go without a heartbeat before it is no longer online.
	HeartbeatStaleAfter string `mapstructure:"HEARTBEAT_STALE_AFTER"`
	// StaleSweepInterval is how often stale sessions are closed; "0" disables the sweeper.
	StaleSweepInterval string `mapstructure:"STALE_SWEEP_INTERVAL"`
	// ReferenceTimezone is the IANA zone used for today/week/month/year boundaries.
	ReferenceTimezone string `mapstructure:"REFERENCE_TIMEZONE"`
	// DashboardRefreshInterval is the fixed dashboard refresh period.
	DashboardRefreshInterval string `mapstructure:"DASHBOARD_REFRESH_INTERVAL"`
	// DashboardDebounce collapses change-driven refreshes fired within this window.
	DashboardDebounce string `mapstructure:"DASHBOARD_DEBOUNCE"`
	// RecentSessionsWindow is the default live-monitoring window.
	RecentSessionsWindow string `mapstructure:"RECENT_SESSIONS_WINDOW"`
	// AbuseRulesFile is an optional Rego module replacing the built-in address-limit rule.
	AbuseRulesFile string `mapstructure:"ABUSE_RULES_FILE"`
	// IdentityProfilesTable is the table or view the identity collaborator exposes (user_id, display_name, plan_tier).
	IdentityProfilesTable string `mapstructure:"IDENTITY_PROFILES_TABLE"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. Empty disables Kafka publication.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// ChangesKafkaTopic is the topic for session/block/policy change events.
	ChangesKafkaTopic string `mapstructure:"CHANGES_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is the Loki base URL the worker pushes change events to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "sessionguard")
	v.SetDefault("JWT_AUDIENCE", "sessionguard-api")
	v.SetDefault("JWT_TTL", "12h")
	v.SetDefault("AUTH_DISABLED", false)
	v.SetDefault("POLICY_CACHE_TTL", "5s")
	v.SetDefault("DEFAULT_MAX_ADDRESSES", 3)
	v.SetDefault("DEFAULT_BLOCK_MINUTES", 60)
	v.SetDefault("HEARTBEAT_STALE_AFTER", "10m")
	v.SetDefault("STALE_SWEEP_INTERVAL", "1m")
	v.SetDefault("REFERENCE_TIMEZONE", "UTC")
	v.SetDefault("DASHBOARD_REFRESH_INTERVAL", "30s")
	v.SetDefault("DASHBOARD_DEBOUNCE", "2s")
	v.SetDefault("RECENT_SESSIONS_WINDOW", "24h")
	v.SetDefault("ABUSE_RULES_FILE", "")
	v.SetDefault("IDENTITY_PROFILES_TABLE", "user_profiles")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("CHANGES_KAFKA_TOPIC", "sessionguard-changes")
	v.SetDefault("KAFKA_GROUP_ID", "sessionguard-loki")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "sessionguard")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if cfg.IsProduction() && cfg.AuthDisabled {
		return nil, errors.New("config: AUTH_DISABLED must not be true when APP_ENV=production")
	}
	if cfg.IsProduction() && cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL must be set when APP_ENV=production")
	}
	if cfg.DefaultMaxAddresses < 1 {
		return nil, errors.New("config: DEFAULT_MAX_ADDRESSES must be at least 1")
	}
	if cfg.DefaultBlockMinutes < 1 {
		return nil, errors.New("config: DEFAULT_BLOCK_MINUTES must be at least 1")
	}
	if _, err := time.LoadLocation(cfg.ReferenceTimezone); err != nil {
		return nil, errors.New("config: REFERENCE_TIMEZONE is not a known time zone")
	}

	return &cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// TokenTTL parses JWTTTL. Returns 12h if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	return parseDuration(c.JWTTTL, 12*time.Hour)
}

// PolicyCacheDuration parses PolicyCacheTTL. Returns 5s if unset or invalid; 0 is allowed and disables caching.
func (c *Config) PolicyCacheDuration() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.PolicyCacheTTL))
	if err != nil || d < 0 {
		return 5 * time.Second
	}
	return d
}

// StaleAfter parses HeartbeatStaleAfter. Returns 10m if unset or invalid.
func (c *Config) StaleAfter() time.Duration {
	return parseDuration(c.HeartbeatStaleAfter, 10*time.Minute)
}

// SweepInterval parses StaleSweepInterval. Returns 0 (sweeper disabled) when set to "0".
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.StaleSweepInterval))
	if err != nil || d < 0 {
		return time.Minute
	}
	return d
}

// RefreshInterval parses DashboardRefreshInterval. Returns 30s if unset or invalid.
func (c *Config) RefreshInterval() time.Duration {
	return parseDuration(c.DashboardRefreshInterval, 30*time.Second)
}

// Debounce parses DashboardDebounce. Returns 2s if unset or invalid.
func (c *Config) Debounce() time.Duration {
	return parseDuration(c.DashboardDebounce, 2*time.Second)
}

// RecentWindow parses RecentSessionsWindow. Returns 24h if unset or invalid.
func (c *Config) RecentWindow() time.Duration {
	return parseDuration(c.RecentSessionsWindow, 24*time.Hour)
}

// Location returns the reference time zone. Load has already validated it; UTC is returned on failure.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReferenceTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list means change events are not published to Kafka.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
