// Package config defines the top-level configuration for the liquidity
// quoting service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by LIQD_* environment variables.
type Config struct {
	Obyte        ObyteConfig        `toml:"obyte"`
	Counterstake CounterstakeConfig `toml:"counterstake"`
	Wallet       WalletConfig       `toml:"wallet"`
	Postgres     PostgresConfig     `toml:"postgres"`
	Redis        RedisConfig        `toml:"redis"`
	S3           S3Config           `toml:"s3"`
	Session      SessionConfig      `toml:"session"`
	Server       ServerConfig       `toml:"server"`
	Notify       NotifyConfig       `toml:"notify"`
	Mode         string             `toml:"mode"`
	LogLevel     string             `toml:"log_level"`
}

// ObyteConfig holds home-chain hub endpoints.
type ObyteConfig struct {
	HubURL string `toml:"hub_url"`
	WsURL  string `toml:"ws_url"`
}

// CounterstakeConfig holds bridge witness API parameters.
type CounterstakeConfig struct {
	ApiURL string `toml:"api_url"`
}

// WalletConfig holds the home-chain receiving address and the optional
// EVM funding key used to compose bridge transfers.
type WalletConfig struct {
	HomeAddress   string `toml:"home_address"`
	EvmRawKey     string `toml:"evm_raw_key"`
	SealedKeyPath string `toml:"sealed_key_path"`
	KeyPassphrase string `toml:"key_passphrase"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// SessionConfig holds quote-session behavior parameters.
type SessionConfig struct {
	// SnapshotTTL bounds how long a cached market snapshot may serve new
	// sessions before a fresh fetch.
	SnapshotTTL duration `toml:"snapshot_ttl"`

	// EstimateRateLimit caps bridge estimate requests per minute across
	// all sessions.
	EstimateRateLimit int `toml:"estimate_rate_limit"`

	// IdleTimeout evicts sessions with no mutations for this long.
	IdleTimeout duration `toml:"idle_timeout"`

	// QuoteRetentionDays keeps produced quotes in Postgres this many days
	// before they are archived to S3.
	QuoteRetentionDays int `toml:"quote_retention_days"`

	// ArchiveCron schedules the quote archive job (cron syntax).
	ArchiveCron string `toml:"archive_cron"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	ApiKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder
// can parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Obyte: ObyteConfig{
			HubURL: "https://obyte.org/api",
			WsURL:  "wss://obyte.org/ws",
		},
		Counterstake: CounterstakeConfig{
			ApiURL: "https://counterstake.org/api",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "liquidityd-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Session: SessionConfig{
			SnapshotTTL:        duration{30 * time.Second},
			EstimateRateLimit:  60,
			IdleTimeout:        duration{30 * time.Minute},
			QuoteRetentionDays: 90,
			ArchiveCron:        "0 3 1 * *",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"estimate_failed", "payload_produced", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"monitor": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, monitor, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Home-chain endpoints
	if c.Obyte.HubURL == "" {
		errs = append(errs, "obyte: hub_url must not be empty")
	}
	if c.Obyte.WsURL == "" {
		errs = append(errs, "obyte: ws_url must not be empty")
	}

	// Bridge
	if c.Counterstake.ApiURL == "" {
		errs = append(errs, "counterstake: api_url must not be empty")
	}

	// Wallet — sealed keys need a passphrase.
	if c.Wallet.SealedKeyPath != "" && c.Wallet.KeyPassphrase == "" {
		errs = append(errs, "wallet: key_passphrase is required when sealed_key_path is set")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Session
	if c.Session.SnapshotTTL.Duration <= 0 {
		errs = append(errs, "session: snapshot_ttl must be > 0")
	}
	if c.Session.EstimateRateLimit < 1 {
		errs = append(errs, "session: estimate_rate_limit must be >= 1")
	}
	if c.Session.IdleTimeout.Duration <= 0 {
		errs = append(errs, "session: idle_timeout must be > 0")
	}
	if c.Session.QuoteRetentionDays < 1 {
		errs = append(errs, "session: quote_retention_days must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
