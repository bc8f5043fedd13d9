package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LIQD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known LIQD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Obyte ──
	setStr(&cfg.Obyte.HubURL, "LIQD_OBYTE_HUB_URL")
	setStr(&cfg.Obyte.WsURL, "LIQD_OBYTE_WS_URL")

	// ── Counterstake ──
	setStr(&cfg.Counterstake.ApiURL, "LIQD_COUNTERSTAKE_API_URL")

	// ── Wallet ──
	setStr(&cfg.Wallet.HomeAddress, "LIQD_WALLET_HOME_ADDRESS")
	setStr(&cfg.Wallet.EvmRawKey, "LIQD_WALLET_EVM_RAW_KEY")
	setStr(&cfg.Wallet.SealedKeyPath, "LIQD_WALLET_SEALED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassphrase, "LIQD_WALLET_KEY_PASSPHRASE")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "LIQD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "LIQD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "LIQD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "LIQD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "LIQD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "LIQD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "LIQD_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "LIQD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "LIQD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "LIQD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "LIQD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LIQD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LIQD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LIQD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "LIQD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "LIQD_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "LIQD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "LIQD_S3_REGION")
	setStr(&cfg.S3.Bucket, "LIQD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "LIQD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "LIQD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "LIQD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "LIQD_S3_FORCE_PATH_STYLE")

	// ── Session ──
	setDuration(&cfg.Session.SnapshotTTL, "LIQD_SESSION_SNAPSHOT_TTL")
	setInt(&cfg.Session.EstimateRateLimit, "LIQD_SESSION_ESTIMATE_RATE_LIMIT")
	setDuration(&cfg.Session.IdleTimeout, "LIQD_SESSION_IDLE_TIMEOUT")
	setInt(&cfg.Session.QuoteRetentionDays, "LIQD_SESSION_QUOTE_RETENTION_DAYS")
	setStr(&cfg.Session.ArchiveCron, "LIQD_SESSION_ARCHIVE_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "LIQD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "LIQD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "LIQD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.ApiKey, "LIQD_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "LIQD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "LIQD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "LIQD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "LIQD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "LIQD_MODE")
	setStr(&cfg.LogLevel, "LIQD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
