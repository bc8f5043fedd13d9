package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/prophetmarkets/liquidityd/internal/blob/s3"
	"github.com/prophetmarkets/liquidityd/internal/cache/redis"
	"github.com/prophetmarkets/liquidityd/internal/config"
	"github.com/prophetmarkets/liquidityd/internal/crypto"
	"github.com/prophetmarkets/liquidityd/internal/domain"
	"github.com/prophetmarkets/liquidityd/internal/notify"
	"github.com/prophetmarkets/liquidityd/internal/platform/counterstake"
	"github.com/prophetmarkets/liquidityd/internal/platform/evm"
	"github.com/prophetmarkets/liquidityd/internal/platform/obyte"
	"github.com/prophetmarkets/liquidityd/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the
// application modes need to operate. It is constructed by Wire and torn
// down by the returned cleanup function.
type Dependencies struct {
	// Platform clients
	Hub        *obyte.Client
	Bridge     *counterstake.Client
	Subscriber *obyte.StateSubscriber

	// Stores
	QuoteStore domain.QuoteStore
	AuditStore domain.AuditStore

	// Caches
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   *s3blob.ArchiveImpl

	// Funding wallet (nil unless a key is configured)
	Sender *evm.Sender

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that persist quotes.
func needsPostgres(mode string) bool {
	switch mode {
	case "server", "full":
		return true
	default:
		return false
	}
}

// needsS3 returns true for modes that run the retention worker.
func needsS3(mode string) bool {
	return mode == "full"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Platform clients ---
	deps.Hub = obyte.NewClient(cfg.Obyte.HubURL)
	deps.Bridge = counterstake.NewClient(cfg.Counterstake.ApiURL)
	deps.Subscriber = obyte.NewStateSubscriber(cfg.Obyte.WsURL, deps.Hub)
	closers = append(closers, func() { _ = deps.Subscriber.Close() })

	// --- Funding wallet (enables bridge transfer composition) ---
	if cfg.Wallet.EvmRawKey != "" || cfg.Wallet.SealedKeyPath != "" {
		sender, err := evm.NewSender(crypto.KeySource{
			RawKey:     cfg.Wallet.EvmRawKey,
			SealedPath: cfg.Wallet.SealedKeyPath,
			Passphrase: cfg.Wallet.KeyPassphrase,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: funding wallet: %w", err)
		}
		deps.Sender = sender
	}

	// --- PostgreSQL (only for modes that persist quotes) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.QuoteStore = postgres.NewQuoteStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.MarketCache = redis.NewMarketCache(redisClient, cfg.Session.SnapshotTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)

	// --- S3 blob storage (only for modes that run retention) ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		writer := s3blob.NewWriter(s3Client)
		reader := s3blob.NewReader(s3Client)
		deps.BlobWriter = writer
		deps.BlobReader = reader

		// Archiver needs the quote store alongside blob storage.
		if deps.QuoteStore != nil && deps.AuditStore != nil {
			deps.Archiver = s3blob.NewArchiver(writer, reader, deps.QuoteStore, deps.AuditStore)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
