package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predictleague/settlement/internal/auth"
	s3blob "github.com/predictleague/settlement/internal/blob/s3"
	"github.com/predictleague/settlement/internal/cache/redis"
	"github.com/predictleague/settlement/internal/config"
	"github.com/predictleague/settlement/internal/domain"
	"github.com/predictleague/settlement/internal/notify"
	"github.com/predictleague/settlement/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the settlement service
// needs to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	MarketStore  domain.MarketStore
	StakeStore   domain.StakeStore
	SeasonStore  domain.SeasonStore
	JokerStore   domain.JokerStore
	AccountStore domain.AccountStore
	AuditStore   domain.AuditStore
	Ledger       domain.Ledger

	// Redis-backed infrastructure
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus
	Leaderboard domain.Leaderboard

	// Blob storage. Nil when report archival is disabled.
	BlobWriter domain.BlobWriter

	// Auth. Nil when no credentials are configured.
	Registry *auth.Registry

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.StakeStore = postgres.NewStakeStore(pool)
	deps.SeasonStore = postgres.NewSeasonStore(pool)
	deps.JokerStore = postgres.NewJokerStore(pool)
	deps.AccountStore = postgres.NewAccountStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)
	deps.Ledger = postgres.NewLedger(pool)

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

	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.Leaderboard = redis.NewLeaderboard(redisClient)

	// --- S3 blob storage (settlement report archival, optional) ---
	if cfg.S3.Enabled {
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
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Auth ---
	if cfg.Auth.Enabled() {
		deps.Registry = auth.NewRegistry(
			cfg.Auth.ServiceKey,
			cfg.Auth.AdminKeyHashes,
			cfg.Auth.ResolverKeyHashes,
		)
	} else {
		logger.Warn("wire: auth disabled, all requests treated as admin")
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
