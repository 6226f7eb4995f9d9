// Package bootstrap turns configuration into wired runtime components.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/calendar-booking-agent/internal/audit"
	"github.com/wolfman30/calendar-booking-agent/internal/bookings"
	appconfig "github.com/wolfman30/calendar-booking-agent/internal/config"
	"github.com/wolfman30/calendar-booking-agent/internal/session"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore picks Redis when SESSION_STORE=redis and Redis answers,
// and process memory otherwise.
func BuildSessionStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (session.Store, func()) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg != nil && cfg.SessionStore == "redis" {
		if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
			logger.Info("session store: redis", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL.String())
			return session.NewRedisStore(client, cfg.SessionTTL, nil), func() { _ = client.Close() }
		}
		logger.Warn("redis session store unavailable; falling back to memory")
	}
	logger.Info("session store: memory")
	return session.NewMemoryStore(), func() {}
}

// BuildLedger connects the Postgres booking ledger, or an in-memory one when
// DATABASE_URL is unset or unreachable.
func BuildLedger(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (bookings.Repository, func()) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Info("booking ledger: memory")
		return bookings.NewMemoryRepository(), func() {}
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err == nil {
		err = pool.Ping(ctx)
		if err != nil {
			pool.Close()
		}
	}
	if err != nil {
		logger.Warn("failed to connect postgres; booking ledger in memory", "error", err)
		return bookings.NewMemoryRepository(), func() {}
	}
	logger.Info("booking ledger: postgres")
	return bookings.NewPostgresRepository(pool), pool.Close
}

// BuildAuditService opens the audit trail database. A nil service is a
// valid no-op audit trail.
func BuildAuditService(cfg *appconfig.Config, logger *logging.Logger) (*audit.Service, func(), error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, func() {}, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, fmt.Errorf("bootstrap: open audit db: %w", err)
	}
	logger.Info("audit trail: postgres")
	return audit.NewService(db), func() { _ = db.Close() }, nil
}
