package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pushforge/pushforge/config"
	"github.com/pushforge/pushforge/internal/bootstrap"
	"github.com/redis/go-redis/v9"
)

type connectInfraOptions struct {
	Logger    *slog.Logger
	Config    *config.AppConfig
	WantRedis bool
}

var errRedisNotConfigured = errors.New("redis not configured")

// connectInfra connects the database and, when requested and configured,
// Redis. Commands that only read or mutate the ledger skip Redis; create-job
// wants it so the rate limiter applies the same way it does in production.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func connectInfra(opts *connectInfraOptions) (*sql.DB, redis.UniversalClient, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: opts.Config.Postgres,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	if !opts.WantRedis {
		return db, nil, nil
	}

	redisClient, err := maybeConnectRedis(opts.Logger, &opts.Config.Redis)
	if err != nil {
		if errors.Is(err, errRedisNotConfigured) {
			opts.Logger.Info("no redis configuration detected; skipping redis connection")
			return db, nil, nil
		}
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close db: %w", closeErr))
		}
		return nil, nil, err
	}

	return db, redisClient, nil
}

// maybeConnectRedis returns a connected client when configuration is present.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func maybeConnectRedis(logger *slog.Logger, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if !hasRedisConfig(cfg) {
		return nil, errRedisNotConfigured
	}
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: *cfg, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func hasRedisConfig(cfg *config.RedisConfig) bool {
	if cfg == nil {
		return false
	}
	if cfg.UseCluster {
		return len(cfg.ClusterNodes) > 0 || cfg.URI != ""
	}
	if cfg.UseSentinel {
		return len(cfg.SentinelNodes) > 0
	}
	return cfg.URI != ""
}

func closeInfra(db *sql.DB, redisClient redis.UniversalClient) error {
	var closeErr error
	if db != nil {
		if err := db.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close db: %w", err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	return closeErr
}
