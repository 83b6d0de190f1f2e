package app

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/0ashutosh1/Project/internal/config"
	"github.com/0ashutosh1/Project/internal/db"
	"github.com/0ashutosh1/Project/internal/logger"
	"github.com/0ashutosh1/Project/internal/redis"
)

// Infra holds the optional external backends. A nil field means the
// deployment runs the in-memory fallback for that concern.
type Infra struct {
	DB    *sql.DB
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	infra := &Infra{}

	if cfg.DatabaseDSN != "" {
		sqlDB, err := sql.Open("postgres", cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return nil, err
		}
		if err := db.RunAccountsMigration(ctx, sqlDB); err != nil {
			return nil, err
		}
		logger.Info("database ready", nil)
		infra.DB = sqlDB
	} else {
		logger.Warn("DATABASE_DSN not set, using in-memory account store", nil)
	}

	if cfg.RedisAddr != "" {
		redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		logger.Info("redis ready", nil)
		infra.Redis = redisClient
	} else {
		logger.Warn("REDIS_ADDR not set, using in-memory revocation registry", nil)
	}

	return infra, nil
}

func (i *Infra) close() error {
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			return err
		}
	}
	if i.DB != nil {
		return i.DB.Close()
	}
	return nil
}
