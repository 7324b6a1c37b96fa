package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresPool creates a pgx connection pool sized from the given config.
func NewPostgresPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	applyPoolConfig(poolCfg, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func applyPoolConfig(poolCfg *pgxpool.Config, cfg *Config) {
	poolCfg.MaxConns = int32(cfg.PGPoolMaxConns)
	poolCfg.MinConns = int32(cfg.PGPoolMinConns)
	poolCfg.MaxConnLifetime = time.Duration(cfg.PGPoolMaxConnLifeMin) * time.Minute
	poolCfg.MaxConnIdleTime = time.Duration(cfg.PGPoolMaxConnIdleMin) * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
}

// HealthCheck pings the database and returns an error if unreachable.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return pool.Ping(ctx)
}
