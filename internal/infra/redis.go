package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewStateCache connects the Redis client backing the table state store.
func NewStateCache(ctx context.Context, cfg *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping state cache %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}

// NewLockNodes connects one client per independent lock quorum node. The
// nodes must be isolated instances, not replicas of each other, or the
// quorum math means nothing. Startup fails if any node is unreachable: a
// cluster that boots degraded would silently weaken every lock it grants.
func NewLockNodes(ctx context.Context, cfg *Config) ([]*redis.Client, error) {
	addrs := cfg.LockNodeAddrs()
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no lock nodes configured")
	}

	nodes := make([]*redis.Client, 0, len(addrs))
	for _, addr := range addrs {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			for _, c := range nodes {
				_ = c.Close()
			}
			return nil, fmt.Errorf("ping lock node %s: %w", addr, err)
		}
		nodes = append(nodes, client)
	}
	return nodes, nil
}
