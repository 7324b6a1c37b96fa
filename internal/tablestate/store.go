// Package tablestate serializes TableState blobs to and from the distributed
// cache. The store performs no locking itself: every caller must hold the
// table's dlock lease around Load and Save. Last-writer-wins on Save is safe
// only because the lock guarantees a single writer.
package tablestate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cardroom/platform/internal/domain"
)

const keyPrefix = "table:state:"

// Cache is the slice of the Redis API the store needs. *redis.Client satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Store loads and saves per-table state with an idle TTL. Tables idle past
// the TTL expire from the cache and come back as fresh defaults.
type Store struct {
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewStore creates a table state store with the given idle TTL.
func NewStore(cache Cache, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{cache: cache, ttl: ttl, logger: logger}
}

// Load returns the table's current state, or a fresh default when the table
// has no state yet. Corrupt or version-mismatched payloads are also treated
// as fresh tables: that default is safe for phase data only — balances never
// live here, they always come from the transactional store.
func (s *Store) Load(ctx context.Context, tableID, gameType string) (*domain.TableState, error) {
	raw, err := s.cache.Get(ctx, keyPrefix+tableID).Result()
	if err == redis.Nil {
		return domain.NewTableState(gameType), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load table state %s: %w", tableID, err)
	}

	var state domain.TableState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		s.logger.Warn("corrupt table state, starting fresh", "table_id", tableID, "error", err)
		return domain.NewTableState(gameType), nil
	}
	if state.Version != domain.StateVersion {
		s.logger.Warn("table state version mismatch, starting fresh",
			"table_id", tableID, "version", state.Version)
		return domain.NewTableState(gameType), nil
	}
	return &state, nil
}

// Save overwrites the table's state unconditionally and refreshes the idle TTL.
func (s *Store) Save(ctx context.Context, tableID string, state *domain.TableState) error {
	state.UpdatedAt = time.Now()
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal table state %s: %w", tableID, err)
	}
	if err := s.cache.Set(ctx, keyPrefix+tableID, blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("save table state %s: %w", tableID, err)
	}
	return nil
}
