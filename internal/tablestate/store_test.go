package tablestate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/platform/internal/domain"
)

type fakeCache struct {
	data map[string][]byte
	ttls map[string]time.Duration
	down bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeCache) Get(_ context.Context, key string) *redis.StringCmd {
	if f.down {
		return redis.NewStringResult("", errors.New("cache unreachable"))
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.down {
		return redis.NewStatusResult("", errors.New("cache unreachable"))
	}
	f.data[key] = value.([]byte)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func testStore(c Cache) *Store {
	return NewStore(c, 30*time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLoadMissingReturnsDefault(t *testing.T) {
	s := testStore(newFakeCache())

	state, err := s.Load(context.Background(), "t1", "blackjack")
	require.NoError(t, err)
	assert.Equal(t, "blackjack", state.GameType)
	assert.Equal(t, domain.PhaseAwaitingBets, state.Phase)
	assert.Zero(t, state.Pot)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cache := newFakeCache()
	s := testStore(cache)
	ctx := context.Background()

	state := domain.NewTableState("war")
	state.HandID = "h1"
	state.Pot = 300
	state.Seats[2].Positions[1].Amount = 300
	state.Seats[2].Positions[1].Open = true
	require.NoError(t, s.Save(ctx, "t1", state))
	assert.Equal(t, 30*time.Minute, cache.ttls["table:state:t1"])

	loaded, err := s.Load(ctx, "t1", "war")
	require.NoError(t, err)
	assert.Equal(t, "h1", loaded.HandID)
	assert.Equal(t, int64(300), loaded.Pot)
	assert.Equal(t, int64(300), loaded.Seats[2].Positions[1].Amount)
	assert.True(t, loaded.Seats[2].Positions[1].Open)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestCorruptStateTreatedAsFresh(t *testing.T) {
	cache := newFakeCache()
	cache.data["table:state:t1"] = []byte("{not json")
	s := testStore(cache)

	state, err := s.Load(context.Background(), "t1", "bingo")
	require.NoError(t, err)
	assert.Equal(t, "bingo", state.GameType)
	assert.Equal(t, domain.PhaseAwaitingBets, state.Phase)
}

func TestVersionMismatchTreatedAsFresh(t *testing.T) {
	cache := newFakeCache()
	cache.data["table:state:t1"] = []byte(`{"version":99,"game_type":"war","pot":500}`)
	s := testStore(cache)

	state, err := s.Load(context.Background(), "t1", "war")
	require.NoError(t, err)
	assert.Zero(t, state.Pot)
}

func TestStoreUnavailabilityFailsClosed(t *testing.T) {
	cache := newFakeCache()
	cache.down = true
	s := testStore(cache)
	ctx := context.Background()

	_, err := s.Load(ctx, "t1", "war")
	assert.Error(t, err)

	assert.Error(t, s.Save(ctx, "t1", domain.NewTableState("war")))
}
