package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/platform/internal/dlock"
	"github.com/cardroom/platform/internal/domain"
	"github.com/cardroom/platform/internal/engine"
	"github.com/cardroom/platform/internal/engine/hilo"
	"github.com/cardroom/platform/internal/engine/war"
)

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquires int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (f *fakeLocker) Acquire(_ context.Context, tableID string, _ time.Duration) (*dlock.Lease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	if f.held[tableID] {
		return nil, domain.ErrTableBusy(tableID)
	}
	f.held[tableID] = true
	return &dlock.Lease{TableID: tableID, Token: uuid.NewString()}, nil
}

func (f *fakeLocker) Release(_ context.Context, lease *dlock.Lease) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, lease.TableID)
	return nil
}

// fakeStore round-trips states through JSON the way the real store does.
type fakeStore struct {
	data  map[string][]byte
	saves int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (f *fakeStore) Load(_ context.Context, tableID, gameType string) (*domain.TableState, error) {
	raw, ok := f.data[tableID]
	if !ok {
		return domain.NewTableState(gameType), nil
	}
	var state domain.TableState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (f *fakeStore) Save(_ context.Context, tableID string, state *domain.TableState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	f.data[tableID] = raw
	f.saves++
	return nil
}

type postedCall struct {
	tableID string
	handID  string
	effects []engine.Effect
	events  []domain.OutboxDraft
}

type fakePoster struct {
	calls []postedCall
}

func (f *fakePoster) Post(_ context.Context, tableID, handID string, tr *engine.Transition) error {
	f.calls = append(f.calls, postedCall{
		tableID: tableID,
		handID:  handID,
		effects: append([]engine.Effect(nil), tr.Effects...),
		events:  append([]domain.OutboxDraft(nil), tr.Events...),
	})
	return nil
}

func (f *fakePoster) allEffects() []engine.Effect {
	var out []engine.Effect
	for _, c := range f.calls {
		out = append(out, c.effects...)
	}
	return out
}

func (f *fakePoster) eventTypes() []domain.EventType {
	var out []domain.EventType
	for _, c := range f.calls {
		for _, ev := range c.events {
			out = append(out, ev.EventType)
		}
	}
	return out
}

type denyLimiter struct{}

func (denyLimiter) Check(context.Context, string) domain.GuardResult {
	return domain.GuardResult{Allowed: false, Reason: "too many actions"}
}

type testHarness struct {
	runner *engine.Runner
	locker *fakeLocker
	store  *fakeStore
	poster *fakePoster
}

func newHarness(t *testing.T, limiter engine.Limiter, games ...engine.Game) *testHarness {
	t.Helper()
	if len(games) == 0 {
		games = []engine.Game{war.New(), hilo.New()}
	}
	h := &testHarness{
		locker: newFakeLocker(),
		store:  newFakeStore(),
		poster: &fakePoster{},
	}
	h.runner = engine.NewRunner(games, h.locker, h.store, h.poster, limiter,
		time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h
}

func TestRunnerValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	playerID := uuid.New()

	t.Run("unknown game type", func(t *testing.T) {
		_, err := h.runner.JoinTable(ctx, "t1", "poker", playerID, 0, 0)
		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})

	t.Run("bad table id", func(t *testing.T) {
		_, err := h.runner.JoinTable(ctx, "no spaces allowed", "war", playerID, 0, 0)
		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})

	t.Run("position out of range", func(t *testing.T) {
		_, err := h.runner.JoinTable(ctx, "t1", "war", playerID, 9, 0)
		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})
}

func TestRunnerRateLimit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, denyLimiter{})

	_, err := h.runner.PlaceBet(ctx, "t1", "war", uuid.New(), 0, 0, 100, "")
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "RATE_LIMITED", appErr.Code)
	assert.Zero(t, h.locker.acquires, "denied action must not touch the lock")
}

func TestRunnerTableBusy(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.locker.Acquire(ctx, "t1", time.Second)
	require.NoError(t, err)

	_, err = h.runner.PlaceBet(ctx, "t1", "war", uuid.New(), 0, 0, 100, "")
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "TABLE_BUSY", appErr.Code)
	assert.Empty(t, h.poster.calls)
	assert.Zero(t, h.store.saves)
}

func TestJoinTable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	p1, p2 := uuid.New(), uuid.New()

	state, err := h.runner.JoinTable(ctx, "t1", "war", p1, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, p1, state.Seats[2].Positions[1].PlayerID)
	assert.NotEmpty(t, state.HandID)
	assert.NotEmpty(t, state.ServerSeedHash)
	assert.NotEmpty(t, state.ServerSeed)

	_, err = h.runner.JoinTable(ctx, "t1", "war", p2, 2, 1)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)

	assert.Contains(t, h.poster.eventTypes(), domain.EventPlayerJoined)
}

func TestPlaceBetDealsWhenAllReady(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	playerID := uuid.New()

	state, err := h.runner.PlaceBet(ctx, "t1", "war", playerID, 0, 0, 250, "lucky")
	require.NoError(t, err)

	// Single occupied position: the bet makes the table all-ready, war
	// settles in the deal, and the runner rolls into the next hand.
	assert.Equal(t, domain.PhaseAwaitingBets, state.Phase)
	require.NotNil(t, state.LastHand)
	assert.Equal(t, "lucky", state.LastHand.PlayerSeed)
	require.Len(t, state.LastHand.Outcomes, 1)
	outcome := state.LastHand.Outcomes[0]
	assert.Equal(t, playerID, outcome.PlayerID)
	assert.Equal(t, int64(250), outcome.Amount)
	assert.Zero(t, state.Pot)

	// Seed commitment of the settled hand must verify.
	assert.NotEmpty(t, state.LastHand.ServerSeed)
	assert.NotEqual(t, state.ServerSeedHash, state.LastHand.ServerSeedHash)

	effects := h.poster.allEffects()
	require.NotEmpty(t, effects)
	assert.Equal(t, domain.TxBet, effects[0].Type)
	assert.Equal(t, "bet:0.0:1", effects[0].Discriminator)

	types := h.poster.eventTypes()
	assert.Contains(t, types, domain.EventBetPlaced)
	assert.Contains(t, types, domain.EventHandDealt)
	assert.Contains(t, types, domain.EventHandSettled)
}

func TestPlaceBetSeedBinding(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	p1, p2 := uuid.New(), uuid.New()

	// p1 occupies a second position so p2's bet does not trigger the deal.
	_, err := h.runner.JoinTable(ctx, "t1", "war", p1, 0, 0)
	require.NoError(t, err)

	state, err := h.runner.PlaceBet(ctx, "t1", "war", p2, 1, 0, 100, "first")
	require.NoError(t, err)
	assert.Equal(t, "first", state.PlayerSeed)
	assert.Equal(t, domain.PhaseAwaitingBets, state.Phase)

	// A later seed does not displace the bound one.
	_, err = h.runner.RemoveBet(ctx, "t1", "war", p2, 1, 0)
	require.NoError(t, err)
	state, err = h.runner.PlaceBet(ctx, "t1", "war", p2, 1, 0, 100, "second")
	require.NoError(t, err)
	assert.Equal(t, "first", state.PlayerSeed)
}

func TestRemoveBet(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	p1, p2 := uuid.New(), uuid.New()

	_, err := h.runner.JoinTable(ctx, "t1", "war", p1, 0, 0)
	require.NoError(t, err)
	state, err := h.runner.PlaceBet(ctx, "t1", "war", p2, 1, 0, 300, "")
	require.NoError(t, err)
	require.Equal(t, int64(300), state.Pot)

	t.Run("only the owner can remove", func(t *testing.T) {
		_, err := h.runner.RemoveBet(ctx, "t1", "war", p1, 1, 0)
		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "CONFLICT", appErr.Code)
	})

	t.Run("refund and vacate", func(t *testing.T) {
		state, err := h.runner.RemoveBet(ctx, "t1", "war", p2, 1, 0)
		require.NoError(t, err)
		assert.Zero(t, state.Pot)
		assert.False(t, state.Seats[1].Positions[0].Occupied())

		effects := h.poster.allEffects()
		last := effects[len(effects)-1]
		assert.Equal(t, domain.TxRefund, last.Type)
		assert.Equal(t, "refund:1.0:1", last.Discriminator)
		assert.Equal(t, "bet:1.0:1", last.Target)
	})

	t.Run("vacant position", func(t *testing.T) {
		_, err := h.runner.RemoveBet(ctx, "t1", "war", p2, 1, 0)
		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "NOT_FOUND", appErr.Code)
	})
}

func TestRebetGetsFreshCorrelation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	p1, p2 := uuid.New(), uuid.New()

	_, err := h.runner.JoinTable(ctx, "t1", "war", p1, 0, 0)
	require.NoError(t, err)
	_, err = h.runner.PlaceBet(ctx, "t1", "war", p2, 1, 0, 100, "")
	require.NoError(t, err)
	_, err = h.runner.RemoveBet(ctx, "t1", "war", p2, 1, 0)
	require.NoError(t, err)
	_, err = h.runner.PlaceBet(ctx, "t1", "war", p2, 1, 0, 100, "")
	require.NoError(t, err)

	// The re-placed bet must not collide with the removed one in the
	// ledger's idempotency index.
	var betDiscs []string
	for _, e := range h.poster.allEffects() {
		if e.Type == domain.TxBet {
			betDiscs = append(betDiscs, e.Discriminator)
		}
	}
	require.Len(t, betDiscs, 2)
	assert.NotEqual(t, betDiscs[0], betDiscs[1])
}

func TestStartHandSkipsUnfundedPositions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	p1, p2 := uuid.New(), uuid.New()

	_, err := h.runner.StartHand(ctx, "t1", "war", p1)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code, "no bets, nothing to deal")

	_, err = h.runner.JoinTable(ctx, "t1", "war", p1, 0, 0)
	require.NoError(t, err)
	_, err = h.runner.PlaceBet(ctx, "t1", "war", p2, 1, 0, 100, "")
	require.NoError(t, err)

	state, err := h.runner.StartHand(ctx, "t1", "war", p2)
	require.NoError(t, err)
	require.NotNil(t, state.LastHand)
	require.Len(t, state.LastHand.Outcomes, 1)
	assert.Equal(t, p2, state.LastHand.Outcomes[0].PlayerID)

	// The unfunded position survives into the next hand.
	assert.Equal(t, p1, state.Seats[0].Positions[0].PlayerID)
}

func TestPlayerDecisionFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	playerID := uuid.New()

	state, err := h.runner.PlaceBet(ctx, "t1", "hilo", playerID, 0, 0, 100, "")
	require.NoError(t, err)
	require.Equal(t, domain.PhaseAwaitingDecisions, state.Phase)
	require.Len(t, state.Seats[0].Positions[0].Cards, 1)

	t.Run("wrong owner", func(t *testing.T) {
		_, err := h.runner.PlayerDecision(ctx, "t1", "hilo", uuid.New(), 0, 0, "higher")
		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "CONFLICT", appErr.Code)
	})

	t.Run("settles after the call", func(t *testing.T) {
		state, err := h.runner.PlayerDecision(ctx, "t1", "hilo", playerID, 0, 0, "higher")
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseAwaitingBets, state.Phase)
		require.NotNil(t, state.LastHand)
		assert.Zero(t, state.Pot)
	})

	t.Run("no decisions between hands", func(t *testing.T) {
		_, err := h.runner.PlayerDecision(ctx, "t1", "hilo", playerID, 0, 0, "higher")
		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "CONFLICT", appErr.Code)
	})
}

func TestGetPublicState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	pub, err := h.runner.GetPublicState(ctx, "t1", "war")
	require.NoError(t, err)
	assert.NotEmpty(t, pub.HandID)
	assert.NotEmpty(t, pub.ServerSeedHash)
	assert.Equal(t, domain.PhaseAwaitingBets, pub.Phase)

	// The read persisted the commitment so later bets shuffle under the
	// hash already published here.
	require.Equal(t, 1, h.store.saves)
	state, err := h.store.Load(ctx, "t1", "war")
	require.NoError(t, err)
	assert.Equal(t, pub.HandID, state.HandID)
	assert.Empty(t, h.poster.calls)

	// Redacted JSON must never leak the deck or the live seed.
	raw, err := json.Marshal(pub)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "deck")
	assert.NotContains(t, string(raw), state.ServerSeed)
}

// potBreaker corrupts the pot without a matching bet.
type potBreaker struct{}

func (potBreaker) Type() string  { return "broken" }
func (potBreaker) DeckSize() int { return 52 }
func (potBreaker) Deal(state *domain.TableState) (*engine.Transition, error) {
	state.Pot += 500
	return &engine.Transition{}, nil
}
func (potBreaker) Decide(*domain.TableState, int, int, string) (*engine.Transition, error) {
	return nil, errors.New("unreachable")
}

func TestPotInvariantFailsClosed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, potBreaker{})
	playerID := uuid.New()

	_, err := h.runner.PlaceBet(ctx, "t1", "broken", playerID, 0, 0, 100, "")
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INTERNAL_ERROR", appErr.Code)
	assert.Zero(t, h.store.saves, "inconsistent state must not be persisted")
}

// shortPay settles the hand without paying the pot out, leaving money
// unaccounted for at the moment the hand ends.
type shortPay struct{}

func (shortPay) Type() string  { return "shortpay" }
func (shortPay) DeckSize() int { return 52 }
func (shortPay) Deal(state *domain.TableState) (*engine.Transition, error) {
	state.EachOpenPosition(func(seat, pos int, p *domain.BettingPosition) {
		p.Open = false
	})
	state.Phase = domain.PhaseSettled
	return &engine.Transition{}, nil
}
func (shortPay) Decide(*domain.TableState, int, int, string) (*engine.Transition, error) {
	return nil, errors.New("unreachable")
}

func TestPotInvariantFailsClosedOnSettledHand(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, shortPay{})
	playerID := uuid.New()

	// The bet makes every position ready, so the deal runs and settles the
	// hand with the pot still holding the stake. The mismatch must surface
	// before the next-hand reset zeroes the pot.
	_, err := h.runner.PlaceBet(ctx, "t1", "shortpay", playerID, 0, 0, 100, "")
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INTERNAL_ERROR", appErr.Code)
	assert.Zero(t, h.store.saves, "inconsistent state must not be persisted")
	assert.Empty(t, h.poster.calls, "no ledger effects for a hand that fails the pot check")
}
