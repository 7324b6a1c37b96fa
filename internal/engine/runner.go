package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardroom/platform/internal/dlock"
	"github.com/cardroom/platform/internal/domain"
	"github.com/cardroom/platform/internal/fairness"
	"github.com/cardroom/platform/internal/ledger"
	"github.com/cardroom/platform/internal/repository"
)

const defaultLease = 2 * time.Second

// Locker guards a table against concurrent writers.
type Locker interface {
	Acquire(ctx context.Context, tableID string, lease time.Duration) (*dlock.Lease, error)
	Release(ctx context.Context, lease *dlock.Lease) error
}

// StateStore persists table state between actions.
type StateStore interface {
	Load(ctx context.Context, tableID, gameType string) (*domain.TableState, error)
	Save(ctx context.Context, tableID string, state *domain.TableState) error
}

// Limiter throttles per-player action rates.
type Limiter interface {
	Check(ctx context.Context, key string) domain.GuardResult
}

// Poster delivers a transition's ledger effects and outbox events.
type Poster interface {
	Post(ctx context.Context, tableID, handID string, tr *Transition) error
}

// Runner executes table actions. Each action runs under the table's
// distributed lock, applies a game transition to the loaded state, posts the
// resulting ledger effects and outbox events through the poster, and saves
// the state back before the lock is released.
type Runner struct {
	games   map[string]Game
	locks   Locker
	store   StateStore
	poster  Poster
	limiter Limiter
	lease   time.Duration
	logger  *slog.Logger
}

// NewRunner wires a runner over the given games and infrastructure. A zero
// lease falls back to two seconds.
func NewRunner(
	games []Game,
	locks Locker,
	store StateStore,
	poster Poster,
	limiter Limiter,
	lease time.Duration,
	logger *slog.Logger,
) *Runner {
	if lease <= 0 {
		lease = defaultLease
	}
	byType := make(map[string]Game, len(games))
	for _, g := range games {
		byType[g.Type()] = g
	}
	return &Runner{
		games:   byType,
		locks:   locks,
		store:   store,
		poster:  poster,
		limiter: limiter,
		lease:   lease,
		logger:  logger,
	}
}

// runAction is the single choke point for table mutations.
//
// Order matters: the lock is held across load, transition, ledger posting
// and save, so a table only ever has one writer. Ledger effects carry
// correlation ids derived from the table, hand and bet sequence, so a crash
// after the database commit but before the state save heals on retry: the
// replayed effects deduplicate and only the state write repeats.
func (r *Runner) runAction(
	ctx context.Context,
	tableID, gameType string,
	playerID uuid.UUID,
	fn func(g Game, state *domain.TableState) (*Transition, error),
) (*domain.TableState, error) {
	if err := domain.ValidateTableID(tableID); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	g, ok := r.games[gameType]
	if !ok {
		return nil, domain.ErrValidation(fmt.Sprintf("unknown game type %q", gameType))
	}
	if r.limiter != nil && playerID != uuid.Nil {
		if res := r.limiter.Check(ctx, playerID.String()+":"+tableID); !res.Allowed {
			return nil, domain.ErrRateLimited(res.Reason)
		}
	}

	lease, err := r.locks.Acquire(ctx, tableID, r.lease)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := r.locks.Release(ctx, lease); relErr != nil {
			r.logger.Warn("table lock release failed",
				"table_id", tableID, "error", relErr)
		}
	}()

	state, err := r.store.Load(ctx, tableID, gameType)
	if err != nil {
		return nil, err
	}
	if state.GameType != gameType {
		return nil, domain.ErrConflict(fmt.Sprintf(
			"table %s runs %s, not %s", tableID, state.GameType, gameType))
	}
	if state.HandID == "" {
		if err := r.newHand(state); err != nil {
			return nil, err
		}
	}

	tr, err := fn(g, state)
	if err != nil {
		return nil, err
	}
	if tr == nil {
		tr = &Transition{}
	}
	handID := state.HandID

	if err := state.CheckPot(); err != nil {
		r.logger.Error("pot invariant violated, refusing to persist",
			"table_id", tableID, "hand_id", handID, "error", err)
		return nil, domain.ErrInternal("table state inconsistent", err)
	}

	if state.Phase == domain.PhaseSettled {
		tr.Events = append(tr.Events, settledEvent(tableID, state))
		if err := r.newHand(state); err != nil {
			return nil, err
		}
	}

	if len(tr.Effects) > 0 || len(tr.Events) > 0 {
		if err := r.poster.Post(ctx, tableID, handID, tr); err != nil {
			return nil, err
		}
	}

	if err := r.store.Save(ctx, tableID, state); err != nil {
		return nil, err
	}
	return state, nil
}

// newHand opens a fresh hand: new id, new server-seed commitment. The seed
// hash is visible to players from the first state read, before any bet.
func (r *Runner) newHand(state *domain.TableState) error {
	commit, err := fairness.NewCommitment()
	if err != nil {
		return domain.ErrInternal("seed generation failed", err)
	}
	state.ResetForNextHand(uuid.NewString(), commit.Seed(), commit.Hash())
	return nil
}

// LedgerPoster posts transitions against Postgres: every effect and event
// of one transition lands in a single database transaction.
type LedgerPoster struct {
	pool   *pgxpool.Pool
	ledger *ledger.Engine
	outbox repository.OutboxRepository
}

// NewLedgerPoster builds the production poster.
func NewLedgerPoster(pool *pgxpool.Pool, ldg *ledger.Engine, outbox repository.OutboxRepository) *LedgerPoster {
	return &LedgerPoster{pool: pool, ledger: ldg, outbox: outbox}
}

func (p *LedgerPoster) Post(ctx context.Context, tableID, handID string, tr *Transition) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range tr.Effects {
		corr := domain.CorrelationID(tableID, handID, e.Discriminator)
		switch e.Type {
		case domain.TxBet:
			_, err = p.ledger.ExecutePlaceBet(ctx, tx, ledger.PlaceBetParams{
				PlayerID:      e.PlayerID,
				Amount:        e.Amount,
				CorrelationID: corr,
				TableID:       tableID,
				HandID:        handID,
			})
		case domain.TxWin:
			_, err = p.ledger.ExecuteCreditWin(ctx, tx, ledger.CreditWinParams{
				PlayerID:      e.PlayerID,
				Amount:        e.Amount,
				CorrelationID: corr,
				TableID:       tableID,
				HandID:        handID,
			})
		case domain.TxRefund:
			_, err = p.ledger.ExecuteRefund(ctx, tx, ledger.RefundParams{
				PlayerID:            e.PlayerID,
				Amount:              e.Amount,
				CorrelationID:       corr,
				TargetCorrelationID: domain.CorrelationID(tableID, handID, e.Target),
			})
		default:
			err = domain.ErrInternal(fmt.Sprintf("unhandled effect type %s", e.Type), nil)
		}
		if err != nil {
			return err
		}
	}

	for _, ev := range tr.Events {
		if err := p.outbox.Insert(ctx, tx, ev); err != nil {
			return domain.ErrInternal("outbox insert", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("commit transaction", err)
	}
	return nil
}

// settledEvent reveals the server seed and the per-position outcomes once a
// hand is fully settled. Built before the state resets for the next hand.
func settledEvent(tableID string, state *domain.TableState) domain.OutboxDraft {
	outcomes := make([]domain.HandOutcome, 0)
	for seat := range state.Seats {
		for pos := range state.Seats[seat].Positions {
			p := &state.Seats[seat].Positions[pos]
			if p.Result != domain.ResultPending {
				outcomes = append(outcomes, domain.HandOutcome{
					Seat:     seat,
					Pos:      pos,
					PlayerID: p.PlayerID,
					Amount:   p.Amount,
					Result:   p.Result,
					Payout:   p.Payout,
				})
			}
		}
	}
	return domain.NewTableEvent(domain.EventHandSettled, tableID, map[string]interface{}{
		"hand_id":          state.HandID,
		"server_seed":      state.ServerSeed,
		"server_seed_hash": state.ServerSeedHash,
		"player_seed":      state.PlayerSeed,
		"dealer":           state.Dealer,
		"outcomes":         outcomes,
	})
}
