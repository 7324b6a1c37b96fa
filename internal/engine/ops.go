package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cardroom/platform/internal/domain"
	"github.com/cardroom/platform/internal/fairness"
)

// JoinTable claims a betting position for the player. Positions can only be
// claimed between hands; a vacated position keeps no memory of its previous
// occupant.
func (r *Runner) JoinTable(
	ctx context.Context,
	tableID, gameType string,
	playerID uuid.UUID,
	seat, pos int,
) (*domain.TableState, error) {
	return r.runAction(ctx, tableID, gameType, playerID,
		func(_ Game, state *domain.TableState) (*Transition, error) {
			if state.Phase != domain.PhaseAwaitingBets {
				return nil, domain.ErrConflict("positions can only be claimed between hands")
			}
			p, err := state.Position(seat, pos)
			if err != nil {
				return nil, domain.ErrValidation(err.Error())
			}
			if p.Occupied() && p.PlayerID != playerID {
				return nil, domain.ErrConflict(fmt.Sprintf("position %d.%d is taken", seat, pos))
			}
			p.PlayerID = playerID
			return &Transition{
				Events: []domain.OutboxDraft{
					domain.NewTableEvent(domain.EventPlayerJoined, tableID, map[string]interface{}{
						"hand_id":   state.HandID,
						"player_id": playerID,
						"seat":      seat,
						"pos":       pos,
					}),
				},
			}, nil
		})
}

// PlaceBet funds a position and marks it ready. Betting on a vacant position
// claims it implicitly. The first non-empty player seed of the hand binds
// into the shuffle; later seeds are ignored. When every occupied position is
// ready the hand deals immediately.
func (r *Runner) PlaceBet(
	ctx context.Context,
	tableID, gameType string,
	playerID uuid.UUID,
	seat, pos int,
	amount int64,
	playerSeed string,
) (*domain.TableState, error) {
	return r.runAction(ctx, tableID, gameType, playerID,
		func(g Game, state *domain.TableState) (*Transition, error) {
			if state.Phase != domain.PhaseAwaitingBets {
				return nil, domain.ErrConflict("bets are closed for this hand")
			}
			if err := domain.ValidatePositiveAmount(amount); err != nil {
				return nil, domain.ErrValidation(err.Error())
			}
			if err := domain.ValidatePlayerSeed(playerSeed); err != nil {
				return nil, domain.ErrValidation(err.Error())
			}
			p, err := state.Position(seat, pos)
			if err != nil {
				return nil, domain.ErrValidation(err.Error())
			}
			if p.Occupied() && p.PlayerID != playerID {
				return nil, domain.ErrConflict(fmt.Sprintf("position %d.%d is taken", seat, pos))
			}
			if p.Open {
				return nil, domain.ErrConflict(fmt.Sprintf("position %d.%d already has a bet", seat, pos))
			}

			if playerSeed != "" && state.PlayerSeed == "" {
				state.PlayerSeed = playerSeed
			}

			state.BetSeq++
			p.PlayerID = playerID
			p.BetSeq = state.BetSeq
			p.Amount = amount
			p.Open = true
			p.Ready = true
			state.Pot += amount

			tr := &Transition{
				Effects: []Effect{{
					PlayerID:      playerID,
					Type:          domain.TxBet,
					Amount:        amount,
					Discriminator: discBet(seat, pos, p.BetSeq),
				}},
				Events: []domain.OutboxDraft{
					domain.NewTableEvent(domain.EventBetPlaced, tableID, map[string]interface{}{
						"hand_id":   state.HandID,
						"player_id": playerID,
						"seat":      seat,
						"pos":       pos,
						"amount":    amount,
					}),
				},
			}

			if state.AllReady() {
				dealTr, err := r.deal(g, tableID, state)
				if err != nil {
					return nil, err
				}
				tr.merge(dealTr)
			}
			return tr, nil
		})
}

// RemoveBet refunds a pending bet and vacates the position. Only allowed
// while bets are open; once cards are out the wager stands.
func (r *Runner) RemoveBet(
	ctx context.Context,
	tableID, gameType string,
	playerID uuid.UUID,
	seat, pos int,
) (*domain.TableState, error) {
	return r.runAction(ctx, tableID, gameType, playerID,
		func(_ Game, state *domain.TableState) (*Transition, error) {
			if state.Phase != domain.PhaseAwaitingBets {
				return nil, domain.ErrConflict("bets can no longer be removed this hand")
			}
			p, err := state.Position(seat, pos)
			if err != nil {
				return nil, domain.ErrValidation(err.Error())
			}
			if !p.Occupied() {
				return nil, domain.ErrNotFound("bet", fmt.Sprintf("%s:%d.%d", tableID, seat, pos))
			}
			if p.PlayerID != playerID {
				return nil, domain.ErrConflict("position belongs to another player")
			}

			tr := &Transition{}
			if p.Open {
				state.Pot -= p.Amount
				tr.Effects = append(tr.Effects, Effect{
					PlayerID:      playerID,
					Type:          domain.TxRefund,
					Amount:        p.Amount,
					Discriminator: discRemoveRefund(seat, pos, p.BetSeq),
					Target:        discBet(seat, pos, p.BetSeq),
				})
				tr.Events = append(tr.Events,
					domain.NewTableEvent(domain.EventBetRemoved, tableID, map[string]interface{}{
						"hand_id":   state.HandID,
						"player_id": playerID,
						"seat":      seat,
						"pos":       pos,
						"amount":    p.Amount,
					}))
			}
			*p = domain.BettingPosition{}
			return tr, nil
		})
}

// StartHand deals without waiting for every occupied position to signal
// ready. At least one funded bet is required; unfunded positions sit the
// hand out.
func (r *Runner) StartHand(
	ctx context.Context,
	tableID, gameType string,
	playerID uuid.UUID,
) (*domain.TableState, error) {
	return r.runAction(ctx, tableID, gameType, playerID,
		func(g Game, state *domain.TableState) (*Transition, error) {
			if state.Phase != domain.PhaseAwaitingBets {
				return nil, domain.ErrConflict("hand already in progress")
			}
			if state.OpenBetTotal() == 0 {
				return nil, domain.ErrConflict("no bets placed")
			}
			return r.deal(g, tableID, state)
		})
}

// PlayerDecision applies one game action to the player's open position.
func (r *Runner) PlayerDecision(
	ctx context.Context,
	tableID, gameType string,
	playerID uuid.UUID,
	seat, pos int,
	action string,
) (*domain.TableState, error) {
	return r.runAction(ctx, tableID, gameType, playerID,
		func(g Game, state *domain.TableState) (*Transition, error) {
			if state.Phase != domain.PhaseAwaitingDecisions {
				return nil, domain.ErrConflict("no decisions expected right now")
			}
			p, err := state.Position(seat, pos)
			if err != nil {
				return nil, domain.ErrValidation(err.Error())
			}
			if !p.Open {
				return nil, domain.ErrConflict(fmt.Sprintf("position %d.%d is not in the hand", seat, pos))
			}
			if p.PlayerID != playerID {
				return nil, domain.ErrConflict("position belongs to another player")
			}
			if p.Done {
				return nil, domain.ErrConflict(fmt.Sprintf("position %d.%d has already acted", seat, pos))
			}
			return g.Decide(state, seat, pos, action)
		})
}

// GetPublicState returns the redacted view of a table. Reads go through the
// same lock-load path as writes so a first read creates the table and
// publishes its seed commitment before any bet is taken.
func (r *Runner) GetPublicState(ctx context.Context, tableID, gameType string) (*PublicTableState, error) {
	state, err := r.runAction(ctx, tableID, gameType, uuid.Nil,
		func(_ Game, _ *domain.TableState) (*Transition, error) {
			return nil, nil
		})
	if err != nil {
		return nil, err
	}
	return Redact(state), nil
}

// deal installs the shuffled deck and hands control to the game.
func (r *Runner) deal(g Game, tableID string, state *domain.TableState) (*Transition, error) {
	deck, err := fairness.Shuffle(state.ServerSeed, state.PlayerSeed, g.DeckSize())
	if err != nil {
		return nil, domain.ErrInternal("shuffle failed", err)
	}
	state.Deck = deck
	state.DeckPos = 0
	state.Phase = domain.PhaseDealing

	tr := &Transition{
		Events: []domain.OutboxDraft{
			domain.NewTableEvent(domain.EventHandDealt, tableID, map[string]interface{}{
				"hand_id":          state.HandID,
				"game_type":        state.GameType,
				"server_seed_hash": state.ServerSeedHash,
			}),
		},
	}
	gameTr, err := g.Deal(state)
	if err != nil {
		return nil, err
	}
	tr.merge(gameTr)
	return tr, nil
}
