// Package engine runs the shared table state machine. Every player-facing
// action passes through one choke point: acquire the table lock, load state,
// validate and apply the transition, post the ledger effects, save state,
// release the lock. Game rules live in per-game subpackages implementing Game.
package engine

import (
	"github.com/google/uuid"

	"github.com/cardroom/platform/internal/domain"
)

// Effect is one chip movement a transition requires. The runner turns it into
// a ledger command with a correlation id scoped to the current table and hand.
type Effect struct {
	PlayerID uuid.UUID
	Type     domain.TransactionType
	Amount   int64 // positive chips moved
	// Discriminator makes the correlation id unique within the hand,
	// e.g. "bet:2.0:17" or "win:2.0".
	Discriminator string
	// Target names the bet correlation discriminator a refund returns.
	Target string
}

// Transition is the output of a state-machine step: the state has been
// mutated in place, these are the side effects to deliver.
type Transition struct {
	Effects []Effect
	Events  []domain.OutboxDraft
}

func (t *Transition) merge(other *Transition) {
	if other == nil {
		return
	}
	t.Effects = append(t.Effects, other.Effects...)
	t.Events = append(t.Events, other.Events...)
}

// Game implements one game type's rules on top of the shared state shape.
// Implementations mutate the passed state and return the resulting effects;
// they never touch storage, locks or the ledger themselves.
type Game interface {
	// Type is the registry key, e.g. "war" or "blackjack".
	Type() string

	// DeckSize is the size of the card set the fairness shuffle permutes.
	DeckSize() int

	// Deal moves a fully-ready table out of AwaitingBets. The shuffled deck
	// is already installed. Games without a decision phase may resolve and
	// settle the hand entirely within Deal.
	Deal(state *domain.TableState) (*Transition, error)

	// Decide applies one player decision to an open position during
	// AwaitingDecisions. Games without decisions reject every action.
	Decide(state *domain.TableState, seat, pos int, action string) (*Transition, error)
}

// Settle closes every open position according to its result, produces the
// win and push-refund effects, and empties the pot. Games call this as the
// final step of resolution; the pot invariant holds on return.
func Settle(state *domain.TableState) []Effect {
	var effects []Effect
	state.EachOpenPosition(func(seat, pos int, p *domain.BettingPosition) {
		switch p.Result {
		case domain.ResultWin:
			effects = append(effects, Effect{
				PlayerID:      p.PlayerID,
				Type:          domain.TxWin,
				Amount:        p.Payout,
				Discriminator: discWin(seat, pos),
			})
		case domain.ResultPush:
			p.Payout = p.Amount
			effects = append(effects, Effect{
				PlayerID:      p.PlayerID,
				Type:          domain.TxRefund,
				Amount:        p.Amount,
				Discriminator: discPushRefund(seat, pos, p.BetSeq),
				Target:        discBet(seat, pos, p.BetSeq),
			})
		}
		state.Pot -= p.Amount
		p.Open = false
	})
	state.Phase = domain.PhaseSettled
	return effects
}
