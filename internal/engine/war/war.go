// Package war implements casino war: one card per position against one
// dealer card, higher rank wins even money. No decision phase; the hand
// resolves within the deal.
package war

import (
	"github.com/cardroom/platform/internal/domain"
	"github.com/cardroom/platform/internal/engine"
)

// Deck index = suit*13 + rank; rank 0 is the two, 12 the ace.
func rank(card int) int { return card % 13 }

type Game struct{}

func New() *Game { return &Game{} }

func (*Game) Type() string { return "war" }

func (*Game) DeckSize() int { return 52 }

// Deal gives every funded position one card, the dealer one card, compares
// ranks and settles. Ties push.
func (g *Game) Deal(state *domain.TableState) (*engine.Transition, error) {
	var drawErr error
	state.EachOpenPosition(func(_, _ int, p *domain.BettingPosition) {
		if drawErr != nil {
			return
		}
		cards, err := state.Draw(1)
		if err != nil {
			drawErr = err
			return
		}
		p.Cards = cards
	})
	if drawErr != nil {
		return nil, domain.ErrInternal("deck exhausted", drawErr)
	}

	dealer, err := state.Draw(1)
	if err != nil {
		return nil, domain.ErrInternal("deck exhausted", err)
	}
	state.Dealer = dealer

	state.Phase = domain.PhaseResolving
	dealerRank := rank(dealer[0])
	state.EachOpenPosition(func(_, _ int, p *domain.BettingPosition) {
		switch pr := rank(p.Cards[0]); {
		case pr > dealerRank:
			p.Result = domain.ResultWin
			p.Payout = 2 * p.Amount
		case pr < dealerRank:
			p.Result = domain.ResultLose
		default:
			p.Result = domain.ResultPush
		}
		p.Done = true
	})

	return &engine.Transition{Effects: engine.Settle(state)}, nil
}

func (g *Game) Decide(_ *domain.TableState, _, _ int, _ string) (*engine.Transition, error) {
	return nil, domain.ErrValidation("war has no player decisions")
}
