// Package hilo implements hi-lo: each position gets one card and calls
// whether the next card off the deck ranks higher or lower. A correct call
// pays even money, an exact rank match pushes.
package hilo

import (
	"github.com/cardroom/platform/internal/domain"
	"github.com/cardroom/platform/internal/engine"
)

const (
	ActionHigher = "higher"
	ActionLower  = "lower"
)

// Deck index = suit*13 + rank; rank 0 is the two, 12 the ace.
func rank(card int) int { return card % 13 }

type Game struct{}

func New() *Game { return &Game{} }

func (*Game) Type() string { return "hilo" }

func (*Game) DeckSize() int { return 52 }

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
	state.Phase = domain.PhaseAwaitingDecisions
	return &engine.Transition{}, nil
}

// Decide draws the position's second card and scores the call. The hand
// settles once every position has called.
func (g *Game) Decide(state *domain.TableState, seat, pos int, action string) (*engine.Transition, error) {
	if action != ActionHigher && action != ActionLower {
		return nil, domain.ErrValidation("unknown action " + action)
	}
	p, err := state.Position(seat, pos)
	if err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	cards, err := state.Draw(1)
	if err != nil {
		return nil, domain.ErrInternal("deck exhausted", err)
	}
	first, next := rank(p.Cards[0]), rank(cards[0])
	p.Cards = append(p.Cards, cards...)
	p.Decision = action
	p.Done = true

	switch {
	case next == first:
		p.Result = domain.ResultPush
	case (next > first) == (action == ActionHigher):
		p.Result = domain.ResultWin
		p.Payout = 2 * p.Amount
	default:
		p.Result = domain.ResultLose
	}

	if !allDone(state) {
		return &engine.Transition{}, nil
	}
	state.Phase = domain.PhaseResolving
	return &engine.Transition{Effects: engine.Settle(state)}, nil
}

func allDone(state *domain.TableState) bool {
	done := true
	state.EachOpenPosition(func(_, _ int, p *domain.BettingPosition) {
		if !p.Done {
			done = false
		}
	})
	return done
}
