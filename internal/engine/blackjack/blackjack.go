// Package blackjack implements a single-deck blackjack variant: two cards
// per position against the dealer, decisions hit, stand and double, dealer
// stands on all 17s, naturals pay 3:2.
package blackjack

import (
	"github.com/cardroom/platform/internal/domain"
	"github.com/cardroom/platform/internal/engine"
)

const (
	ActionHit    = "hit"
	ActionStand  = "stand"
	ActionDouble = "double"
)

type Game struct{}

func New() *Game { return &Game{} }

func (*Game) Type() string { return "blackjack" }

func (*Game) DeckSize() int { return 52 }

// Deck index = suit*13 + rank; rank 0 is the two, 12 the ace.
func cardValue(card int) int {
	r := card % 13
	switch {
	case r == 12:
		return 11
	case r >= 8:
		return 10
	default:
		return r + 2
	}
}

// handValue scores a hand with aces counted high until the hand would bust.
func handValue(cards []int) int {
	total, aces := 0, 0
	for _, c := range cards {
		v := cardValue(c)
		if v == 11 {
			aces++
		}
		total += v
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

func isNatural(cards []int) bool {
	return len(cards) == 2 && handValue(cards) == 21
}

// Deal gives every funded position and the dealer two cards. Naturals are
// locked in immediately; if no position has a decision left the dealer
// resolves at once, otherwise play moves to the decision phase.
func (g *Game) Deal(state *domain.TableState) (*engine.Transition, error) {
	var drawErr error
	state.EachOpenPosition(func(_, _ int, p *domain.BettingPosition) {
		if drawErr != nil {
			return
		}
		cards, err := state.Draw(2)
		if err != nil {
			drawErr = err
			return
		}
		p.Cards = cards
		if isNatural(cards) {
			p.Done = true
		}
	})
	if drawErr != nil {
		return nil, domain.ErrInternal("deck exhausted", drawErr)
	}

	dealer, err := state.Draw(2)
	if err != nil {
		return nil, domain.ErrInternal("deck exhausted", err)
	}
	state.Dealer = dealer

	// Dealer natural ends the hand before any decision: player naturals
	// push, everything else loses.
	if isNatural(dealer) {
		state.Phase = domain.PhaseResolving
		state.EachOpenPosition(func(_, _ int, p *domain.BettingPosition) {
			if isNatural(p.Cards) {
				p.Result = domain.ResultPush
			} else {
				p.Result = domain.ResultLose
			}
			p.Done = true
		})
		return &engine.Transition{Effects: engine.Settle(state)}, nil
	}

	if allDone(state) {
		return g.resolve(state)
	}
	state.Phase = domain.PhaseAwaitingDecisions
	return &engine.Transition{}, nil
}

// Decide applies hit, stand or double to an open position. Once the last
// position stands or busts the dealer draws and the hand settles.
func (g *Game) Decide(state *domain.TableState, seat, pos int, action string) (*engine.Transition, error) {
	p, err := state.Position(seat, pos)
	if err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	tr := &engine.Transition{}
	switch action {
	case ActionHit:
		cards, err := state.Draw(1)
		if err != nil {
			return nil, domain.ErrInternal("deck exhausted", err)
		}
		p.Cards = append(p.Cards, cards...)
		p.Decision = ActionHit
		if handValue(p.Cards) >= 21 {
			p.Done = true
		}

	case ActionStand:
		p.Decision = ActionStand
		p.Done = true

	case ActionDouble:
		if len(p.Cards) != 2 || p.Decision != "" {
			return nil, domain.ErrConflict("double is only allowed on the first two cards")
		}
		tr.Effects = append(tr.Effects, engine.DoubleBetEffect(p, seat, pos, p.Amount))
		state.Pot += p.Amount
		p.Amount *= 2
		cards, err := state.Draw(1)
		if err != nil {
			return nil, domain.ErrInternal("deck exhausted", err)
		}
		p.Cards = append(p.Cards, cards...)
		p.Decision = ActionDouble
		p.Done = true

	default:
		return nil, domain.ErrValidation("unknown action " + action)
	}

	if allDone(state) {
		resTr, err := g.resolve(state)
		if err != nil {
			return nil, err
		}
		tr.Effects = append(tr.Effects, resTr.Effects...)
		tr.Events = append(tr.Events, resTr.Events...)
	}
	return tr, nil
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

// resolve draws the dealer out and scores every position.
func (g *Game) resolve(state *domain.TableState) (*engine.Transition, error) {
	state.Phase = domain.PhaseResolving

	for handValue(state.Dealer) < 17 {
		cards, err := state.Draw(1)
		if err != nil {
			return nil, domain.ErrInternal("deck exhausted", err)
		}
		state.Dealer = append(state.Dealer, cards...)
	}
	dealerValue := handValue(state.Dealer)

	state.EachOpenPosition(func(_, _ int, p *domain.BettingPosition) {
		pv := handValue(p.Cards)
		switch {
		case pv > 21:
			p.Result = domain.ResultLose
		case dealerValue > 21 || pv > dealerValue:
			p.Result = domain.ResultWin
			if isNatural(p.Cards) {
				p.Payout = p.Amount + p.Amount*3/2
			} else {
				p.Payout = 2 * p.Amount
			}
		case pv == dealerValue:
			p.Result = domain.ResultPush
		default:
			p.Result = domain.ResultLose
		}
	})

	return &engine.Transition{Effects: engine.Settle(state)}, nil
}
