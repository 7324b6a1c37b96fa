// Package bingo implements a coverall bingo round over 75 numbers. Each
// funded position gets a 15-number card derived from the same seed pair as
// the draw order, under a per-position label so no two cards correlate.
// Covering the full card within the first 40 draws pays 3:1.
package bingo

import (
	"fmt"

	"github.com/cardroom/platform/internal/domain"
	"github.com/cardroom/platform/internal/engine"
	"github.com/cardroom/platform/internal/fairness"
)

const (
	deckSize  = 75
	cardSize  = 15
	drawCount = 40
	winPayout = 3
)

type Game struct{}

func New() *Game { return &Game{} }

func (*Game) Type() string { return "bingo" }

func (*Game) DeckSize() int { return deckSize }

func cardLabel(seat, pos int) string {
	return fmt.Sprintf("card:%d.%d", seat, pos)
}

// Deal derives every position's card, draws the round's numbers and settles
// in one step. There is no decision phase.
func (g *Game) Deal(state *domain.TableState) (*engine.Transition, error) {
	var cardErr error
	state.EachOpenPosition(func(seat, pos int, p *domain.BettingPosition) {
		if cardErr != nil {
			return
		}
		perm, err := fairness.Perm(state.ServerSeed, state.PlayerSeed, cardLabel(seat, pos), deckSize)
		if err != nil {
			cardErr = err
			return
		}
		p.Cards = perm[:cardSize]
	})
	if cardErr != nil {
		return nil, domain.ErrInternal("card derivation failed", cardErr)
	}

	draws, err := state.Draw(drawCount)
	if err != nil {
		return nil, domain.ErrInternal("deck exhausted", err)
	}
	state.Dealer = draws

	drawn := make(map[int]bool, drawCount)
	for _, n := range draws {
		drawn[n] = true
	}

	state.Phase = domain.PhaseResolving
	state.EachOpenPosition(func(_, _ int, p *domain.BettingPosition) {
		covered := true
		for _, n := range p.Cards {
			if !drawn[n] {
				covered = false
				break
			}
		}
		if covered {
			p.Result = domain.ResultWin
			p.Payout = winPayout * p.Amount
		} else {
			p.Result = domain.ResultLose
		}
		p.Done = true
	})

	return &engine.Transition{Effects: engine.Settle(state)}, nil
}

func (g *Game) Decide(_ *domain.TableState, _, _ int, _ string) (*engine.Transition, error) {
	return nil, domain.ErrValidation("bingo has no player decisions")
}
