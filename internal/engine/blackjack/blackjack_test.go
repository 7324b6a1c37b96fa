package blackjack

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/platform/internal/domain"
)

// Card helper: rank 0 is the two, 12 the ace, so ace=12, king=11, ten=8.
const (
	two   = 0
	three = 1
	five  = 3
	seven = 5
	eight = 6
	nine  = 7
	ten   = 8
	king  = 11
	ace   = 12
)

// card picks a rank in the given suit so tests can reuse a rank without
// duplicating deck indices.
func card(rank, suit int) int { return suit*13 + rank }

func tableWithBet(deck []int, amount int64) (*domain.TableState, uuid.UUID) {
	playerID := uuid.New()
	state := domain.NewTableState("blackjack")
	state.HandID = "h1"
	state.Deck = deck
	state.Phase = domain.PhaseDealing

	p := &state.Seats[0].Positions[0]
	p.PlayerID = playerID
	p.Amount = amount
	p.BetSeq = 1
	p.Open = true
	p.Ready = true
	state.Pot = amount
	return state, playerID
}

func TestHandValue(t *testing.T) {
	tests := []struct {
		name  string
		cards []int
		want  int
	}{
		{"hard total", []int{card(five, 0), card(nine, 0)}, 16},
		{"face cards count ten", []int{card(king, 0), card(ten, 0)}, 20},
		{"soft ace", []int{card(ace, 0), card(five, 0)}, 16},
		{"ace demotes on bust", []int{card(ace, 0), card(five, 0), card(nine, 0)}, 15},
		{"two aces", []int{card(ace, 0), card(ace, 1), card(nine, 0)}, 21},
		{"natural", []int{card(ace, 0), card(king, 0)}, 21},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, handValue(tt.cards))
		})
	}
}

func TestDealNatural(t *testing.T) {
	g := New()
	// Player ace+ten, dealer 5+9 then draws a two to 18.
	deck := []int{card(ace, 0), card(ten, 0), card(five, 0), card(nine, 0), card(two, 0)}
	state, _ := tableWithBet(deck, 100)

	tr, err := g.Deal(state)
	require.NoError(t, err)

	p := &state.Seats[0].Positions[0]
	assert.Equal(t, domain.PhaseSettled, state.Phase)
	assert.Equal(t, domain.ResultWin, p.Result)
	assert.Equal(t, int64(250), p.Payout, "natural pays 3:2")
	require.Len(t, tr.Effects, 1)
	assert.Equal(t, domain.TxWin, tr.Effects[0].Type)
	assert.Equal(t, int64(250), tr.Effects[0].Amount)
}

func TestDealDealerNatural(t *testing.T) {
	g := New()

	t.Run("ordinary hand loses", func(t *testing.T) {
		deck := []int{card(ten, 0), card(nine, 0), card(ace, 0), card(king, 0)}
		state, _ := tableWithBet(deck, 100)
		tr, err := g.Deal(state)
		require.NoError(t, err)

		assert.Equal(t, domain.PhaseSettled, state.Phase)
		assert.Equal(t, domain.ResultLose, state.Seats[0].Positions[0].Result)
		assert.Empty(t, tr.Effects)
	})

	t.Run("player natural pushes", func(t *testing.T) {
		deck := []int{card(ace, 0), card(ten, 0), card(ace, 1), card(king, 0)}
		state, _ := tableWithBet(deck, 100)
		tr, err := g.Deal(state)
		require.NoError(t, err)

		assert.Equal(t, domain.ResultPush, state.Seats[0].Positions[0].Result)
		require.Len(t, tr.Effects, 1)
		assert.Equal(t, domain.TxRefund, tr.Effects[0].Type)
	})
}

func TestDealMovesToDecisions(t *testing.T) {
	g := New()
	deck := []int{card(ten, 0), card(nine, 0), card(king, 0), card(seven, 0)}
	state, _ := tableWithBet(deck, 100)

	tr, err := g.Deal(state)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseAwaitingDecisions, state.Phase)
	assert.Empty(t, tr.Effects)
	assert.Len(t, state.Dealer, 2)
	assert.False(t, state.Seats[0].Positions[0].Done)
}

func TestDecideHitAndBust(t *testing.T) {
	g := New()
	// Player 10+9, dealer 10+7 (stands pat). The hit card busts.
	deck := []int{card(ten, 0), card(nine, 0), card(ten, 1), card(seven, 0), card(ten, 2)}
	state, _ := tableWithBet(deck, 100)
	_, err := g.Deal(state)
	require.NoError(t, err)

	tr, err := g.Decide(state, 0, 0, ActionHit)
	require.NoError(t, err)

	p := &state.Seats[0].Positions[0]
	assert.Equal(t, domain.ResultLose, p.Result)
	assert.Equal(t, domain.PhaseSettled, state.Phase)
	assert.Empty(t, tr.Effects)
	assert.Len(t, state.Dealer, 2, "dealer does not draw on 17")
}

func TestDecideStand(t *testing.T) {
	g := New()
	// Player 10+9 stands on 19; dealer 10+5 draws a two to 17 and loses.
	deck := []int{card(ten, 0), card(nine, 0), card(ten, 1), card(five, 0), card(two, 0)}
	state, playerID := tableWithBet(deck, 100)
	_, err := g.Deal(state)
	require.NoError(t, err)

	tr, err := g.Decide(state, 0, 0, ActionStand)
	require.NoError(t, err)

	p := &state.Seats[0].Positions[0]
	assert.Equal(t, domain.ResultWin, p.Result)
	assert.Equal(t, int64(200), p.Payout)
	require.Len(t, tr.Effects, 1)
	assert.Equal(t, playerID, tr.Effects[0].PlayerID)
	assert.Len(t, state.Dealer, 3)
}

func TestDecideDouble(t *testing.T) {
	g := New()
	// Player 8+3 doubles to 21; dealer 10+7 stands on 17.
	deck := []int{card(eight, 0), card(three, 0), card(ten, 1), card(seven, 0), card(ten, 2)}
	state, _ := tableWithBet(deck, 100)
	_, err := g.Deal(state)
	require.NoError(t, err)

	tr, err := g.Decide(state, 0, 0, ActionDouble)
	require.NoError(t, err)

	p := &state.Seats[0].Positions[0]
	assert.Equal(t, int64(200), p.Amount, "double doubles the stake")
	assert.Equal(t, domain.ResultWin, p.Result)
	assert.Equal(t, int64(400), p.Payout)
	assert.Zero(t, state.Pot)

	// One extra bet debit plus the win credit.
	require.Len(t, tr.Effects, 2)
	assert.Equal(t, domain.TxBet, tr.Effects[0].Type)
	assert.Equal(t, int64(100), tr.Effects[0].Amount)
	assert.Equal(t, domain.TxWin, tr.Effects[1].Type)
	assert.Equal(t, int64(400), tr.Effects[1].Amount)
}

func TestDecideDoubleAfterHitRejected(t *testing.T) {
	g := New()
	deck := []int{card(two, 0), card(three, 0), card(ten, 1), card(seven, 0), card(two, 1), card(two, 2)}
	state, _ := tableWithBet(deck, 100)
	_, err := g.Deal(state)
	require.NoError(t, err)

	_, err = g.Decide(state, 0, 0, ActionHit)
	require.NoError(t, err)

	_, err = g.Decide(state, 0, 0, ActionDouble)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestDecidePush(t *testing.T) {
	g := New()
	// Player 10+9 stands; dealer 10+9 matches.
	deck := []int{card(ten, 0), card(nine, 0), card(ten, 1), card(nine, 1)}
	state, _ := tableWithBet(deck, 100)
	_, err := g.Deal(state)
	require.NoError(t, err)

	tr, err := g.Decide(state, 0, 0, ActionStand)
	require.NoError(t, err)

	assert.Equal(t, domain.ResultPush, state.Seats[0].Positions[0].Result)
	require.Len(t, tr.Effects, 1)
	assert.Equal(t, domain.TxRefund, tr.Effects[0].Type)
	assert.Equal(t, int64(100), tr.Effects[0].Amount)
}

func TestUnknownAction(t *testing.T) {
	g := New()
	deck := []int{card(ten, 0), card(nine, 0), card(ten, 1), card(seven, 0)}
	state, _ := tableWithBet(deck, 100)
	_, err := g.Deal(state)
	require.NoError(t, err)

	_, err = g.Decide(state, 0, 0, "split")
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}
