package engine

import (
	"time"

	"github.com/cardroom/platform/internal/domain"
)

// PublicTableState is the player-facing view of a table. It never carries
// the remaining deck or the live server seed; the seed hash published here
// is what players verify against once the hand settles and the seed is
// revealed in LastHand.
type PublicTableState struct {
	GameType       string              `json:"game_type"`
	HandID         string              `json:"hand_id"`
	Phase          domain.Phase        `json:"phase"`
	ServerSeedHash string              `json:"server_seed_hash"`
	PlayerSeed     string              `json:"player_seed,omitempty"`
	Pot            int64               `json:"pot"`
	Seats          []PublicSeat        `json:"seats"`
	Dealer         []int               `json:"dealer,omitempty"`
	LastHand       *domain.HandSummary `json:"last_hand,omitempty"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// PublicSeat mirrors one seat's positions.
type PublicSeat struct {
	Positions []PublicPosition `json:"positions"`
}

// PublicPosition is a betting position as other players see it. A vacant
// position serializes with an empty player id.
type PublicPosition struct {
	PlayerID string                `json:"player_id,omitempty"`
	Amount   int64                 `json:"amount,omitempty"`
	Ready    bool                  `json:"ready,omitempty"`
	Open     bool                  `json:"open,omitempty"`
	Cards    []int                 `json:"cards,omitempty"`
	Decision string                `json:"decision,omitempty"`
	Done     bool                  `json:"done,omitempty"`
	Result   domain.PositionResult `json:"result,omitempty"`
	Payout   int64                 `json:"payout,omitempty"`
}

// Redact builds the public view. While decisions are pending only the
// dealer's first card shows; the hole card stays hidden until resolution.
func Redact(state *domain.TableState) *PublicTableState {
	pub := &PublicTableState{
		GameType:       state.GameType,
		HandID:         state.HandID,
		Phase:          state.Phase,
		ServerSeedHash: state.ServerSeedHash,
		PlayerSeed:     state.PlayerSeed,
		Pot:            state.Pot,
		LastHand:       state.LastHand,
		UpdatedAt:      state.UpdatedAt,
	}

	pub.Dealer = state.Dealer
	if state.Phase == domain.PhaseAwaitingDecisions && len(state.Dealer) > 0 {
		pub.Dealer = state.Dealer[:1]
	}

	pub.Seats = make([]PublicSeat, len(state.Seats))
	for seat := range state.Seats {
		positions := make([]PublicPosition, len(state.Seats[seat].Positions))
		for pos := range state.Seats[seat].Positions {
			p := &state.Seats[seat].Positions[pos]
			playerID := ""
			if p.Occupied() {
				playerID = p.PlayerID.String()
			}
			positions[pos] = PublicPosition{
				PlayerID: playerID,
				Amount:   p.Amount,
				Ready:    p.Ready,
				Open:     p.Open,
				Cards:    p.Cards,
				Decision: p.Decision,
				Done:     p.Done,
				Result:   p.Result,
				Payout:   p.Payout,
			}
		}
		pub.Seats[seat] = PublicSeat{Positions: positions}
	}
	return pub
}
