package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Table capacity. Fixed-size seats, each hosting a fixed number of betting
// positions, keeps serialization simple and bounded.
const (
	NumSeats         = 5
	PositionsPerSeat = 3

	// StateVersion is bumped whenever the serialized TableState shape changes.
	StateVersion = 1
)

// Phase enumerates the shared hand lifecycle. Dealing and Resolving are
// transient: they only ever exist inside a single locked action.
type Phase string

const (
	PhaseAwaitingBets      Phase = "awaiting_bets"
	PhaseDealing           Phase = "dealing"
	PhaseAwaitingDecisions Phase = "awaiting_decisions"
	PhaseResolving         Phase = "resolving"
	PhaseSettled           Phase = "settled"
)

// PositionResult is the per-position outcome of a resolved hand.
type PositionResult string

const (
	ResultPending PositionResult = ""
	ResultWin     PositionResult = "win"
	ResultLose    PositionResult = "lose"
	ResultPush    PositionResult = "push"
)

// BettingPosition is one independent bet within a seat. A seat may host
// positions from different players at once.
type BettingPosition struct {
	PlayerID uuid.UUID      `json:"player_id"`
	Amount   int64          `json:"amount"`
	BetSeq   int            `json:"bet_seq,omitempty"` // table-wide bet sequence, keys the ledger correlation id
	Ready    bool           `json:"ready"`             // bet accepted for the current hand
	Open     bool           `json:"open"`              // chips at risk, counted in the pot
	Cards    []int          `json:"cards,omitempty"`
	Decision string         `json:"decision,omitempty"`
	Done     bool           `json:"done"` // no further decisions this hand
	Result   PositionResult `json:"result,omitempty"`
	Payout   int64          `json:"payout,omitempty"`
}

// Occupied reports whether a player has claimed this position.
func (p *BettingPosition) Occupied() bool { return p.PlayerID != uuid.Nil }

// Seat holds a fixed array of betting positions.
type Seat struct {
	Positions [PositionsPerSeat]BettingPosition `json:"positions"`
}

// HandOutcome is one position's result in a settled hand.
type HandOutcome struct {
	Seat     int            `json:"seat"`
	Pos      int            `json:"pos"`
	PlayerID uuid.UUID      `json:"player_id"`
	Amount   int64          `json:"amount"`
	Result   PositionResult `json:"result"`
	Payout   int64          `json:"payout"`
}

// HandSummary records the last settled hand: its fairness data, so players
// can verify the commitment and recompute the shuffle after resolution, and
// its outcomes, since the live positions are cleared for the next hand.
type HandSummary struct {
	HandID         string        `json:"hand_id"`
	ServerSeed     string        `json:"server_seed"`
	ServerSeedHash string        `json:"server_seed_hash"`
	PlayerSeed     string        `json:"player_seed"`
	Dealer         []int         `json:"dealer,omitempty"`
	Outcomes       []HandOutcome `json:"outcomes,omitempty"`
	SettledAt      time.Time     `json:"settled_at"`
}

// TableState is the versioned per-table snapshot living in the distributed
// cache. It is only ever mutated while the table lock is held.
type TableState struct {
	Version  int    `json:"version"`
	GameType string `json:"game_type"`
	HandID   string `json:"hand_id"`
	Phase    Phase  `json:"phase"`

	// Deck is the shuffled permutation for the current hand, DeckPos the
	// number of cards already consumed. Empty until the hand is dealt.
	Deck    []int `json:"deck,omitempty"`
	DeckPos int   `json:"deck_pos"`

	Seats  [NumSeats]Seat `json:"seats"`
	Pot    int64          `json:"pot"`
	Dealer []int          `json:"dealer,omitempty"` // dealer/house cards or draw sequence
	BetSeq int            `json:"bet_seq"`          // monotonic bet counter, never reset

	// Dual-seed fairness data for the current hand. ServerSeed stays secret
	// until the hand settles; only its hash is ever published before that.
	ServerSeed     string `json:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	PlayerSeed     string `json:"player_seed"`

	LastHand  *HandSummary `json:"last_hand,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewTableState returns the fresh default state for a table's first action.
// The fairness commitment for the first hand is installed by the caller.
func NewTableState(gameType string) *TableState {
	return &TableState{
		Version:   StateVersion,
		GameType:  gameType,
		Phase:     PhaseAwaitingBets,
		UpdatedAt: time.Now(),
	}
}

// Position returns the addressed betting position or a validation error.
func (s *TableState) Position(seat, pos int) (*BettingPosition, error) {
	if seat < 0 || seat >= NumSeats {
		return nil, ErrValidation(fmt.Sprintf("seat %d out of range", seat))
	}
	if pos < 0 || pos >= PositionsPerSeat {
		return nil, ErrValidation(fmt.Sprintf("position %d out of range", pos))
	}
	return &s.Seats[seat].Positions[pos], nil
}

// OpenBetTotal sums the amounts of all currently-open positions.
func (s *TableState) OpenBetTotal() int64 {
	var total int64
	for si := range s.Seats {
		for pi := range s.Seats[si].Positions {
			p := &s.Seats[si].Positions[pi]
			if p.Open {
				total += p.Amount
			}
		}
	}
	return total
}

// CheckPot verifies the core money invariant: the recorded pot equals the sum
// of open bet amounts. Must hold after every mutation.
func (s *TableState) CheckPot() error {
	if open := s.OpenBetTotal(); open != s.Pot {
		return fmt.Errorf("pot mismatch: pot=%d open bets=%d", s.Pot, open)
	}
	return nil
}

// AllReady reports whether every occupied position has an accepted bet and at
// least one position is occupied. A single unready position blocks the deal:
// everyone with chips at risk must have consented to it.
func (s *TableState) AllReady() bool {
	var occupied int
	for si := range s.Seats {
		for pi := range s.Seats[si].Positions {
			p := &s.Seats[si].Positions[pi]
			if !p.Occupied() {
				continue
			}
			occupied++
			if !p.Ready {
				return false
			}
		}
	}
	return occupied > 0
}

// Draw consumes the next n cards from the shuffled deck.
func (s *TableState) Draw(n int) ([]int, error) {
	if s.DeckPos+n > len(s.Deck) {
		return nil, fmt.Errorf("deck exhausted: need %d, have %d", n, len(s.Deck)-s.DeckPos)
	}
	cards := s.Deck[s.DeckPos : s.DeckPos+n]
	s.DeckPos += n
	return cards, nil
}

// EachOpenPosition visits every open position in seat order.
func (s *TableState) EachOpenPosition(fn func(seat, pos int, p *BettingPosition)) {
	for si := range s.Seats {
		for pi := range s.Seats[si].Positions {
			p := &s.Seats[si].Positions[pi]
			if p.Open {
				fn(si, pi, p)
			}
		}
	}
}

// ResetForNextHand archives the settled hand's fairness data and prepares the
// table for the next round of bets. Seated players keep their positions;
// amounts, cards and decisions are cleared.
func (s *TableState) ResetForNextHand(handID, serverSeed, serverSeedHash string) {
	if s.Phase == PhaseSettled && s.HandID != "" {
		summary := &HandSummary{
			HandID:         s.HandID,
			ServerSeed:     s.ServerSeed,
			ServerSeedHash: s.ServerSeedHash,
			PlayerSeed:     s.PlayerSeed,
			Dealer:         s.Dealer,
			SettledAt:      time.Now(),
		}
		for si := range s.Seats {
			for pi := range s.Seats[si].Positions {
				p := &s.Seats[si].Positions[pi]
				if p.Result != ResultPending {
					summary.Outcomes = append(summary.Outcomes, HandOutcome{
						Seat: si, Pos: pi, PlayerID: p.PlayerID,
						Amount: p.Amount, Result: p.Result, Payout: p.Payout,
					})
				}
			}
		}
		s.LastHand = summary
	}

	s.HandID = handID
	s.Phase = PhaseAwaitingBets
	s.Deck = nil
	s.DeckPos = 0
	s.Dealer = nil
	s.Pot = 0
	s.ServerSeed = serverSeed
	s.ServerSeedHash = serverSeedHash
	s.PlayerSeed = ""

	for si := range s.Seats {
		for pi := range s.Seats[si].Positions {
			p := &s.Seats[si].Positions[pi]
			*p = BettingPosition{PlayerID: p.PlayerID}
		}
	}
}
