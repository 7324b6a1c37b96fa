package engine

import (
	"fmt"

	"github.com/cardroom/platform/internal/domain"
)

// Correlation discriminators. Combined with the table and hand ids they form
// the idempotency key of each ledger entry, so a crashed action retried under
// a fresh lock posts every chip movement exactly once.

func discBet(seat, pos, betSeq int) string {
	return fmt.Sprintf("bet:%d.%d:%d", seat, pos, betSeq)
}

func discRemoveRefund(seat, pos, betSeq int) string {
	return fmt.Sprintf("refund:%d.%d:%d", seat, pos, betSeq)
}

func discPushRefund(seat, pos, betSeq int) string {
	return fmt.Sprintf("push:%d.%d:%d", seat, pos, betSeq)
}

func discWin(seat, pos int) string {
	return fmt.Sprintf("win:%d.%d", seat, pos)
}

func discDouble(seat, pos, betSeq int) string {
	return fmt.Sprintf("double:%d.%d:%d", seat, pos, betSeq)
}

// DoubleBetEffect is the extra debit a double-down posts. Games cannot build
// correlation discriminators themselves, so the engine exposes this one.
func DoubleBetEffect(p *domain.BettingPosition, seat, pos int, amount int64) Effect {
	return Effect{
		PlayerID:      p.PlayerID,
		Type:          domain.TxBet,
		Amount:        amount,
		Discriminator: discDouble(seat, pos, p.BetSeq),
	}
}
