package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType enumerates ledger transaction types.
type TransactionType string

const (
	TxBet    TransactionType = "bet"
	TxWin    TransactionType = "win"
	TxRefund TransactionType = "refund"
	TxAdmin  TransactionType = "admin"
)

// Transaction represents a transactions row (append-only ledger entry). The
// record, not the balance column, is the audit source of truth: every balance
// change has exactly one record with a matching correlation id.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	PlayerID      uuid.UUID       `json:"player_id"`
	Type          TransactionType `json:"type"`
	Amount        int64           `json:"amount"` // signed delta in chips
	BalanceBefore int64           `json:"balance_before"`
	BalanceAfter  int64           `json:"balance_after"`
	CorrelationID string          `json:"correlation_id"`
	Metadata      json.RawMessage `json:"metadata"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CorrelationID builds the idempotency key tying a ledger mutation to one
// specific action on one hand. Replays with the same key never double-apply.
func CorrelationID(tableID, handID, discriminator string) string {
	return fmt.Sprintf("%s:%s:%s", tableID, handID, discriminator)
}
