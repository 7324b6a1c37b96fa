package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ApplyDeltaParams is the input to the atomic ApplyDelta operation. Amount is
// the signed chip delta; a negative result after applying it is rejected.
type ApplyDeltaParams struct {
	PlayerID      uuid.UUID
	Type          TransactionType
	Amount        int64
	CorrelationID string
	Metadata      json.RawMessage
}

// CommandResult is the return value of every ledger command.
type CommandResult struct {
	Transaction *Transaction
	Player      *Player
	Events      []OutboxDraft
	Idempotent  bool // true if a duplicate correlation id returned the existing record
}

// GuardResult is a standard allow/deny result from guard checks.
type GuardResult struct {
	Allowed bool
	Reason  string
	Guard   string
}
