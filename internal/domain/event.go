package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventTransactionPosted EventType = "cardroom.wallet.transaction.posted"
	EventHandDealt         EventType = "cardroom.table.hand.dealt"
	EventHandSettled       EventType = "cardroom.table.hand.settled"
	EventBetPlaced         EventType = "cardroom.table.bet.placed"
	EventBetRemoved        EventType = "cardroom.table.bet.removed"
	EventPlayerJoined      EventType = "cardroom.table.player.joined"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateWallet AggregateType = "wallet"
	AggregateTable  AggregateType = "table"
)

// OutboxDraft is the payload written to the event_outbox table. Drafts are
// inserted in the same database transaction as the ledger entry they describe
// and published to Kafka by the outbox poller.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	PartitionKey  string          `json:"partition_key"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
