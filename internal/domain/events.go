package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NewTransactionPostedEvent creates the standard wallet event for a ledger entry.
func NewTransactionPostedEvent(tx *Transaction) OutboxDraft {
	payload, _ := json.Marshal(tx)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   tx.PlayerID.String(),
		EventType:     EventTransactionPosted,
		PartitionKey:  tx.PlayerID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewTableEvent creates a table lifecycle event with an arbitrary payload.
// Partitioning by table id keeps one table's events ordered on the topic.
func NewTableEvent(eventType EventType, tableID string, payload interface{}) OutboxDraft {
	body, _ := json.Marshal(payload)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateTable,
		AggregateID:   tableID,
		EventType:     eventType,
		PartitionKey:  tableID,
		Payload:       body,
		OccurredAt:    time.Now(),
	}
}
