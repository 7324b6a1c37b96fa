package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cardroom/platform/internal/domain"
)

// PlaceBetParams holds the input for ExecutePlaceBet.
type PlaceBetParams struct {
	PlayerID      uuid.UUID
	Amount        int64
	CorrelationID string
	TableID       string
	HandID        string
	Metadata      json.RawMessage
}

// ExecutePlaceBet deducts the bet amount from the player's balance. Callers
// must hold the table lock: the deduction and the pot increment it funds are
// only consistent under single-writer access to the table.
func (e *Engine) ExecutePlaceBet(ctx context.Context, tx pgx.Tx, params PlaceBetParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	meta := mergeMeta(params.Metadata, map[string]interface{}{
		"table_id": params.TableID,
		"hand_id":  params.HandID,
	})

	result, err := e.ApplyDelta(ctx, tx, domain.ApplyDeltaParams{
		PlayerID:      params.PlayerID,
		Type:          domain.TxBet,
		Amount:        -params.Amount,
		CorrelationID: params.CorrelationID,
		Metadata:      meta,
	})
	if err != nil {
		return nil, fmt.Errorf("place bet: %w", err)
	}
	return result, nil
}
