package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cardroom/platform/internal/domain"
)

// RefundParams holds the input for ExecuteRefund.
type RefundParams struct {
	PlayerID      uuid.UUID
	Amount        int64
	CorrelationID string
	// TargetCorrelationID names the bet being returned (removed bet or push).
	TargetCorrelationID string
	Metadata            json.RawMessage
}

// ExecuteRefund returns a previously deducted bet to the player, used when a
// bet is removed before the deal or a hand pushes.
func (e *Engine) ExecuteRefund(ctx context.Context, tx pgx.Tx, params RefundParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	meta := mergeMeta(params.Metadata, map[string]interface{}{
		"refunds": params.TargetCorrelationID,
	})

	result, err := e.ApplyDelta(ctx, tx, domain.ApplyDeltaParams{
		PlayerID:      params.PlayerID,
		Type:          domain.TxRefund,
		Amount:        params.Amount,
		CorrelationID: params.CorrelationID,
		Metadata:      meta,
	})
	if err != nil {
		return nil, fmt.Errorf("refund: %w", err)
	}
	return result, nil
}
