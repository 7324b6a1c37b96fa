package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cardroom/platform/internal/domain"
)

// CreditWinParams holds the input for ExecuteCreditWin.
type CreditWinParams struct {
	PlayerID      uuid.UUID
	Amount        int64
	CorrelationID string
	TableID       string
	HandID        string
	Metadata      json.RawMessage
}

// ExecuteCreditWin credits a resolved win to the player. Only ever invoked
// while the table lock is held, so two concurrent resolutions of the same
// hand cannot both pay out.
func (e *Engine) ExecuteCreditWin(ctx context.Context, tx pgx.Tx, params CreditWinParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	meta := mergeMeta(params.Metadata, map[string]interface{}{
		"table_id": params.TableID,
		"hand_id":  params.HandID,
	})

	result, err := e.ApplyDelta(ctx, tx, domain.ApplyDeltaParams{
		PlayerID:      params.PlayerID,
		Type:          domain.TxWin,
		Amount:        params.Amount,
		CorrelationID: params.CorrelationID,
		Metadata:      meta,
	})
	if err != nil {
		return nil, fmt.Errorf("credit win: %w", err)
	}
	return result, nil
}
