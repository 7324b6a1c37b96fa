package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cardroom/platform/internal/domain"
)

// AdminAdjustParams holds the input for ExecuteAdminAdjust.
type AdminAdjustParams struct {
	PlayerID      uuid.UUID
	Amount        int64 // signed; credits and corrections both go through here
	CorrelationID string
	Reason        string
	Metadata      json.RawMessage
}

// ExecuteAdminAdjust applies a manual balance correction. The only command
// that accepts a negative amount directly; it still cannot take a balance
// below zero.
func (e *Engine) ExecuteAdminAdjust(ctx context.Context, tx pgx.Tx, params AdminAdjustParams) (*domain.CommandResult, error) {
	if params.Amount == 0 {
		return nil, domain.ErrValidation("adjustment amount must be non-zero")
	}
	if params.Reason == "" {
		return nil, domain.ErrValidation("adjustment reason is required")
	}

	meta := mergeMeta(params.Metadata, map[string]interface{}{
		"reason": params.Reason,
	})

	result, err := e.ApplyDelta(ctx, tx, domain.ApplyDeltaParams{
		PlayerID:      params.PlayerID,
		Type:          domain.TxAdmin,
		Amount:        params.Amount,
		CorrelationID: params.CorrelationID,
		Metadata:      meta,
	})
	if err != nil {
		return nil, fmt.Errorf("admin adjust: %w", err)
	}
	return result, nil
}
