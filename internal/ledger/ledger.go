// Package ledger implements the atomic chip-balance mutations. Every mutation
// happens inside one database transaction: read-and-lock the balance, verify
// it cannot go negative, write the new balance, and append exactly one
// immutable transaction record. A crash mid-operation can never produce a
// balance change without its record or vice versa, and replaying the same
// correlation id never double-applies.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cardroom/platform/internal/domain"
	"github.com/cardroom/platform/internal/repository"
)

// Engine provides the foundational ledger operation, ApplyDelta, plus the
// typed commands built on it.
type Engine struct {
	players      repository.PlayerRepository
	transactions repository.TransactionRepository
	outbox       repository.OutboxRepository
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(
	players repository.PlayerRepository,
	transactions repository.TransactionRepository,
	outbox repository.OutboxRepository,
) *Engine {
	return &Engine{
		players:      players,
		transactions: transactions,
		outbox:       outbox,
	}
}

// ApplyDelta is the single write primitive every command delegates to.
//
// Steps, all within the caller's transaction:
//  1. Row-lock the player (SELECT FOR UPDATE)
//  2. Idempotency check on the correlation id — a duplicate returns the
//     existing record untouched
//  3. Reject a delta that would take the balance negative
//  4. Server-side balance arithmetic
//  5. Append the transaction record with the before/after snapshot
//  6. Insert the outbox event
func (e *Engine) ApplyDelta(ctx context.Context, tx pgx.Tx, params domain.ApplyDeltaParams) (*domain.CommandResult, error) {
	if params.CorrelationID == "" {
		return nil, domain.ErrValidation("correlation id is required")
	}

	player, err := e.players.LockForUpdate(ctx, tx, params.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("lock player: %w", err)
	}
	if player == nil {
		return nil, domain.ErrNotFound("player", params.PlayerID.String())
	}

	existing, err := e.transactions.FindByCorrelationID(ctx, tx, params.CorrelationID)
	if err != nil {
		return nil, fmt.Errorf("find existing transaction: %w", err)
	}
	if existing != nil {
		return &domain.CommandResult{Transaction: existing, Player: player, Idempotent: true}, nil
	}

	if player.Balance+params.Amount < 0 {
		return nil, domain.ErrInsufficientBalance()
	}

	updated, err := e.players.ApplyBalanceDelta(ctx, tx, params.PlayerID, params.Amount)
	if err != nil {
		return nil, fmt.Errorf("apply balance delta: %w", err)
	}

	entry, err := e.transactions.Insert(ctx, tx, params, player.Balance, updated.Balance)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	event := domain.NewTransactionPostedEvent(entry)
	if err := e.outbox.Insert(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	return &domain.CommandResult{
		Transaction: entry,
		Player:      updated,
		Events:      []domain.OutboxDraft{event},
	}, nil
}

// EnsurePlayer creates a zero-balance player row on first contact. Safe to
// call repeatedly; an existing row is returned unchanged.
func (e *Engine) EnsurePlayer(ctx context.Context, db repository.DBTX, playerID uuid.UUID, currency string) (*domain.Player, error) {
	player, err := e.players.FindByID(ctx, db, playerID)
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}
	if player != nil {
		return player, nil
	}

	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	p := &domain.Player{ID: playerID, Currency: currency}
	if err := e.players.Create(ctx, db, p); err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	return p, nil
}
