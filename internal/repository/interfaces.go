package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cardroom/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PlayerRepository provides access to players.
type PlayerRepository interface {
	// FindByID returns a player by ID.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Player, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the player.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Player, error)

	// Create inserts a new player.
	Create(ctx context.Context, db DBTX, player *domain.Player) error

	// ApplyBalanceDelta atomically adds delta to the balance using server-side
	// arithmetic and returns the updated row.
	ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, delta int64) (*domain.Player, error)
}

// TransactionRepository provides access to the append-only transactions table.
type TransactionRepository interface {
	// FindByCorrelationID checks the unique correlation index for a duplicate.
	// Returns nil when no duplicate exists.
	FindByCorrelationID(ctx context.Context, db DBTX, correlationID string) (*domain.Transaction, error)

	// Insert creates a new ledger entry with its balance snapshot.
	Insert(ctx context.Context, db DBTX, params domain.ApplyDeltaParams, balanceBefore, balanceAfter int64) (*domain.Transaction, error)

	// FindByID returns a transaction by ID.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error)

	// ListByPlayer returns a player's transactions, newest first.
	ListByPlayer(ctx context.Context, db DBTX, playerID uuid.UUID, limit int) ([]domain.Transaction, error)

	// ListByCorrelationPrefix returns all entries whose correlation id starts
	// with the given prefix, oldest first. The prefix "<tableID>:<handID>:"
	// yields every ledger effect of one hand.
	ListByCorrelationPrefix(ctx context.Context, db DBTX, prefix string) ([]domain.Transaction, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the ledger entry).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error
}
