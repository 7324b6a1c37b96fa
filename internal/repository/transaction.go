package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cardroom/platform/internal/domain"
	"github.com/cardroom/platform/internal/infra"
)

const txColumns = `id, player_id, type, amount, balance_before, balance_after, correlation_id, metadata, created_at`

type transactionRepo struct{}

// NewTransactionRepository returns a pgx-backed TransactionRepository.
func NewTransactionRepository() TransactionRepository {
	return &transactionRepo{}
}

func (r *transactionRepo) FindByCorrelationID(ctx context.Context, db DBTX, correlationID string) (*domain.Transaction, error) {
	row := db.QueryRow(ctx, `
		SELECT `+txColumns+`
		FROM transactions WHERE correlation_id = $1`, correlationID)
	return scanTransaction(row)
}

func (r *transactionRepo) Insert(ctx context.Context, db DBTX, params domain.ApplyDeltaParams, balanceBefore, balanceAfter int64) (*domain.Transaction, error) {
	meta := params.Metadata
	if meta == nil {
		meta = json.RawMessage(`{}`)
	}

	row := db.QueryRow(ctx, `
		INSERT INTO transactions
		  (player_id, type, amount, balance_before, balance_after, correlation_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+txColumns,
		params.PlayerID,
		string(params.Type),
		infra.Int64ToNumeric(params.Amount),
		infra.Int64ToNumeric(balanceBefore),
		infra.Int64ToNumeric(balanceAfter),
		params.CorrelationID,
		meta,
	)
	return scanTransaction(row)
}

func (r *transactionRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error) {
	row := db.QueryRow(ctx, `
		SELECT `+txColumns+`
		FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (r *transactionRepo) ListByPlayer(ctx context.Context, db DBTX, playerID uuid.UUID, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := db.Query(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// likeEscaper neutralises LIKE wildcards in correlation prefixes. Table ids
// are caller-supplied and may contain underscores, which LIKE treats as a
// single-character wildcard.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *transactionRepo) ListByCorrelationPrefix(ctx context.Context, db DBTX, prefix string) ([]domain.Transaction, error) {
	rows, err := db.Query(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE correlation_id LIKE $1 ESCAPE '\'
		ORDER BY created_at ASC`, likeEscaper.Replace(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("query hand transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amountNum, beforeNum, afterNum pgtype.Numeric
	err := row.Scan(
		&tx.ID, &tx.PlayerID, &tx.Type,
		&amountNum, &beforeNum, &afterNum,
		&tx.CorrelationID, &tx.Metadata, &tx.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	if tx.Amount, err = infra.NumericToInt64(amountNum); err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	if tx.BalanceBefore, err = infra.NumericToInt64(beforeNum); err != nil {
		return nil, fmt.Errorf("convert balance_before: %w", err)
	}
	if tx.BalanceAfter, err = infra.NumericToInt64(afterNum); err != nil {
		return nil, fmt.Errorf("convert balance_after: %w", err)
	}
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var amountNum, beforeNum, afterNum pgtype.Numeric
		err := rows.Scan(
			&tx.ID, &tx.PlayerID, &tx.Type,
			&amountNum, &beforeNum, &afterNum,
			&tx.CorrelationID, &tx.Metadata, &tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		if tx.Amount, err = infra.NumericToInt64(amountNum); err != nil {
			return nil, err
		}
		if tx.BalanceBefore, err = infra.NumericToInt64(beforeNum); err != nil {
			return nil, err
		}
		if tx.BalanceAfter, err = infra.NumericToInt64(afterNum); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
