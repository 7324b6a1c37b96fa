package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cardroom/platform/internal/domain"
	"github.com/cardroom/platform/internal/infra"
)

type playerRepo struct{}

// NewPlayerRepository returns a pgx-backed PlayerRepository.
func NewPlayerRepository() PlayerRepository {
	return &playerRepo{}
}

func (r *playerRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Player, error) {
	row := db.QueryRow(ctx, `
		SELECT id, balance, currency, created_at, updated_at
		FROM players WHERE id = $1`, id)
	return scanPlayer(row)
}

func (r *playerRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Player, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, balance, currency, created_at, updated_at
		FROM players WHERE id = $1 FOR UPDATE`, id)
	return scanPlayer(row)
}

func (r *playerRepo) Create(ctx context.Context, db DBTX, player *domain.Player) error {
	_, err := db.Exec(ctx, `
		INSERT INTO players (id, balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		player.ID,
		infra.Int64ToNumeric(player.Balance),
		player.Currency,
		player.CreatedAt,
		player.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// ApplyBalanceDelta uses server-side arithmetic so concurrent writers can
// never lose an update; the non-negative balance is also enforced here by the
// table's CHECK constraint as a last line of defense.
func (r *playerRepo) ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, delta int64) (*domain.Player, error) {
	row := tx.QueryRow(ctx, `
		UPDATE players
		SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING id, balance, currency, created_at, updated_at`,
		infra.Int64ToNumeric(delta), playerID)
	return scanPlayer(row)
}

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	var balNum pgtype.Numeric
	err := row.Scan(&p.ID, &balNum, &p.Currency, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan player: %w", err)
	}

	p.Balance, err = infra.NumericToInt64(balNum)
	if err != nil {
		return nil, fmt.Errorf("convert balance: %w", err)
	}
	return &p, nil
}
