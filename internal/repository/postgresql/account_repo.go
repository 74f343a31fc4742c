package postgresql

import (
	"context"
	"database/sql"

	"payout/internal/domain"
	"payout/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) port.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	const query = `SELECT id, name, balance, created_at, updated_at FROM accounts WHERE id = $1`

	var a domain.Account
	err := pick(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.Name, &a.Balance, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DecrementBalance relies on the balance >= amount guard in the statement
// itself, so the non-negative invariant holds even under row contention.
func (r *accountRepository) DecrementBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	const query = `UPDATE accounts SET balance = balance - $2, updated_at = now()
	WHERE id = $1 AND balance >= $2`

	result, err := pick(ctx, r.db).ExecContext(ctx, query, id, amount)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
