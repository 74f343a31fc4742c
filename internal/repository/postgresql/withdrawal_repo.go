package postgresql

import (
	"context"
	"database/sql"
	"time"

	"payout/internal/domain"
	"payout/internal/port"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var uniqueConstraint pq.ErrorCode = "23505"

type withdrawalRepository struct {
	db *sql.DB
}

func NewWithdrawalRepository(db *sql.DB) port.WithdrawalRepository {
	return &withdrawalRepository{db: db}
}

const withdrawalColumns = `id, account_id, amount, destination_key, scheduled, scheduled_for,
	status, error_reason, processed_at, idempotency_key, fraud_flagged, fraud_severity, fraud_rules,
	created_at, updated_at`

func (r *withdrawalRepository) Create(ctx context.Context, w *domain.Withdrawal) error {
	const query = `INSERT INTO withdrawals (` + withdrawalColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	var key sql.NullString
	if w.IdempotencyKey != "" {
		key = sql.NullString{String: w.IdempotencyKey, Valid: true}
	}
	rules := w.FraudRules
	if rules == nil {
		rules = []string{}
	}

	_, err := pick(ctx, r.db).ExecContext(ctx, query,
		w.ID, w.AccountID, w.Amount, w.DestinationKey, w.Scheduled, w.ScheduledFor,
		w.Status, w.ErrorReason, w.ProcessedAt, key,
		w.FraudFlagged, w.FraudSeverity, pq.Array(rules),
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueConstraint {
			if pqErr.Constraint == "withdrawals_idempotency_key_key" {
				return domain.ErrDuplicateRequest
			}
		}
		return err
	}
	return nil
}

func scanWithdrawal(scan func(dest ...any) error) (*domain.Withdrawal, error) {
	var (
		w           domain.Withdrawal
		errorReason sql.NullString
		key         sql.NullString
		rules       pq.StringArray
	)
	err := scan(
		&w.ID, &w.AccountID, &w.Amount, &w.DestinationKey, &w.Scheduled, &w.ScheduledFor,
		&w.Status, &errorReason, &w.ProcessedAt, &key,
		&w.FraudFlagged, &w.FraudSeverity, &rules,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.ErrorReason = errorReason.String
	w.IdempotencyKey = key.String
	w.FraudRules = rules
	return &w, nil
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	const query = `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`

	row := pick(ctx, r.db).QueryRowContext(ctx, query, id)
	w, err := scanWithdrawal(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrWithdrawalNotFound
	}
	return w, err
}

func (r *withdrawalRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Withdrawal, error) {
	const query = `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE idempotency_key = $1`

	row := pick(ctx, r.db).QueryRowContext(ctx, query, key)
	w, err := scanWithdrawal(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return w, err
}

func (r *withdrawalRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.Withdrawal, error) {
	const query = `SELECT ` + withdrawalColumns + ` FROM withdrawals
	WHERE status = $1 AND scheduled AND scheduled_for <= $2
	ORDER BY scheduled_for`

	rows, err := pick(ctx, r.db).QueryContext(ctx, query, domain.StatusPending, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []*domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows.Scan)
		if err != nil {
			return nil, err
		}
		due = append(due, w)
	}
	return due, rows.Err()
}

// MarkDone and MarkError guard on the pending status in the statement so a
// record can never leave pending twice, whatever the callers interleave.

func (r *withdrawalRepository) MarkDone(ctx context.Context, id uuid.UUID, processedAt time.Time) (bool, error) {
	const query = `UPDATE withdrawals SET status = $2, processed_at = $3, updated_at = $3
	WHERE id = $1 AND status = $4`

	result, err := pick(ctx, r.db).ExecContext(ctx, query, id, domain.StatusDone, processedAt, domain.StatusPending)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *withdrawalRepository) MarkError(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	const query = `UPDATE withdrawals SET status = $2, error_reason = $3, updated_at = now()
	WHERE id = $1 AND status = $4`

	result, err := pick(ctx, r.db).ExecContext(ctx, query, id, domain.StatusError, reason, domain.StatusPending)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
