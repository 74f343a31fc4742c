package port

import (
	"context"
	"time"

	"payout/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// DecrementBalance atomically subtracts amount from the account balance.
	// It returns false without mutating anything when the balance would go
	// negative. Inside a transaction this is the only balance write path.
	DecrementBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error)
}

type WithdrawalRepository interface {
	Create(ctx context.Context, w *domain.Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Withdrawal, error)
	// ListDue returns pending scheduled withdrawals with scheduled_for <= now.
	ListDue(ctx context.Context, now time.Time) ([]*domain.Withdrawal, error)
	// MarkDone transitions a pending record to done. Returns false when the
	// record was not pending anymore, leaving it untouched.
	MarkDone(ctx context.Context, id uuid.UUID, processedAt time.Time) (bool, error)
	// MarkError transitions a pending record to error with a reason.
	MarkError(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}

// TxRunner executes fn inside a database transaction. The transaction is
// carried in the derived context and picked up by the repositories, so the
// balance decrement and the status transition commit as one unit.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
