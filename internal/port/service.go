package port

import (
	"context"

	"payout/internal/domain"

	"github.com/google/uuid"
)

type WithdrawalService interface {
	CreateWithdrawal(ctx context.Context, req *domain.WithdrawalReq) (*domain.Withdrawal, error)
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	// ProcessWithdrawal drives one pending record to a terminal state.
	// It reports true only when the record reached done during this call;
	// a record already terminal is a no-op returning false.
	ProcessWithdrawal(ctx context.Context, id uuid.UUID) (bool, error)
	// ProcessDueScheduled runs the due-batch under the distributed lock and
	// returns how many records reached done. Losing the lock race returns 0.
	ProcessDueScheduled(ctx context.Context) (int, error)
}
