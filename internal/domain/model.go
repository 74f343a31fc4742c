package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	StatusPending WithdrawalStatus = "pending"
	StatusDone    WithdrawalStatus = "done"
	StatusError   WithdrawalStatus = "error"
)

// Account balances are mutated only through the repository's atomic
// decrement; the Balance field on a loaded Account is a point-in-time read.
type Account struct {
	ID        uuid.UUID
	Name      string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WithdrawalReq struct {
	AccountID      uuid.UUID       `json:"account_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	DestinationKey string          `json:"destination_key" validate:"required"`
	ScheduledFor   *time.Time      `json:"scheduled_for,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

type Withdrawal struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	DestinationKey string
	Scheduled      bool
	ScheduledFor   *time.Time
	Status         WithdrawalStatus
	ErrorReason    string
	ProcessedAt    *time.Time
	IdempotencyKey string
	FraudFlagged   bool
	FraudSeverity  Severity
	FraudRules     []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Terminal reports whether the withdrawal has left the pending state.
// Terminal records are never transitioned again.
func (w *Withdrawal) Terminal() bool {
	return w.Status != StatusPending
}

// SamePayload reports whether req carries the same business fields as w.
// Used to detect idempotency-key reuse with a different payload.
func (w *Withdrawal) SamePayload(req *WithdrawalReq) bool {
	if w.AccountID != req.AccountID || !w.Amount.Equal(req.Amount) || w.DestinationKey != req.DestinationKey {
		return false
	}
	if (w.ScheduledFor == nil) != (req.ScheduledFor == nil) {
		return false
	}
	if w.ScheduledFor != nil && !w.ScheduledFor.Equal(*req.ScheduledFor) {
		return false
	}
	return true
}
