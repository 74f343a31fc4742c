package domain

import "errors"

var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrWithdrawalNotFound     = errors.New("withdrawal not found")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrPastSchedule           = errors.New("scheduled time is in the past")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrDuplicateRequest       = errors.New("duplicate request")
	ErrIdempotencyKeyMismatch = errors.New("idempotency key mismatch")
	ErrNotification           = errors.New("notification delivery failed")
)
