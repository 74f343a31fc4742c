package service

import (
	"context"
	"errors"
	"time"

	"payout/internal/domain"
	"payout/internal/fraud"
	"payout/internal/lock"
	"payout/internal/port"
	"payout/internal/retry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// errLostRace forces the transaction to roll back when the status guard
// shows another processor finished the record first.
var errLostRace = errors.New("withdrawal already terminal")

type Config struct {
	LockKey            string
	LockTTL            time.Duration
	NotifyMaxAttempts  int
	NotifyInitialDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.LockKey == "" {
		c.LockKey = "payout:lock:due-batch"
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Second
	}
	if c.NotifyMaxAttempts <= 0 {
		c.NotifyMaxAttempts = retry.DefaultMaxAttempts
	}
	if c.NotifyInitialDelay <= 0 {
		c.NotifyInitialDelay = retry.DefaultInitialDelay
	}
	return c
}

type withdrawalService struct {
	withdrawalRepo port.WithdrawalRepository
	accountRepo    port.AccountRepository
	tx             port.TxRunner
	locks          *lock.Manager
	fraud          *fraud.Engine
	notifier       port.Notifier
	logger         *zap.Logger
	cfg            Config
	now            func() time.Time
}

func NewWithdrawalService(
	withdrawalRepo port.WithdrawalRepository,
	accountRepo port.AccountRepository,
	tx port.TxRunner,
	locks *lock.Manager,
	fraudEngine *fraud.Engine,
	notifier port.Notifier,
	logger *zap.Logger,
	cfg Config,
) port.WithdrawalService {
	return &withdrawalService{
		withdrawalRepo: withdrawalRepo,
		accountRepo:    accountRepo,
		tx:             tx,
		locks:          locks,
		fraud:          fraudEngine,
		notifier:       notifier,
		logger:         logger,
		cfg:            cfg.withDefaults(),
		now:            time.Now,
	}
}

// CreateWithdrawal accepts an immediate or scheduled withdrawal request.
// Exactly one record is persisted per accepted call; rejections happen
// before anything is written. Immediate requests are processed
// synchronously before returning.
func (s *withdrawalService) CreateWithdrawal(ctx context.Context, req *domain.WithdrawalReq) (*domain.Withdrawal, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	if req.IdempotencyKey != "" {
		existing, err := s.withdrawalRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if !existing.SamePayload(req) {
				return nil, domain.ErrIdempotencyKeyMismatch
			}
			return existing, nil
		}
	}

	now := s.now()
	account, err := s.accountRepo.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if req.ScheduledFor != nil && req.ScheduledFor.Before(now) {
		return nil, domain.ErrPastSchedule
	}

	verdict := s.fraud.Evaluate(ctx, req.AccountID, req.Amount, req.DestinationKey)
	if verdict.Flagged {
		s.logger.Warn("withdrawal flagged by fraud rules",
			zap.String("account_id", req.AccountID.String()),
			zap.String("amount", req.Amount.String()),
			zap.String("severity", string(verdict.Severity)),
			zap.Strings("rules", verdict.Triggered))
	}

	scheduled := req.ScheduledFor != nil
	// Scheduled requests reserve no funds; sufficiency is re-checked when
	// the scheduled moment arrives.
	if !scheduled && account.Balance.LessThan(req.Amount) {
		return nil, domain.ErrInsufficientBalance
	}

	w := &domain.Withdrawal{
		ID:             uuid.New(),
		AccountID:      req.AccountID,
		Amount:         req.Amount,
		DestinationKey: req.DestinationKey,
		Scheduled:      scheduled,
		ScheduledFor:   req.ScheduledFor,
		Status:         domain.StatusPending,
		IdempotencyKey: req.IdempotencyKey,
		FraudFlagged:   verdict.Flagged,
		FraudSeverity:  verdict.Severity,
		FraudRules:     verdict.Triggered,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.withdrawalRepo.Create(ctx, w); err != nil {
		return nil, err
	}

	// Counters move only for accepted requests, so attempts rejected above
	// never inflate future windows.
	if err := s.fraud.Record(ctx, req.AccountID, req.Amount, req.DestinationKey); err != nil {
		s.logger.Warn("fraud counters not recorded",
			zap.String("account_id", req.AccountID.String()), zap.Error(err))
	}

	if scheduled {
		return w, nil
	}

	if _, err := s.ProcessWithdrawal(ctx, w.ID); err != nil {
		return nil, err
	}
	return s.withdrawalRepo.GetByID(ctx, w.ID)
}

func (s *withdrawalService) GetWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	return s.withdrawalRepo.GetByID(ctx, id)
}

// ProcessWithdrawal drives one pending record to done or error. The
// balance decrement and the done transition commit as a single unit, so
// the record is never observable as done without the deduction. Calling
// it on a terminal record is a no-op.
func (s *withdrawalService) ProcessWithdrawal(ctx context.Context, id uuid.UUID) (bool, error) {
	w, err := s.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if w.Terminal() {
		return false, nil
	}

	var done bool
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		decremented, err := s.accountRepo.DecrementBalance(txCtx, w.AccountID, w.Amount)
		if err != nil {
			return err
		}
		if !decremented {
			// Balance drifted since acceptance: terminal error state,
			// nothing deducted.
			_, err := s.withdrawalRepo.MarkError(txCtx, w.ID, domain.ErrInsufficientBalance.Error())
			return err
		}

		marked, err := s.withdrawalRepo.MarkDone(txCtx, w.ID, s.now())
		if err != nil {
			return err
		}
		if !marked {
			return errLostRace
		}
		done = true
		return nil
	})
	if errors.Is(err, errLostRace) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if done {
		s.notify(ctx, w.ID)
	}
	return done, nil
}

// ProcessDueScheduled runs one due-batch pass under the distributed lock.
// Not winning the lock is the expected steady state with several workers
// and simply yields 0. One record failing never aborts the batch.
func (s *withdrawalService) ProcessDueScheduled(ctx context.Context) (int, error) {
	processed := 0
	ran, err := s.locks.WithLock(ctx, s.cfg.LockKey, s.cfg.LockTTL, func(ctx context.Context) error {
		due, err := s.withdrawalRepo.ListDue(ctx, s.now())
		if err != nil {
			return err
		}
		for _, w := range due {
			ok, err := s.ProcessWithdrawal(ctx, w.ID)
			if err != nil {
				s.logger.Error("due withdrawal left pending for next cycle",
					zap.String("withdrawal_id", w.ID.String()), zap.Error(err))
				continue
			}
			if ok {
				processed++
			}
		}
		return nil
	})
	if !ran {
		return 0, nil
	}
	return processed, err
}

func (s *withdrawalService) notify(ctx context.Context, id uuid.UUID) {
	err := retry.Do(ctx, func(ctx context.Context) error {
		return s.notifier.Send(ctx, id)
	}, retry.Options{
		MaxAttempts:  s.cfg.NotifyMaxAttempts,
		InitialDelay: s.cfg.NotifyInitialDelay,
	})
	if err != nil {
		// Never escalated: the financial state is already committed.
		s.logger.Warn("withdrawal notification failed",
			zap.String("withdrawal_id", id.String()), zap.Error(err))
	}
}
