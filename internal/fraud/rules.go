package fraud

import (
	"context"
	"strconv"

	"payout/internal/port"

	"github.com/shopspring/decimal"
)

const (
	RuleHourlyCountLimit    = "hourly_count_limit"
	RuleDailyCountLimit     = "daily_count_limit"
	RuleDailyAmountLimit    = "daily_amount_limit"
	RuleSuspiciousAmount    = "suspicious_amount"
	RuleDestinationKeyReuse = "destination_key_reuse"
	RuleRapidPattern        = "rapid_pattern"
)

const (
	hourlyCountLimit  = 5
	dailyCountLimit   = 20
	rapidPatternCount = 3
)

var (
	dailyAmountLimit = decimal.NewFromInt(10000)
	suspiciousAmount = decimal.NewFromInt(5000)
)

// Input is one withdrawal attempt as seen by the rules. Evaluation is
// read-only; counters move only when the attempt is later accepted.
type Input struct {
	AccountID      string
	Amount         decimal.Decimal
	DestinationKey string
}

type Rule interface {
	Name() string
	// Check reports whether the rule fires for this attempt.
	Check(ctx context.Context, store port.KVStore, in Input) (bool, error)
}

type hourlyCountRule struct{}

func (hourlyCountRule) Name() string { return RuleHourlyCountLimit }

func (hourlyCountRule) Check(ctx context.Context, store port.KVStore, in Input) (bool, error) {
	n, err := readCount(ctx, store, hourCountKey(in.AccountID))
	if err != nil {
		return false, err
	}
	return n >= hourlyCountLimit, nil
}

type dailyCountRule struct{}

func (dailyCountRule) Name() string { return RuleDailyCountLimit }

func (dailyCountRule) Check(ctx context.Context, store port.KVStore, in Input) (bool, error) {
	n, err := readCount(ctx, store, dayCountKey(in.AccountID))
	if err != nil {
		return false, err
	}
	return n >= dailyCountLimit, nil
}

type dailyAmountRule struct{}

func (dailyAmountRule) Name() string { return RuleDailyAmountLimit }

func (dailyAmountRule) Check(ctx context.Context, store port.KVStore, in Input) (bool, error) {
	raw, ok, err := store.Get(ctx, dayAmountKey(in.AccountID))
	if err != nil {
		return false, err
	}
	accumulated := decimal.Zero
	if ok {
		accumulated, err = decimal.NewFromString(raw)
		if err != nil {
			return false, err
		}
	}
	return accumulated.Add(in.Amount).GreaterThan(dailyAmountLimit), nil
}

type suspiciousAmountRule struct{}

func (suspiciousAmountRule) Name() string { return RuleSuspiciousAmount }

func (suspiciousAmountRule) Check(ctx context.Context, store port.KVStore, in Input) (bool, error) {
	return in.Amount.GreaterThanOrEqual(suspiciousAmount), nil
}

type destinationReuseRule struct{}

func (destinationReuseRule) Name() string { return RuleDestinationKeyReuse }

func (destinationReuseRule) Check(ctx context.Context, store port.KVStore, in Input) (bool, error) {
	owner, ok, err := store.Get(ctx, destUsageKey(in.DestinationKey))
	if err != nil {
		return false, err
	}
	return ok && owner != in.AccountID, nil
}

type rapidPatternRule struct{}

func (rapidPatternRule) Name() string { return RuleRapidPattern }

// Rapid pattern counts exact event timestamps, one key per accepted
// withdrawal, each expiring after the rapid window.
func (rapidPatternRule) Check(ctx context.Context, store port.KVStore, in Input) (bool, error) {
	keys, err := store.Keys(ctx, eventPrefix(in.AccountID))
	if err != nil {
		return false, err
	}
	return len(keys) >= rapidPatternCount, nil
}

func readCount(ctx context.Context, store port.KVStore, key string) (int64, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}
