package fraud

import (
	"context"
	"time"

	"payout/internal/domain"
	"payout/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	hourWindow  = time.Hour
	dayWindow   = 24 * time.Hour
	rapidWindow = 5 * time.Minute
)

func hourCountKey(accountID string) string { return "fraud:cnt:hour:" + accountID }
func dayCountKey(accountID string) string  { return "fraud:cnt:day:" + accountID }
func dayAmountKey(accountID string) string { return "fraud:amt:day:" + accountID }
func destUsageKey(destKey string) string   { return "fraud:dest:" + destKey }
func eventPrefix(accountID string) string  { return "fraud:evt:" + accountID + ":" }

var severityByRule = map[string]domain.Severity{
	RuleDailyAmountLimit:    domain.SeverityCritical,
	RuleDailyCountLimit:     domain.SeverityHigh,
	RuleSuspiciousAmount:    domain.SeverityHigh,
	RuleHourlyCountLimit:    domain.SeverityMedium,
	RuleDestinationKeyReuse: domain.SeverityMedium,
	RuleRapidPattern:        domain.SeverityMedium,
}

var severityRank = map[domain.Severity]int{
	domain.SeverityNone:     0,
	domain.SeverityMedium:   1,
	domain.SeverityHigh:     2,
	domain.SeverityCritical: 3,
}

// Engine scores withdrawal attempts against sliding-window counters kept
// in the coordination store. Counter loss weakens sensitivity only; the
// engine never blocks a withdrawal by itself.
type Engine struct {
	store  port.KVStore
	rules  []Rule
	logger *zap.Logger
}

func NewEngine(store port.KVStore, logger *zap.Logger) *Engine {
	return &Engine{
		store: store,
		rules: []Rule{
			hourlyCountRule{},
			dailyCountRule{},
			dailyAmountRule{},
			suspiciousAmountRule{},
			destinationReuseRule{},
			rapidPatternRule{},
		},
		logger: logger,
	}
}

// Evaluate runs every rule against the attempt. Rules do not short-circuit
// so the verdict lists all triggered rules. A rule failing against the
// store is logged and skipped rather than failing the attempt.
func (e *Engine) Evaluate(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, destinationKey string) domain.Verdict {
	in := Input{
		AccountID:      accountID.String(),
		Amount:         amount,
		DestinationKey: destinationKey,
	}

	verdict := domain.Verdict{Severity: domain.SeverityNone}
	for _, rule := range e.rules {
		fired, err := rule.Check(ctx, e.store, in)
		if err != nil {
			e.logger.Warn("fraud rule check failed",
				zap.String("rule", rule.Name()),
				zap.String("account_id", in.AccountID),
				zap.Error(err))
			continue
		}
		if !fired {
			continue
		}
		verdict.Flagged = true
		verdict.Triggered = append(verdict.Triggered, rule.Name())
		if sev := severityByRule[rule.Name()]; severityRank[sev] > severityRank[verdict.Severity] {
			verdict.Severity = sev
		}
	}
	return verdict
}

// Record registers one accepted withdrawal: window counters, the daily
// amount accumulator, destination-key ownership, and an exact-timestamp
// event for the rapid-pattern rule. Called only after acceptance so that
// rejected attempts never inflate future windows.
func (e *Engine) Record(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, destinationKey string) error {
	acct := accountID.String()

	if err := e.bumpCounter(ctx, hourCountKey(acct), hourWindow); err != nil {
		return err
	}
	if err := e.bumpCounter(ctx, dayCountKey(acct), dayWindow); err != nil {
		return err
	}
	if err := e.bumpAmount(ctx, dayAmountKey(acct), amount); err != nil {
		return err
	}
	if err := e.store.Set(ctx, destUsageKey(destinationKey), acct, dayWindow); err != nil {
		return err
	}
	eventKey := eventPrefix(acct) + uuid.NewString()
	return e.store.Set(ctx, eventKey, time.Now().UTC().Format(time.RFC3339Nano), rapidWindow)
}

// bumpCounter increments and pins the expiry when the increment opened a
// fresh window, keeping the expiry aligned to the window's first event.
func (e *Engine) bumpCounter(ctx context.Context, key string, window time.Duration) error {
	n, err := e.store.Incr(ctx, key)
	if err != nil {
		return err
	}
	if n == 1 {
		_, err = e.store.Expire(ctx, key, window)
	}
	return err
}

func (e *Engine) bumpAmount(ctx context.Context, key string, amount decimal.Decimal) error {
	_, existed, err := e.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if _, err := e.store.IncrByFloat(ctx, key, amount.InexactFloat64()); err != nil {
		return err
	}
	if !existed {
		_, err = e.store.Expire(ctx, key, dayWindow)
	}
	return err
}
