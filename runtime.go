package ynabconnect

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultFetchAttempts is the total attempt budget per balance fetch.
	DefaultFetchAttempts = 3
	// DefaultMinBackoff is the delay before the first retry.
	DefaultMinBackoff = time.Second
)

// BalanceAdjuster reconciles a ledger account to an observed balance.
// Implemented by ynab.Reconciler.
type BalanceAdjuster interface {
	AdjustBalance(ctx context.Context, accountID string, balance decimal.Decimal, date time.Time) error
}

// Runtime runs sync jobs: it fetches balances from providers with bounded
// retry and hands successful observations to the reconciler. Failures never
// escape a job; they end as log lines.
type Runtime struct {
	providers  map[ProviderKind]Provider
	adjuster   BalanceAdjuster
	logger     *zap.Logger
	attempts   int
	minBackoff time.Duration
}

// RuntimeOption tweaks runtime behavior.
type RuntimeOption func(*Runtime)

// WithFetchAttempts sets the total attempt budget per fetch.
func WithFetchAttempts(n int) RuntimeOption {
	return func(rt *Runtime) {
		if n > 0 {
			rt.attempts = n
		}
	}
}

// WithMinBackoff sets the delay before the first retry.
func WithMinBackoff(d time.Duration) RuntimeOption {
	return func(rt *Runtime) {
		if d > 0 {
			rt.minBackoff = d
		}
	}
}

// NewRuntime builds a runtime over the given providers and reconciler.
func NewRuntime(providers map[ProviderKind]Provider, adjuster BalanceAdjuster, logger *zap.Logger, opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		providers:  providers,
		adjuster:   adjuster,
		logger:     logger,
		attempts:   DefaultFetchAttempts,
		minBackoff: DefaultMinBackoff,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// FetchWithRetry calls the provider until it yields an observation, fails
// permanently, or the attempt budget runs out. Attempts are strictly
// sequential. Returns nil when no observation could be obtained; the
// terminal outcome is always logged.
func (rt *Runtime) FetchWithRetry(ctx context.Context, provider Provider, account Account) *Observation {
	logger := rt.logger.With(
		zap.String("account", account.Name),
		zap.String("provider", string(account.Kind)),
	)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = rt.minBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(rt.attempts-1)), ctx)

	attempt := 0
	obs, err := backoff.RetryNotifyWithData(func() (*Observation, error) {
		attempt++
		obs, err := provider.GetBalance(ctx, account)
		if err == nil {
			return obs, nil
		}
		if !Retryable(err) {
			logger.Error("stumbled upon a non-retryable error",
				zap.Int("attempt", attempt), zap.Error(err))
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("error fetching balance, retrying",
			zap.Int("attempt", attempt), zap.Duration("backoff", wait), zap.Error(err))
	})
	if err != nil {
		if Retryable(err) {
			logger.Error("failed to fetch balance after retries",
				zap.Int("attempts", attempt), zap.Error(err))
		}
		return nil
	}
	return obs
}

// RunSyncJob synchronizes one account: fetch with retry, then reconcile.
// It is panic-safe so a broken provider cannot take down the scheduler.
func (rt *Runtime) RunSyncJob(ctx context.Context, account Account) {
	logger := rt.logger.With(
		zap.String("account", account.Name),
		zap.String("provider", string(account.Kind)),
	)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("sync job panicked", zap.Any("panic", r))
		}
	}()

	provider, ok := rt.providers[account.Kind]
	if !ok {
		logger.Error("no provider registered for account kind")
		return
	}

	obs := rt.FetchWithRetry(ctx, provider, account)
	if obs == nil {
		logger.Error("failed to fetch balance for account after retries")
		return
	}
	logger.Debug("fetched balance successfully", zap.String("balance", obs.Balance.String()))
	if n := len(obs.Transactions); n > 0 {
		logger.Debug("provider reported recent transactions", zap.Int("count", n))
	}

	if err := rt.adjuster.AdjustBalance(ctx, account.YNABAccountID, obs.Balance, time.Now()); err != nil {
		logger.Error("failed to adjust balance in YNAB", zap.Error(err))
		return
	}

	logger.Info("adjusted balance in YNAB successfully",
		zap.String("balance", obs.Balance.String()),
		zap.String("ynab_account_id", account.YNABAccountID))
}
