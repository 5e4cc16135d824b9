package ynabconnect

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedProvider returns whatever its script says for the nth call.
type scriptedProvider struct {
	calls  int
	script func(call int) (*Observation, error)
}

func (p *scriptedProvider) Kind() ProviderKind { return KindTrading212 }

func (p *scriptedProvider) GetBalance(_ context.Context, _ Account) (*Observation, error) {
	p.calls++
	return p.script(p.calls)
}

type adjustCall struct {
	accountID string
	balance   decimal.Decimal
}

type recordingAdjuster struct {
	calls []adjustCall
	err   error
}

func (a *recordingAdjuster) AdjustBalance(_ context.Context, accountID string, balance decimal.Decimal, _ time.Time) error {
	a.calls = append(a.calls, adjustCall{accountID: accountID, balance: balance})
	return a.err
}

func testAccount() Account {
	return Account{
		Name:          "brokerage",
		YNABAccountID: "0e46f6b8-7a4f-4f6a-9f62-222222222222",
		Kind:          KindTrading212,
	}
}

func newTestRuntime(provider Provider, adjuster BalanceAdjuster) *Runtime {
	providers := map[ProviderKind]Provider{}
	if provider != nil {
		providers[KindTrading212] = provider
	}
	return NewRuntime(providers, adjuster, zap.NewNop(),
		WithFetchAttempts(3), WithMinBackoff(time.Millisecond))
}

func TestFetchWithRetrySucceedsFirstAttempt(t *testing.T) {
	provider := &scriptedProvider{script: func(int) (*Observation, error) {
		return &Observation{Balance: decimal.NewFromFloat(42.5)}, nil
	}}
	rt := newTestRuntime(provider, nil)

	obs := rt.FetchWithRetry(context.Background(), provider, testAccount())
	require.NotNil(t, obs)
	assert.True(t, obs.Balance.Equal(decimal.NewFromFloat(42.5)))
	assert.Equal(t, 1, provider.calls)
}

func TestFetchWithRetryRecoversFromTransientErrors(t *testing.T) {
	provider := &scriptedProvider{script: func(call int) (*Observation, error) {
		if call < 3 {
			return nil, Errorf(ErrCodeUnavailable, "flaky upstream")
		}
		return &Observation{Balance: decimal.NewFromInt(100)}, nil
	}}
	rt := newTestRuntime(provider, nil)

	obs := rt.FetchWithRetry(context.Background(), provider, testAccount())
	require.NotNil(t, obs)
	assert.Equal(t, 3, provider.calls)
}

func TestFetchWithRetryExhaustsBudget(t *testing.T) {
	provider := &scriptedProvider{script: func(int) (*Observation, error) {
		return nil, Errorf(ErrCodeUnavailable, "always down")
	}}
	rt := newTestRuntime(provider, nil)

	obs := rt.FetchWithRetry(context.Background(), provider, testAccount())
	assert.Nil(t, obs)
	assert.Equal(t, 3, provider.calls, "exactly the configured attempt budget")
}

func TestFetchWithRetryStopsOnPermanentError(t *testing.T) {
	provider := &scriptedProvider{script: func(int) (*Observation, error) {
		return nil, Errorf(ErrCodeUnauthorized, "bad credentials")
	}}
	rt := newTestRuntime(provider, nil)

	obs := rt.FetchWithRetry(context.Background(), provider, testAccount())
	assert.Nil(t, obs)
	assert.Equal(t, 1, provider.calls, "permanent errors never retry")
}

func TestFetchWithRetryTreatsPlainErrorsAsTransient(t *testing.T) {
	provider := &scriptedProvider{script: func(int) (*Observation, error) {
		return nil, context.DeadlineExceeded
	}}
	rt := newTestRuntime(provider, nil)

	obs := rt.FetchWithRetry(context.Background(), provider, testAccount())
	assert.Nil(t, obs)
	assert.Equal(t, 3, provider.calls)
}

func TestRunSyncJobAdjustsBalance(t *testing.T) {
	provider := &scriptedProvider{script: func(int) (*Observation, error) {
		return &Observation{Balance: decimal.NewFromFloat(45678.90)}, nil
	}}
	adjuster := &recordingAdjuster{}
	rt := newTestRuntime(provider, adjuster)

	rt.RunSyncJob(context.Background(), testAccount())

	require.Len(t, adjuster.calls, 1)
	assert.Equal(t, "0e46f6b8-7a4f-4f6a-9f62-222222222222", adjuster.calls[0].accountID)
	assert.True(t, adjuster.calls[0].balance.Equal(decimal.NewFromFloat(45678.90)))
}

func TestRunSyncJobSkipsLedgerOnFetchFailure(t *testing.T) {
	provider := &scriptedProvider{script: func(int) (*Observation, error) {
		return nil, Errorf(ErrCodeUnauthorized, "nope")
	}}
	adjuster := &recordingAdjuster{}
	rt := newTestRuntime(provider, adjuster)

	rt.RunSyncJob(context.Background(), testAccount())

	assert.Empty(t, adjuster.calls, "no ledger write after a failed fetch")
}

func TestRunSyncJobAbsorbsAdjusterError(t *testing.T) {
	provider := &scriptedProvider{script: func(int) (*Observation, error) {
		return &Observation{Balance: decimal.NewFromInt(10)}, nil
	}}
	adjuster := &recordingAdjuster{err: assert.AnError}
	rt := newTestRuntime(provider, adjuster)

	assert.NotPanics(t, func() {
		rt.RunSyncJob(context.Background(), testAccount())
	})
}

func TestRunSyncJobAbsorbsProviderPanic(t *testing.T) {
	provider := &scriptedProvider{script: func(int) (*Observation, error) {
		panic("connector bug")
	}}
	rt := newTestRuntime(provider, &recordingAdjuster{})

	assert.NotPanics(t, func() {
		rt.RunSyncJob(context.Background(), testAccount())
	})
}

func TestRunSyncJobUnknownProviderKind(t *testing.T) {
	adjuster := &recordingAdjuster{}
	rt := newTestRuntime(nil, adjuster)

	rt.RunSyncJob(context.Background(), testAccount())
	assert.Empty(t, adjuster.calls)
}
