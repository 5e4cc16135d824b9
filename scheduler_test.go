package ynabconnect

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingProvider tracks how many fetches actually started, optionally
// holding each one open to force overlap.
type countingProvider struct {
	started atomic.Int32
	hold    time.Duration
}

func (p *countingProvider) Kind() ProviderKind { return KindTrading212 }

func (p *countingProvider) GetBalance(_ context.Context, _ Account) (*Observation, error) {
	p.started.Add(1)
	if p.hold > 0 {
		time.Sleep(p.hold)
	}
	return &Observation{Balance: decimal.NewFromInt(1)}, nil
}

func schedulerFixture(t *testing.T, provider Provider, schedule string) (*Scheduler, *recordingAdjuster) {
	t.Helper()
	adjuster := &recordingAdjuster{}
	rt := NewRuntime(map[ProviderKind]Provider{KindTrading212: provider}, adjuster, zap.NewNop())
	account := testAccount()
	account.Schedule = schedule
	s, err := NewScheduler(rt, []Account{account}, zap.NewNop())
	require.NoError(t, err)
	return s, adjuster
}

func TestNewSchedulerRejectsBadSchedule(t *testing.T) {
	rt := NewRuntime(nil, nil, zap.NewNop())
	account := testAccount()
	account.Schedule = "not a schedule"

	_, err := NewScheduler(rt, []Account{account}, zap.NewNop())
	assert.Error(t, err)
}

func TestNextRun(t *testing.T) {
	s, _ := schedulerFixture(t, &countingProvider{}, "@hourly")

	assert.True(t, s.NextRun("brokerage").IsZero(), "not started yet")
	assert.True(t, s.NextRun("unknown").IsZero())

	s.Start()
	defer s.Stop()

	next := s.NextRun("brokerage")
	require.False(t, next.IsZero())
	assert.True(t, next.After(time.Now()))
}

func TestSchedulerFiresJob(t *testing.T) {
	provider := &countingProvider{}
	s, adjuster := schedulerFixture(t, provider, "@every 1s")

	s.Start()
	time.Sleep(1500 * time.Millisecond)
	<-s.Stop().Done()

	assert.GreaterOrEqual(t, provider.started.Load(), int32(1))
	assert.NotEmpty(t, adjuster.calls)
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	provider := &countingProvider{hold: 2500 * time.Millisecond}
	s, _ := schedulerFixture(t, provider, "@every 1s")

	s.Start()
	// First firing at ~1s holds until ~3.5s; firings at ~2s and ~3s must
	// be skipped, not queued.
	time.Sleep(3200 * time.Millisecond)
	stopped := s.Stop()

	assert.Equal(t, int32(1), provider.started.Load())

	select {
	case <-stopped.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("running job did not drain")
	}
}
