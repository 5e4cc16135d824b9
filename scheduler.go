package ynabconnect

import (
	"context"
	"fmt"
	"time"

	"github.com/hako/durafmt"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler owns one cron trigger per configured account plus an hourly
// summary trigger. A trigger that fires while the same account's job is
// still running is skipped, not queued.
type Scheduler struct {
	cron     *cron.Cron
	logger   *zap.Logger
	accounts []Account
	entries  map[string]cron.EntryID
}

// NewScheduler registers a sync trigger for every account. The schedules
// were validated at config load; an error here means an account slipped
// past validation.
func NewScheduler(rt *Runtime, accounts []Account, logger *zap.Logger) (*Scheduler, error) {
	// Verbose so the wrapper's "skip" lines show up when a trigger fires
	// while the previous run is still going.
	cronLogger := cron.VerbosePrintfLogger(zap.NewStdLog(logger.Named("cron")))
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		)),
		logger:   logger,
		accounts: accounts,
		entries:  make(map[string]cron.EntryID),
	}

	for _, account := range accounts {
		account := account
		id, err := s.cron.AddFunc(account.Schedule, func() {
			s.logger.Info("starting sync job",
				zap.String("account", account.Name),
				zap.String("provider", string(account.Kind)))
			rt.RunSyncJob(context.Background(), account)
		})
		if err != nil {
			return nil, fmt.Errorf("schedule account %q: %w", account.Name, err)
		}
		s.entries[account.Name] = id
	}

	if _, err := s.cron.AddFunc("@hourly", s.logSummary); err != nil {
		return nil, fmt.Errorf("schedule summary job: %w", err)
	}

	return s, nil
}

// Start begins firing triggers.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("accounts", len(s.accounts)))
}

// Stop halts all triggers. The returned context is done once jobs that were
// already running have finished; callers decide how long to wait for it.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopping")
	return s.cron.Stop()
}

// NextRun reports when the named account's trigger will next fire. Zero
// when the account is unknown or the scheduler has not started.
func (s *Scheduler) NextRun(name string) time.Time {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// logSummary reports each account's next scheduled run. Observational only.
func (s *Scheduler) logSummary() {
	for _, account := range s.accounts {
		next := s.NextRun(account.Name)
		if next.IsZero() {
			continue
		}
		until := time.Until(next).Round(time.Second)
		s.logger.Info("next scheduled sync",
			zap.String("account", account.Name),
			zap.Time("at", next),
			zap.String("in", durafmt.Parse(until).LimitFirstN(2).String()))
	}
}
