package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	ynabconnect "github.com/howeyc/ynab-connect"
	"github.com/howeyc/ynab-connect/logging"
	"github.com/howeyc/ynab-connect/twofa"
)

// drainTimeout bounds how long shutdown waits for in-flight sync jobs
// before the relay is stopped out from under them.
const drainTimeout = 30 * time.Second

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scheduler and 2FA relay until terminated",
	Run: func(_ *cobra.Command, _ []string) {
		cfg, err := loadConfig()
		if err != nil {
			log.Fatalln(err)
		}

		logger := logging.New("")
		defer logger.Sync()

		relay := twofa.NewRelay(logger)
		runtime, client := buildRuntime(cfg, relay, logger)

		// A missing budget means every job would fail identically; the
		// only startup-fatal condition besides a bad config.
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err = client.GetBudget(ctx)
		cancel()
		if err != nil {
			logger.Fatal("YNAB budget unreachable", zap.Error(err))
		}

		if err := relay.Start(cfg.Server.Port); err != nil {
			logger.Fatal("failed to start 2FA relay", zap.Error(err))
		}

		scheduler, err := ynabconnect.NewScheduler(runtime, cfg.Accounts, logger)
		if err != nil {
			relay.Stop()
			logger.Fatal("failed to build scheduler", zap.Error(err))
		}
		scheduler.Start()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		s := <-sig
		logger.Info("received signal, shutting down", zap.String("signal", s.String()))

		// Best-effort drain: give running jobs a chance to finish before
		// the relay rejects their waiters.
		drained := scheduler.Stop()
		select {
		case <-drained.Done():
		case <-time.After(drainTimeout):
			logger.Warn("shutdown drain timed out, abandoning in-flight jobs")
		}
		relay.Stop()
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
