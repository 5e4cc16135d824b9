package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/howeyc/ynab-connect/logging"
	"github.com/howeyc/ynab-connect/twofa"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync <account-name>",
	Args:  cobra.ExactArgs(1),
	Short: "Run one sync job for a configured account and exit",
	Run: func(_ *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			log.Fatalln(err)
		}
		account, ok := cfg.FindAccount(args[0])
		if !ok {
			log.Fatalf("no account named %q in %s", args[0], configPath)
		}

		logger := logging.New(account.Name)
		defer logger.Sync()

		// The relay runs even for a one-shot sync: browser providers may
		// need a code mid-login.
		relay := twofa.NewRelay(logger)
		if err := relay.Start(cfg.Server.Port); err != nil {
			log.Fatalln(err)
		}
		defer relay.Stop()

		runtime, _ := buildRuntime(cfg, relay, logger)
		runtime.RunSyncJob(context.Background(), account)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
