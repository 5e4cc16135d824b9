package cmd

import (
	"fmt"
	"os"
	"time"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	ynabconnect "github.com/howeyc/ynab-connect"
	"github.com/howeyc/ynab-connect/connectors"
	"github.com/howeyc/ynab-connect/connectors/browser"
	"github.com/howeyc/ynab-connect/twofa"
	"github.com/howeyc/ynab-connect/ynab"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ynab-connect",
	Short: "Sync external account balances into YNAB",
	Long: `ynab-connect fetches balances from brokerages, pensions and loans that
have no native bank integration, then reconciles each into a YNAB account
with a single balance adjustment transaction per day.`,
}

// Execute runs the CLI.
func Execute() {
	cc.Init(&cc.Config{
		RootCmd:  rootCmd,
		Headings: cc.HiCyan + cc.Bold + cc.Underline,
		Commands: cc.HiYellow + cc.Bold,
		Example:  cc.Italic,
		ExecName: cc.Bold,
		Flags:    cc.Bold,
	})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to configuration file.")
}

// loadConfig reads the config file, prompting for the YNAB access token on
// a terminal when the file omits it.
func loadConfig() (*ynabconnect.Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := ynabconnect.DecodeConfig(data)
	if err != nil {
		return nil, err
	}

	// Token may be deliberately absent from the file; ask for it once.
	if cfg.YNAB.AccessToken == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "YNAB access token: ")
		token, terr := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if terr != nil {
			return nil, fmt.Errorf("read access token: %w", terr)
		}
		cfg.YNAB.AccessToken = string(token)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildRuntime wires the providers and reconciler for the loaded config.
func buildRuntime(cfg *ynabconnect.Config, relay *twofa.Relay, logger *zap.Logger, opts ...ynabconnect.RuntimeOption) (*ynabconnect.Runtime, *ynab.Client) {
	client := ynab.NewClient(cfg.YNAB.AccessToken, cfg.YNAB.BudgetID)
	reconciler := ynab.NewReconciler(client, logger)
	providers := connectors.All(connectors.Deps{
		Browser: browser.Chrome(cfg.Browser.Endpoint),
		Relay:   relay,
		Logger:  logger,
	})
	if cfg.Retry.Attempts > 0 {
		opts = append(opts, ynabconnect.WithFetchAttempts(cfg.Retry.Attempts))
	}
	if cfg.Retry.MinBackoff != "" {
		// Validated at config load.
		if d, err := time.ParseDuration(cfg.Retry.MinBackoff); err == nil {
			opts = append(opts, ynabconnect.WithMinBackoff(d))
		}
	}
	return ynabconnect.NewRuntime(providers, reconciler, logger, opts...), client
}
