package ynabconnect

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml"
	"github.com/robfig/cron/v3"
)

// DefaultRelayPort is the port the 2FA capture webhook listens on when the
// config does not set one.
const DefaultRelayPort = 4030

var ErrNoAccounts = errors.New("at least one account must be configured")

// Account is one external account to keep in sync. Which credential fields
// are required depends on the provider kind.
type Account struct {
	Name          string       `toml:"name"`
	YNABAccountID string       `toml:"ynab_account_id"`
	Schedule      string       `toml:"schedule"`
	Kind          ProviderKind `toml:"provider"`

	// trading212
	Trading212APIKey    string `toml:"trading212_api_key"`
	Trading212APISecret string `toml:"trading212_api_secret"`

	// ig_trading
	IGUsername  string `toml:"ig_username"`
	IGPassword  string `toml:"ig_password"`
	IGAPIKey    string `toml:"ig_api_key"`
	IGAccountID string `toml:"ig_account_id"`

	// uk_student_loan
	Email        string `toml:"email"`
	SecretAnswer string `toml:"secret_answer"`

	// standard_life_pension
	Username     string `toml:"username"`
	PolicyNumber string `toml:"policy_number"`

	// shared by the browser-based providers
	Password string `toml:"password"`
}

// YNABConfig holds the ledger API credentials.
type YNABConfig struct {
	AccessToken string `toml:"access_token"`
	BudgetID    string `toml:"budget_id"`
}

// BrowserConfig points the scraping providers at a remote browser. When
// Endpoint is empty a local browser is launched instead.
type BrowserConfig struct {
	Endpoint string `toml:"endpoint"`
}

// ServerConfig configures the 2FA capture webhook.
type ServerConfig struct {
	Port int `toml:"port"`
}

// Config is the full process configuration, immutable once loaded.
type Config struct {
	YNAB     YNABConfig    `toml:"ynab"`
	Browser  BrowserConfig `toml:"browser"`
	Server   ServerConfig  `toml:"server"`
	Accounts []Account     `toml:"accounts"`
	Retry    RetryConfig   `toml:"retry"`
}

// RetryConfig tunes the balance fetch retry budget.
type RetryConfig struct {
	Attempts   int    `toml:"attempts"`
	MinBackoff string `toml:"min_backoff"`
}

// LoadConfig reads and validates a TOML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates TOML configuration data.
func ParseConfig(data []byte) (*Config, error) {
	cfg, err := DecodeConfig(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DecodeConfig parses TOML configuration data without validating it. The
// CLI uses this to fill in an interactively prompted access token before
// calling Validate.
func DecodeConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultRelayPort
	}
	if c.YNAB.AccessToken == "" {
		return errors.New("ynab access token is required")
	}
	if c.YNAB.BudgetID == "" {
		return errors.New("ynab budget id is required")
	}
	if len(c.Accounts) == 0 {
		return ErrNoAccounts
	}
	if c.Retry.MinBackoff != "" {
		if _, err := time.ParseDuration(c.Retry.MinBackoff); err != nil {
			return fmt.Errorf("invalid retry min_backoff %q: %w", c.Retry.MinBackoff, err)
		}
	}

	seen := make(map[string]bool)
	for i := range c.Accounts {
		a := &c.Accounts[i]
		if a.Name == "" {
			return fmt.Errorf("account %d: name is required", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("account %q: duplicate name", a.Name)
		}
		seen[a.Name] = true

		if err := uuid.Validate(a.YNABAccountID); err != nil {
			return fmt.Errorf("account %q: invalid ynab account id: %w", a.Name, err)
		}
		if _, err := cron.ParseStandard(a.Schedule); err != nil {
			return fmt.Errorf("account %q: invalid schedule %q: %w", a.Name, a.Schedule, err)
		}
		if err := a.validateCredentials(); err != nil {
			return fmt.Errorf("account %q: %w", a.Name, err)
		}
	}
	return nil
}

func (a *Account) validateCredentials() error {
	switch a.Kind {
	case KindTrading212:
		if a.Trading212APIKey == "" || a.Trading212APISecret == "" {
			return errors.New("trading212 api key and secret are required")
		}
	case KindIGTrading:
		if a.IGUsername == "" || a.IGPassword == "" || a.IGAPIKey == "" || a.IGAccountID == "" {
			return errors.New("ig username, password, api key and account id are required")
		}
	case KindUKStudentLoan:
		if a.Email == "" || a.Password == "" || a.SecretAnswer == "" {
			return errors.New("email, password and secret answer are required")
		}
	case KindStandardLifePension:
		if a.Username == "" || a.Password == "" || a.PolicyNumber == "" {
			return errors.New("username, password and policy number are required")
		}
	default:
		return fmt.Errorf("unknown provider kind %q", a.Kind)
	}
	return nil
}

// FindAccount returns the configured account with the given name.
func (c *Config) FindAccount(name string) (Account, bool) {
	for _, a := range c.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return Account{}, false
}
