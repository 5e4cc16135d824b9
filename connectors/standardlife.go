package connectors

import (
	"context"
	"time"

	ynabconnect "github.com/howeyc/ynab-connect"
	"github.com/howeyc/ynab-connect/connectors/browser"
	"github.com/howeyc/ynab-connect/twofa"
	"go.uber.org/zap"
)

const (
	standardLifeAuthURL      = "https://online.standardlife.com/secure/customer-authentication-client/customer/login"
	standardLifeDashboardURL = "https://platform.secure.standardlife.co.uk/secure/customer-platform/dashboard"
	standardLifePolicyURL    = "https://platform.secure.standardlife.co.uk/secure/customer-platform/pension/details?policy="

	// Pattern name in the 2FA relay for Standard Life verification texts.
	standardLifePattern = "standard-life-uk"
	codeWait            = 15 * time.Second
)

// StandardLifePension scrapes a pension plan value from the Standard Life
// customer platform. Login usually triggers a texted one-time code, which
// arrives through the 2FA relay; a trusted device may skip straight to the
// dashboard.
type StandardLifePension struct {
	launch browser.Launcher
	relay  *twofa.Relay
	logger *zap.Logger

	// CodeWait is how long login waits for a texted code before checking
	// whether the session skipped 2FA.
	CodeWait time.Duration
}

// NewStandardLifePension builds the Standard Life provider.
func NewStandardLifePension(launch browser.Launcher, relay *twofa.Relay, logger *zap.Logger) *StandardLifePension {
	return &StandardLifePension{
		launch:   launch,
		relay:    relay,
		logger:   logger.Named("standard-life"),
		CodeWait: codeWait,
	}
}

func (s *StandardLifePension) Kind() ynabconnect.ProviderKind {
	return ynabconnect.KindStandardLifePension
}

func (s *StandardLifePension) GetBalance(ctx context.Context, account ynabconnect.Account) (*ynabconnect.Observation, error) {
	b, err := s.launch(ctx)
	if err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable, "launch browser: %v", err)
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable, "open page: %v", err)
	}
	defer page.Close()

	if err := page.Goto(standardLifeAuthURL); err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not reach Standard Life login page")
	}
	if err := page.Type("#userid", account.Username); err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not enter Standard Life credentials")
	}
	if err := page.Type("#password", account.Password); err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not enter Standard Life credentials")
	}
	if err := page.Click("#submit"); err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not submit Standard Life login")
	}

	code, err := s.relay.Await(standardLifePattern, s.CodeWait, 0)
	if err != nil {
		s.logger.Debug("no 2FA code received", zap.Error(err))
		// Trusted devices land on the dashboard without a code.
		current, uerr := page.URL()
		if uerr != nil || current != standardLifeDashboardURL {
			return nil, ynabconnect.Errorf(ynabconnect.ErrCodeTimeout,
				"2FA code required but not received in time")
		}
	} else {
		if err := page.Type("#OTPcode", code); err != nil {
			return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
				"could not enter 2FA code")
		}
		if err := page.Click("#trustDevice"); err != nil {
			return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
				"could not enter 2FA code")
		}
		if err := page.Click("#verifyCode"); err != nil {
			return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
				"could not verify 2FA code")
		}
	}

	if err := page.Goto(standardLifePolicyURL + account.PolicyNumber); err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not reach Standard Life policy page")
	}
	value, err := page.Text(".we_hud-plan-value-amount")
	if err != nil || value == "" {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"could not find plan value element on Standard Life policy page")
	}

	return &ynabconnect.Observation{Balance: ParseBalanceString(value)}, nil
}
