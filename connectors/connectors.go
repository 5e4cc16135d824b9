// Package connectors implements the balance providers: REST connectors for
// Trading212 and IG, and browser scrapers for accounts without an API.
package connectors

import (
	"net/http"
	"time"

	ynabconnect "github.com/howeyc/ynab-connect"
	"github.com/howeyc/ynab-connect/connectors/browser"
	"github.com/howeyc/ynab-connect/twofa"
	"go.uber.org/zap"
)

// Deps carries what the providers need. HTTPClient and Logger default when
// nil; Browser and Relay are required by the scraping providers only.
type Deps struct {
	HTTPClient *http.Client
	Browser    browser.Launcher
	Relay      *twofa.Relay
	Logger     *zap.Logger
}

// All returns every provider, keyed by the kind it serves.
func All(deps Deps) map[ynabconnect.ProviderKind]ynabconnect.Provider {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return map[ynabconnect.ProviderKind]ynabconnect.Provider{
		ynabconnect.KindTrading212:          NewTrading212(deps.HTTPClient),
		ynabconnect.KindIGTrading:           NewIGTrading(deps.HTTPClient),
		ynabconnect.KindUKStudentLoan:       NewUKStudentLoan(deps.Browser),
		ynabconnect.KindStandardLifePension: NewStandardLifePension(deps.Browser, deps.Relay, deps.Logger),
	}
}
