package connectors

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	ynabconnect "github.com/howeyc/ynab-connect"
	"github.com/shopspring/decimal"
)

const trading212BaseURL = "https://live.trading212.com"

// Trading212 reads the free cash balance from the Trading212 equity API.
type Trading212 struct {
	client *http.Client

	// BaseURL is overridable for tests.
	BaseURL string
}

// NewTrading212 builds the Trading212 provider.
func NewTrading212(client *http.Client) *Trading212 {
	return &Trading212{client: client, BaseURL: trading212BaseURL}
}

func (t *Trading212) Kind() ynabconnect.ProviderKind { return ynabconnect.KindTrading212 }

func (t *Trading212) GetBalance(ctx context.Context, account ynabconnect.Account) (*ynabconnect.Observation, error) {
	url := t.BaseURL + "/api/v0/equity/account/cash"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build Trading212 request: %w", err)
	}
	auth := account.Trading212APIKey + ":" + account.Trading212APISecret
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(auth)))

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable, "fetch Trading212 balance: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnauthorized,
			"check your Trading212 API key, secret and scopes")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeRateLimited,
			"too many requests to Trading212 API")
	case resp.StatusCode != http.StatusOK:
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"fetch Trading212 balance: status %d", resp.StatusCode)
	}

	var cash struct {
		Blocked  json.Number `json:"blocked"`
		Free     json.Number `json:"free"`
		Invested json.Number `json:"invested"`
		Total    json.Number `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cash); err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"decode Trading212 response: %v", err)
	}
	total, err := decimal.NewFromString(cash.Total.String())
	if err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"bad Trading212 total %q", cash.Total.String())
	}

	return &ynabconnect.Observation{Balance: total}, nil
}
