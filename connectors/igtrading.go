package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	ynabconnect "github.com/howeyc/ynab-connect"
	"github.com/shopspring/decimal"
)

const igBaseURL = "https://api.ig.com/gateway/deal"

// IGTrading reads an account balance from the IG REST API. Login creates a
// session whose CST and security tokens authenticate the accounts call.
type IGTrading struct {
	client *http.Client

	// BaseURL is overridable for tests.
	BaseURL string
}

// NewIGTrading builds the IG provider.
func NewIGTrading(client *http.Client) *IGTrading {
	return &IGTrading{client: client, BaseURL: igBaseURL}
}

func (g *IGTrading) Kind() ynabconnect.ProviderKind { return ynabconnect.KindIGTrading }

func (g *IGTrading) GetBalance(ctx context.Context, account ynabconnect.Account) (*ynabconnect.Observation, error) {
	cst, security, err := g.login(ctx, account)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"/accounts", nil)
	if err != nil {
		return nil, fmt.Errorf("build IG accounts request: %w", err)
	}
	g.setHeaders(req, account.IGAPIKey)
	req.Header.Set("CST", cst)
	req.Header.Set("X-SECURITY-TOKEN", security)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable, "fetch IG accounts: %v", err)
	}
	defer resp.Body.Close()
	if err := classifyIGStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var out struct {
		Accounts []struct {
			AccountID string `json:"accountId"`
			Balance   struct {
				Balance json.Number `json:"balance"`
			} `json:"balance"`
		} `json:"accounts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable, "decode IG response: %v", err)
	}

	var available []string
	for _, acc := range out.Accounts {
		if acc.AccountID == account.IGAccountID {
			balance, derr := decimal.NewFromString(acc.Balance.Balance.String())
			if derr != nil {
				return nil, ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
					"bad IG balance %q", acc.Balance.Balance.String())
			}
			return &ynabconnect.Observation{Balance: balance}, nil
		}
		available = append(available, acc.AccountID)
	}
	return nil, ynabconnect.Errorf(ynabconnect.ErrCodeNotFound,
		"account with ID %s not found, available accounts: %s",
		account.IGAccountID, joinOrNone(available))
}

func (g *IGTrading) login(ctx context.Context, account ynabconnect.Account) (cst, security string, err error) {
	payload, err := json.Marshal(map[string]string{
		"identifier": account.IGUsername,
		"password":   account.IGPassword,
	})
	if err != nil {
		return "", "", fmt.Errorf("encode IG session request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/session", bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("build IG session request: %w", err)
	}
	g.setHeaders(req, account.IGAPIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", "", ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable, "create IG session: %v", err)
	}
	defer resp.Body.Close()
	if err := classifyIGStatus(resp.StatusCode); err != nil {
		return "", "", err
	}
	return resp.Header.Get("CST"), resp.Header.Get("X-SECURITY-TOKEN"), nil
}

func (g *IGTrading) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-IG-API-KEY", apiKey)
	req.Header.Set("Version", "1")
}

func classifyIGStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ynabconnect.Errorf(ynabconnect.ErrCodeUnauthorized,
			"check your IG credentials and API key")
	case status == http.StatusForbidden:
		return ynabconnect.Errorf(ynabconnect.ErrCodeForbidden,
			"check your IG API key permissions")
	case status == http.StatusTooManyRequests:
		return ynabconnect.Errorf(ynabconnect.ErrCodeRateLimited,
			"too many requests to IG API")
	case status < 200 || status > 299:
		return ynabconnect.Errorf(ynabconnect.ErrCodeUnavailable,
			"IG API returned status %d", status)
	}
	return nil
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
