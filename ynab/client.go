// Package ynab talks to the YNAB v1 REST API and reconciles account
// balances against externally observed ones.
package ynab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.ynab.com/v1"

const dateFormat = "2006-01-02"

// Account is the slice of a YNAB account the reconciler needs. Balances are
// milliunit integers.
type Account struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ClearedBalance int64  `json:"cleared_balance"`
}

// Transaction is a YNAB transaction. Date is a day-granularity ISO date.
type Transaction struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Date      string `json:"date"`
	Amount    int64  `json:"amount"`
	Memo      string `json:"memo"`
	PayeeName string `json:"payee_name"`
	Cleared   string `json:"cleared"`
	Approved  bool   `json:"approved"`
}

// NewTransaction is the payload for creating a transaction.
type NewTransaction struct {
	AccountID string `json:"account_id"`
	Date      string `json:"date"`
	Amount    int64  `json:"amount"`
	PayeeName string `json:"payee_name"`
	Memo      string `json:"memo"`
	Cleared   string `json:"cleared"`
	Approved  bool   `json:"approved"`
}

// Client is a minimal YNAB API client scoped to one budget. Requests are
// throttled below YNAB's published 200-requests-per-hour limit.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	token      string
	budgetID   string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root. Used in tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a client for one budget.
func NewClient(token, budgetID string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(18*time.Second), 10),
		baseURL:    defaultBaseURL,
		token:      token,
		budgetID:   budgetID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("ynab: rate limit wait: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ynab: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("ynab: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ynab: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ynab: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("ynab: decode response: %w", err)
		}
	}
	return nil
}

// GetBudget verifies the configured budget is reachable.
func (c *Client) GetBudget(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/budgets/"+c.budgetID, nil, nil)
}

// GetAccount fetches one account, including its cleared balance.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var out struct {
		Data struct {
			Account Account `json:"account"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/budgets/%s/accounts/%s", c.budgetID, accountID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data.Account, nil
}

// TransactionsByAccount lists the account's transactions dated on or after
// since.
func (c *Client) TransactionsByAccount(ctx context.Context, accountID string, since time.Time) ([]Transaction, error) {
	var out struct {
		Data struct {
			Transactions []Transaction `json:"transactions"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/budgets/%s/accounts/%s/transactions?since_date=%s",
		c.budgetID, accountID, since.Format(dateFormat))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data.Transactions, nil
}

// CreateTransaction creates a transaction in the budget.
func (c *Client) CreateTransaction(ctx context.Context, tx NewTransaction) error {
	body := struct {
		Transaction NewTransaction `json:"transaction"`
	}{Transaction: tx}
	return c.do(ctx, http.MethodPost, "/budgets/"+c.budgetID+"/transactions", body, nil)
}

// UpdateTransactionAmount replaces a transaction's amount.
func (c *Client) UpdateTransactionAmount(ctx context.Context, transactionID string, amount int64) error {
	body := struct {
		Transaction struct {
			Amount int64 `json:"amount"`
		} `json:"transaction"`
	}{}
	body.Transaction.Amount = amount
	return c.do(ctx, http.MethodPut, "/budgets/"+c.budgetID+"/transactions/"+transactionID, body, nil)
}
