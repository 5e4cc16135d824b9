package connectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ynabconnect "github.com/howeyc/ynab-connect"
)

func igAccount() ynabconnect.Account {
	return ynabconnect.Account{
		Name:        "spread-bet",
		Kind:        ynabconnect.KindIGTrading,
		IGUsername:  "trader",
		IGPassword:  "hunter2",
		IGAPIKey:    "api-key",
		IGAccountID: "ABC123",
	}
}

func newIGServer(t *testing.T, accounts []map[string]interface{}) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "api-key", r.Header.Get("X-IG-API-KEY"))
		var creds map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "trader", creds["identifier"])
		assert.Equal(t, "hunter2", creds["password"])
		w.Header().Set("CST", "cst-token")
		w.Header().Set("X-SECURITY-TOKEN", "sec-token")
	})
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cst-token", r.Header.Get("CST"))
		assert.Equal(t, "sec-token", r.Header.Get("X-SECURITY-TOKEN"))
		json.NewEncoder(w).Encode(map[string]interface{}{"accounts": accounts})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestIGTradingGetBalance(t *testing.T) {
	srv := newIGServer(t, []map[string]interface{}{
		{"accountId": "XYZ789", "balance": map[string]interface{}{"balance": 10}},
		{"accountId": "ABC123", "balance": map[string]interface{}{"balance": 12345.67}},
	})

	provider := NewIGTrading(srv.Client())
	provider.BaseURL = srv.URL

	obs, err := provider.GetBalance(context.Background(), igAccount())
	require.NoError(t, err)
	assert.Equal(t, "12345.67", obs.Balance.String())
}

func TestIGTradingAccountNotFound(t *testing.T) {
	srv := newIGServer(t, []map[string]interface{}{
		{"accountId": "XYZ789", "balance": map[string]interface{}{"balance": 10}},
	})

	provider := NewIGTrading(srv.Client())
	provider.BaseURL = srv.URL

	_, err := provider.GetBalance(context.Background(), igAccount())
	require.Error(t, err)
	var perr *ynabconnect.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ynabconnect.ErrCodeNotFound, perr.Code)
	assert.Contains(t, perr.Message, "XYZ789")
	assert.False(t, ynabconnect.Retryable(err))
}

func TestIGTradingLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	provider := NewIGTrading(srv.Client())
	provider.BaseURL = srv.URL

	_, err := provider.GetBalance(context.Background(), igAccount())
	require.Error(t, err)
	var perr *ynabconnect.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ynabconnect.ErrCodeUnauthorized, perr.Code)
	assert.False(t, ynabconnect.Retryable(err))
}

func TestClassifyIGStatus(t *testing.T) {
	tests := []struct {
		status   int
		wantCode ynabconnect.ErrorCode
	}{
		{http.StatusUnauthorized, ynabconnect.ErrCodeUnauthorized},
		{http.StatusForbidden, ynabconnect.ErrCodeForbidden},
		{http.StatusTooManyRequests, ynabconnect.ErrCodeRateLimited},
		{http.StatusBadGateway, ynabconnect.ErrCodeUnavailable},
	}
	for _, tt := range tests {
		err := classifyIGStatus(tt.status)
		require.Error(t, err)
		var perr *ynabconnect.ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, tt.wantCode, perr.Code)
	}
	assert.NoError(t, classifyIGStatus(http.StatusOK))
}
