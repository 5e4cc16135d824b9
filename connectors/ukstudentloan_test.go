package connectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ynabconnect "github.com/howeyc/ynab-connect"
	"github.com/howeyc/ynab-connect/connectors/browser"
)

func slcAccount() ynabconnect.Account {
	return ynabconnect.Account{
		Name:         "student-loan",
		Kind:         ynabconnect.KindUKStudentLoan,
		Email:        "user@example.com",
		Password:     "hunter2",
		SecretAnswer: "first pet",
	}
}

func TestUKStudentLoanGetBalance(t *testing.T) {
	mock := &browser.Mock{
		SelectorText: map[string]string{"#balanceId_1": "£20,210.40"},
	}
	provider := NewUKStudentLoan(mock.Launcher())

	obs, err := provider.GetBalance(context.Background(), slcAccount())
	require.NoError(t, err)
	assert.Equal(t, "-20210.4", obs.Balance.String(), "loans sync as debt")
	assert.True(t, mock.Closed())

	var typed []browser.Interaction
	for _, i := range mock.Interactions {
		if i.Type == "type" {
			typed = append(typed, i)
		}
	}
	require.Len(t, typed, 3)
	assert.Equal(t, "user@example.com", typed[0].Value)
	assert.Equal(t, "hunter2", typed[1].Value)
	assert.Equal(t, "first pet", typed[2].Value)
}

func TestUKStudentLoanLoginFailureIsRetryable(t *testing.T) {
	mock := &browser.Mock{
		SelectorErrs: map[string]error{"input#password": assert.AnError},
	}
	provider := NewUKStudentLoan(mock.Launcher())

	_, err := provider.GetBalance(context.Background(), slcAccount())
	require.Error(t, err)
	var perr *ynabconnect.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ynabconnect.ErrCodeUnavailable, perr.Code)
	assert.True(t, ynabconnect.Retryable(err))
}

func TestUKStudentLoanMissingBalanceIsPermanent(t *testing.T) {
	// Login completes but the balance element never appears. The page
	// layout changed, so retrying in a loop achieves nothing.
	mock := &browser.Mock{}
	provider := NewUKStudentLoan(mock.Launcher())

	_, err := provider.GetBalance(context.Background(), slcAccount())
	require.Error(t, err)
	var perr *ynabconnect.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ynabconnect.ErrCodeNotFound, perr.Code)
	assert.False(t, ynabconnect.Retryable(err))
}
