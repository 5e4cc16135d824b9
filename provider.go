package ynabconnect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ProviderKind selects which balance provider serves an account.
type ProviderKind string

const (
	KindTrading212          ProviderKind = "trading212"
	KindIGTrading           ProviderKind = "ig_trading"
	KindUKStudentLoan       ProviderKind = "uk_student_loan"
	KindStandardLifePension ProviderKind = "standard_life_pension"
)

// Observation is a successful balance read from a provider. Balance is in
// major currency units. Some providers also surface recent transactions.
type Observation struct {
	Balance      decimal.Decimal
	Transactions []ProviderTransaction
}

// ProviderTransaction is a transaction as reported by a provider.
type ProviderTransaction struct {
	Date   time.Time
	Payee  string
	Amount decimal.Decimal
}

// Provider retrieves the current balance of an external account.
// Implementations classify their failures by returning a *ProviderError;
// any other error is treated as transient.
type Provider interface {
	Kind() ProviderKind
	GetBalance(ctx context.Context, account Account) (*Observation, error)
}

// ErrorCode classifies a provider failure. Retryability follows from the
// code, never from matching on message text.
type ErrorCode string

const (
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	ErrCodeForbidden    ErrorCode = "forbidden"
	ErrCodeRateLimited  ErrorCode = "rate_limited"
	ErrCodeNotFound     ErrorCode = "not_found"
	ErrCodeUnavailable  ErrorCode = "unavailable"
	ErrCodeTimeout      ErrorCode = "timeout"
)

// ProviderError is a classified provider failure.
type ProviderError struct {
	Code    ErrorCode
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether another attempt could plausibly succeed.
// Auth and quota failures are permanent until a human intervenes.
func (e *ProviderError) Retryable() bool {
	switch e.Code {
	case ErrCodeUnauthorized, ErrCodeForbidden, ErrCodeRateLimited, ErrCodeNotFound:
		return false
	}
	return true
}

// Errorf builds a classified provider error.
func Errorf(code ErrorCode, format string, args ...interface{}) *ProviderError {
	return &ProviderError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Retryable reports whether err warrants another fetch attempt. Errors that
// carry no classification are assumed transient.
func Retryable(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable()
	}
	return true
}
