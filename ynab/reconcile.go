package ynab

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// AdjustmentMemo identifies the one adjustment transaction per account
	// per day. Changing it orphans previously created adjustments.
	AdjustmentMemo = "Automated balance adjustment created by ynab-connect"
	// AdjustmentPayee is the payee on created adjustments.
	AdjustmentPayee = "Balance Adjustment"

	clearedReconciled = "reconciled"
)

// Ledger is the subset of the YNAB API the reconciler uses. *Client
// implements it; tests substitute an in-memory fake.
type Ledger interface {
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	TransactionsByAccount(ctx context.Context, accountID string, since time.Time) ([]Transaction, error)
	CreateTransaction(ctx context.Context, tx NewTransaction) error
	UpdateTransactionAmount(ctx context.Context, transactionID string, amount int64) error
}

// Reconciler makes an account's cleared balance match an observed balance
// using at most one adjustment transaction per calendar day. Safe to run
// repeatedly: a same-day rerun amends the existing adjustment instead of
// stacking a second one.
type Reconciler struct {
	ledger Ledger
	logger *zap.Logger
}

// NewReconciler builds a reconciler over the given ledger.
func NewReconciler(ledger Ledger, logger *zap.Logger) *Reconciler {
	return &Reconciler{ledger: ledger, logger: logger.Named("reconcile")}
}

// AdjustBalance brings accountID's cleared balance to balance (major units)
// as of date. A zero date means today. No ledger write happens when the
// balances already match or when the current balance cannot be read.
func (r *Reconciler) AdjustBalance(ctx context.Context, accountID string, balance decimal.Decimal, date time.Time) error {
	if date.IsZero() {
		date = time.Now()
	}
	day := date.Format(dateFormat)

	// YNAB amounts are milliunits.
	target := balance.Shift(3).Round(0).IntPart()

	account, err := r.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("fetch account balance for account %s: %w", accountID, err)
	}

	delta := target - account.ClearedBalance
	if delta == 0 {
		r.logger.Info("no adjustment needed, balance already matches",
			zap.String("account_id", accountID),
			zap.Int64("balance", target))
		return nil
	}

	existing, err := r.ledger.TransactionsByAccount(ctx, accountID, date)
	if err != nil {
		return fmt.Errorf("list transactions for account %s: %w", accountID, err)
	}
	for _, tx := range existing {
		if tx.Memo != AdjustmentMemo || tx.Date != day {
			continue
		}
		// Fold today's delta into the existing adjustment so reruns
		// converge on the observed balance instead of double-counting.
		if err := r.ledger.UpdateTransactionAmount(ctx, tx.ID, tx.Amount+delta); err != nil {
			return fmt.Errorf("update adjustment transaction %s: %w", tx.ID, err)
		}
		r.logger.Info("updated existing adjustment transaction",
			zap.String("account_id", accountID),
			zap.String("transaction_id", tx.ID),
			zap.Int64("delta", delta),
			zap.Int64("amount", tx.Amount+delta))
		return nil
	}

	if err := r.ledger.CreateTransaction(ctx, NewTransaction{
		AccountID: accountID,
		Date:      day,
		Amount:    delta,
		PayeeName: AdjustmentPayee,
		Memo:      AdjustmentMemo,
		Cleared:   clearedReconciled,
		Approved:  true,
	}); err != nil {
		return fmt.Errorf("create adjustment transaction for account %s: %w", accountID, err)
	}
	r.logger.Info("created adjustment transaction",
		zap.String("account_id", accountID),
		zap.String("date", day),
		zap.Int64("delta", delta))
	return nil
}
