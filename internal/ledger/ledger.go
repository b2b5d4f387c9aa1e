// Package ledger owns every mutation of a user's wallet balance. Balance
// changes only happen on a user row that was locked inside the caller's
// transaction, and only through Debit, Credit, Adjust or Transfer.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLockWait bounds how long a use case waits for the per-user lock.
const DefaultLockWait = 5 * time.Second

// Users holds the locked user rows of one use case, keyed by id.
type Users map[string]*models.User

// Ledger serialises wallet writes per user and applies balance mutations.
type Ledger struct {
	locker   Locker
	lockWait time.Duration
}

// New creates a Ledger that serialises use cases through locker.
func New(locker Locker, lockWait time.Duration) *Ledger {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &Ledger{locker: locker, lockWait: lockWait}
}

// Run executes fn as one wallet use case: it takes the per-user locks for
// userIDs, opens a transaction, locks each user row and hands the rows to fn.
// Any error from fn rolls back every write made through tx.
func (l *Ledger) Run(ctx context.Context, db *gorm.DB, userIDs []string, fn func(tx *gorm.DB, users Users) error) error {
	ids := normalizeKeys(userIDs)

	lockCtx, cancel := context.WithTimeout(ctx, l.lockWait)
	release, err := l.locker.Acquire(lockCtx, ids...)
	cancel()
	if err != nil {
		return err
	}
	defer release()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := make(Users, len(ids))
		for _, id := range ids {
			user, err := l.LockUser(tx, id)
			if err != nil {
				return err
			}
			users[id] = user
		}
		return fn(tx, users)
	})
}

// LockUser loads a user row with SELECT ... FOR UPDATE. SQLite ignores the
// locking clause; the Locker still serialises writers there.
func (l *Ledger) LockUser(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// Debit subtracts amount from the wallet, failing with InsufficientFunds
// when the balance cannot cover it.
func (l *Ledger) Debit(tx *gorm.DB, user *models.User, amount decimal.Decimal) error {
	if amount.GreaterThan(user.WalletBalance) {
		return insufficient(user.WalletBalance, amount)
	}
	return l.write(tx, user, user.WalletBalance.Sub(amount))
}

// Credit adds amount to the wallet.
func (l *Ledger) Credit(tx *gorm.DB, user *models.User, amount decimal.Decimal) error {
	return l.write(tx, user, user.WalletBalance.Add(amount))
}

// Adjust applies a signed change where a positive delta is further spend.
// Only positive deltas are checked against the balance.
func (l *Ledger) Adjust(tx *gorm.DB, user *models.User, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	if delta.IsPositive() {
		return l.Debit(tx, user, delta)
	}
	return l.Credit(tx, user, delta.Neg())
}

// Transfer moves an expense between owners: from gets refund back, to is
// debited. Nothing is written when the debit would fail.
func (l *Ledger) Transfer(tx *gorm.DB, from, to *models.User, refund, debit decimal.Decimal) error {
	if from.ID == to.ID {
		return l.Adjust(tx, from, debit.Sub(refund))
	}
	if debit.GreaterThan(to.WalletBalance) {
		return insufficient(to.WalletBalance, debit)
	}
	if err := l.Credit(tx, from, refund); err != nil {
		return err
	}
	return l.Debit(tx, to, debit)
}

// Reconciliation explains a wallet balance in terms of funding events and
// live expenses.
type Reconciliation struct {
	Balance    decimal.Decimal `json:"balance"`
	Funded     decimal.Decimal `json:"funded"`
	Spent      decimal.Decimal `json:"spent"`
	Expected   decimal.Decimal `json:"expected"`
	Consistent bool            `json:"consistent"`
}

// Reconcile recomputes the expected balance of a user from funding events
// minus live expenses and compares it with the stored balance.
func (l *Ledger) Reconcile(tx *gorm.DB, userID string) (*Reconciliation, error) {
	var user models.User
	if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var fundings []decimal.Decimal
	if err := tx.Model(&models.WalletFunding{}).Where("user_id = ?", userID).Pluck("amount", &fundings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	var expenses []decimal.Decimal
	if err := tx.Model(&models.Expense{}).Where("user_id = ?", userID).Pluck("amount", &expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rec := &Reconciliation{
		Balance: user.WalletBalance,
		Funded:  decimal.Sum(decimal.Zero, fundings...),
		Spent:   decimal.Sum(decimal.Zero, expenses...),
	}
	rec.Expected = rec.Funded.Sub(rec.Spent)
	rec.Consistent = rec.Expected.Equal(rec.Balance)
	return rec, nil
}

func (l *Ledger) write(tx *gorm.DB, user *models.User, balance decimal.Decimal) error {
	err := tx.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("wallet_balance", balance).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("update wallet of %s: %w", user.ID, err))
	}
	user.WalletBalance = balance
	return nil
}

func insufficient(balance, amount decimal.Decimal) *apperrors.AppError {
	return apperrors.WithDetails(apperrors.ErrInsufficientFunds,
		fmt.Sprintf("Insufficient wallet balance: available %s, required %s", balance.StringFixed(2), amount.StringFixed(2)),
		map[string]any{
			"wallet_balance": balance.StringFixed(2),
			"required":       amount.StringFixed(2),
		})
}
