package models

import "github.com/shopspring/decimal"

// User owns expenses, budgets and a wallet. WalletBalance is written only by
// the ledger.
type User struct {
	Base
	Name          string          `gorm:"not null" json:"name"`
	Email         string          `gorm:"uniqueIndex;not null" json:"email"`
	Password      string          `gorm:"not null" json:"-"`
	WalletBalance decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"wallet_balance"`
}

// WalletFunding records money added to a user's wallet. Together with the
// live expenses it explains the current wallet balance.
type WalletFunding struct {
	Base
	UserID string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Note   string          `json:"note"`
}
