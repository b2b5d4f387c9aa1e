package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a recorded spend debited from the owner's wallet.
type Expense struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID  string          `gorm:"type:uuid;not null;index" json:"category_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	ExpenseDate time.Time       `gorm:"type:date;not null;index" json:"expense_date"`
	Note        string          `json:"note"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
