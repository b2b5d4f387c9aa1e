// Package models defines the gorm entities of the expense tracker.
package models

import (
	"time"

	"spendwise/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MoneyScale is the number of fractional digits stored for amounts,
// matching the numeric(12,2) columns.
const MoneyScale = 2

// Money rounds an amount half away from zero to the stored scale.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Base contains common columns for all tables. IDs are UUIDv7 strings,
// assigned on insert when the caller left them blank.
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// All lists every persisted model in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&WalletFunding{},
		&Category{},
		&Expense{},
		&Budget{},
		&AuditLog{},
	}
}
