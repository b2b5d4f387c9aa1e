package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a planned spending ceiling for a category over an inclusive
// date range. It never reserves wallet money.
type Budget struct {
	Base
	UserID     string          `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID string          `gorm:"type:uuid;not null;index" json:"category_id"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	StartDate  time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate    time.Time       `gorm:"type:date;not null" json:"end_date"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
