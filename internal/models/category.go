package models

// Category is a global spending label shared by expenses and budgets.
type Category struct {
	Base
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
}
