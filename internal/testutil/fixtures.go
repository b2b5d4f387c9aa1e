package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"spendwise/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Money parses a decimal literal, failing the test on malformed input.
func Money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid money literal %q: %v", s, err)
	}
	return d
}

// Date parses a YYYY-MM-DD date, failing the test on malformed input.
func Date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatalf("invalid date literal %q: %v", s, err)
	}
	return d
}

// CreateTestUser creates a user with an empty wallet and a unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithBalance(t, db, "0")
}

// CreateTestUserWithBalance creates a user whose wallet holds balance. A
// matching funding event is recorded so the wallet reconciles.
func CreateTestUserWithBalance(t *testing.T, db *gorm.DB, balance string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	n := nextID()
	user := &models.User{
		Name:          fmt.Sprintf("Test User %d", n),
		Email:         fmt.Sprintf("user%d@test.com", n),
		Password:      string(hash),
		WalletBalance: Money(t, balance),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	if user.WalletBalance.IsPositive() {
		funding := &models.WalletFunding{UserID: user.ID, Amount: user.WalletBalance, Note: "initial"}
		if err := db.Create(funding).Error; err != nil {
			t.Fatalf("failed to create test funding: %v", err)
		}
	}
	return user
}

// CreateTestCategory creates a category with a unique name.
func CreateTestCategory(t *testing.T, db *gorm.DB) *models.Category {
	t.Helper()
	return CreateTestCategoryNamed(t, db, fmt.Sprintf("Test Category %d", nextID()))
}

// CreateTestCategoryNamed creates a category with the given name.
func CreateTestCategoryNamed(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()

	category := &models.Category{Name: name}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestExpense inserts an expense row directly, without touching the
// wallet. Use it for read paths only.
func CreateTestExpense(t *testing.T, db *gorm.DB, userID, categoryID, amount, date string) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		UserID:      userID,
		CategoryID:  categoryID,
		Amount:      Money(t, amount),
		ExpenseDate: Date(t, date),
		Note:        fmt.Sprintf("expense %d", nextID()),
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}

// CreateTestBudget inserts a budget row directly.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, categoryID, amount, start, end string) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Amount:     Money(t, amount),
		StartDate:  Date(t, start),
		EndDate:    Date(t, end),
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// WalletBalance re-reads the stored balance of a user.
func WalletBalance(t *testing.T, db *gorm.DB, userID string) decimal.Decimal {
	t.Helper()

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		t.Fatalf("failed to reload user %s: %v", userID, err)
	}
	return user.WalletBalance
}
