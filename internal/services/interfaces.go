package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/ledger"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/prediction"
	"spendwise/internal/report"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(name, email, password string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	ListUsers(page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	UpdateUser(id, name, email, password string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	FundWallet(ctx context.Context, userID string, amount decimal.Decimal, note string) (*Wallet, error)
	GetWallet(ctx context.Context, userID string) (*Wallet, error)
}

// Wallet is the balance of a user together with the figures that explain it.
type Wallet struct {
	UserID string `json:"user_id"`
	ledger.Reconciliation
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(name, description string) (*models.Category, error)
	GetCategoryByID(id string) (*models.Category, error)
	ListCategories(page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	UpdateCategory(id, name, description string) (*models.Category, error)
	DeleteCategory(id string) error
}

// ExpenseInput carries the caller-supplied fields of an expense.
type ExpenseInput struct {
	UserID      string
	CategoryID  string
	Amount      decimal.Decimal
	ExpenseDate time.Time
	Note        string
}

// ExpenseServicer defines the contract for expense-related business logic.
// It is the only writer of expenses; every write moves the owner's wallet in
// the same transaction.
type ExpenseServicer interface {
	CreateExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error)
	UpdateExpense(ctx context.Context, id string, in ExpenseInput) (*models.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	GetExpenseByID(id string) (*models.Expense, error)
	ListUserExpenses(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
	ListExpensesByCategoryName(name string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
	ListAllExpenses(page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
}

// BudgetInput carries the caller-supplied fields of a budget.
type BudgetInput struct {
	UserID     string
	CategoryID string
	Amount     decimal.Decimal
	StartDate  time.Time
	EndDate    time.Time
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, in BudgetInput) (*models.Budget, error)
	UpdateBudget(ctx context.Context, id string, in BudgetInput) (*models.Budget, error)
	DeleteBudget(ctx context.Context, id string) error
	GetBudgetByID(id string) (*models.Budget, error)
	ListUserBudgets(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	ListAllBudgets(page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
}

// ReportServicer defines the contract for spending reports.
type ReportServicer interface {
	GenerateReport(ctx context.Context, userID string, start, end time.Time, categoryIDs []string) (*report.Report, error)
}

// Predictor is the outbound prediction service client.
type Predictor interface {
	Predict(ctx context.Context, userID, connString string) (*prediction.Prediction, error)
}

// PredictionServicer defines the contract for spending forecasts.
type PredictionServicer interface {
	PredictNextMonth(ctx context.Context, userID string) (*prediction.Prediction, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
