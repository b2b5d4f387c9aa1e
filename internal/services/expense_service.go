package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/ledger"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/uuid"
)

const expenseOrder = "expenses.expense_date DESC, expenses.created_at DESC"

// expenseService handles expense-related business logic.
type expenseService struct {
	db     *gorm.DB
	ledger *ledger.Ledger
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB, l *ledger.Ledger) ExpenseServicer {
	return &expenseService{db: db, ledger: l}
}

func validateExpenseInput(in ExpenseInput) error {
	if !models.Money(in.Amount).IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if in.ExpenseDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "expense date is required")
	}
	if !uuid.IsValid(in.UserID) {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// CreateExpense records a new expense and debits the owner's wallet. A
// failed debit writes nothing.
func (s *expenseService) CreateExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	if err := validateExpenseInput(in); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		UserID:      in.UserID,
		CategoryID:  in.CategoryID,
		Amount:      models.Money(in.Amount),
		ExpenseDate: models.DateOnly(in.ExpenseDate),
		Note:        in.Note,
	}

	err := s.ledger.Run(ctx, s.db, []string{in.UserID}, func(tx *gorm.DB, users ledger.Users) error {
		if err := requireCategory(tx, in.CategoryID); err != nil {
			return err
		}
		if err := s.ledger.Debit(tx, users[in.UserID], expense.Amount); err != nil {
			return err
		}
		if err := tx.Create(expense).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetExpenseByID(expense.ID)
}

// UpdateExpense replaces every field of an expense. The wallet of the same
// owner moves by the difference; on an owner change the old owner is refunded
// the old amount and the new owner debited the new amount.
func (s *expenseService) UpdateExpense(ctx context.Context, id string, in ExpenseInput) (*models.Expense, error) {
	amount := models.Money(in.Amount)

	err := runOnOwnedRow(ctx, s.ledger, s.db, id, apperrors.ErrExpenseNotFound,
		func(e *models.Expense) string { return e.UserID },
		in.UserID,
		func() error { return validateExpenseInput(in) },
		func(tx *gorm.DB, users ledger.Users, expense *models.Expense) error {
			if err := requireCategory(tx, in.CategoryID); err != nil {
				return err
			}
			if err := s.ledger.Transfer(tx, users[expense.UserID], users[in.UserID], expense.Amount, amount); err != nil {
				return err
			}

			err := tx.Model(expense).Updates(map[string]interface{}{
				"user_id":      in.UserID,
				"category_id":  in.CategoryID,
				"amount":       amount,
				"expense_date": models.DateOnly(in.ExpenseDate),
				"note":         in.Note,
			}).Error
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	return s.GetExpenseByID(id)
}

// DeleteExpense refunds the owner and removes the expense in one transaction.
func (s *expenseService) DeleteExpense(ctx context.Context, id string) error {
	return runOnOwnedRow(ctx, s.ledger, s.db, id, apperrors.ErrExpenseNotFound,
		func(e *models.Expense) string { return e.UserID },
		"",
		nil,
		func(tx *gorm.DB, users ledger.Users, expense *models.Expense) error {
			if err := s.ledger.Credit(tx, users[expense.UserID], expense.Amount); err != nil {
				return err
			}
			if err := tx.Unscoped().Delete(expense).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return nil
		})
}

// GetExpenseByID returns an expense with its category.
func (s *expenseService) GetExpenseByID(id string) (*models.Expense, error) {
	if !uuid.IsValid(id) {
		return nil, apperrors.ErrExpenseNotFound
	}
	var expense models.Expense
	if err := s.db.Preload("Category").Where("id = ?", id).First(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &expense, nil
}

// ListUserExpenses returns a page of a user's expenses, newest first.
func (s *expenseService) ListUserExpenses(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	if !uuid.IsValid(userID) {
		return emptyPage[models.Expense](page), nil
	}
	return s.list(s.db.Model(&models.Expense{}).Where("user_id = ?", userID), page)
}

// ListExpensesByCategoryName returns a page of expenses in the named category.
func (s *expenseService) ListExpensesByCategoryName(name string, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	query := s.db.Model(&models.Expense{}).
		Joins("JOIN categories ON categories.id = expenses.category_id").
		Where("categories.name = ?", name)
	return s.list(query, page)
}

// ListAllExpenses returns a page of every expense.
func (s *expenseService) ListAllExpenses(page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	return s.list(s.db.Model(&models.Expense{}), page)
}

func (s *expenseService) list(query *gorm.DB, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	result, err := pagination.Find[models.Expense](query, page, expenseOrder, "Category")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

func emptyPage[T any](page pagination.PageRequest) *pagination.PageResponse[T] {
	page.Defaults()
	resp := pagination.NewPageResponse[T](nil, page.Page, page.PageSize, 0)
	return &resp
}
