package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/ledger"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/uuid"
)

const budgetOrder = "start_date DESC, created_at DESC"

// budgetService handles budget-related business logic. Budgets are checked
// against the wallet when written and never reserve money.
type budgetService struct {
	db     *gorm.DB
	ledger *ledger.Ledger
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, l *ledger.Ledger) BudgetServicer {
	return &budgetService{db: db, ledger: l}
}

func validateBudgetInput(in BudgetInput) error {
	if in.Amount.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be negative")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "start and end dates are required")
	}
	if !uuid.IsValid(in.UserID) {
		return apperrors.ErrUserNotFound
	}
	if models.DateOnly(in.EndDate).Before(models.DateOnly(in.StartDate)) {
		return apperrors.ErrInvalidRange
	}
	return nil
}

// CreateBudget allocates a budget when the user's budgets, including the new
// one, still fit in the wallet.
func (s *budgetService) CreateBudget(ctx context.Context, in BudgetInput) (*models.Budget, error) {
	if err := validateBudgetInput(in); err != nil {
		return nil, err
	}

	budget := &models.Budget{
		UserID:     in.UserID,
		CategoryID: in.CategoryID,
		Amount:     models.Money(in.Amount),
		StartDate:  models.DateOnly(in.StartDate),
		EndDate:    models.DateOnly(in.EndDate),
	}

	err := s.ledger.Run(ctx, s.db, []string{in.UserID}, func(tx *gorm.DB, users ledger.Users) error {
		if err := requireCategory(tx, in.CategoryID); err != nil {
			return err
		}
		user := users[in.UserID]
		if !user.WalletBalance.IsPositive() {
			return apperrors.ErrWalletNotSet
		}
		if err := checkAllocation(tx, user, "", budget.Amount); err != nil {
			return err
		}
		if err := tx.Create(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetBudgetByID(budget.ID)
}

// UpdateBudget replaces every field of a budget. The budget's own previous
// amount is left out of the existing total before the new amount is checked.
func (s *budgetService) UpdateBudget(ctx context.Context, id string, in BudgetInput) (*models.Budget, error) {
	amount := models.Money(in.Amount)

	err := runOnOwnedRow(ctx, s.ledger, s.db, id, apperrors.ErrBudgetNotFound,
		func(b *models.Budget) string { return b.UserID },
		in.UserID,
		func() error { return validateBudgetInput(in) },
		func(tx *gorm.DB, users ledger.Users, budget *models.Budget) error {
			if err := requireCategory(tx, in.CategoryID); err != nil {
				return err
			}
			if err := checkAllocation(tx, users[in.UserID], budget.ID, amount); err != nil {
				return err
			}

			err := tx.Model(budget).Updates(map[string]interface{}{
				"user_id":     in.UserID,
				"category_id": in.CategoryID,
				"amount":      amount,
				"start_date":  models.DateOnly(in.StartDate),
				"end_date":    models.DateOnly(in.EndDate),
			}).Error
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	return s.GetBudgetByID(id)
}

// DeleteBudget soft-deletes a budget. The wallet is untouched.
func (s *budgetService) DeleteBudget(ctx context.Context, id string) error {
	return runOnOwnedRow(ctx, s.ledger, s.db, id, apperrors.ErrBudgetNotFound,
		func(b *models.Budget) string { return b.UserID },
		"",
		nil,
		func(tx *gorm.DB, _ ledger.Users, budget *models.Budget) error {
			if err := tx.Delete(budget).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return nil
		})
}

// GetBudgetByID returns a budget with its category.
func (s *budgetService) GetBudgetByID(id string) (*models.Budget, error) {
	if !uuid.IsValid(id) {
		return nil, apperrors.ErrBudgetNotFound
	}
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ?", id).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// ListUserBudgets returns a page of a user's budgets.
func (s *budgetService) ListUserBudgets(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	if !uuid.IsValid(userID) {
		return emptyPage[models.Budget](page), nil
	}
	return s.list(s.db.Model(&models.Budget{}).Where("user_id = ?", userID), page)
}

// ListAllBudgets returns a page of every budget.
func (s *budgetService) ListAllBudgets(page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	return s.list(s.db.Model(&models.Budget{}), page)
}

func (s *budgetService) list(query *gorm.DB, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	result, err := pagination.Find[models.Budget](query, page, budgetOrder, "Category")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// checkAllocation fails with BudgetExceedsWallet when the user's live
// budgets, except excludeID, plus amount exceed the wallet balance.
func checkAllocation(tx *gorm.DB, user *models.User, excludeID string, amount decimal.Decimal) error {
	query := tx.Model(&models.Budget{}).Where("user_id = ?", user.ID)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var amounts []decimal.Decimal
	if err := query.Pluck("amount", &amounts).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	existing := decimal.Sum(decimal.Zero, amounts...)
	requested := existing.Add(amount)
	if !requested.GreaterThan(user.WalletBalance) {
		return nil
	}

	headroom := user.WalletBalance.Sub(existing)
	return apperrors.WithDetails(apperrors.ErrBudgetExceedsWallet,
		fmt.Sprintf("Total budget exceeds wallet balance. Available: %s", headroom.StringFixed(2)),
		map[string]any{
			"headroom":        headroom.StringFixed(2),
			"existing_total":  existing.StringFixed(2),
			"requested_total": requested.StringFixed(2),
			"wallet_balance":  user.WalletBalance.StringFixed(2),
		})
}
