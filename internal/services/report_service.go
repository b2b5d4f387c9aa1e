package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/report"
	"spendwise/internal/uuid"
)

// reportService loads a consistent snapshot of expenses and budgets and
// aggregates it into a report.
type reportService struct {
	db *gorm.DB
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB) ReportServicer {
	return &reportService{db: db}
}

// GenerateReport summarises a user's expenses dated within [start, end] and
// the budgets overlapping that range. A non-empty categoryIDs restricts both.
func (s *reportService) GenerateReport(ctx context.Context, userID string, start, end time.Time, categoryIDs []string) (*report.Report, error) {
	start, end = models.DateOnly(start), models.DateOnly(end)
	if end.Before(start) {
		return nil, apperrors.ErrInvalidRange
	}
	if !uuid.IsValid(userID) {
		return nil, apperrors.ErrUserNotFound
	}

	var expenses []models.Expense
	var budgets []models.Budget

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return apperrors.ErrUserNotFound
		}

		expenseQuery := tx.Preload("Category").
			Where("user_id = ? AND expense_date >= ? AND expense_date <= ?", userID, start, end)
		budgetQuery := tx.Preload("Category").
			Where("user_id = ? AND start_date <= ? AND end_date >= ?", userID, end, start)
		if len(categoryIDs) > 0 {
			expenseQuery = expenseQuery.Where("category_id IN ?", categoryIDs)
			budgetQuery = budgetQuery.Where("category_id IN ?", categoryIDs)
		}

		if err := expenseQuery.Order("expense_date ASC, created_at ASC, id ASC").Find(&expenses).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := budgetQuery.Order("start_date ASC, created_at ASC").Find(&budgets).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	}, snapshotOptions(s.db)...)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return report.Build(expenses, budgets), nil
}

// snapshotOptions asks PostgreSQL for one read-only snapshot covering every
// query of the report. SQLite transactions are serializable already.
func snapshotOptions(db *gorm.DB) []*sql.TxOptions {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
}
