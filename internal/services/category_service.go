package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/uuid"
)

// categoryService handles category-related business logic. Categories are
// global and shared by every user.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new category
func (s *categoryService) CreateCategory(name, description string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	if err := s.ensureNameFree(name, ""); err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:        name,
		Description: description,
	}
	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// ListCategories retrieves a paginated list of categories ordered by name.
func (s *categoryService) ListCategories(page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	result, err := pagination.Find[models.Category](s.db.Model(&models.Category{}), page, "name ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetCategoryByID retrieves a category by ID
func (s *categoryService) GetCategoryByID(id string) (*models.Category, error) {
	if !uuid.IsValid(id) {
		return nil, apperrors.ErrCategoryNotFound
	}
	var category models.Category
	if err := s.db.Where("id = ?", id).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory renames a category or changes its description. Empty
// values are left unchanged.
func (s *categoryService) UpdateCategory(id, name, description string) (*models.Category, error) {
	category, err := s.GetCategoryByID(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name = strings.TrimSpace(name); name != "" && name != category.Name {
		if err := s.ensureNameFree(name, category.ID); err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if description != "" {
		updates["description"] = description
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return category, nil
}

// DeleteCategory removes a category that no expense or live budget uses.
func (s *categoryService) DeleteCategory(id string) error {
	category, err := s.GetCategoryByID(id)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var expenses, budgets int64
		if err := tx.Model(&models.Expense{}).Where("category_id = ?", id).Count(&expenses).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.Budget{}).Where("category_id = ?", id).Count(&budgets).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if expenses > 0 || budgets > 0 {
			return apperrors.WithDetails(apperrors.ErrCategoryInUse, apperrors.ErrCategoryInUse.Message, map[string]any{
				"expenses": expenses,
				"budgets":  budgets,
			})
		}

		// Soft-deleted budgets still hold the foreign key.
		if err := tx.Unscoped().Where("category_id = ? AND deleted_at IS NOT NULL", id).Delete(&models.Budget{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Delete(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

func (s *categoryService) ensureNameFree(name, exceptID string) error {
	query := s.db.Model(&models.Category{}).Where("name = ?", name)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateCategory
	}
	return nil
}
