package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/ledger"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/uuid"
)

// userService handles user-related business logic.
type userService struct {
	db     *gorm.DB
	ledger *ledger.Ledger
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB, l *ledger.Ledger) UserServicer {
	return &userService{db: db, ledger: l}
}

// CreateUser registers a new user with an empty wallet.
func (s *userService) CreateUser(name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name, email and password are required")
	}

	if err := s.ensureEmailFree(email, ""); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hashedPassword),
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(id string) (*models.User, error) {
	if !uuid.IsValid(id) {
		return nil, apperrors.ErrUserNotFound
	}
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// ListUsers returns a page of users in creation order.
func (s *userService) ListUsers(page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	result, err := pagination.Find[models.User](s.db.Model(&models.User{}), page, "created_at ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// UpdateUser changes the profile fields that are non-empty. The wallet is
// not editable here; use FundWallet.
func (s *userService) UpdateUser(id, name, email, password string) (*models.User, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name = strings.TrimSpace(name); name != "" {
		updates["name"] = name
	}
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" && email != user.Email {
		if err := s.ensureEmailFree(email, user.ID); err != nil {
			return nil, err
		}
		updates["email"] = email
	}
	if password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		updates["password"] = string(hashedPassword)
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return user, nil
}

// FundWallet adds money to a user's wallet and records the funding event.
func (s *userService) FundWallet(ctx context.Context, userID string, amount decimal.Decimal, note string) (*Wallet, error) {
	if !models.Money(amount).IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !uuid.IsValid(userID) {
		return nil, apperrors.ErrUserNotFound
	}

	var wallet *Wallet
	err := s.ledger.Run(ctx, s.db, []string{userID}, func(tx *gorm.DB, users ledger.Users) error {
		funding := &models.WalletFunding{UserID: userID, Amount: models.Money(amount), Note: note}
		if err := tx.Create(funding).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.ledger.Credit(tx, users[userID], funding.Amount); err != nil {
			return err
		}

		rec, err := s.ledger.Reconcile(tx, userID)
		if err != nil {
			return err
		}
		wallet = &Wallet{UserID: userID, Reconciliation: *rec}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// GetWallet returns the balance of a user and whether it reconciles with the
// recorded fundings and live expenses.
func (s *userService) GetWallet(ctx context.Context, userID string) (*Wallet, error) {
	if !uuid.IsValid(userID) {
		return nil, apperrors.ErrUserNotFound
	}

	rec, err := s.ledger.Reconcile(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return &Wallet{UserID: userID, Reconciliation: *rec}, nil
}

// DeleteUser soft-deletes a user that no longer owns expenses or live
// budgets. Funding and audit rows keep pointing at the deleted user, and its
// email stays reserved.
func (s *userService) DeleteUser(ctx context.Context, id string) error {
	if !uuid.IsValid(id) {
		return apperrors.ErrUserNotFound
	}

	return s.ledger.Run(ctx, s.db, []string{id}, func(tx *gorm.DB, users ledger.Users) error {
		var expenses, budgets int64
		if err := tx.Model(&models.Expense{}).Where("user_id = ?", id).Count(&expenses).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.Budget{}).Where("user_id = ?", id).Count(&budgets).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if expenses > 0 || budgets > 0 {
			return apperrors.WithDetails(apperrors.ErrUserInUse, apperrors.ErrUserInUse.Message, map[string]any{
				"expenses": expenses,
				"budgets":  budgets,
			})
		}

		if err := tx.Delete(users[id]).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// ensureEmailFree fails with DuplicateEmail when another user, deleted or
// not, owns email.
func (s *userService) ensureEmailFree(email, exceptID string) error {
	query := s.db.Unscoped().Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateEmail
	}
	return nil
}
