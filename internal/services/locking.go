package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/ledger"
	"spendwise/internal/uuid"
)

// maxOwnerAttempts bounds how often a write re-reads a row whose owner was
// changed by a concurrent update while it waited for the owner's lock.
const maxOwnerAttempts = 3

var errOwnerChanged = errors.New("owner changed while waiting for lock")

// runOnOwnedRow runs fn inside a ledger use case that holds the lock of the
// row's current owner and of alsoLock (which may be empty). The row is
// re-read FOR UPDATE once the locks are held. check, when set, runs once the
// row is known to exist and before any lock is taken, so notFound wins over
// input errors.
func runOnOwnedRow[T any](
	ctx context.Context,
	l *ledger.Ledger,
	db *gorm.DB,
	id string,
	notFound *apperrors.AppError,
	owner func(*T) string,
	alsoLock string,
	check func() error,
	fn func(tx *gorm.DB, users ledger.Users, row *T) error,
) error {
	if !uuid.IsValid(id) {
		return notFound
	}

	for attempt := 0; attempt < maxOwnerAttempts; attempt++ {
		var current T
		if err := db.WithContext(ctx).Where("id = ?", id).First(&current).Error; err != nil {
			return findError(err, notFound)
		}
		ownerID := owner(&current)
		if attempt == 0 && check != nil {
			if err := check(); err != nil {
				return err
			}
		}

		err := l.Run(ctx, db, []string{ownerID, alsoLock}, func(tx *gorm.DB, users ledger.Users) error {
			var row T
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error; err != nil {
				return findError(err, notFound)
			}
			if owner(&row) != ownerID {
				return errOwnerChanged
			}
			return fn(tx, users, &row)
		})
		if !errors.Is(err, errOwnerChanged) {
			return err
		}
	}
	return apperrors.WithMessage(apperrors.ErrLockTimeout, "The record changed owner while being updated, try again")
}

// findError maps a lookup failure to notFound or an internal error.
func findError(err error, notFound *apperrors.AppError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// requireCategory checks that a category exists.
func requireCategory(tx *gorm.DB, categoryID string) error {
	if !uuid.IsValid(categoryID) {
		return apperrors.ErrCategoryNotFound
	}
	var count int64
	if err := tx.Table("categories").Where("id = ? AND deleted_at IS NULL", categoryID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrCategoryNotFound
	}
	return nil
}
