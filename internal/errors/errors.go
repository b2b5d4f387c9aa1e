// Package errors provides custom error types for the spendwise API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import (
	stderrors "errors"
	"net/http"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, optional structured details and
// an optional internal error.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	StatusCode int            `json:"-"`
	Internal   error          `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError carrying the same code, so that
// errors.Is(err, ErrInsufficientFunds) holds for derived copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// From returns err as an AppError. Anything that is not one becomes an
// internal error wrapping err, so its text never reaches the client.
func From(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(ErrInternalServer, err)
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Details:    sentinel.Details,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// WithDetails creates a new AppError with a custom message and structured
// details that are returned to the client alongside the code.
func WithDetails(sentinel *AppError, message string, details map[string]any) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Details:    details,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Admin access errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
	ErrAdminNotConfigured = &AppError{Code: "ADMIN_NOT_CONFIGURED", Message: "Admin endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrInvalidRange   = &AppError{Code: "INVALID_RANGE", Message: "End date must not be before start date", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrLockTimeout    = &AppError{Code: "LOCK_TIMEOUT", Message: "Another operation on this wallet is in progress, try again", StatusCode: http.StatusServiceUnavailable}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
	ErrUserInUse      = &AppError{Code: "USER_IN_USE", Message: "User still has expenses or budgets", StatusCode: http.StatusConflict}
)

// Wallet errors.
var (
	ErrInsufficientFunds = &AppError{Code: "INSUFFICIENT_FUNDS", Message: "Insufficient wallet balance", StatusCode: http.StatusUnprocessableEntity}
	ErrWalletNotSet      = &AppError{Code: "WALLET_NOT_SET", Message: "Please fund your wallet before creating a budget", StatusCode: http.StatusUnprocessableEntity}
)

// Category errors.
var (
	ErrCategoryNotFound  = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrDuplicateCategory = &AppError{Code: "DUPLICATE_CATEGORY", Message: "A category with this name already exists", StatusCode: http.StatusConflict}
	ErrCategoryInUse     = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is used by existing expenses or budgets", StatusCode: http.StatusConflict}
)

// Expense errors.
var (
	ErrExpenseNotFound = &AppError{Code: "EXPENSE_NOT_FOUND", Message: "Expense not found", StatusCode: http.StatusNotFound}
)

// Budget errors.
var (
	ErrBudgetNotFound      = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
	ErrBudgetExceedsWallet = &AppError{Code: "BUDGET_EXCEEDS_WALLET", Message: "Total budgets cannot exceed wallet balance", StatusCode: http.StatusUnprocessableEntity}
)
