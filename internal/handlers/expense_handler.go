package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/services"
)

// ExpenseHandler handles expense requests. Every write moves the owner's
// wallet inside the service.
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
	auditService   services.AuditServicer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService services.ExpenseServicer, auditService services.AuditServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, auditService: auditService}
}

// ExpenseRequest is the payload for creating or replacing an expense.
type ExpenseRequest struct {
	UserID      string          `json:"user_id" binding:"required"`
	CategoryID  string          `json:"category_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" binding:"required,gt=0,money"`
	ExpenseDate string          `json:"expense_date" binding:"required,date_only" example:"2024-01-31"`
	Note        string          `json:"note" binding:"max=500"`
}

func (r ExpenseRequest) input() (services.ExpenseInput, error) {
	date, err := models.ParseDate(r.ExpenseDate)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	return services.ExpenseInput{
		UserID:      r.UserID,
		CategoryID:  r.CategoryID,
		Amount:      r.Amount,
		ExpenseDate: date,
		Note:        r.Note,
	}, nil
}

// CreateExpense handles recording a new expense.
// @Summary     Create an expense
// @Description Record an expense and debit the owner's wallet
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Param       request body ExpenseRequest true "Expense details"
// @Success     201 {object} models.Expense "Expense created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "User or category not found"
// @Failure     422 {object} ErrorResponse "Insufficient wallet balance"
// @Failure     503 {object} ErrorResponse "Wallet is busy"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	in, err := req.input()
	if err != nil {
		respondWithError(c, bindError(err))
		return
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(expense.UserID, "CREATE_EXPENSE", "expense", expense.ID, c.ClientIP(),
		map[string]interface{}{"amount": expense.Amount.StringFixed(2), "category_id": expense.CategoryID})

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// ListAllExpenses handles listing every expense.
// @Summary     List all expenses
// @Tags        expenses
// @Produce     json
// @Security    AdminKey
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Paginated expenses"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Missing or invalid admin key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [get]
func (h *ExpenseHandler) ListAllExpenses(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.expenseService.ListAllExpenses(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListUserExpenses handles listing the expenses of one user.
// @Summary     List expenses of a user
// @Tags        expenses
// @Produce     json
// @Param       userId    path  string true  "User ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Paginated expenses"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/user/{userId} [get]
func (h *ExpenseHandler) ListUserExpenses(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.expenseService.ListUserExpenses(c.Param("userId"), page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListExpensesByCategory handles listing expenses filed under a category name.
// @Summary     List expenses by category name
// @Tags        expenses
// @Produce     json
// @Param       name      path  string true  "Category name"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Paginated expenses"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/category/{name} [get]
func (h *ExpenseHandler) ListExpensesByCategory(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.expenseService.ListExpensesByCategoryName(c.Param("name"), page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetExpense handles retrieving a single expense.
// @Summary     Get expense by ID
// @Tags        expenses
// @Produce     json
// @Param       id path string true "Expense ID"
// @Success     200 {object} models.Expense "Expense details"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	expenseID, err := parsePathID(c, "id", apperrors.ErrExpenseNotFound)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.GetExpenseByID(expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// UpdateExpense handles replacing an expense. The wallet of the previous
// owner is refunded and the new owner is debited in one step.
// @Summary     Update expense
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Param       id      path string         true "Expense ID"
// @Param       request body ExpenseRequest true "New expense details"
// @Success     200 {object} models.Expense "Updated expense"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Expense, user or category not found"
// @Failure     422 {object} ErrorResponse "Insufficient wallet balance"
// @Failure     503 {object} ErrorResponse "Wallet is busy"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	expenseID, err := parsePathID(c, "id", apperrors.ErrExpenseNotFound)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	in, err := req.input()
	if err != nil {
		respondWithError(c, bindError(err))
		return
	}

	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), expenseID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(expense.UserID, "UPDATE_EXPENSE", "expense", expense.ID, c.ClientIP(),
		map[string]interface{}{"amount": expense.Amount.StringFixed(2), "category_id": expense.CategoryID})

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// DeleteExpense handles removing an expense and refunding its owner.
// @Summary     Delete expense
// @Tags        expenses
// @Produce     json
// @Param       id path string true "Expense ID"
// @Success     200 {object} MessageResponse "Expense deleted"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     503 {object} ErrorResponse "Wallet is busy"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	expenseID, err := parsePathID(c, "id", apperrors.ErrExpenseNotFound)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// Owner lookup for the audit entry only.
	expense, err := h.expenseService.GetExpenseByID(expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.expenseService.DeleteExpense(c.Request.Context(), expenseID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(expense.UserID, "DELETE_EXPENSE", "expense", expenseID, c.ClientIP(),
		map[string]interface{}{"amount": expense.Amount.StringFixed(2)})

	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}
