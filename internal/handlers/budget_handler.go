package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/services"
)

// BudgetHandler handles budget-related requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, auditService: auditService}
}

// BudgetRequest is the payload for creating or replacing a budget. A zero
// amount is allowed, so Amount is a pointer to tell it apart from a missing
// field.
type BudgetRequest struct {
	UserID     string           `json:"user_id" binding:"required"`
	CategoryID string           `json:"category_id" binding:"required"`
	Amount     *decimal.Decimal `json:"amount" swaggertype:"string" binding:"required,gte=0,money"`
	StartDate  string           `json:"start_date" binding:"required,date_only" example:"2024-01-01"`
	EndDate    string           `json:"end_date" binding:"required,date_only" example:"2024-01-31"`
}

func (r BudgetRequest) input() (services.BudgetInput, error) {
	start, err := models.ParseDate(r.StartDate)
	if err != nil {
		return services.BudgetInput{}, err
	}
	end, err := models.ParseDate(r.EndDate)
	if err != nil {
		return services.BudgetInput{}, err
	}
	return services.BudgetInput{
		UserID:     r.UserID,
		CategoryID: r.CategoryID,
		Amount:     *r.Amount,
		StartDate:  start,
		EndDate:    end,
	}, nil
}

// CreateBudget handles the creation of a new budget.
// @Summary     Create a budget
// @Description Plan spending for a category over an inclusive date range. The sum of a user's budgets may not exceed the wallet balance.
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Param       request body BudgetRequest true "Budget details"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input or date range"
// @Failure     404 {object} ErrorResponse "User or category not found"
// @Failure     422 {object} ErrorResponse "Wallet not funded or budgets exceed wallet"
// @Failure     503 {object} ErrorResponse "Wallet is busy"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	var req BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	in, err := req.input()
	if err != nil {
		respondWithError(c, bindError(err))
		return
	}

	budget, err := h.budgetService.CreateBudget(c.Request.Context(), in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(budget.UserID, "CREATE_BUDGET", "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"amount": budget.Amount.StringFixed(2), "start_date": req.StartDate, "end_date": req.EndDate})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// ListAllBudgets handles listing every budget.
// @Summary     List all budgets
// @Tags        budgets
// @Produce     json
// @Security    AdminKey
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Budget] "Paginated budgets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Missing or invalid admin key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [get]
func (h *BudgetHandler) ListAllBudgets(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.budgetService.ListAllBudgets(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListUserBudgets handles listing the budgets of one user.
// @Summary     List budgets of a user
// @Tags        budgets
// @Produce     json
// @Param       userId    path  string true  "User ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Budget] "Paginated budgets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/user/{userId} [get]
func (h *BudgetHandler) ListUserBudgets(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.budgetService.ListUserBudgets(c.Param("userId"), page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBudget handles retrieving a specific budget.
// @Summary     Get budget by ID
// @Tags        budgets
// @Produce     json
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget "Budget details"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	budgetID, err := parsePathID(c, "id", apperrors.ErrBudgetNotFound)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// UpdateBudget handles replacing an existing budget.
// @Summary     Update budget
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Param       id      path string        true "Budget ID"
// @Param       request body BudgetRequest true "New budget details"
// @Success     200 {object} models.Budget "Updated budget"
// @Failure     400 {object} ErrorResponse "Invalid input or date range"
// @Failure     404 {object} ErrorResponse "Budget, user or category not found"
// @Failure     422 {object} ErrorResponse "Budgets exceed wallet"
// @Failure     503 {object} ErrorResponse "Wallet is busy"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	budgetID, err := parsePathID(c, "id", apperrors.ErrBudgetNotFound)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	in, err := req.input()
	if err != nil {
		respondWithError(c, bindError(err))
		return
	}

	budget, err := h.budgetService.UpdateBudget(c.Request.Context(), budgetID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(budget.UserID, "UPDATE_BUDGET", "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"amount": budget.Amount.StringFixed(2), "start_date": req.StartDate, "end_date": req.EndDate})

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// DeleteBudget handles deleting a budget.
// @Summary     Delete budget
// @Tags        budgets
// @Produce     json
// @Param       id path string true "Budget ID"
// @Success     200 {object} MessageResponse "Budget deleted"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     503 {object} ErrorResponse "Wallet is busy"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	budgetID, err := parsePathID(c, "id", apperrors.ErrBudgetNotFound)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(c.Request.Context(), budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(budget.UserID, "DELETE_BUDGET", "budget", budgetID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Budget deleted successfully"})
}
