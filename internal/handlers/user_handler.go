package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/services"
)

// UserHandler handles user and wallet requests.
type UserHandler struct {
	userService  services.UserServicer
	auditService services.AuditServicer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.UserServicer, auditService services.AuditServicer) *UserHandler {
	return &UserHandler{userService: userService, auditService: auditService}
}

// CreateUserRequest represents the request payload for creating a user.
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// UpdateUserRequest represents the request payload for updating a user.
// Empty fields are left unchanged.
type UpdateUserRequest struct {
	Name     string `json:"name" binding:"omitempty,max=100"`
	Email    string `json:"email" binding:"omitempty,email,max=255"`
	Password string `json:"password" binding:"omitempty,min=8,max=72"`
}

// FundWalletRequest represents the request payload for adding money to a wallet.
type FundWalletRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" binding:"required,gt=0,money"`
	Note   string          `json:"note" binding:"max=255"`
}

// CreateUser handles user registration.
// @Summary     Create a user
// @Description Register a user with an empty wallet
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       request body CreateUserRequest true "User details"
// @Success     201 {object} models.User "User created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	user, err := h.userService.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(user.ID, "CREATE_USER", "user", user.ID, c.ClientIP(),
		map[string]interface{}{"email": user.Email})

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// ListUsers handles listing every user.
// @Summary     List users
// @Description Get a paginated list of all users
// @Tags        users
// @Produce     json
// @Security    AdminKey
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.User] "Paginated users"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Missing or invalid admin key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.userService.ListUsers(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetUser handles retrieving a single user.
// @Summary     Get user by ID
// @Tags        users
// @Produce     json
// @Param       id path string true "User ID"
// @Success     200 {object} models.User "User details"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, err := parsePathID(c, "id", apperrors.ErrUserNotFound)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateUser handles profile updates.
// @Summary     Update user
// @Description Update name, email or password of a user
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       id      path string            true "User ID"
// @Param       request body UpdateUserRequest true "Fields to change"
// @Success     200 {object} models.User "Updated user"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, err := parsePathID(c, "id", apperrors.ErrUserNotFound)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	user, err := h.userService.UpdateUser(userID, req.Name, req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(user.ID, "UPDATE_USER", "user", user.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "email": req.Email, "password_changed": req.Password != ""})

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DeleteUser handles removing a user that owns no expenses or budgets.
// @Summary     Delete user
// @Tags        users
// @Produce     json
// @Param       id path string true "User ID"
// @Success     200 {object} MessageResponse "User deleted"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     409 {object} ErrorResponse "User still has expenses or budgets"
// @Failure     503 {object} ErrorResponse "Wallet is busy"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID, err := parsePathID(c, "id", apperrors.ErrUserNotFound)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), userID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_USER", "user", userID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// FundWallet handles adding money to a user's wallet.
// @Summary     Fund wallet
// @Description Record a funding event and credit the wallet balance
// @Tags        wallet
// @Accept      json
// @Produce     json
// @Param       id      path string            true "User ID"
// @Param       request body FundWalletRequest true "Funding amount"
// @Success     200 {object} services.Wallet "Wallet after funding"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     503 {object} ErrorResponse "Wallet is busy"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /users/{id}/wallet/fund [post]
func (h *UserHandler) FundWallet(c *gin.Context) {
	userID, err := parsePathID(c, "id", apperrors.ErrUserNotFound)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req FundWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	wallet, err := h.userService.FundWallet(c.Request.Context(), userID, req.Amount, req.Note)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "FUND_WALLET", "user", userID, c.ClientIP(),
		map[string]interface{}{"amount": req.Amount.StringFixed(2), "balance": wallet.Balance.StringFixed(2)})

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// GetWallet handles retrieving a wallet balance with its reconciliation.
// @Summary     Get wallet
// @Description Wallet balance together with funded and spent totals
// @Tags        wallet
// @Produce     json
// @Param       id path string true "User ID"
// @Success     200 {object} services.Wallet "Wallet"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /users/{id}/wallet [get]
func (h *UserHandler) GetWallet(c *gin.Context) {
	userID, err := parsePathID(c, "id", apperrors.ErrUserNotFound)
	if err != nil {
		respondWithError(c, err)
		return
	}

	wallet, err := h.userService.GetWallet(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}
