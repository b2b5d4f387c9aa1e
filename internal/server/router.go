// Package server assembles the HTTP surface: middleware, routes and the
// services behind them.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "spendwise/internal/docs" // Import swagger docs
	"spendwise/internal/handlers"
	"spendwise/internal/ledger"
	"spendwise/internal/middleware"
	"spendwise/internal/services"
)

// Deps holds what the router needs from the outside world.
type Deps struct {
	DB          *gorm.DB
	Ledger      *ledger.Ledger
	Predictor   services.Predictor
	ConnString  string
	AdminAPIKey string
	// RequestLog enables per-request logging.
	RequestLog bool
}

// NewRouter wires services and handlers over deps and registers every route.
func NewRouter(deps Deps) *gin.Engine {
	db := deps.DB

	// Services
	userService := services.NewUserService(db, deps.Ledger)
	categoryService := services.NewCategoryService(db)
	expenseService := services.NewExpenseService(db, deps.Ledger)
	budgetService := services.NewBudgetService(db, deps.Ledger)
	reportService := services.NewReportService(db)
	predictionService := services.NewPredictionService(db, deps.Predictor, deps.ConnString)
	auditService := services.NewAuditService(db)

	// Handlers
	userHandler := handlers.NewUserHandler(userService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	expenseHandler := handlers.NewExpenseHandler(expenseService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	reportHandler := handlers.NewReportHandler(reportService)
	predictionHandler := handlers.NewPredictionHandler(predictionService)

	router := gin.New()
	router.Use(gin.Recovery())
	if deps.RequestLog {
		router.Use(middleware.RequestLogging())
	}
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	admin := middleware.AdminAuth(deps.AdminAPIKey)

	v1 := router.Group("/api/v1")

	users := v1.Group("/users")
	users.POST("", userHandler.CreateUser)
	users.GET("", admin, userHandler.ListUsers)
	users.GET("/:id", userHandler.GetUser)
	users.PUT("/:id", userHandler.UpdateUser)
	users.DELETE("/:id", userHandler.DeleteUser)
	users.POST("/:id/wallet/fund", userHandler.FundWallet)
	users.GET("/:id/wallet", userHandler.GetWallet)

	categories := v1.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.ListCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	expenses := v1.Group("/expenses")
	expenses.POST("", expenseHandler.CreateExpense)
	expenses.GET("", admin, expenseHandler.ListAllExpenses)
	expenses.GET("/user/:userId", expenseHandler.ListUserExpenses)
	expenses.GET("/category/:name", expenseHandler.ListExpensesByCategory)
	expenses.GET("/:id", expenseHandler.GetExpense)
	expenses.PUT("/:id", expenseHandler.UpdateExpense)
	expenses.DELETE("/:id", expenseHandler.DeleteExpense)

	budgets := v1.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", admin, budgetHandler.ListAllBudgets)
	budgets.GET("/user/:userId", budgetHandler.ListUserBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	v1.GET("/reports/user/:userId", reportHandler.GetUserReport)
	v1.GET("/predictions/user/:userId", predictionHandler.PredictNextMonth)

	return router
}
