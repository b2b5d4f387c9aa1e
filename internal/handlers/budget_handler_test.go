package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/services"
)

// --- mock budget service ---

type mockBudgetService struct {
	createBudgetFn    func(ctx context.Context, in services.BudgetInput) (*models.Budget, error)
	updateBudgetFn    func(ctx context.Context, id string, in services.BudgetInput) (*models.Budget, error)
	deleteBudgetFn    func(ctx context.Context, id string) error
	getBudgetByIDFn   func(id string) (*models.Budget, error)
	listUserBudgetsFn func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	listAllBudgetsFn  func(page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
}

func (m *mockBudgetService) CreateBudget(ctx context.Context, in services.BudgetInput) (*models.Budget, error) {
	if m.createBudgetFn != nil {
		return m.createBudgetFn(ctx, in)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) UpdateBudget(ctx context.Context, id string, in services.BudgetInput) (*models.Budget, error) {
	if m.updateBudgetFn != nil {
		return m.updateBudgetFn(ctx, id, in)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) DeleteBudget(ctx context.Context, id string) error {
	if m.deleteBudgetFn != nil {
		return m.deleteBudgetFn(ctx, id)
	}
	return nil
}

func (m *mockBudgetService) GetBudgetByID(id string) (*models.Budget, error) {
	if m.getBudgetByIDFn != nil {
		return m.getBudgetByIDFn(id)
	}
	return &models.Budget{Base: models.Base{ID: id}, UserID: testUserID}, nil
}

func (m *mockBudgetService) ListUserBudgets(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	if m.listUserBudgetsFn != nil {
		return m.listUserBudgetsFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.Budget{}, page.Page, page.PageSize, 0)
	return &resp, nil
}

func (m *mockBudgetService) ListAllBudgets(page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	if m.listAllBudgetsFn != nil {
		return m.listAllBudgetsFn(page)
	}
	resp := pagination.NewPageResponse([]models.Budget{}, page.Page, page.PageSize, 0)
	return &resp, nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

func setupBudgetRouter(handler *BudgetHandler) *gin.Engine {
	r := gin.New()
	r.POST("/budgets", handler.CreateBudget)
	r.GET("/budgets", handler.ListAllBudgets)
	r.GET("/budgets/user/:userId", handler.ListUserBudgets)
	r.GET("/budgets/:id", handler.GetBudget)
	r.PUT("/budgets/:id", handler.UpdateBudget)
	r.DELETE("/budgets/:id", handler.DeleteBudget)
	return r
}

func budgetBody(amount, start, end string) string {
	return `{"user_id":"` + testUserID + `","category_id":"` + testCategoryID + `",` + amount +
		`"start_date":"` + start + `","end_date":"` + end + `"}`
}

func TestBudgetHandler_CreateBudget(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.BudgetInput
		svc := &mockBudgetService{
			createBudgetFn: func(_ context.Context, in services.BudgetInput) (*models.Budget, error) {
				got = in
				return &models.Budget{Base: models.Base{ID: testBudgetID}, UserID: in.UserID, Amount: in.Amount}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupBudgetRouter(NewBudgetHandler(svc, audit))

		rec := doRequest(r, http.MethodPost, "/budgets", budgetBody(`"amount":"80.00",`, "2024-01-01", "2024-01-31"))

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Amount.String() != "80" || models.FormatDate(got.StartDate) != "2024-01-01" || models.FormatDate(got.EndDate) != "2024-01-31" {
			t.Errorf("unexpected input: %+v", got)
		}
		if actions := audit.actions(); len(actions) != 1 || actions[0] != "CREATE_BUDGET" {
			t.Errorf("expected CREATE_BUDGET audit entry, got %v", actions)
		}
	})

	t.Run("accepts zero amount", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, http.MethodPost, "/budgets", budgetBody(`"amount":0,`, "2024-01-01", "2024-01-31"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	invalid := []struct {
		name string
		body string
	}{
		{"missing amount", budgetBody("", "2024-01-01", "2024-01-31")},
		{"negative amount", budgetBody(`"amount":"-1",`, "2024-01-01", "2024-01-31")},
		{"bad start date", budgetBody(`"amount":"10",`, "2024-13-01", "2024-01-31")},
		{"missing end date", `{"user_id":"` + testUserID + `","category_id":"` + testCategoryID + `","amount":"10","start_date":"2024-01-01"}`},
	}
	for _, tt := range invalid {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

			rec := doRequest(r, http.MethodPost, "/budgets", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}

	t.Run("returns 422 with headroom when over wallet", func(t *testing.T) {
		svc := &mockBudgetService{
			createBudgetFn: func(context.Context, services.BudgetInput) (*models.Budget, error) {
				return nil, apperrors.WithDetails(apperrors.ErrBudgetExceedsWallet,
					"Total budget exceeds wallet balance. Available: 30.00",
					map[string]any{"headroom": "30.00", "requested_total": "110.00", "wallet_balance": "100.00"})
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, http.MethodPost, "/budgets", budgetBody(`"amount":"40",`, "2024-01-01", "2024-01-31"))

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "BUDGET_EXCEEDS_WALLET")
		errObj := result["error"].(map[string]interface{})
		if errObj["message"] != "Total budget exceeds wallet balance. Available: 30.00" {
			t.Errorf("unexpected message %v", errObj["message"])
		}
		if errObj["details"].(map[string]interface{})["headroom"] != "30.00" {
			t.Errorf("expected headroom 30.00, got %v", errObj["details"])
		}
	})

	t.Run("returns 400 on inverted range from service", func(t *testing.T) {
		svc := &mockBudgetService{
			createBudgetFn: func(context.Context, services.BudgetInput) (*models.Budget, error) {
				return nil, apperrors.ErrInvalidRange
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, http.MethodPost, "/budgets", budgetBody(`"amount":"10",`, "2024-02-01", "2024-01-01"))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_RANGE")
	})
}

func TestBudgetHandler_UpdateAndDelete(t *testing.T) {
	t.Run("update passes id", func(t *testing.T) {
		var gotID string
		svc := &mockBudgetService{
			updateBudgetFn: func(_ context.Context, id string, in services.BudgetInput) (*models.Budget, error) {
				gotID = id
				return &models.Budget{Base: models.Base{ID: id}, UserID: in.UserID, Amount: in.Amount}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, http.MethodPut, "/budgets/"+testBudgetID, budgetBody(`"amount":"10",`, "2024-01-01", "2024-01-31"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotID != testBudgetID {
			t.Errorf("expected %s, got %s", testBudgetID, gotID)
		}
	})

	t.Run("delete returns 200", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, audit))

		rec := doRequest(r, http.MethodDelete, "/budgets/"+testBudgetID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if actions := audit.actions(); len(actions) != 1 || actions[0] != "DELETE_BUDGET" {
			t.Errorf("expected DELETE_BUDGET audit entry, got %v", actions)
		}
	})

	t.Run("get returns 404 on malformed id", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, http.MethodGet, "/budgets/42", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})
}

func TestBudgetRequest_Input(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
	}{
		{"bad start", "2024-00-01", "2024-01-31"},
		{"bad end", "2024-01-01", "2024-01-32"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := BudgetRequest{UserID: testUserID, CategoryID: testCategoryID, StartDate: tt.start, EndDate: tt.end}
			if _, err := req.input(); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}
