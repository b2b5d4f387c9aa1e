package services

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"spendwise/internal/ledger"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func expenseInput(t *testing.T, userID, categoryID, amount string) ExpenseInput {
	t.Helper()
	return ExpenseInput{
		UserID:      userID,
		CategoryID:  categoryID,
		Amount:      testutil.Money(t, amount),
		ExpenseDate: testutil.Date(t, "2024-01-15"),
		Note:        "lunch",
	}
}

func countExpenses(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Expense{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count expenses: %v", err)
	}
	return n
}

func assertReconciled(t *testing.T, db *gorm.DB, userID string) {
	t.Helper()
	rec, err := newTestLedger().Reconcile(db, userID)
	testutil.AssertNoError(t, err)
	if !rec.Consistent {
		t.Errorf("wallet drifted: balance %s, funded %s, spent %s", rec.Balance, rec.Funded, rec.Spent)
	}
}

func TestCreateExpense(t *testing.T) {
	t.Run("debits_wallet", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, newTestLedger())
		user := testutil.CreateTestUserWithBalance(t, db, "100")
		cat := testutil.CreateTestCategoryNamed(t, db, "Food")

		expense, err := svc.CreateExpense(context.Background(), expenseInput(t, user.ID, cat.ID, "30.25"))
		testutil.AssertNoError(t, err)

		if expense.ID == "" {
			t.Fatal("expected expense ID")
		}
		if expense.Category == nil || expense.Category.Name != "Food" {
			t.Errorf("expected category to be loaded, got %+v", expense.Category)
		}
		if got := models.FormatDate(expense.ExpenseDate); got != "2024-01-15" {
			t.Errorf("expected date 2024-01-15, got %s", got)
		}
		testutil.AssertMoney(t, testutil.WalletBalance(t, db, user.ID), "69.75")
		assertReconciled(t, db, user.ID)
	})

	t.Run("over_balance_changes_nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, newTestLedger())
		user := testutil.CreateTestUserWithBalance(t, db, "50")
		cat := testutil.CreateTestCategory(t, db)

		_, err := svc.CreateExpense(context.Background(), expenseInput(t, user.ID, cat.ID, "50.01"))
		testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")

		testutil.AssertMoney(t, testutil.WalletBalance(t, db, user.ID), "50")
		if n := countExpenses(t, db, user.ID); n != 0 {
			t.Errorf("expected no expense persisted, found %d", n)
		}
	})

	t.Run("empty_wallet", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, newTestLedger())
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db)

		_, err := svc.CreateExpense(context.Background(), expenseInput(t, user.ID, cat.ID, "1"))
		testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")
	})

	t.Run("non_positive_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, newTestLedger())
		user := testutil.CreateTestUserWithBalance(t, db, "50")
		cat := testutil.CreateTestCategory(t, db)

		_, err := svc.CreateExpense(context.Background(), expenseInput(t, user.ID, cat.ID, "0"))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
		_, err = svc.CreateExpense(context.Background(), expenseInput(t, user.ID, cat.ID, "-3"))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, newTestLedger())
		cat := testutil.CreateTestCategory(t, db)

		_, err := svc.CreateExpense(context.Background(), expenseInput(t, missingID, cat.ID, "1"))
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})

	t.Run("unknown_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, newTestLedger())
		user := testutil.CreateTestUserWithBalance(t, db, "50")

		_, err := svc.CreateExpense(context.Background(), expenseInput(t, user.ID, missingID, "1"))
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
		testutil.AssertMoney(t, testutil.WalletBalance(t, db, user.ID), "50")
	})
}

func TestCreateExpense_ConcurrentDebitsAreSerialised(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db, newTestLedger())
	user := testutil.CreateTestUserWithBalance(t, db, "100")
	cat := testutil.CreateTestCategory(t, db)

	in := expenseInput(t, user.ID, cat.ID, "60")
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateExpense(context.Background(), in)
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one failure, got %d (%v)", failures, errs)
	}
	testutil.AssertMoney(t, testutil.WalletBalance(t, db, user.ID), "40")
	if n := countExpenses(t, db, user.ID); n != 1 {
		t.Errorf("expected one expense, got %d", n)
	}
}

func TestUpdateExpense(t *testing.T) {
	tests := []struct {
		name      string
		balance   string
		original  string
		updated   string
		wantCode  string
		wantFinal string
	}{
		{name: "increase", balance: "100", original: "30", updated: "50", wantFinal: "50"},
		{name: "decrease", balance: "100", original: "30", updated: "10", wantFinal: "90"},
		{name: "unchanged", balance: "100", original: "30", updated: "30", wantFinal: "70"},
		{name: "increase_beyond_wallet", balance: "100", original: "30", updated: "100.01", wantCode: "INSUFFICIENT_FUNDS", wantFinal: "70"},
		{name: "increase_to_exact_wallet", balance: "100", original: "30", updated: "100", wantFinal: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			defer testutil.TeardownTestDB(t, db)
			svc := NewExpenseService(db, newTestLedger())
			user := testutil.CreateTestUserWithBalance(t, db, tt.balance)
			cat := testutil.CreateTestCategory(t, db)

			expense, err := svc.CreateExpense(context.Background(), expenseInput(t, user.ID, cat.ID, tt.original))
			testutil.AssertNoError(t, err)

			in := expenseInput(t, user.ID, cat.ID, tt.updated)
			in.Note = "dinner"
			updated, err := svc.UpdateExpense(context.Background(), expense.ID, in)
			if tt.wantCode != "" {
				testutil.AssertAppError(t, err, tt.wantCode)
				reloaded, getErr := svc.GetExpenseByID(expense.ID)
				testutil.AssertNoError(t, getErr)
				testutil.AssertMoney(t, reloaded.Amount, tt.original)
			} else {
				testutil.AssertNoError(t, err)
				testutil.AssertMoney(t, updated.Amount, tt.updated)
				if updated.Note != "dinner" {
					t.Errorf("expected note to change, got %q", updated.Note)
				}
			}
			testutil.AssertMoney(t, testutil.WalletBalance(t, db, user.ID), tt.wantFinal)
			assertReconciled(t, db, user.ID)
		})
	}
}

func TestUpdateExpense_OwnerChange(t *testing.T) {
	t.Run("refunds_old_and_debits_new", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, newTestLedger())
		alice := testutil.CreateTestUserWithBalance(t, db, "100")
		bob := testutil.CreateTestUserWithBalance(t, db, "80")
		cat := testutil.CreateTestCategory(t, db)

		expense, err := svc.CreateExpense(context.Background(), expenseInput(t, alice.ID, cat.ID, "30"))
		testutil.AssertNoError(t, err)

		updated, err := svc.UpdateExpense(context.Background(), expense.ID, expenseInput(t, bob.ID, cat.ID, "45"))
		testutil.AssertNoError(t, err)
		if updated.UserID != bob.ID {
			t.Errorf("expected owner %s, got %s", bob.ID, updated.UserID)
		}

		testutil.AssertMoney(t, testutil.WalletBalance(t, db, alice.ID), "100")
		testutil.AssertMoney(t, testutil.WalletBalance(t, db, bob.ID), "35")
		assertReconciled(t, db, alice.ID)
		assertReconciled(t, db, bob.ID)
	})

	t.Run("new_owner_cannot_cover", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, newTestLedger())
		alice := testutil.CreateTestUserWithBalance(t, db, "100")
		bob := testutil.CreateTestUserWithBalance(t, db, "10")
		cat := testutil.CreateTestCategory(t, db)

		expense, err := svc.CreateExpense(context.Background(), expenseInput(t, alice.ID, cat.ID, "30"))
		testutil.AssertNoError(t, err)

		_, err = svc.UpdateExpense(context.Background(), expense.ID, expenseInput(t, bob.ID, cat.ID, "45"))
		testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")

		testutil.AssertMoney(t, testutil.WalletBalance(t, db, alice.ID), "70")
		testutil.AssertMoney(t, testutil.WalletBalance(t, db, bob.ID), "10")
		reloaded, err := svc.GetExpenseByID(expense.ID)
		testutil.AssertNoError(t, err)
		if reloaded.UserID != alice.ID {
			t.Error("expense owner must not change on failure")
		}
	})

	t.Run("unknown_new_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, newTestLedger())
		alice := testutil.CreateTestUserWithBalance(t, db, "100")
		cat := testutil.CreateTestCategory(t, db)

		expense, err := svc.CreateExpense(context.Background(), expenseInput(t, alice.ID, cat.ID, "30"))
		testutil.AssertNoError(t, err)

		_, err = svc.UpdateExpense(context.Background(), expense.ID, expenseInput(t, missingID, cat.ID, "30"))
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
		testutil.AssertMoney(t, testutil.WalletBalance(t, db, alice.ID), "70")
	})
}

func TestUpdateExpense_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db, newTestLedger())
	user := testutil.CreateTestUserWithBalance(t, db, "100")
	cat := testutil.CreateTestCategory(t, db)

	_, err := svc.UpdateExpense(context.Background(), missingID, expenseInput(t, user.ID, cat.ID, "10"))
	testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")

	// An unknown expense is reported before any problem with the payload.
	_, err = svc.UpdateExpense(context.Background(), missingID, expenseInput(t, "not-a-uuid", cat.ID, "10"))
	testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")
	_, err = svc.UpdateExpense(context.Background(), missingID, expenseInput(t, user.ID, cat.ID, "0"))
	testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")

	expense, err := svc.CreateExpense(context.Background(), expenseInput(t, user.ID, cat.ID, "10"))
	testutil.AssertNoError(t, err)

	_, err = svc.UpdateExpense(context.Background(), expense.ID, expenseInput(t, user.ID, missingID, "10"))
	testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")

	_, err = svc.UpdateExpense(context.Background(), expense.ID, expenseInput(t, user.ID, cat.ID, "0"))
	testutil.AssertAppError(t, err, "INVALID_INPUT")

	_, err = svc.UpdateExpense(context.Background(), expense.ID, expenseInput(t, "not-a-uuid", cat.ID, "10"))
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	testutil.AssertMoney(t, testutil.WalletBalance(t, db, user.ID), "90")
}

func TestDeleteExpense(t *testing.T) {
	t.Run("refunds_wallet", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, newTestLedger())
		user := testutil.CreateTestUserWithBalance(t, db, "100")
		cat := testutil.CreateTestCategory(t, db)

		expense, err := svc.CreateExpense(context.Background(), expenseInput(t, user.ID, cat.ID, "40"))
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.DeleteExpense(context.Background(), expense.ID))
		testutil.AssertMoney(t, testutil.WalletBalance(t, db, user.ID), "100")

		_, err = svc.GetExpenseByID(expense.ID)
		testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")
		assertReconciled(t, db, user.ID)
	})

	t.Run("round_trip", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, newTestLedger())
		user := testutil.CreateTestUserWithBalance(t, db, "100")
		cat := testutil.CreateTestCategory(t, db)

		expense, err := svc.CreateExpense(context.Background(), expenseInput(t, user.ID, cat.ID, "25"))
		testutil.AssertNoError(t, err)
		before := testutil.WalletBalance(t, db, user.ID)

		testutil.AssertNoError(t, svc.DeleteExpense(context.Background(), expense.ID))
		_, err = svc.CreateExpense(context.Background(), expenseInput(t, user.ID, cat.ID, "25"))
		testutil.AssertNoError(t, err)

		if after := testutil.WalletBalance(t, db, user.ID); !after.Equal(before) {
			t.Errorf("expected %s after round trip, got %s", before, after)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db, newTestLedger())

		testutil.AssertAppError(t, svc.DeleteExpense(context.Background(), missingID), "EXPENSE_NOT_FOUND")
		testutil.AssertAppError(t, svc.DeleteExpense(context.Background(), "garbage"), "EXPENSE_NOT_FOUND")
	})
}

// TestExpenseSequence_WalletMatchesLiveExpenses drives a pseudo-random mix of
// creates, updates and deletes and checks after every step that the wallet
// equals the initial balance minus the live expenses.
func TestExpenseSequence_WalletMatchesLiveExpenses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db, newTestLedger())
	user := testutil.CreateTestUserWithBalance(t, db, "500")
	cat := testutil.CreateTestCategory(t, db)
	initial := testutil.Money(t, "500")

	rng := rand.New(rand.NewSource(42))
	var live []string
	ctx := context.Background()

	for step := 0; step < 60; step++ {
		amount := decimal.New(int64(rng.Intn(9000)+1), -2)
		in := ExpenseInput{UserID: user.ID, CategoryID: cat.ID, Amount: amount, ExpenseDate: testutil.Date(t, "2024-02-01")}

		switch op := rng.Intn(3); {
		case op == 0 || len(live) == 0:
			expense, err := svc.CreateExpense(ctx, in)
			if err == nil {
				live = append(live, expense.ID)
			} else {
				testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")
			}
		case op == 1:
			id := live[rng.Intn(len(live))]
			if _, err := svc.UpdateExpense(ctx, id, in); err != nil {
				testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")
			}
		default:
			i := rng.Intn(len(live))
			testutil.AssertNoError(t, svc.DeleteExpense(ctx, live[i]))
			live = append(live[:i], live[i+1:]...)
		}

		var amounts []decimal.Decimal
		db.Model(&models.Expense{}).Where("user_id = ?", user.ID).Pluck("amount", &amounts)
		want := initial.Sub(decimal.Sum(decimal.Zero, amounts...))
		if got := testutil.WalletBalance(t, db, user.ID); !got.Equal(want) {
			t.Fatalf("step %d: wallet %s, want %s", step, got, want)
		}
		if got := testutil.WalletBalance(t, db, user.ID); got.IsNegative() {
			t.Fatalf("step %d: negative wallet %s", step, got)
		}
	}
}

func TestListExpenses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db, ledger.New(ledger.NewMemoryLocker(), 0))
	alice := testutil.CreateTestUser(t, db)
	bob := testutil.CreateTestUser(t, db)
	food := testutil.CreateTestCategoryNamed(t, db, "Food")
	travel := testutil.CreateTestCategoryNamed(t, db, "Travel")
	testutil.CreateTestExpense(t, db, alice.ID, food.ID, "10", "2024-01-01")
	testutil.CreateTestExpense(t, db, alice.ID, travel.ID, "20", "2024-01-03")
	testutil.CreateTestExpense(t, db, bob.ID, food.ID, "30", "2024-01-02")

	t.Run("by_user", func(t *testing.T) {
		page, err := svc.ListUserExpenses(alice.ID, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 2 {
			t.Fatalf("expected 2 expenses, got %d", page.TotalItems)
		}
		if got := models.FormatDate(page.Data[0].ExpenseDate); got != "2024-01-03" {
			t.Errorf("expected newest first, got %s", got)
		}
		if page.Data[0].Category == nil {
			t.Error("expected category to be loaded")
		}
	})

	t.Run("by_unknown_user", func(t *testing.T) {
		page, err := svc.ListUserExpenses(missingID, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 0 || page.Data == nil {
			t.Errorf("expected an empty page, got %+v", page)
		}
	})

	t.Run("by_category_name", func(t *testing.T) {
		page, err := svc.ListExpensesByCategoryName("Food", pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 2 {
			t.Errorf("expected 2 food expenses, got %d", page.TotalItems)
		}
		for _, e := range page.Data {
			if e.CategoryID != food.ID {
				t.Errorf("unexpected category %s", e.CategoryID)
			}
		}
	})

	t.Run("all", func(t *testing.T) {
		page, err := svc.ListAllExpenses(pagination.PageRequest{Page: 1, PageSize: 2})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 3 || len(page.Data) != 2 {
			t.Errorf("expected 3 total and 2 on the page, got %d and %d", page.TotalItems, len(page.Data))
		}
	})
}
