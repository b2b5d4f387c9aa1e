package services

import (
	"context"
	"errors"
	"testing"

	"spendwise/internal/prediction"
	"spendwise/internal/testutil"

	"github.com/shopspring/decimal"
)

type fakePredictor struct {
	fn         func(ctx context.Context, userID, connString string) (*prediction.Prediction, error)
	connString string
}

func (f *fakePredictor) Predict(ctx context.Context, userID, connString string) (*prediction.Prediction, error) {
	f.connString = connString
	return f.fn(ctx, userID, connString)
}

func TestPredictNextMonth(t *testing.T) {
	const conn = "postgresql://app:secret@db:5432/spendwise"

	t.Run("forwards_forecast", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		fake := &fakePredictor{fn: func(ctx context.Context, userID, connString string) (*prediction.Prediction, error) {
			return &prediction.Prediction{PredictedNextMonthExpense: decimal.RequireFromString("321.50"), BasedOnMonth: "2024-05"}, nil
		}}
		svc := NewPredictionService(db, fake, conn)

		got, err := svc.PredictNextMonth(context.Background(), user.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertMoney(t, got.PredictedNextMonthExpense, "321.50")
		if got.UserID != user.ID {
			t.Errorf("expected user id to be filled in, got %q", got.UserID)
		}
		if fake.connString != conn {
			t.Errorf("expected connection descriptor %q, got %q", conn, fake.connString)
		}
	})

	t.Run("service_unavailable", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		fake := &fakePredictor{fn: func(ctx context.Context, userID, connString string) (*prediction.Prediction, error) {
			return nil, errors.New("connection refused")
		}}
		svc := NewPredictionService(db, fake, conn)

		got, err := svc.PredictNextMonth(context.Background(), user.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertMoney(t, got.PredictedNextMonthExpense, "0")
		if got.Error != PredictionUnavailable {
			t.Errorf("expected %q, got %q", PredictionUnavailable, got.Error)
		}
	})

	t.Run("empty_response", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		fake := &fakePredictor{fn: func(ctx context.Context, userID, connString string) (*prediction.Prediction, error) {
			return nil, prediction.ErrEmptyResponse
		}}
		svc := NewPredictionService(db, fake, conn)

		got, err := svc.PredictNextMonth(context.Background(), user.ID)
		testutil.AssertNoError(t, err)
		if got.Error != PredictionEmptyResponse {
			t.Errorf("expected %q, got %q", PredictionEmptyResponse, got.Error)
		}
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		called := false
		fake := &fakePredictor{fn: func(ctx context.Context, userID, connString string) (*prediction.Prediction, error) {
			called = true
			return nil, nil
		}}
		svc := NewPredictionService(db, fake, conn)

		_, err := svc.PredictNextMonth(context.Background(), missingID)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
		if called {
			t.Error("prediction service should not be called for an unknown user")
		}
	})
}
