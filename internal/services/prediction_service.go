package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/logger"
	"spendwise/internal/models"
	"spendwise/internal/prediction"
	"spendwise/internal/uuid"
)

// Messages returned in Prediction.Error when no forecast could be obtained.
const (
	PredictionUnavailable   = "AI service is unavailable"
	PredictionEmptyResponse = "AI service returned empty response"
)

// predictionService forwards forecast requests to the prediction service and
// turns its failures into a zero forecast.
type predictionService struct {
	db         *gorm.DB
	client     Predictor
	connString string
}

// NewPredictionService creates a new PredictionServicer. connString is the
// storage descriptor handed to the prediction service.
func NewPredictionService(db *gorm.DB, client Predictor, connString string) PredictionServicer {
	return &predictionService{db: db, client: client, connString: connString}
}

// PredictNextMonth returns the forecast spend of a user for next month. The
// only error is UserNotFound; service failures come back as a zero forecast
// with an explanatory message.
func (s *predictionService) PredictNextMonth(ctx context.Context, userID string) (*prediction.Prediction, error) {
	if !uuid.IsValid(userID) {
		return nil, apperrors.ErrUserNotFound
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return nil, apperrors.ErrUserNotFound
	}

	result, err := s.client.Predict(ctx, userID, s.connString)
	if err != nil {
		message := PredictionUnavailable
		if errors.Is(err, prediction.ErrEmptyResponse) {
			message = PredictionEmptyResponse
		}
		logger.Get().Warnw("prediction service call failed",
			"user_id", userID,
			"error", err,
		)
		return &prediction.Prediction{
			UserID:                    userID,
			PredictedNextMonthExpense: decimal.Zero,
			Error:                     message,
		}, nil
	}

	if result.UserID == "" {
		result.UserID = userID
	}
	return result, nil
}
