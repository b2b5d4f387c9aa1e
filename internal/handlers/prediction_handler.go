package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spendwise/internal/services"
)

// PredictionHandler serves spending forecasts.
type PredictionHandler struct {
	predictionService services.PredictionServicer
}

// NewPredictionHandler creates a new PredictionHandler.
func NewPredictionHandler(predictionService services.PredictionServicer) *PredictionHandler {
	return &PredictionHandler{predictionService: predictionService}
}

// PredictNextMonth handles a forecast request. An unavailable prediction
// service still answers 200 with a zero forecast and an error message.
// @Summary     Predict next month's spending
// @Tags        predictions
// @Produce     json
// @Param       userId path string true "User ID"
// @Success     200 {object} prediction.Prediction "Forecast"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /predictions/user/{userId} [get]
func (h *PredictionHandler) PredictNextMonth(c *gin.Context) {
	p, err := h.predictionService.PredictNextMonth(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"prediction": p})
}
