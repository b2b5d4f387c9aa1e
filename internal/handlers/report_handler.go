package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spendwise/internal/models"
	"spendwise/internal/services"
	"spendwise/internal/uuid"
)

// ReportHandler serves spending reports.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ReportQuery holds the query parameters of a report request.
type ReportQuery struct {
	StartDate   string `form:"start_date" binding:"required,date_only"`
	EndDate     string `form:"end_date" binding:"required,date_only"`
	CategoryIDs string `form:"category_ids" binding:"omitempty,uuid_list"`
}

func (q ReportQuery) parse() (start, end time.Time, categoryIDs []string, err error) {
	if start, err = models.ParseDate(q.StartDate); err != nil {
		return
	}
	if end, err = models.ParseDate(q.EndDate); err != nil {
		return
	}
	categoryIDs, err = uuid.ParseList(q.CategoryIDs)
	return
}

// GetUserReport handles generating a spending report.
// @Summary     Spending report
// @Description Totals, per-category and per-day spending and the five largest expenses of a user over an inclusive date range
// @Tags        reports
// @Produce     json
// @Param       userId       path  string true  "User ID"
// @Param       start_date   query string true  "Start date (YYYY-MM-DD)"
// @Param       end_date     query string true  "End date (YYYY-MM-DD)"
// @Param       category_ids query string false "Comma separated category IDs"
// @Success     200 {object} report.Report "Report"
// @Failure     400 {object} ErrorResponse "Invalid input or date range"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/user/{userId} [get]
func (h *ReportHandler) GetUserReport(c *gin.Context) {
	var q ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	start, end, categoryIDs, err := q.parse()
	if err != nil {
		respondWithError(c, bindError(err))
		return
	}

	r, err := h.reportService.GenerateReport(c.Request.Context(), c.Param("userId"), start, end, categoryIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": r})
}
