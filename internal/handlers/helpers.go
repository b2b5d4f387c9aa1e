package handlers

import (
	"github.com/gin-gonic/gin"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/middleware"
	"spendwise/internal/pagination"
	"spendwise/internal/uuid"
)

// parsePathID reads a UUID path parameter. A malformed id cannot name an
// existing row, so it is reported as notFound.
func parsePathID(c *gin.Context, param string, notFound *apperrors.AppError) (string, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return "", notFound
	}
	return id, nil
}

// bindPage parses page and page_size from the query string.
func bindPage(c *gin.Context) (pagination.PageRequest, error) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		return page, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	page.Defaults()
	return page, nil
}

// bindError turns a binding or validation failure into INVALID_INPUT.
func bindError(err error) *apperrors.AppError {
	return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
}

// respondWithError writes the JSON error response for err and stops the
// handler chain.
func respondWithError(c *gin.Context, err error) {
	middleware.WriteError(c, err)
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// MessageResponse represents a simple message response
type MessageResponse struct {
	Message string `json:"message"`
}
